package kernel

import (
	"fmt"

	"github.com/texpr-dev/texpr/backend"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/lowering"
	"github.com/texpr-dev/texpr/restride"
	"github.com/texpr-dev/texpr/texprerr"
)

// bindAndLower runs the Input Binder, Constant Binder, Lowering
// Dispatcher, and Output Restrider in sequence (spec §4.2-§4.5),
// assembling k.rawNest and k.Slots. Nothing here is target-specific; the
// Loop-Nest Transformer and Backend Selector run afterward, separately
// for the primary and (if needed) fallback codegen.
func (k *Kernel) bindAndLower(registry *lowering.Registry) error {
	sg := k.Graph

	if err := k.Binder.BindInputs(sg.Inputs); err != nil {
		return err
	}
	if err := k.Binder.BindConstants(sg.Constants); err != nil {
		return err
	}
	k.Binder.BindSymbolicShapeInputs(sg.SymbolicShapeIDs)

	used := sg.UsedValues()
	adapter := lowering.BinderAdapter{B: k.Binder}

	nest := ir.NewLoopNest(k.Arena)
	for _, c := range k.Binder.Computes {
		nest.Add(c)
	}

	deviceStr := "cpu"
	if k.Device == backend.GPU {
		deviceStr = "gpu"
	}

	for _, n := range sg.Nodes {
		if !n.HasUses(used) {
			continue
		}
		if len(n.Outputs) == 0 {
			continue
		}
		out := n.Outputs[0]
		if _, already := k.Binder.Bufs[out]; already {
			continue
		}

		outShape, err := k.Shapes.SizesForValue(out)
		if err != nil {
			return err
		}
		outDType, err := k.dtypeOf(out)
		if err != nil {
			return err
		}
		ct, err := lowering.Dispatch(registry, k.Arena, adapter, n, used, outShape, outDType, deviceStr)
		if err != nil {
			return err
		}
		k.Binder.Bufs[out] = ct.Buf
		nest.Add(ct)

		if len(n.Outputs) > 1 {
			// Multi-output nodes (e.g. prim::ConstantChunk) bind only
			// their first output to the dispatcher's single returned
			// compute tensor; additional outputs are left unbound. No
			// lowering in this registry currently produces more than one
			// output tensor per compute, so this is not exercised.
		}
	}

	if err := registry.CheckRandomBroadcastConflict(); err != nil {
		return err
	}

	if err := k.restrideOutputs(nest); err != nil {
		return err
	}

	for buf := range k.Binder.BufOutputs {
		b := k.Arena.Buffer(buf)
		b.IsArgument = true
		k.Arena.SetBuffer(buf, b)
	}

	k.rawNest = &ir.LoopNest{Arena: k.Arena, Computes: append([]ir.ComputeTensor(nil), nest.Computes...)}

	return k.buildSlots()
}

// restrideOutputs implements the Output Restrider (spec §4.5): for each
// graph output needing restriding, synthesize output_N and repoint
// k.Binder.Bufs/OutputBufs at the synthesized buffer; otherwise the
// producer's own buffer is the output directly.
func (k *Kernel) restrideOutputs(nest *ir.LoopNest) error {
	k.OutputBufs = make([]ir.BufHandle, len(k.Graph.Outputs))
	for i, v := range k.Graph.Outputs {
		buf, ok := k.Binder.Bufs[v]
		if !ok {
			return texprerr.New(texprerr.Internal, "kernel", fmt.Sprintf("graph output %q has no bound buffer", v.Name))
		}
		if restride.Needed(v) {
			vDType, err := k.dtypeOf(v)
			if err != nil {
				return err
			}
			name := k.Arena.UniqueName("output")
			ct := restride.Synthesize(k.Arena, name, buf, v, vDType)
			nest.Add(ct)
			buf = ct.Buf
			k.Binder.Bufs[v] = buf
		}
		k.Binder.BufOutputs[buf] = true
		k.OutputBufs[i] = buf
	}
	return nil
}

// buildSlots assembles k.Slots in the exact order spec §8 requires:
// contiguous/symbolic tensor inputs (graph order) → scalar inputs (graph
// order) → symbolic-shape scalar inputs → outputs (graph order) →
// constants (definition order).
func (k *Kernel) buildSlots() error {
	slots := make([]backend.Slot, 0, len(k.Binder.BufferArgs())+len(k.Graph.Outputs)+len(k.Binder.Constants))

	for _, buf := range k.Binder.BufferArgs() {
		slots = append(slots, backend.Slot{IsBuffer: true, Buf: buf})
	}

	for _, v := range k.Graph.Inputs {
		if v.Kind == graph.KindTensor {
			continue
		}
		if h, ok := k.Binder.Scalars[v]; ok {
			slots = append(slots, backend.Slot{IsBuffer: false, Var: h})
		}
	}

	for _, v := range orderShapeSymbolVars(k.Binder.ShapeSymbolInputPos) {
		slots = append(slots, backend.Slot{IsBuffer: false, Var: v})
	}

	for _, buf := range k.OutputBufs {
		slots = append(slots, backend.Slot{IsBuffer: true, Buf: buf})
	}

	for _, c := range k.Binder.Constants {
		slots = append(slots, backend.Slot{IsBuffer: true, Buf: c.Buf})
	}

	k.Slots = slots
	return nil
}

// orderShapeSymbolVars returns the shape-symbol variables of m ordered by
// their recorded input position, matching BindSymbolicShapeInputs'
// construction-time append order.
func orderShapeSymbolVars(m map[ir.ExprHandle]int) []ir.ExprHandle {
	type pair struct {
		v   ir.ExprHandle
		pos int
	}
	pairs := make([]pair, 0, len(m))
	for v, pos := range m {
		pairs = append(pairs, pair{v, pos})
	}
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].pos < pairs[j-1].pos; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
	out := make([]ir.ExprHandle, len(pairs))
	for i, p := range pairs {
		out[i] = p.v
	}
	return out
}
