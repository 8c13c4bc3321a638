package lowering

import (
	"fmt"

	"github.com/texpr-dev/texpr/argval"
	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/texprerr"
)

// Bindings is the subset of binder state the dispatcher reads: which
// graph values already resolved to buffers or scalars.
type Bindings interface {
	Buf(v *graph.Value) (ir.BufHandle, bool)
	Scalar(v *graph.Value) (ir.ExprHandle, bool)
}

// Dispatch resolves and invokes the lowering for node n, building its
// argument list per spec §4.4's per-op special cases, and returns the
// resulting compute tensor for the node's (single, used) output; the
// caller records it against that output. A node with no used output
// yields an empty (pass-through) compute tensor.
func Dispatch(r *Registry, a *ir.Arena, b Bindings, n *graph.Node, used map[*graph.Value]bool, outputShape []ir.ExprHandle, outputDType dtype.DType, device string) (ir.ComputeTensor, error) {
	if !n.HasUses(used) {
		return ir.ComputeTensor{}, nil
	}

	args, err := buildArgs(a, b, n)
	if err != nil {
		return ir.ComputeTensor{}, err
	}

	fn, err := r.resolve(n.Op, n.Schema)
	if err != nil {
		return ir.ComputeTensor{}, err
	}

	ct, err := fn(a, args, outputShape, outputDType, device)
	if err != nil {
		return ir.ComputeTensor{}, texprerr.Wrap(texprerr.Unsupported, "lowering-dispatcher", fmt.Sprintf("lowering %q failed", n.Op), err)
	}
	return ct, nil
}

func buildArgs(a *ir.Arena, b Bindings, n *graph.Node) ([]argval.Value, error) {
	switch {
	case n.IsConstantChunk():
		return buildConstantChunkArgs(a, b, n)
	case n.IsTo():
		return buildToArgs(a, b, n)
	case n.IsQuantizePerTensor():
		return buildQuantizePerTensorArgs(a, b, n)
	case n.IsConv2D():
		return buildConv2DArgs(a, b, n)
	default:
		return toArgAll(a, b, n.Inputs)
	}
}

func toArgAll(a *ir.Arena, b Bindings, inputs []*graph.Value) ([]argval.Value, error) {
	out := make([]argval.Value, len(inputs))
	for i, in := range inputs {
		v, err := ToArg(a, b, in)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ToArg converts a graph value to the ArgValue a lowering consumes
// (spec §4.4 toArg):
//   - already-bound buffer → buffer handle
//   - ListConstruct → recurse on elements; homogeneous buffers → buffer
//     list; ints → int vector; empty → empty buffer list
//   - constant scalar → raw scalar; none → sentinel; int/double list →
//     vector arg
//   - otherwise → look up in scalars
func ToArg(a *ir.Arena, b Bindings, v *graph.Value) (argval.Value, error) {
	if h, ok := b.Buf(v); ok {
		return argval.Buffer(h), nil
	}

	if v.Producer != nil && v.Producer.IsListConstruct() {
		return toArgList(a, b, v.Producer.Inputs)
	}

	if v.Kind == graph.KindNone {
		return argval.None(), nil
	}

	if v.Const.IsConstant && v.Const.IsScalar {
		switch v.Kind {
		case graph.KindFloat:
			return argval.Double(v.Const.ScalarFloat), nil
		case graph.KindInt:
			return argval.Int(v.Const.ScalarInt), nil
		case graph.KindBool:
			return argval.Bool(v.Const.ScalarBool), nil
		}
	}

	if h, ok := b.Scalar(v); ok {
		if iv, ok := a.IsConstInt(h); ok {
			valueDType, err := dt(v)
			if err != nil {
				return argval.Value{}, err
			}
			if valueDType == dtype.Bool {
				return argval.Bool(iv != 0), nil
			}
			return argval.Int(iv), nil
		}
		return argval.Value{}, texprerr.New(texprerr.Runtime, "lowering-dispatcher",
			fmt.Sprintf("scalar value %q is not a compile-time constant; a runtime-bound scalar must be threaded through the loop body as a Var, not an ArgValue", v.Name))
	}

	return argval.Value{}, texprerr.New(texprerr.Malformed, "lowering-dispatcher", fmt.Sprintf("value %q has no buffer, scalar, or constant binding", v.Name))
}

// dt returns v's dtype, failing malformed-input (spec §9's permitted
// tightening of the default-float Open Question) instead of silently
// assuming dtype.Default when v has none.
func dt(v *graph.Value) (dtype.DType, error) {
	if v.HasDType {
		return v.DType, nil
	}
	return dtype.Invalid, texprerr.New(texprerr.Malformed, "lowering-dispatcher", fmt.Sprintf("value %q has no dtype", v.Name))
}

func toArgList(a *ir.Arena, b Bindings, elems []*graph.Value) (argval.Value, error) {
	if len(elems) == 0 {
		return argval.BufferList(nil), nil
	}
	allBuf := true
	allInt := true
	for _, e := range elems {
		if _, ok := b.Buf(e); !ok {
			allBuf = false
		}
		if e.Kind != graph.KindInt {
			allInt = false
		}
	}
	switch {
	case allBuf:
		bufs := make([]ir.BufHandle, len(elems))
		for i, e := range elems {
			bufs[i], _ = b.Buf(e)
		}
		return argval.BufferList(bufs), nil
	case allInt:
		ints := make([]int64, len(elems))
		for i, e := range elems {
			if e.Const.IsConstant && e.Const.IsScalar {
				ints[i] = e.Const.ScalarInt
			}
		}
		return argval.IntList(ints), nil
	default:
		doubles := make([]float64, len(elems))
		for i, e := range elems {
			if e.Const.IsConstant && e.Const.IsScalar {
				doubles[i] = e.Const.ScalarFloat
			}
		}
		return argval.DoubleList(doubles), nil
	}
}

func buildConstantChunkArgs(a *ir.Arena, b Bindings, n *graph.Node) ([]argval.Value, error) {
	// [input0, output_offset, dim, chunks] — offset/dim/chunks are baked
	// into the node's schema-independent metadata upstream; here they
	// ride as the node's remaining inputs in positions 1..3.
	return toArgAll(a, b, n.Inputs)
}

func buildToArgs(a *ir.Arena, b Bindings, n *graph.Node) ([]argval.Value, error) {
	if len(n.Inputs) == 0 {
		return nil, texprerr.New(texprerr.Malformed, "lowering-dispatcher", "aten::to requires at least one input")
	}
	v, err := ToArg(a, b, n.Inputs[0])
	if err != nil {
		return nil, err
	}
	return []argval.Value{v}, nil
}

func buildQuantizePerTensorArgs(a *ir.Arena, b Bindings, n *graph.Node) ([]argval.Value, error) {
	if len(n.Inputs) != 4 {
		return nil, texprerr.New(texprerr.Malformed, "lowering-dispatcher", fmt.Sprintf("aten::quantize_per_tensor expects 4 args, got %d", len(n.Inputs)))
	}
	args := make([]argval.Value, 4)
	for i, in := range n.Inputs {
		if i == 1 || i == 2 { // scale, zero_point
			if in.Const.IsConstant && in.Rank() == 0 {
				inDType, err := dt(in)
				if err != nil {
					return nil, err
				}
				switch inDType {
				case dtype.Float32, dtype.Float64:
					args[i] = argval.Double(in.Const.ScalarFloat)
					continue
				case dtype.Int64, dtype.Int32:
					args[i] = argval.Int(in.Const.ScalarInt)
					continue
				}
			}
		}
		v, err := ToArg(a, b, in)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func buildConv2DArgs(a *ir.Arena, b Bindings, n *graph.Node) ([]argval.Value, error) {
	const biasIndex = 2
	args, err := toArgAll(a, b, n.Inputs)
	if err != nil {
		return nil, err
	}
	if biasIndex < len(args) && args[biasIndex].IsNone() {
		weight, ok := b.Buf(n.Inputs[1])
		if !ok {
			return nil, texprerr.New(texprerr.Malformed, "lowering-dispatcher", "conv2d missing weight buffer for bias synthesis")
		}
		zeroBias := SynthesizeZeroBias(a, weight)
		args[biasIndex] = argval.Buffer(zeroBias)
	}
	return args, nil
}

// SynthesizeZeroBias creates a zero-filled constant buffer of shape
// [C_out] (weight's leading dim) for conv2d's omitted bias (spec §4.4).
func SynthesizeZeroBias(a *ir.Arena, weight ir.BufHandle) ir.BufHandle {
	w := a.Buffer(weight)
	cOutDim := w.Dims[0]
	return a.NewBuffer(a.UniqueName(w.Name+"_zero_bias"), w.DType, []ir.ExprHandle{cOutDim})
}
