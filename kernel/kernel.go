// Package kernel implements the top-level pipeline object (spec §2):
// binding a graph.Subgraph through the Shape Resolver, Input/Constant
// Binder, Lowering Dispatcher, and Output Restrider, running it through
// the Loop-Nest Transformer, and handing the result to a Backend Selector
// codegen. Kernel also implements the Runtime Invoker (invoke.go) and the
// Fallback Controller (fallback.go).
package kernel

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/texpr-dev/texpr/backend"
	"github.com/texpr-dev/texpr/binder"
	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/lowering"
	"github.com/texpr-dev/texpr/shape"
	"github.com/texpr-dev/texpr/texprerr"
	"github.com/texpr-dev/texpr/transform"
)

// Kernel is the pipeline object of spec.md §2: it owns a subgraph, the
// state the binder/dispatcher/transformer produced for it, and the
// compiled codegen object(s) the Runtime Invoker calls through.
type Kernel struct {
	ID   string
	Name string

	Arena  *ir.Arena
	Graph  *graph.Subgraph
	Shapes *shape.Resolver
	Binder *binder.Binder
	Nest   *ir.LoopNest

	// OutputBufs is bufOutputs in graph order (spec §3).
	OutputBufs []ir.BufHandle

	// Slots is the codegen argument-position layout bufferArgs resolves
	// to: tensor/scalar inputs, symbolic-shape scalars, outputs, then
	// constants, exactly spec §8's invariant order.
	Slots []backend.Slot

	Device backend.Device
	Target transform.Target

	// Codegen is the primary compiled backend, nil when fallback is
	// enforced (spec §4.9: "if enforced, do not compile").
	Codegen backend.Codegen

	// Interpreter is the always-available fallback codegen (spec §4.9);
	// compiled lazily the first time fallback is actually needed, except
	// when fallback is enforced, in which case it is the only codegen and
	// is compiled eagerly during construction.
	Interpreter backend.Codegen

	fallbackAllowed  bool
	fallbackEnforced bool
	useFallback      bool

	// rawNest is the lowered-but-unscheduled compute list, kept so a
	// fallback compile can run its own Loop-Nest Transformer pass
	// (target interpreter) independent of whatever scheduling the
	// primary target applied (spec §4.6 step 6 is target-specific and
	// not reusable across targets; vectorization in particular produces
	// Ramp expressions the interpreter cannot evaluate).
	rawNest *ir.LoopNest

	compileMu sync.Mutex // non-reentrant compile guard (spec §5)
	runMu     sync.Mutex // guards the single compiled codegen object (spec §5)

	hasShapeKey bool
	shapeKey    uint64
}

// Options overrides the transform.DefaultOptions() settings for
// one Kernel (spec.md §9 Design Note: both process-wide and per-Kernel
// configuration are supported).
type Options struct {
	ThreadCount int
	PreAlloc    bool
}

// New compiles subgraph into a Kernel: Shape Resolver → Input/Constant
// Binder → Lowering Dispatcher → Output Restrider → Loop-Nest
// Transformer → Backend Selector, per spec.md §2's data-flow and §4.9's
// Fallback Controller gate. Construction is compilation: by the time New
// returns without error, the Kernel is ready to Run.
func New(sg *graph.Subgraph, registry *lowering.Registry, device backend.Device, opts Options) (*Kernel, error) {
	k := &Kernel{
		ID:     uuid.NewString(),
		Name:   sg.FunctionName,
		Arena:  ir.NewArena(),
		Graph:  sg,
		Device: device,
	}
	k.Shapes = shape.New(k.Arena)
	k.Binder = binder.New(k.Arena, k.Shapes)

	k.readFallbackConfig()

	if err := k.bindAndLower(registry); err != nil {
		return nil, err
	}

	if k.fallbackEnforced {
		k.Target = transform.TargetInterpreter
		if err := k.compileInterpreterFallback(opts); err != nil {
			return nil, err
		}
		k.useFallback = true
		return k, nil
	}

	if err := k.compilePrimary(opts); err != nil {
		if !k.fallbackAllowed {
			return nil, err
		}
		if fbErr := k.compileInterpreterFallback(opts); fbErr != nil {
			return nil, texprerr.Wrap(texprerr.Internal, "kernel", fmt.Sprintf("primary compile failed (%v) and fallback compile also failed", err), fbErr)
		}
		k.useFallback = true
	}
	return k, nil
}

// dtypeOf returns v's dtype, failing malformed-input (spec §9's
// permitted tightening of the default-float Open Question) instead of
// silently assuming dtype.Default when v has none.
func (k *Kernel) dtypeOf(v *graph.Value) (dtype.DType, error) {
	if v.HasDType {
		return v.DType, nil
	}
	return dtype.Invalid, texprerr.New(texprerr.Malformed, "kernel", fmt.Sprintf("value %q has no dtype", v.Name))
}
