// Package binder implements the Input Binder and Constant Binder (spec
// §4.2-4.3): translating graph inputs and constants into IR buffers and
// scalar variables, and assembling the Kernel's bufferArgs codegen
// argument order (spec §3, §8 invariants).
package binder

import (
	"fmt"

	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/shape"
	"github.com/texpr-dev/texpr/texprerr"
)

// ConstantEntry records one materialized constant's buffer and raw data
// pointer, kept alive for the Kernel's lifetime (spec §3 "constants").
type ConstantEntry struct {
	Buf  ir.BufHandle
	Data []byte // nil for custom/opaque constants (spec §4.3 bullet 1)
	Node *graph.Node
}

// Binder owns the per-compilation state spec §3 names: the value→buffer
// and value→scalar maps, the dynamic-shape-symbol→input-position table,
// the output buffer set, and the bufferArgs codegen order.
type Binder struct {
	Arena  *ir.Arena
	Shapes *shape.Resolver

	Bufs    map[*graph.Value]ir.BufHandle
	Scalars map[*graph.Value]ir.ExprHandle

	// ShapeSymbolInputPos maps each dynamic shape variable to an ordering
	// key: the number of tensor input buffers bound before
	// BindSymbolicShapeInputs ran, plus the symbol's index in its ids
	// list. It is not a graph-input index; the kernel uses it only to
	// order the symbolic-shape values, which trail the graph inputs on
	// the call stack (spec §3, §4.8 step 3).
	ShapeSymbolInputPos map[ir.ExprHandle]int

	BufOutputs map[ir.BufHandle]bool

	Constants []ConstantEntry

	// bufferArgs holds the tensor-input buffer arguments in graph order
	// (a strided input contributes its placeholder buffer). Scalar
	// inputs, symbolic-shape scalars, outputs and constants are not
	// stored here; the kernel adds them after these entries when it
	// builds its argument slots (kernel/build.go).
	bufferArgs []ir.BufHandle
	seenNames  map[string]bool

	// Computes collects every compute tensor the binder produced (the
	// restride computes for non-contiguous inputs); pass-through direct
	// bindings are not recorded here since they have no statement.
	Computes []ir.ComputeTensor
}

// New returns an empty Binder backed by a and sh.
func New(a *ir.Arena, sh *shape.Resolver) *Binder {
	return &Binder{
		Arena:               a,
		Shapes:              sh,
		Bufs:                make(map[*graph.Value]ir.BufHandle),
		Scalars:             make(map[*graph.Value]ir.ExprHandle),
		ShapeSymbolInputPos: make(map[ir.ExprHandle]int),
		BufOutputs:          make(map[ir.BufHandle]bool),
		seenNames:           make(map[string]bool),
	}
}

// BufferArgs returns the input-side of the codegen argument order
// assembled so far.
func (b *Binder) BufferArgs() []ir.BufHandle { return b.bufferArgs }

// dt returns v's dtype, failing malformed-input (spec §9's permitted
// tightening of the default-float Open Question) instead of silently
// assuming dtype.Default when v has none.
func dt(v *graph.Value) (dtype.DType, error) {
	if v.HasDType {
		return v.DType, nil
	}
	return dtype.Invalid, texprerr.New(texprerr.Malformed, "binder", fmt.Sprintf("value %q has no dtype", v.Name))
}
