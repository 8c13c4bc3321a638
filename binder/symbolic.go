package binder

import (
	"github.com/texpr-dev/texpr/graph"
)

// BindSymbolicShapeInputs records one ShapeSymbolInputPos entry per
// construction-time symbolic shape id (spec §6 "Construction inputs"),
// in the order of ids, after every tensor/scalar input has already been
// bound; it adds nothing to bufferArgs. The variable reused is whichever one
// VarForShape already created for that id; a fresh one is created if the
// id was never referenced by any bound value's shape.
func (b *Binder) BindSymbolicShapeInputs(ids []int) {
	for i, id := range ids {
		h := b.Shapes.VarForShape(graph.Dynamic(id))
		b.ShapeSymbolInputPos[h] = len(b.bufferArgs) + i
	}
	// Symbolic shape scalars ride the argument vector positionally rather
	// than through a named buffer; bufferArgs only tracks buffer-backed
	// arguments, matching the Runtime Invoker reading them straight off
	// the call stack (spec §4.8 step 3).
}
