package lowering

import (
	"github.com/texpr-dev/texpr/binder"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
)

// BinderAdapter satisfies Bindings by reading directly from a
// binder.Binder's Bufs/Scalars maps, keeping the lowering package from
// importing binder's mutation surface.
type BinderAdapter struct{ B *binder.Binder }

func (a BinderAdapter) Buf(v *graph.Value) (ir.BufHandle, bool) {
	h, ok := a.B.Bufs[v]
	return h, ok
}

func (a BinderAdapter) Scalar(v *graph.Value) (ir.ExprHandle, bool) {
	h, ok := a.B.Scalars[v]
	return h, ok
}
