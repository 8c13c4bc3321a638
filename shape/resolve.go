// Package shape implements the Shape Resolver (spec §4.1): mapping
// symbolic shape symbols to IR variables and computing per-value size
// expression lists.
package shape

import (
	"fmt"

	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/texprerr"
)

// Resolver caches the one IR variable created per distinct dynamic
// shape symbol, reused across every value that shares it (spec §3
// shapeSymbolToVar invariant).
type Resolver struct {
	arena *ir.Arena
	vars  map[int]ir.ExprHandle
}

// New returns a Resolver backed by a.
func New(a *ir.Arena) *Resolver {
	return &Resolver{arena: a, vars: make(map[int]ir.ExprHandle)}
}

// VarForShape implements varForShape: a static symbol becomes an
// immediate, a dynamic symbol becomes (or reuses) a cached named
// variable "ss<|id|>".
func (r *Resolver) VarForShape(s graph.ShapeSymbol) ir.ExprHandle {
	if s.IsStatic() {
		return r.arena.IntImm(int64(s.StaticSize()))
	}
	id := s.DynamicID()
	if h, ok := r.vars[id]; ok {
		return h
	}
	h := r.arena.Var(s.String(), dtype.Int64)
	r.vars[id] = h
	return h
}

// SizesFromSymbolicShape implements sizesFromSymbolicShape: one
// expression per dimension of shape. shape must have known rank.
func (r *Resolver) SizesFromSymbolicShape(shape []graph.ShapeSymbol) ([]ir.ExprHandle, error) {
	if shape == nil {
		return nil, texprerr.New(texprerr.Malformed, "shape-resolver", "symbolic shape has unknown rank")
	}
	out := make([]ir.ExprHandle, len(shape))
	for i, s := range shape {
		out[i] = r.VarForShape(s)
	}
	return out, nil
}

// SizesForValue implements sizesForValue: tensors use the symbolic-shape
// path, float/int scalars are a singleton [1], none is empty, and a
// tensor with only cached known sizes (no symbolic shape) falls back to
// those. Anything else fails malformed-input naming the value's kind.
func (r *Resolver) SizesForValue(v *graph.Value) ([]ir.ExprHandle, error) {
	switch v.Kind {
	case graph.KindTensor:
		if v.Shape != nil {
			return r.SizesFromSymbolicShape(v.Shape)
		}
		if v.KnownSizes != nil {
			out := make([]ir.ExprHandle, len(v.KnownSizes))
			for i, sz := range v.KnownSizes {
				out[i] = r.arena.IntImm(int64(sz))
			}
			return out, nil
		}
		return nil, texprerr.New(texprerr.Malformed, "shape-resolver", fmt.Sprintf("tensor value %q has no known sizes", v.Name))
	case graph.KindFloat, graph.KindInt:
		return []ir.ExprHandle{r.arena.IntImm(1)}, nil
	case graph.KindNone:
		return nil, nil
	default:
		return nil, texprerr.New(texprerr.Malformed, "shape-resolver", fmt.Sprintf("unhandled value kind %v for %q", v.Kind, v.Name))
	}
}
