package shape

import (
	"testing"

	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
)

func TestVarForShapeCaching(t *testing.T) {
	a := ir.NewArena()
	r := New(a)

	h1 := r.VarForShape(graph.Dynamic(-1))
	h2 := r.VarForShape(graph.Dynamic(-1))
	if h1 != h2 {
		t.Fatal("expected the same dynamic shape symbol to reuse its variable")
	}

	h3 := r.VarForShape(graph.Static(4))
	if v, ok := a.IsConstInt(h3); !ok || v != 4 {
		t.Fatalf("Static(4) did not resolve to IntImm(4): %v", v)
	}
}

func TestSizesForValue(t *testing.T) {
	a := ir.NewArena()
	r := New(a)

	tensor := &graph.Value{Name: "x", Kind: graph.KindTensor, Shape: []graph.ShapeSymbol{graph.Static(2), graph.Dynamic(-1)}}
	sizes, err := r.SizesForValue(tensor)
	if err != nil || len(sizes) != 2 {
		t.Fatalf("SizesForValue(tensor) = %v, %v", sizes, err)
	}

	scalar := &graph.Value{Name: "f", Kind: graph.KindFloat}
	sizes, err = r.SizesForValue(scalar)
	if err != nil || len(sizes) != 1 {
		t.Fatalf("SizesForValue(float) = %v, %v", sizes, err)
	}

	none := &graph.Value{Name: "n", Kind: graph.KindNone}
	sizes, err = r.SizesForValue(none)
	if err != nil || len(sizes) != 0 {
		t.Fatalf("SizesForValue(none) = %v, %v", sizes, err)
	}

	unknown := &graph.Value{Name: "u", Kind: graph.KindTensor}
	if _, err := r.SizesForValue(unknown); err == nil {
		t.Fatal("expected malformed-input error for tensor with no known sizes")
	}
}
