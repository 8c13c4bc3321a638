package binder

import (
	"testing"

	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/shape"
)

func newBinder() *Binder {
	a := ir.NewArena()
	return New(a, shape.New(a))
}

func TestSanitizeIdentifierCollision(t *testing.T) {
	seen := map[string]bool{}
	n1 := uniqueName("x.1", seen)
	n2 := uniqueName("x.1", seen)
	if n1 == n2 {
		t.Fatalf("expected collision resolution, got %q twice", n1)
	}
}

func TestSanitizeLeadingDigit(t *testing.T) {
	seen := map[string]bool{}
	got := uniqueName("0foo", seen)
	if got[0] == '0' {
		t.Fatalf("leading digit not escaped: %q", got)
	}
}

func TestBindContiguousTensorInput(t *testing.T) {
	b := newBinder()
	v := &graph.Value{Name: "x", Kind: graph.KindTensor, KnownSizes: []int{2, 2}, HasDType: true, DType: dtype.Float32}
	if err := b.BindInputs([]*graph.Value{v}); err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Bufs[v]; !ok {
		t.Fatal("expected buffer binding for contiguous tensor input")
	}
	if len(b.BufferArgs()) != 1 {
		t.Fatalf("expected one bufferArgs entry, got %d", len(b.BufferArgs()))
	}
}

func TestBindStridedTensorInput(t *testing.T) {
	b := newBinder()
	v := &graph.Value{
		Name: "x", Kind: graph.KindTensor,
		KnownSizes: []int{2, 2}, HasStrides: true, Strides: []int{1, 2},
		HasDType: true, DType: dtype.Float32,
	}
	if err := b.BindInputs([]*graph.Value{v}); err != nil {
		t.Fatal(err)
	}
	if len(b.Computes) != 1 {
		t.Fatalf("expected one restride compute for non-contiguous input, got %d", len(b.Computes))
	}
	// Only the placeholder buffer is a codegen argument; the logical buffer stays internal.
	if len(b.BufferArgs()) != 1 {
		t.Fatalf("expected placeholder buffer in bufferArgs, got %d", len(b.BufferArgs()))
	}
}

func TestBindScalarInputs(t *testing.T) {
	b := newBinder()
	f := &graph.Value{Name: "f", Kind: graph.KindFloat}
	i := &graph.Value{Name: "i", Kind: graph.KindInt}
	bl := &graph.Value{Name: "b", Kind: graph.KindBool}
	if err := b.BindInputs([]*graph.Value{f, i, bl}); err != nil {
		t.Fatal(err)
	}
	for _, v := range []*graph.Value{f, i, bl} {
		if _, ok := b.Scalars[v]; !ok {
			t.Fatalf("expected scalar binding for %q", v.Name)
		}
	}
}

func TestBindSymbolicShapeInputs(t *testing.T) {
	b := newBinder()
	b.BindSymbolicShapeInputs([]int{-1, -2})
	if len(b.ShapeSymbolInputPos) != 2 {
		t.Fatalf("expected 2 shape symbol positions, got %d", len(b.ShapeSymbolInputPos))
	}
}

func TestBindConstantTensor(t *testing.T) {
	b := newBinder()
	v := &graph.Value{
		Name: "c", Kind: graph.KindTensor, KnownSizes: []int{2},
		HasDType: true, DType: dtype.Float32,
		Const: graph.ConstPayload{IsConstant: true, TensorData: []byte{0, 0, 0, 0, 0, 0, 0x80, 0x3f}},
	}
	n := &graph.Node{Op: "prim::Constant", Outputs: []*graph.Value{v}}
	if err := b.BindConstants([]*graph.Node{n}); err != nil {
		t.Fatal(err)
	}
	if len(b.Constants) != 1 {
		t.Fatalf("expected one constant entry, got %d", len(b.Constants))
	}
}

func TestBindCustomConstant(t *testing.T) {
	b := newBinder()
	v := &graph.Value{Name: "custom", Kind: graph.KindTensor, Const: graph.ConstPayload{IsConstant: true, IsCustom: true}}
	n := &graph.Node{Op: "prim::Constant", Outputs: []*graph.Value{v}}
	if err := b.BindConstants([]*graph.Node{n}); err != nil {
		t.Fatal(err)
	}
	if b.Constants[0].Data != nil {
		t.Fatal("expected nil data for custom-class constant")
	}
}
