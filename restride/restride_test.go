package restride

import (
	"testing"

	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
)

func TestNeededTransposed(t *testing.T) {
	v := &graph.Value{KnownSizes: []int{2, 3}, HasStrides: true, Strides: []int{1, 2}}
	if !Needed(v) {
		t.Fatal("expected restride needed for transposed output")
	}
}

func TestNeededContiguousSkipped(t *testing.T) {
	v := &graph.Value{KnownSizes: []int{2, 3}, HasStrides: true, Strides: []int{3, 1}}
	if Needed(v) {
		t.Fatal("expected no restride for already-contiguous strides")
	}
}

func TestNeededOverlappingSkipped(t *testing.T) {
	v := &graph.Value{KnownSizes: []int{2, 3}, HasStrides: true, Strides: []int{0, 1}}
	if Needed(v) {
		t.Fatal("expected no restride for overlapping (broadcast) strides")
	}
}

func TestSynthesizeProducesStatement(t *testing.T) {
	a := ir.NewArena()
	src := a.NewBuffer("src", dtype.Float32, []ir.ExprHandle{a.IntImm(6)})
	v := &graph.Value{KnownSizes: []int{2, 3}, HasStrides: true, Strides: []int{1, 2}}
	ct := Synthesize(a, "output_0", src, v, dtype.Float32)
	if ct.IsPassThrough() {
		t.Fatal("expected a statement body")
	}
	if a.Buffer(ct.Buf).Name != "output_0" {
		t.Fatalf("unexpected buffer name %q", a.Buffer(ct.Buf).Name)
	}
}
