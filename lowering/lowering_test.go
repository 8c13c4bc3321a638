package lowering

import (
	"strings"
	"testing"

	"github.com/texpr-dev/texpr/argval"
	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
)

type fakeBindings struct {
	bufs map[*graph.Value]ir.BufHandle
}

func (f fakeBindings) Buf(v *graph.Value) (ir.BufHandle, bool) { h, ok := f.bufs[v]; return h, ok }
func (f fakeBindings) Scalar(v *graph.Value) (ir.ExprHandle, bool) { return 0, false }

func TestDispatchUnknownOpSuggestsClosest(t *testing.T) {
	r := NewRegistry()
	r.RegisterCustom("aten::add", func(a *ir.Arena, args []argval.Value, shape []ir.ExprHandle, dt dtype.DType, device string) (ir.ComputeTensor, error) {
		return ir.ComputeTensor{}, nil
	})
	a := ir.NewArena()
	n := &graph.Node{Op: "aten::adds", Outputs: []*graph.Value{{Name: "o"}}}
	used := map[*graph.Value]bool{n.Outputs[0]: true}
	_, err := Dispatch(r, a, fakeBindings{bufs: map[*graph.Value]ir.BufHandle{}}, n, used, nil, dtype.Float32, "cpu")
	if err == nil {
		t.Fatal("expected dispatch error for unknown op")
	}
	if !strings.Contains(err.Error(), `did you mean "aten::add"`) {
		t.Fatalf("expected suggestion of aten::add, got %v", err)
	}
}

func TestDispatchSkipsUnusedOutputs(t *testing.T) {
	r := NewRegistry()
	a := ir.NewArena()
	n := &graph.Node{Op: "aten::add", Outputs: []*graph.Value{{Name: "o"}}}
	ct, err := Dispatch(r, a, fakeBindings{bufs: map[*graph.Value]ir.BufHandle{}}, n, map[*graph.Value]bool{}, nil, dtype.Float32, "cpu")
	if err != nil {
		t.Fatal(err)
	}
	if !ct.IsPassThrough() {
		t.Fatal("expected pass-through for unused output")
	}
}

func TestToArgBuffer(t *testing.T) {
	a := ir.NewArena()
	buf := a.NewBuffer("x", dtype.Float32, nil)
	v := &graph.Value{Name: "x"}
	b := fakeBindings{bufs: map[*graph.Value]ir.BufHandle{v: buf}}
	got, err := ToArg(a, b, v)
	if err != nil || got.Kind != argval.KindBuffer || got.Buf != buf {
		t.Fatalf("ToArg(bound buffer) = %+v, %v", got, err)
	}
}

func TestToArgNone(t *testing.T) {
	a := ir.NewArena()
	v := &graph.Value{Name: "n", Kind: graph.KindNone}
	got, err := ToArg(a, fakeBindings{bufs: map[*graph.Value]ir.BufHandle{}}, v)
	if err != nil || !got.IsNone() {
		t.Fatalf("ToArg(none) = %+v, %v", got, err)
	}
}

func TestToArgConstantScalar(t *testing.T) {
	a := ir.NewArena()
	v := &graph.Value{Name: "s", Kind: graph.KindInt, Const: graph.ConstPayload{IsConstant: true, IsScalar: true, ScalarInt: 7}}
	got, err := ToArg(a, fakeBindings{bufs: map[*graph.Value]ir.BufHandle{}}, v)
	if err != nil || got.Kind != argval.KindInt || got.Int != 7 {
		t.Fatalf("ToArg(const int) = %+v, %v", got, err)
	}
}

func TestSynthesizeZeroBias(t *testing.T) {
	a := ir.NewArena()
	weight := a.NewBuffer("w", dtype.Float32, []ir.ExprHandle{a.IntImm(8), a.IntImm(3), a.IntImm(3), a.IntImm(3)})
	bias := SynthesizeZeroBias(a, weight)
	if a.Rank(bias) != 1 {
		t.Fatalf("expected rank-1 bias buffer, got %d", a.Rank(bias))
	}
}

func TestRandomBroadcastConflict(t *testing.T) {
	r := NewRegistry()
	r.MarkRandom()
	r.MarkBroadcast()
	if err := r.CheckRandomBroadcastConflict(); err == nil {
		t.Fatal("expected conflict error")
	}
}
