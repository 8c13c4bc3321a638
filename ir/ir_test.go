package ir

import (
	"strings"
	"testing"

	"github.com/texpr-dev/texpr/dtype"
)

func TestUniqueName(t *testing.T) {
	a := NewArena()
	if got := a.UniqueName("x"); got != "x" {
		t.Fatalf("first UniqueName(x) = %q", got)
	}
	if got := a.UniqueName("x"); got == "x" {
		t.Fatalf("second UniqueName(x) collided: %q", got)
	}
}

func TestSimplifyConstantFold(t *testing.T) {
	a := NewArena()
	e := a.Add(a.IntImm(2), a.IntImm(3))
	got := a.SimplifyExpr(e)
	if v, ok := a.IsConstInt(got); !ok || v != 5 {
		t.Fatalf("2+3 simplified to %v, ok=%v", v, ok)
	}
}

func TestSimplifyIdentities(t *testing.T) {
	a := NewArena()
	v := a.Var("i", dtype.Int64)

	addZero := a.Add(v, a.IntImm(0))
	if a.SimplifyExpr(addZero) != v {
		t.Error("x+0 did not simplify to x")
	}

	mulOne := a.Mul(v, a.IntImm(1))
	if a.SimplifyExpr(mulOne) != v {
		t.Error("x*1 did not simplify to x")
	}

	mulZero := a.Mul(v, a.IntImm(0))
	got := a.SimplifyExpr(mulZero)
	if iv, ok := a.IsConstInt(got); !ok || iv != 0 {
		t.Error("x*0 did not simplify to 0")
	}
}

func TestSimplifyCompareSelectConstantCondition(t *testing.T) {
	a := NewArena()
	t1, f1 := a.IntImm(10), a.IntImm(20)
	cs := a.CompareSelect(a.IntImm(1), a.IntImm(1), CmpEQ, t1, f1)
	got := a.SimplifyExpr(cs)
	if v, ok := a.IsConstInt(got); !ok || v != 10 {
		t.Fatalf("CompareSelect(1==1) = %v, want 10", v)
	}
}

func TestExprEqual(t *testing.T) {
	a := NewArena()
	x := a.Var("x", dtype.Float32)
	e1 := a.Add(x, a.IntImm(1))
	e2 := a.Add(x, a.IntImm(1))
	if !a.ExprEqual(e1, e2) {
		t.Error("structurally identical exprs should compare equal")
	}
	e3 := a.Add(x, a.IntImm(2))
	if a.ExprEqual(e1, e3) {
		t.Error("structurally different exprs should not compare equal")
	}
}

func TestDumpLoopNest(t *testing.T) {
	a := NewArena()
	n := a.IntImm(4)
	buf := a.NewBuffer("out", dtype.Float32, []ExprHandle{n})
	i := a.Var("i", dtype.Int64)
	store := a.Store(buf, []ExprHandle{i}, a.FloatImm(1, dtype.Float32))
	loop := a.SetParallel(a.For(i, a.IntImm(0), n, store), true)

	nest := NewLoopNest(a)
	nest.Add(ComputeTensor{Buf: buf, Body: loop})

	out := Dump(nest)
	if !strings.Contains(out, "for i in [0, 4) parallel") {
		t.Fatalf("dump missing expected loop header: %q", out)
	}
	if !strings.Contains(out, "out[i] = 1") {
		t.Fatalf("dump missing expected store: %q", out)
	}
}

func TestPassThroughCompute(t *testing.T) {
	a := NewArena()
	buf := a.NewBuffer("c", dtype.Int32, nil)
	ct := ComputeTensor{Buf: buf, Body: Invalid}
	if !ct.IsPassThrough() {
		t.Error("expected pass-through compute")
	}
}
