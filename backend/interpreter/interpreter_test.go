package interpreter

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/ir"
)

func float32Bytes(vals ...float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func readFloat32s(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out
}

func TestRunAddTwoOnes(t *testing.T) {
	a := ir.NewArena()
	n := int64(16)
	inA := a.NewBuffer("a", dtype.Float32, []ir.ExprHandle{a.IntImm(n)})
	inB := a.NewBuffer("b", dtype.Float32, []ir.ExprHandle{a.IntImm(n)})
	out := a.NewBuffer("out", dtype.Float32, []ir.ExprHandle{a.IntImm(n)})

	i := a.Var("i", dtype.Int64)
	loadA := a.Load(inA, []ir.ExprHandle{i}, dtype.Float32)
	loadB := a.Load(inB, []ir.ExprHandle{i}, dtype.Float32)
	store := a.Store(out, []ir.ExprHandle{i}, a.Add(loadA, loadB))
	loop := a.For(i, a.IntImm(0), a.IntImm(n), store)

	nest := ir.NewLoopNest(a)
	nest.Add(ir.ComputeTensor{Buf: out, Body: loop})

	ones := make([]float32, n)
	for i := range ones {
		ones[i] = 1
	}

	mem := NewMemory()
	mem.Bind(inA, float32Bytes(ones...))
	mem.Bind(inB, float32Bytes(ones...))
	outRaw := make([]byte, n*4)
	mem.Bind(out, outRaw)

	if err := Run(a, nest, mem, map[ir.ExprHandle]Value{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := readFloat32s(outRaw)
	for i, v := range got {
		if v != 2 {
			t.Fatalf("out[%d] = %v, want 2", i, v)
		}
	}
}

func TestRunResolvesSymbolicShapeScalar(t *testing.T) {
	a := ir.NewArena()
	nVar := a.Var("ss1", dtype.Int64)
	inBuf := a.NewBuffer("in", dtype.Float32, []ir.ExprHandle{nVar})
	outBuf := a.NewBuffer("out", dtype.Float32, []ir.ExprHandle{nVar})

	i := a.Var("i", dtype.Int64)
	load := a.Load(inBuf, []ir.ExprHandle{i}, dtype.Float32)
	store := a.Store(outBuf, []ir.ExprHandle{i}, a.Add(load, a.FloatImm(1, dtype.Float32)))
	loop := a.For(i, a.IntImm(0), nVar, store)

	nest := ir.NewLoopNest(a)
	nest.Add(ir.ComputeTensor{Buf: outBuf, Body: loop})

	env := map[ir.ExprHandle]Value{nVar: intValue(3)}
	mem := NewMemory()
	mem.Bind(inBuf, float32Bytes(1, 2, 3))
	outRaw := make([]byte, 3*4)
	mem.Bind(outBuf, outRaw)

	if err := Run(a, nest, mem, env); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []float32{2, 3, 4}
	got := readFloat32s(outRaw)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("out[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRunCompareSelect(t *testing.T) {
	a := ir.NewArena()
	lhs := a.IntImm(3)
	rhs := a.IntImm(5)
	sel := a.CompareSelect(lhs, rhs, ir.CmpLT, a.IntImm(100), a.IntImm(200))
	v, err := Eval(a, map[ir.ExprHandle]Value{}, NewMemory(), sel)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.asInt() != 100 {
		t.Fatalf("expected 100, got %d", v.asInt())
	}
}

func TestExecLetBindsForRestOfBlock(t *testing.T) {
	a := ir.NewArena()
	buf := a.NewBuffer("out", dtype.Int64, []ir.ExprHandle{a.IntImm(1)})
	x := a.Var("x", dtype.Int64)
	let := a.Let(x, a.IntImm(41))
	store := a.Store(buf, []ir.ExprHandle{a.IntImm(0)}, a.Add(x, a.IntImm(1)))
	block := a.Block([]ir.StmtHandle{let, store})

	mem := NewMemory()
	raw := make([]byte, 8)
	mem.Bind(buf, raw)
	env := map[ir.ExprHandle]Value{}
	if err := Exec(a, env, mem, block); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	got := int64(binary.LittleEndian.Uint64(raw))
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}
