package transform

import (
	"testing"

	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/ir"
)

// buildElementwise builds `for i in [0,n) { out[i] = in[i] + 1 }`.
func buildElementwise(a *ir.Arena, n int64, parallelizable bool) (ir.BufHandle, ir.BufHandle, ir.StmtHandle) {
	inBuf := a.NewBuffer("in", dtype.Float32, []ir.ExprHandle{a.IntImm(n)})
	outBuf := a.NewBuffer("out", dtype.Float32, []ir.ExprHandle{a.IntImm(n)})
	i := a.Var("i", dtype.Int64)
	load := a.Load(inBuf, []ir.ExprHandle{i}, dtype.Float32)
	store := a.Store(outBuf, []ir.ExprHandle{i}, a.Add(load, a.FloatImm(1, dtype.Float32)))
	loop := a.For(i, a.IntImm(0), a.IntImm(n), store)
	return inBuf, outBuf, loop
}

func TestHorizontalFuseMergesEqualBounds(t *testing.T) {
	a := ir.NewArena()
	_, out1, body1 := buildElementwise(a, 1024, true)
	_, out2, body2 := buildElementwise(a, 1024, true)

	nest := ir.NewLoopNest(a)
	nest.Add(ir.ComputeTensor{Buf: out1, Body: body1})
	nest.Add(ir.ComputeTensor{Buf: out2, Body: body2})

	horizontalFuse(a, nest)
	if len(nest.Computes) != 1 {
		t.Fatalf("expected computes fused into one, got %d", len(nest.Computes))
	}
	f := a.ForFields(nest.Computes[0].Body)
	if a.StmtKind(f.Body) != ir.KindBlock {
		t.Fatalf("expected fused body to be a Block, got kind %v", a.StmtKind(f.Body))
	}
	if len(a.BlockStmts(f.Body)) != 2 {
		t.Fatalf("expected 2 statements in fused block, got %d", len(a.BlockStmts(f.Body)))
	}
}

func TestParallelizeMarksLargeTripCount(t *testing.T) {
	a := ir.NewArena()
	// 256*1024 elements exceeds grainSize, so the outer loop should be
	// marked parallel per spec §8's elementwise-256x1024 scenario.
	outer := a.Var("o", dtype.Int64)
	inner := a.Var("j", dtype.Int64)
	buf := a.NewBuffer("out", dtype.Float32, []ir.ExprHandle{a.IntImm(256), a.IntImm(1024)})
	store := a.Store(buf, []ir.ExprHandle{outer, inner}, a.FloatImm(0, dtype.Float32))
	innerLoop := a.For(inner, a.IntImm(0), a.IntImm(1024), store)
	outerLoop := a.For(outer, a.IntImm(0), a.IntImm(256), innerLoop)

	nest := ir.NewLoopNest(a)
	nest.Add(ir.ComputeTensor{Buf: buf, Body: outerLoop})

	parallelizeOuterLoops(a, nest, 4)

	newBody := nest.Computes[0].Body
	if a.StmtKind(newBody) != ir.KindFor {
		t.Fatalf("expected a For, got kind %v", a.StmtKind(newBody))
	}
	f := a.ForFields(newBody)
	if !f.Parallel {
		t.Fatalf("expected flattened outer loop to be marked parallel")
	}
}

func TestParallelizeSkipsSmallTripCount(t *testing.T) {
	a := ir.NewArena()
	// 1024 total elements is below grainSize; no loop should be marked
	// parallel (spec §8's elementwise-chain-1024 scenario).
	_, buf, body := buildElementwise(a, 1024, false)
	nest := ir.NewLoopNest(a)
	nest.Add(ir.ComputeTensor{Buf: buf, Body: body})

	parallelizeOuterLoops(a, nest, 4)

	f := a.ForFields(nest.Computes[0].Body)
	if f.Parallel {
		t.Fatalf("expected small trip-count loop to remain unmarked")
	}
}

func TestScheduleCUDATwoLevelTagsAxes(t *testing.T) {
	a := ir.NewArena()
	_, buf, body := buildElementwise(a, 4096, false)
	nest := ir.NewLoopNest(a)
	nest.Add(ir.ComputeTensor{Buf: buf, Body: body})

	scheduleCUDA(a, nest, Options{CUDALoopLevels: 2, CUDABlockSize: 512})

	outer := a.ForFields(nest.Computes[0].Body)
	if outer.GPUAxis != ir.GPUAxisBlockX {
		t.Fatalf("expected outer loop tagged BlockX, got %v", outer.GPUAxis)
	}
	inner := a.ForFields(outer.Body)
	if inner.GPUAxis != ir.GPUAxisThreadX {
		t.Fatalf("expected inner loop tagged ThreadX, got %v", inner.GPUAxis)
	}
}

func TestScheduleCUDAInvalidLevelsPanics(t *testing.T) {
	a := ir.NewArena()
	_, buf, body := buildElementwise(a, 16, false)
	nest := ir.NewLoopNest(a)
	nest.Add(ir.ComputeTensor{Buf: buf, Body: body})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for invalid CUDA loop level")
		}
	}()
	scheduleCUDA(a, nest, Options{CUDALoopLevels: 4})
}

func TestBlockSizeForByteWidthOne(t *testing.T) {
	if got := blockSizeFor(dtype.Bool); got != 32 {
		t.Fatalf("expected block size 32 for bool, got %d", got)
	}
	if got := blockSizeFor(dtype.Float32); got != 16 {
		t.Fatalf("expected block size 16 for float32, got %d", got)
	}
}

func TestInlineIntermediateSubstitutesLoad(t *testing.T) {
	a := ir.NewArena()
	n := int64(32)
	tmpBuf := a.NewBuffer("tmp", dtype.Float32, []ir.ExprHandle{a.IntImm(n)})
	outBuf := a.NewBuffer("out", dtype.Float32, []ir.ExprHandle{a.IntImm(n)})
	outBuf2 := a.Buffer(outBuf)
	outBuf2.IsArgument = true
	a.SetBuffer(outBuf, outBuf2)

	i1 := a.Var("i1", dtype.Int64)
	tmpStore := a.Store(tmpBuf, []ir.ExprHandle{i1}, a.FloatImm(2, dtype.Float32))
	tmpLoop := a.For(i1, a.IntImm(0), a.IntImm(n), tmpStore)

	i2 := a.Var("i2", dtype.Int64)
	load := a.Load(tmpBuf, []ir.ExprHandle{i2}, dtype.Float32)
	outStore := a.Store(outBuf, []ir.ExprHandle{i2}, a.Add(load, a.FloatImm(1, dtype.Float32)))
	outLoop := a.For(i2, a.IntImm(0), a.IntImm(n), outStore)

	nest := ir.NewLoopNest(a)
	nest.Add(ir.ComputeTensor{Buf: tmpBuf, Body: tmpLoop})
	nest.Add(ir.ComputeTensor{Buf: outBuf, Body: outLoop})

	inlineIntermediates(a, nest)

	if len(nest.Computes) != 1 {
		t.Fatalf("expected intermediate to be dropped, got %d computes", len(nest.Computes))
	}
	if nest.Computes[0].Buf != outBuf {
		t.Fatalf("expected surviving compute to be the output buffer")
	}
}

func TestPreallocateConstantIntermediateReservesHostPtr(t *testing.T) {
	a := ir.NewArena()
	_, buf, body := buildElementwise(a, 64, false)
	nest := ir.NewLoopNest(a)
	nest.Add(ir.ComputeTensor{Buf: buf, Body: body})

	preallocateIntermediates(a, nest)

	got := a.Buffer(buf)
	if got.HostPtr == nil {
		t.Fatalf("expected HostPtr to be reserved for constant-shaped buffer")
	}
	want := int64(64 * dtype.Float32.ByteWidth())
	if int64(len(got.HostPtr)) != want {
		t.Fatalf("expected HostPtr length %d, got %d", want, len(got.HostPtr))
	}
}

func TestVectorizeRewritesConstantTripStore(t *testing.T) {
	a := ir.NewArena()
	_, buf, body := buildElementwise(a, 16, false)
	nest := ir.NewLoopNest(a)
	nest.Add(ir.ComputeTensor{Buf: buf, Body: body})

	vectorizeInnerLoops(a, nest)

	f := a.ForFields(nest.Computes[0].Body)
	if a.StmtKind(f.Body) != ir.KindStore {
		t.Fatalf("expected vectorized loop body to be a single Store, got kind %v", a.StmtKind(f.Body))
	}
	_, idx, _ := a.StoreFields(f.Body)
	if a.Kind(idx[0]) != ir.KindRamp {
		t.Fatalf("expected Store index to be a Ramp, got kind %v", a.Kind(idx[0]))
	}
}
