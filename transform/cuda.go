package transform

import (
	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/ir"
)

// scheduleCUDA implements spec §4.6 step 6 CUDA: per output buffer,
// flatten all surrounding loops, then split into a 2-level (default) or
// 3-level block/thread mapping. A loop level other than 2 or 3 is a
// fatal configuration error per spec §4.6 and §8 boundary behavior.
func scheduleCUDA(a *ir.Arena, nest *ir.LoopNest, opts Options) {
	levels := opts.CUDALoopLevels
	if levels <= 0 {
		levels = 2
	}
	if levels != 2 && levels != 3 {
		panic("transform: CUDA pointwise loop level must be 2 or 3")
	}

	blockSize := opts.CUDABlockSize
	if blockSize <= 0 {
		if levels == 3 {
			blockSize = 256
		} else {
			blockSize = 512
		}
	}
	blockCount := opts.CUDABlockCount
	if blockCount <= 0 {
		blockCount = 1280
	}

	for i, c := range nest.Computes {
		if c.IsPassThrough() {
			continue
		}
		nest.Computes[i].Body = flattenAndSplitCUDA(a, c.Body, levels, blockCount, blockSize)
	}
}

func flattenAndSplitCUDA(a *ir.Arena, body ir.StmtHandle, levels, blockCount, blockSize int) ir.StmtHandle {
	chain := collectForChain(a, body)
	if len(chain) == 0 {
		return body
	}
	flat, total := flattenAll(a, chain)

	if levels == 2 {
		return splitWithMask2(a, flat, total, blockSize)
	}
	return splitWithMask3(a, flat, total, blockCount, blockSize)
}

// flattenAll merges every loop in chain into one flattened loop (used
// ahead of the CUDA/Block splits, which always operate on a single
// flat index), returning the flattened induction variable's body (with
// every original loop variable substituted) and the flattened range.
func flattenAll(a *ir.Arena, chain []forLink) (ir.StmtHandle, int64) {
	n := len(chain)
	sizes := make([]int64, n)
	origVars := make([]ir.ExprHandle, n)
	for i, l := range chain {
		sizes[i] = l.end - l.start
		origVars[i] = a.ForFields(l.h).LoopVar
	}
	total := int64(1)
	for _, s := range sizes {
		total *= s
	}
	innerBody := a.ForFields(chain[n-1].h).Body

	flat := a.Var("flat_idx", dtype.Int64)
	remaining := flat
	substIdx := make([]ir.ExprHandle, n)
	for i := n - 1; i >= 0; i-- {
		size := a.IntImm(sizes[i])
		substIdx[i] = a.Mod(remaining, size)
		remaining = a.Div(remaining, size)
	}
	innerBody = substituteVars(a, innerBody, origVars, substIdx)
	return a.For(flat, a.IntImm(0), a.IntImm(total), innerBody), total
}

// splitWithMask2 implements the 2-level mapping: split(flattened,
// blockSize); outer loop maps to block index 0, inner to thread index 0.
// When blockSize does not divide total, the body is masked to run only
// where the flat index is below total.
func splitWithMask2(a *ir.Arena, flatLoop ir.StmtHandle, total int64, blockSize int) ir.StmtHandle {
	f := a.ForFields(flatLoop)
	outerVar := a.Var("blockIdx_x", dtype.Int64)
	innerVar := a.Var("threadIdx_x", dtype.Int64)

	numBlocks := (total + int64(blockSize) - 1) / int64(blockSize)
	flatIndex := a.Add(a.Mul(outerVar, a.IntImm(int64(blockSize))), innerVar)
	substituted := substituteVars(a, f.Body, []ir.ExprHandle{f.LoopVar}, []ir.ExprHandle{flatIndex})
	if total%int64(blockSize) != 0 {
		inRange := a.CompareSelect(flatIndex, a.IntImm(total), ir.CmpLT, a.IntImm(1), a.IntImm(0))
		substituted = a.Cond(inRange, substituted, a.Block(nil))
	}

	inner := a.For(innerVar, a.IntImm(0), a.IntImm(int64(blockSize)), substituted)
	inner = a.SetGPUAxis(inner, ir.GPUAxisThreadX)
	outer := a.For(outerVar, a.IntImm(0), a.IntImm(numBlocks), inner)
	return a.SetGPUAxis(outer, ir.GPUAxisBlockX)
}

// splitWithMask3 implements the 3-level mapping: split by
// blockCount*blockSize, then split that inner loop by blockSize; middle
// loop maps to block index 0, innermost to thread index 0. When
// blockCount*blockSize does not divide total, the body is masked to run
// only where the flat index is below total.
func splitWithMask3(a *ir.Arena, flatLoop ir.StmtHandle, total int64, blockCount, blockSize int) ir.StmtHandle {
	f := a.ForFields(flatLoop)
	chunk := int64(blockCount) * int64(blockSize)
	outerVar := a.Var("grid_stride", dtype.Int64)
	blockVar := a.Var("blockIdx_x", dtype.Int64)
	threadVar := a.Var("threadIdx_x", dtype.Int64)

	numOuter := (total + chunk - 1) / chunk
	flatIndex := a.Add(a.Mul(outerVar, a.IntImm(chunk)), a.Add(a.Mul(blockVar, a.IntImm(int64(blockSize))), threadVar))
	substituted := substituteVars(a, f.Body, []ir.ExprHandle{f.LoopVar}, []ir.ExprHandle{flatIndex})
	if total%chunk != 0 {
		inRange := a.CompareSelect(flatIndex, a.IntImm(total), ir.CmpLT, a.IntImm(1), a.IntImm(0))
		substituted = a.Cond(inRange, substituted, a.Block(nil))
	}

	inner := a.For(threadVar, a.IntImm(0), a.IntImm(int64(blockSize)), substituted)
	inner = a.SetGPUAxis(inner, ir.GPUAxisThreadX)
	middle := a.For(blockVar, a.IntImm(0), a.IntImm(int64(blockCount)), inner)
	middle = a.SetGPUAxis(middle, ir.GPUAxisBlockX)
	outer := a.For(outerVar, a.IntImm(0), a.IntImm(numOuter), middle)
	return outer
}
