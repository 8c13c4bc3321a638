package transform

import (
	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/ir"
)

// scheduleBlock implements spec §4.6 step 6 Block: per output buffer,
// flatten, split by a per-dtype block size (32 for Byte-width-1 dtypes,
// 16 otherwise per spec §8 boundary behavior), outer loop maps to block
// index 0, inner to thread index 0. The buffer dimension map that Run
// records ahead of inlining (step 2) is passed in but is neither attached
// to the nest nor used by this pass.
func scheduleBlock(a *ir.Arena, nest *ir.LoopNest, blockMaps map[ir.BufHandle]BlockDimMap) {
	for i, c := range nest.Computes {
		if c.IsPassThrough() {
			continue
		}
		size := blockSizeFor(a.Buffer(c.Buf).DType)
		nest.Computes[i].Body = flattenAndSplitBlock(a, c.Body, size)
	}
	_ = blockMaps // not used by this pass
}

// blockSizeFor implements spec §8: "Block backend with Byte dtype:
// block size 32; all others: 16." Byte-width dtypes in this IR are
// Bool (1 byte); narrower floats still use the general 16 default.
func blockSizeFor(dt dtype.DType) int {
	if dt.ByteWidth() == 1 {
		return 32
	}
	return 16
}

func flattenAndSplitBlock(a *ir.Arena, body ir.StmtHandle, blockSize int) ir.StmtHandle {
	chain := collectForChain(a, body)
	if len(chain) == 0 {
		return body
	}
	flat, total := flattenAll(a, chain)
	return splitWithMask2(a, flat, total, blockSize)
}
