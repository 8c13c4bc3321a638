package transform

import "github.com/texpr-dev/texpr/ir"

// BlockDimMap records, for one buffer, the dimension sizes observed
// before inlining — the block backend needs this because inlining can
// erase intermediate loops whose trip counts it must still reason about
// when choosing block/thread splits (spec §4.6 step 2 "Block analysis
// (backend = block): record per-buffer dimension map before inlining").
type BlockDimMap struct {
	Dims []ir.ExprHandle
}

func analyzeBlockDims(a *ir.Arena, nest *ir.LoopNest) map[ir.BufHandle]BlockDimMap {
	out := make(map[ir.BufHandle]BlockDimMap, len(nest.Computes))
	for _, c := range nest.Computes {
		out[c.Buf] = BlockDimMap{Dims: a.Buffer(c.Buf).Dims}
	}
	return out
}
