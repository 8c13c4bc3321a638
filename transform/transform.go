// Package transform implements the Loop-Nest Transformer (spec §4.6):
// the main optimization pipeline run between lowering and codegen
// handoff — simplify, inline, optionally optimize conditionals,
// per-backend scheduling (fuse/parallelize for LLVM CPU, flatten/split
// for CUDA and Block), vectorize, pre-allocate, and re-simplify.
package transform

import (
	"github.com/texpr-dev/texpr/config"
	"github.com/texpr-dev/texpr/ir"
)

// Target names which backend-specific scheduling stage to run in step 6.
type Target int

const (
	TargetLLVMCPU Target = iota
	TargetCUDA
	TargetBlock
	TargetInterpreter // no backend-specific scheduling; simplify/inline only
)

// Options configures one run of the pipeline.
type Options struct {
	Target Target

	// OptimizeConditionals gates the optional pre-fusion conditional
	// optimization pass (spec §4.6 step 5, resolved Open Question:
	// pre-fusion-only relative to horizontal loop fusion).
	OptimizeConditionals bool

	// PreAlloc gates step 7 (pre-allocate static intermediate buffers).
	PreAlloc bool

	// ThreadCount is the current thread count used by outer-loop
	// parallelization pruning (spec §4.6 step 6 LLVM CPU bullet 2).
	ThreadCount int

	CUDALoopLevels int
	CUDABlockCount int
	CUDABlockSize  int
}

// DefaultOptions reads process-wide configuration to build Options for
// target, matching the flags of spec §6.
func DefaultOptions(target Target, threadCount int) Options {
	return Options{
		Target:               target,
		OptimizeConditionals: config.OptimizeConditionals(),
		PreAlloc:             true,
		ThreadCount:          threadCount,
		CUDALoopLevels:       config.CUDAPointwiseLoopLevels(),
		CUDABlockCount:       config.CUDAPointwiseBlockCount(),
		CUDABlockSize:        config.CUDAPointwiseBlockSize(),
	}
}

// grainSize is the minimum accumulated inner trip-count product before
// parallelization considers an axis worth the thread-dispatch overhead
// (spec §4.6 step 6 LLVM CPU bullet 2).
const grainSize = 32768

// Run executes the full pipeline over nest in place, returning the
// final, re-simplified nest ready for codegen handoff.
func Run(nest *ir.LoopNest, opts Options) *ir.LoopNest {
	a := nest.Arena

	sanitizeNames(a, nest)

	var blockMaps map[ir.BufHandle]BlockDimMap
	if opts.Target == TargetBlock {
		blockMaps = analyzeBlockDims(a, nest)
	}

	simplifyNest(a, nest)
	inlineIntermediates(a, nest)

	if opts.OptimizeConditionals {
		optimizeConditionals(a, nest)
	}

	switch opts.Target {
	case TargetLLVMCPU:
		horizontalFuse(a, nest)
		parallelizeOuterLoops(a, nest, opts.ThreadCount)
	case TargetCUDA:
		scheduleCUDA(a, nest, opts)
	case TargetBlock:
		scheduleBlock(a, nest, blockMaps)
	case TargetInterpreter:
		// No backend-specific scheduling; the interpreter walks whatever
		// structure simplify/inline left behind.
	}

	if opts.PreAlloc {
		preallocateIntermediates(a, nest)
	}

	// Step 8 "prepare for codegen" is the loop-nest library's own pass
	// and stays opaque here (spec §1 external collaborators); nothing to
	// do on this side of the handoff.

	simplifyNest(a, nest)

	if opts.Target == TargetLLVMCPU {
		vectorizeInnerLoops(a, nest)
	}

	simplifyNest(a, nest)
	return nest
}

func simplifyNest(a *ir.Arena, nest *ir.LoopNest) {
	for i, c := range nest.Computes {
		if c.IsPassThrough() {
			continue
		}
		nest.Computes[i].Body = a.SimplifyStmt(c.Body)
	}
}
