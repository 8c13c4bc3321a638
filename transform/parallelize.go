package transform

import (
	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/ir"
)

// parallelizeOuterLoops implements spec §4.6 step 6 LLVM-CPU
// "Parallelize outer loops": for each output buffer, collect its
// surrounding loop nest, prune inner loops until the accumulated inner
// trip-count product reaches grainSize, prune the tail of outer loops
// once the outer trip-count product reaches threadCount, skip nests
// with reductions or loop-carried dependence, and flatten any surviving
// multi-loop prefix into one parallel-marked loop.
func parallelizeOuterLoops(a *ir.Arena, nest *ir.LoopNest, threadCount int) {
	if threadCount <= 0 {
		threadCount = 1
	}
	for i, c := range nest.Computes {
		if c.IsPassThrough() {
			continue
		}
		nest.Computes[i].Body = parallelizeCompute(a, c.Body, threadCount)
	}
}

func parallelizeCompute(a *ir.Arena, body ir.StmtHandle, threadCount int) ir.StmtHandle {
	chain := collectForChain(a, body)
	if len(chain) == 0 {
		return body
	}
	if hasLoopCarriedDependence(a, chain) {
		return body
	}

	outer := pruneByGrainSize(a, chain)
	outer = pruneByThreadCount(a, outer, threadCount)
	if len(outer) == 0 {
		return body
	}
	if len(outer) == 1 {
		return a.SetParallel(chainRoot(a, body, chain, outer), true)
	}
	return flattenPrefix(a, body, chain, outer)
}

type forLink struct {
	h          ir.StmtHandle
	start, end int64
	tripKnown  bool
}

// collectForChain walks a perfectly-nested chain of For statements
// (each For's body is exactly the next For, down to a non-For leaf).
func collectForChain(a *ir.Arena, h ir.StmtHandle) []forLink {
	var chain []forLink
	cur := h
	for a.StmtKind(cur) == ir.KindFor {
		f := a.ForFields(cur)
		s, sok := a.IsConstInt(f.Start)
		e, eok := a.IsConstInt(f.End)
		chain = append(chain, forLink{h: cur, start: s, end: e, tripKnown: sok && eok})
		cur = f.Body
	}
	return chain
}

// hasLoopCarriedDependence conservatively reports true whenever any
// loop in the chain has a non-Store, non-For, non-Block body further
// down (e.g. a Let or Cond sequencing dependent writes) — the cheap,
// sound-but-imprecise proxy for "contains a reduction" this pass uses
// instead of full dependence analysis, which spec §4.6 leaves to the
// codegen library to do precisely.
func hasLoopCarriedDependence(a *ir.Arena, chain []forLink) bool {
	leaf := chain[len(chain)-1].h
	f := a.ForFields(leaf)
	return !isStoreOrBlockOfStores(a, f.Body)
}

func isStoreOrBlockOfStores(a *ir.Arena, h ir.StmtHandle) bool {
	switch a.StmtKind(h) {
	case ir.KindStore:
		return true
	case ir.KindBlock:
		for _, s := range a.BlockStmts(h) {
			if !isStoreOrBlockOfStores(a, s) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// pruneByGrainSize drops loops from the innermost end of chain until
// the accumulated trip-count product of the dropped loops reaches
// grainSize, returning the remaining (outer) prefix.
func pruneByGrainSize(a *ir.Arena, chain []forLink) []forLink {
	product := int64(1)
	cut := len(chain)
	for i := len(chain) - 1; i >= 0; i-- {
		if !chain[i].tripKnown {
			cut = i // unknown trip count: stop considering this loop parallel-eligible
			break
		}
		next := product * (chain[i].end - chain[i].start)
		if next >= grainSize {
			// This loop's own inclusion is what reaches grainSize: leave
			// it (and everything further out) in the surviving prefix
			// instead of popping it into the pruned inner group.
			break
		}
		product = next
		cut = i
	}
	return chain[:cut]
}

// pruneByThreadCount drops loops from the outer end of the remaining
// prefix once the accumulated outer trip-count product reaches
// threadCount.
func pruneByThreadCount(a *ir.Arena, outer []forLink, threadCount int) []forLink {
	product := int64(1)
	keep := 0
	for i, l := range outer {
		if product >= int64(threadCount) {
			break
		}
		if !l.tripKnown {
			break
		}
		product *= l.end - l.start
		keep = i + 1
	}
	return outer[:keep]
}

func chainRoot(a *ir.Arena, body ir.StmtHandle, chain []forLink, outer []forLink) ir.StmtHandle {
	return chain[0].h
}

// flattenPrefix merges the surviving outer loops (outer) into a single
// flattened, parallel-marked loop whose body re-derives each original
// loop variable via div/mod on the flattened index, and re-attaches the
// remainder of chain (everything below the flattened prefix) beneath it.
func flattenPrefix(a *ir.Arena, body ir.StmtHandle, chain []forLink, outer []forLink) ir.StmtHandle {
	n := len(outer)
	sizes := make([]int64, n)
	origVars := make([]ir.ExprHandle, n)
	for i, l := range outer {
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

	flatLoop := a.For(flat, a.IntImm(0), a.IntImm(total), innerBody)
	return a.SetParallel(flatLoop, true)
}
