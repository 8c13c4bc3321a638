package transform

import "github.com/texpr-dev/texpr/ir"

// horizontalFuse implements spec §4.6 step 6 LLVM-CPU "horizontal loop
// fusion": top-down over each compute's root block, fuse all immediate-
// child loops whose (start, stop) pairs are constant and equal, then
// recurse into the fused body. Recursion stops as soon as a non-loop
// sibling appears or bounds disagree — a constant-equal-bounds
// requirement that avoids inserting index guards that would block
// later vectorization.
//
// Since each compute tensor here is still one independent statement
// (inlining has already collapsed intermediates into their consumers),
// "siblings" means the top-level statements of compute bodies that
// share identical outer bounds; this pass merges those into a single
// loop nest, then fuses within it recursively.
func horizontalFuse(a *ir.Arena, nest *ir.LoopNest) {
	groups := groupByConstantBounds(a, nest.Computes)
	var fused []ir.ComputeTensor
	for _, g := range groups {
		if len(g) == 1 {
			fused = append(fused, g[0])
			continue
		}
		fused = append(fused, fuseGroup(a, g))
	}
	nest.Computes = fused

	for i, c := range nest.Computes {
		if !c.IsPassThrough() {
			nest.Computes[i].Body = fuseNested(a, c.Body)
		}
	}
}

// groupByConstantBounds partitions computes into runs of adjacent
// entries whose top-level For has identical constant (start, end); a
// compute whose body isn't a single top-level For (or is pass-through)
// starts its own singleton group, which also terminates the run it
// would otherwise have joined — any non-loop or disagreeing-bounds
// sibling ends a fusion group (spec §4.6 step 6 recursion-stop rule).
func groupByConstantBounds(a *ir.Arena, computes []ir.ComputeTensor) [][]ir.ComputeTensor {
	var groups [][]ir.ComputeTensor
	var cur []ir.ComputeTensor
	var curStart, curEnd int64
	haveCur := false

	flush := func() {
		if len(cur) > 0 {
			groups = append(groups, cur)
			cur = nil
		}
	}

	for _, c := range computes {
		start, end, ok := topLevelConstBounds(a, c)
		if !ok {
			flush()
			groups = append(groups, []ir.ComputeTensor{c})
			haveCur = false
			continue
		}
		if haveCur && start == curStart && end == curEnd {
			cur = append(cur, c)
			continue
		}
		flush()
		cur = []ir.ComputeTensor{c}
		curStart, curEnd, haveCur = start, end, true
	}
	flush()
	return groups
}

func topLevelConstBounds(a *ir.Arena, c ir.ComputeTensor) (start, end int64, ok bool) {
	if c.IsPassThrough() || a.StmtKind(c.Body) != ir.KindFor {
		return 0, 0, false
	}
	f := a.ForFields(c.Body)
	s, sok := a.IsConstInt(f.Start)
	e, eok := a.IsConstInt(f.End)
	if !sok || !eok {
		return 0, 0, false
	}
	return s, e, true
}

// fuseGroup merges a run of computes that share identical outer bounds
// into a single compute: one new For over a Block of the original
// inner bodies, all referencing the group's shared loop variable via
// the first compute's induction variable.
func fuseGroup(a *ir.Arena, g []ir.ComputeTensor) ir.ComputeTensor {
	first := a.ForFields(g[0].Body)
	bodies := make([]ir.StmtHandle, len(g))
	bodies[0] = first.Body
	for i := 1; i < len(g); i++ {
		f := a.ForFields(g[i].Body)
		bodies[i] = substituteVars(a, f.Body, []ir.ExprHandle{f.LoopVar}, []ir.ExprHandle{first.LoopVar})
	}
	merged := a.For(first.LoopVar, first.Start, first.End, a.Block(bodies))
	// The fused compute's nominal buffer is the first group member's;
	// the others' Store statements still write their own buffers inside
	// the merged block, so no data is lost.
	return ir.ComputeTensor{Buf: g[0].Buf, Body: merged}
}

// fuseNested recurses into a For's body, fusing its immediate children
// the same way.
func fuseNested(a *ir.Arena, h ir.StmtHandle) ir.StmtHandle {
	if h == ir.Invalid || a.StmtKind(h) != ir.KindFor {
		return h
	}
	f := a.ForFields(h)
	if a.StmtKind(f.Body) != ir.KindBlock {
		return a.For(f.LoopVar, f.Start, f.End, fuseNested(a, f.Body))
	}
	children := a.BlockStmts(f.Body)
	asComputes := make([]ir.ComputeTensor, len(children))
	for i, ch := range children {
		asComputes[i] = ir.ComputeTensor{Body: ch}
	}
	groups := groupByConstantBounds(a, asComputes)
	var newChildren []ir.StmtHandle
	for _, g := range groups {
		if len(g) == 1 {
			newChildren = append(newChildren, g[0].Body)
			continue
		}
		newChildren = append(newChildren, fuseGroup(a, g).Body)
	}
	for i, ch := range newChildren {
		newChildren[i] = fuseNested(a, ch)
	}
	return a.For(f.LoopVar, f.Start, f.End, a.Block(newChildren))
}
