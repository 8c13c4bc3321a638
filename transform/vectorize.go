package transform

import "github.com/texpr-dev/texpr/ir"

// vectorizeInnerLoops implements spec §4.6 step 10: vectorize inner
// loops for LLVM CPU, only when the nest contains no reductions. An
// innermost For whose body is a single Store and whose trip count is a
// compile-time constant multiple of vectorWidth is rewritten to run
// trip/vectorWidth iterations, each storing vectorWidth lanes through a
// Ramp; loops with any other trip count stay scalar.
const vectorWidth = 8

func vectorizeInnerLoops(a *ir.Arena, nest *ir.LoopNest) {
	for i, c := range nest.Computes {
		if c.IsPassThrough() {
			continue
		}
		nest.Computes[i].Body = vectorizeStmt(a, c.Body)
	}
}

func vectorizeStmt(a *ir.Arena, h ir.StmtHandle) ir.StmtHandle {
	if h == ir.Invalid {
		return h
	}
	switch a.StmtKind(h) {
	case ir.KindBlock:
		stmts := a.BlockStmts(h)
		out := make([]ir.StmtHandle, len(stmts))
		for i, s := range stmts {
			out[i] = vectorizeStmt(a, s)
		}
		return a.Block(out)
	case ir.KindFor:
		f := a.ForFields(h)
		if a.StmtKind(f.Body) == ir.KindStore && !f.Parallel {
			if vec, ok := tryVectorize(a, f); ok {
				return vec
			}
		}
		nh := a.For(f.LoopVar, f.Start, f.End, vectorizeStmt(a, f.Body))
		if f.Parallel {
			nh = a.SetParallel(nh, true)
		}
		if f.GPUAxis != ir.GPUAxisNone {
			nh = a.SetGPUAxis(nh, f.GPUAxis)
		}
		return nh
	default:
		return h
	}
}

// tryVectorize rewrites a constant-trip-count innermost Store loop whose
// trip count is a multiple of vectorWidth into trip/vectorWidth
// iterations of one vectorWidth-lane Store, substituting a Ramp starting
// at start+loopVar*vectorWidth for the scalar loop variable throughout
// the stored value and indices.
func tryVectorize(a *ir.Arena, f ir.ForInfo) (ir.StmtHandle, bool) {
	start, sok := a.IsConstInt(f.Start)
	end, eok := a.IsConstInt(f.End)
	if !sok || !eok {
		return ir.Invalid, false
	}
	trip := end - start
	if trip <= 0 || trip%vectorWidth != 0 {
		return ir.Invalid, false
	}

	buf, idx, val := a.StoreFields(f.Body)
	base := a.Add(a.Mul(f.LoopVar, a.IntImm(vectorWidth)), a.IntImm(start))
	ramp := a.Ramp(base, a.IntImm(1), vectorWidth)
	newIdx := make([]ir.ExprHandle, len(idx))
	for i, e := range idx {
		newIdx[i] = substituteVars(a, e, []ir.ExprHandle{f.LoopVar}, []ir.ExprHandle{ramp})
	}
	newVal := substituteVars(a, val, []ir.ExprHandle{f.LoopVar}, []ir.ExprHandle{ramp})
	store := a.Store(buf, newIdx, newVal)

	outer := a.For(f.LoopVar, a.IntImm(0), a.IntImm(trip/vectorWidth), store)
	return outer, true
}
