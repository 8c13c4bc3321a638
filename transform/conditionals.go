package transform

import "github.com/texpr-dev/texpr/ir"

// optimizeConditionals runs the optional conditional-optimization pass
// (spec §4.6 step 5, flag-gated by config.OptimizeConditionals). It
// collapses a CompareSelect whose condition can be proven
// always-true or always-false for the entire iteration range of its
// enclosing loop into the corresponding arm, eliminating a per-iteration
// branch codegen would otherwise have to emit.
//
// Per the resolved Open Question (spec §9), this pass only ever runs
// before horizontal fusion (Run calls it at step 5, fusion at step 6);
// it never re-runs afterward, avoiding the documented unsafe interaction
// of introducing conditionals into an already-fused loop.
func optimizeConditionals(a *ir.Arena, nest *ir.LoopNest) {
	for i, c := range nest.Computes {
		if c.IsPassThrough() {
			continue
		}
		nest.Computes[i].Body = optimizeConditionalsStmt(a, c.Body, nil)
	}
}

type loopBound struct {
	varH       ir.ExprHandle
	start, end int64
}

func optimizeConditionalsStmt(a *ir.Arena, h ir.StmtHandle, bounds []loopBound) ir.StmtHandle {
	if h == ir.Invalid {
		return h
	}
	switch a.StmtKind(h) {
	case ir.KindBlock:
		stmts := a.BlockStmts(h)
		out := make([]ir.StmtHandle, len(stmts))
		for i, s := range stmts {
			out[i] = optimizeConditionalsStmt(a, s, bounds)
		}
		return a.Block(out)
	case ir.KindFor:
		f := a.ForFields(h)
		nb := bounds
		if s, ok := a.IsConstInt(f.Start); ok {
			if e, ok := a.IsConstInt(f.End); ok {
				nb = append(append([]loopBound{}, bounds...), loopBound{f.LoopVar, s, e})
			}
		}
		body := optimizeConditionalsStmt(a, f.Body, nb)
		nh := a.For(f.LoopVar, f.Start, f.End, body)
		if f.Parallel {
			nh = a.SetParallel(nh, true)
		}
		return nh
	case ir.KindStore:
		buf, idx, v := a.StoreFields(h)
		return a.Store(buf, idx, foldConditionalExpr(a, v, bounds))
	default:
		return h
	}
}

// foldConditionalExpr collapses a CompareSelect whose comparison only
// involves a loop variable against constants, when every value that
// variable takes across its enclosing loop's known constant bounds
// agrees on the comparison's outcome.
func foldConditionalExpr(a *ir.Arena, h ir.ExprHandle, bounds []loopBound) ir.ExprHandle {
	children := a.Children(h)
	newChildren := make([]ir.ExprHandle, len(children))
	for i, c := range children {
		newChildren[i] = foldConditionalExpr(a, c, bounds)
	}
	if len(children) > 0 {
		h = rebuildExpr(a, h, newChildren)
	}

	if a.Kind(h) != ir.KindCompareSelect {
		return h
	}
	c := a.Children(h)
	lhs, rhs, t, f := c[0], c[1], c[2], c[3]
	if result, ok := alwaysCompares(a, lhs, rhs, a.CompareOp(h), bounds); ok {
		if result {
			return t
		}
		return f
	}
	return h
}

// alwaysCompares recognizes the common bounds-check-elimination shape
// `loopVar < loopEnd` (or `loopVar >= loopEnd` etc.) where loopVar is
// exactly the induction variable of one of the enclosing loops in
// bounds and loopEnd is structurally identical to that loop's exclusive
// end — the condition is then a tautology (or its negation) for every
// iteration the loop actually runs, the case padding/broadcast
// lowerings emit most often.
func alwaysCompares(a *ir.Arena, lhs, rhs ir.ExprHandle, op ir.CompareOp, bounds []loopBound) (bool, bool) {
	for _, b := range bounds {
		if lhs == b.varH {
			if end, ok := a.IsConstInt(rhs); ok && end == b.end {
				switch op {
				case ir.CmpLT:
					return true, true
				case ir.CmpGE:
					return false, true
				}
			}
		}
		if rhs == b.varH {
			if start, ok := a.IsConstInt(lhs); ok && start == b.end {
				switch op {
				case ir.CmpGT:
					return true, true
				case ir.CmpLE:
					return false, true
				}
			}
		}
	}
	return false, false
}
