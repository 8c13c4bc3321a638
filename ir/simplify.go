package ir

// SimplifyExpr applies local arithmetic simplifications (constant
// folding, x+0, x*1, x*0, x-x, min/max-of-equal) bottom-up, the
// Loop-Nest Transformer's Simplify pass (spec §4.6 steps 3, 9, 11) run
// both right after lowering and again after every structural rewrite.
// It is not a fixed-point simplifier: callers that need one run it in a
// loop until the returned handle stops changing.
func (a *Arena) SimplifyExpr(h ExprHandle) ExprHandle {
	switch a.Kind(h) {
	case KindAdd, KindSub, KindMul, KindDiv, KindMod, KindMin, KindMax:
		return a.simplifyBinary(h)
	case KindCompareSelect:
		return a.simplifyCompareSelect(h)
	case KindIfThenElse:
		return a.simplifyIfThenElse(h)
	case KindCast:
		return a.simplifyCast(h)
	case KindLoad:
		return a.simplifyLoad(h)
	default:
		return h
	}
}

func (a *Arena) simplifyBinary(h ExprHandle) ExprHandle {
	c := a.Children(h)
	lhs, rhs := a.SimplifyExpr(c[0]), a.SimplifyExpr(c[1])
	kind := a.Kind(h)
	dt := a.DType(h)

	li, lok := a.IsConstInt(lhs)
	ri, rok := a.IsConstInt(rhs)
	if lok && rok {
		if v, ok := foldInts(kind, li, ri); ok {
			return a.IntImm(v)
		}
	}

	switch kind {
	case KindAdd:
		if rok && ri == 0 {
			return lhs
		}
		if lok && li == 0 {
			return rhs
		}
	case KindSub:
		if rok && ri == 0 {
			return lhs
		}
		if a.ExprEqual(lhs, rhs) {
			return a.Cast(a.IntImm(0), dt)
		}
	case KindMul:
		if (rok && ri == 1) || (lok && li == 1) {
			if rok && ri == 1 {
				return lhs
			}
			return rhs
		}
		if (rok && ri == 0) || (lok && li == 0) {
			return a.Cast(a.IntImm(0), dt)
		}
	case KindDiv:
		if rok && ri == 1 {
			return lhs
		}
	case KindMin, KindMax:
		if a.ExprEqual(lhs, rhs) {
			return lhs
		}
	}

	if lhs == c[0] && rhs == c[1] {
		return h
	}
	return a.binary(a.expr(h).kind, lhs, rhs)
}

func foldInts(kind ExprKind, l, r int64) (int64, bool) {
	switch kind {
	case KindAdd:
		return l + r, true
	case KindSub:
		return l - r, true
	case KindMul:
		return l * r, true
	case KindDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case KindMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case KindMin:
		if l < r {
			return l, true
		}
		return r, true
	case KindMax:
		if l > r {
			return l, true
		}
		return r, true
	default:
		return 0, false
	}
}

func (a *Arena) simplifyCompareSelect(h ExprHandle) ExprHandle {
	c := a.Children(h)
	lhs, rhs, t, f := a.SimplifyExpr(c[0]), a.SimplifyExpr(c[1]), a.SimplifyExpr(c[2]), a.SimplifyExpr(c[3])
	op := a.CompareOp(h)

	if li, lok := a.IsConstInt(lhs); lok {
		if ri, rok := a.IsConstInt(rhs); rok {
			if evalCmp(op, li, ri) {
				return t
			}
			return f
		}
	}
	return a.CompareSelect(lhs, rhs, op, t, f)
}

func evalCmp(op CompareOp, l, r int64) bool {
	switch op {
	case CmpEQ:
		return l == r
	case CmpNE:
		return l != r
	case CmpLT:
		return l < r
	case CmpLE:
		return l <= r
	case CmpGT:
		return l > r
	case CmpGE:
		return l >= r
	default:
		return false
	}
}

func (a *Arena) simplifyIfThenElse(h ExprHandle) ExprHandle {
	c := a.Children(h)
	cond, t, f := a.SimplifyExpr(c[0]), a.SimplifyExpr(c[1]), a.SimplifyExpr(c[2])
	if a.Kind(cond) == KindBoolImm {
		if a.BoolValue(cond) {
			return t
		}
		return f
	}
	return a.IfThenElse(cond, t, f)
}

func (a *Arena) simplifyCast(h ExprHandle) ExprHandle {
	inner := a.SimplifyExpr(a.Children(h)[0])
	return a.Cast(inner, a.DType(h))
}

func (a *Arena) simplifyLoad(h ExprHandle) ExprHandle {
	idx := a.Children(h)
	changed := false
	simplified := make([]ExprHandle, len(idx))
	for i, e := range idx {
		simplified[i] = a.SimplifyExpr(e)
		if simplified[i] != e {
			changed = true
		}
	}
	if !changed {
		return h
	}
	return a.Load(a.LoadBuf(h), simplified, a.DType(h))
}

// SimplifyStmt walks s applying SimplifyExpr to every expression it
// contains, recursively rewriting nested statements.
func (a *Arena) SimplifyStmt(h StmtHandle) StmtHandle {
	if h == Invalid {
		return h
	}
	switch a.StmtKind(h) {
	case KindBlock:
		stmts := a.BlockStmts(h)
		out := make([]StmtHandle, len(stmts))
		for i, s := range stmts {
			out[i] = a.SimplifyStmt(s)
		}
		return a.Block(out)
	case KindFor:
		f := a.ForFields(h)
		nh := a.For(f.LoopVar, a.SimplifyExpr(f.Start), a.SimplifyExpr(f.End), a.SimplifyStmt(f.Body))
		if f.Parallel {
			nh = a.SetParallel(nh, true)
		}
		if f.GPUAxis != GPUAxisNone {
			nh = a.SetGPUAxis(nh, f.GPUAxis)
		}
		return nh
	case KindStore:
		buf, idx, v := a.StoreFields(h)
		simplified := make([]ExprHandle, len(idx))
		for i, e := range idx {
			simplified[i] = a.SimplifyExpr(e)
		}
		return a.Store(buf, simplified, a.SimplifyExpr(v))
	case KindLet:
		v, val := a.LetFields(h)
		return a.Let(v, a.SimplifyExpr(val))
	case KindCond:
		cond, t, f := a.CondFields(h)
		return a.Cond(a.SimplifyExpr(cond), a.SimplifyStmt(t), a.SimplifyStmt(f))
	default:
		return h
	}
}
