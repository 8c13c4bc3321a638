package transform

import "github.com/texpr-dev/texpr/ir"

// inlineIntermediates implements spec §4.6 step 4: substitute each
// non-output intermediate buffer's defining expression directly into
// every site that loads it, dropping the intermediate's own loop nest.
// Duplication across call sites is allowed by design — backend codegen
// and CSE are expected to recover any resulting redundancy (spec §4.6
// step 4 note).
//
// Only intermediates whose body has the simple "perfectly nested for
// loops around one Store" shape are inlined; anything else (multiple
// stores, conditionals, reductions) is left for codegen to materialize,
// since inlining those would require a much more general rewrite than
// this pass is chartered to do.
func inlineIntermediates(a *ir.Arena, nest *ir.LoopNest) {
	defs := make(map[ir.BufHandle]inlineDef)

	for _, c := range nest.Computes {
		if c.IsPassThrough() || a.Buffer(c.Buf).IsArgument {
			continue
		}
		if def, ok := extractSimpleDef(a, c.Body); ok {
			defs[c.Buf] = def
		}
	}

	kept := nest.Computes[:0]
	for _, c := range nest.Computes {
		if !c.IsPassThrough() && !a.Buffer(c.Buf).IsArgument {
			if _, isDef := defs[c.Buf]; isDef {
				// Dropped: every use will be substituted inline below. An
				// intermediate that nothing references simply vanishes.
				continue
			}
		}
		kept = append(kept, c)
	}
	nest.Computes = kept

	for i, c := range nest.Computes {
		if c.IsPassThrough() {
			continue
		}
		nest.Computes[i].Body = substituteLoads(a, c.Body, defs, map[ir.BufHandle]bool{})
	}
}

// inlineDef is an intermediate's body reduced to "value(indices...)":
// the loop variables it was defined over, and the expression computed
// at each point.
type inlineDef struct {
	loopVars []ir.ExprHandle
	value    ir.ExprHandle
}

func extractSimpleDef(a *ir.Arena, body ir.StmtHandle) (inlineDef, bool) {
	var loopVars []ir.ExprHandle
	cur := body
	for a.StmtKind(cur) == ir.KindFor {
		f := a.ForFields(cur)
		loopVars = append(loopVars, f.LoopVar)
		cur = f.Body
	}
	if a.StmtKind(cur) != ir.KindStore {
		return inlineDef{}, false
	}
	_, indices, value := a.StoreFields(cur)
	if len(indices) != len(loopVars) {
		return inlineDef{}, false
	}
	for i, idx := range indices {
		if idx != loopVars[i] {
			return inlineDef{}, false // store index isn't the bare loop var
		}
	}
	return inlineDef{loopVars: loopVars, value: value}, true
}

func substituteLoads(a *ir.Arena, h ir.StmtHandle, defs map[ir.BufHandle]inlineDef, inlining map[ir.BufHandle]bool) ir.StmtHandle {
	if h == ir.Invalid {
		return h
	}
	switch a.StmtKind(h) {
	case ir.KindBlock:
		stmts := a.BlockStmts(h)
		out := make([]ir.StmtHandle, len(stmts))
		for i, s := range stmts {
			out[i] = substituteLoads(a, s, defs, inlining)
		}
		return a.Block(out)
	case ir.KindFor:
		f := a.ForFields(h)
		nh := a.For(f.LoopVar, substituteExpr(a, f.Start, defs, inlining), substituteExpr(a, f.End, defs, inlining), substituteLoads(a, f.Body, defs, inlining))
		if f.Parallel {
			nh = a.SetParallel(nh, true)
		}
		if f.GPUAxis != ir.GPUAxisNone {
			nh = a.SetGPUAxis(nh, f.GPUAxis)
		}
		return nh
	case ir.KindStore:
		buf, idx, v := a.StoreFields(h)
		newIdx := make([]ir.ExprHandle, len(idx))
		for i, e := range idx {
			newIdx[i] = substituteExpr(a, e, defs, inlining)
		}
		return a.Store(buf, newIdx, substituteExpr(a, v, defs, inlining))
	case ir.KindCond:
		cond, t, f := a.CondFields(h)
		return a.Cond(substituteExpr(a, cond, defs, inlining), substituteLoads(a, t, defs, inlining), substituteLoads(a, f, defs, inlining))
	default:
		return h
	}
}

func substituteExpr(a *ir.Arena, h ir.ExprHandle, defs map[ir.BufHandle]inlineDef, inlining map[ir.BufHandle]bool) ir.ExprHandle {
	if a.Kind(h) == ir.KindLoad {
		buf := a.LoadBuf(h)
		if def, ok := defs[buf]; ok && !inlining[buf] {
			indices := a.Children(h)
			if len(indices) == len(def.loopVars) {
				inlining[buf] = true
				substituted := substituteVars(a, def.value, def.loopVars, indices)
				delete(inlining, buf)
				return substituteExpr(a, substituted, defs, inlining)
			}
		}
	}

	children := a.Children(h)
	if len(children) == 0 {
		return h
	}
	newChildren := make([]ir.ExprHandle, len(children))
	changed := false
	for i, c := range children {
		newChildren[i] = substituteExpr(a, c, defs, inlining)
		if newChildren[i] != c {
			changed = true
		}
	}
	if !changed {
		return h
	}
	return rebuildExpr(a, h, newChildren)
}

// substituteVars replaces every occurrence of vars[i] in expr with
// replacements[i] (a single-pass substitution, not a fixed point —
// replacements are assumed not to themselves reference vars).
func substituteVars(a *ir.Arena, expr ir.ExprHandle, vars, replacements []ir.ExprHandle) ir.ExprHandle {
	for _, v := range vars {
		if expr == v {
			for i, vv := range vars {
				if vv == v {
					return replacements[i]
				}
			}
		}
	}
	children := a.Children(expr)
	if len(children) == 0 {
		return expr
	}
	newChildren := make([]ir.ExprHandle, len(children))
	changed := false
	for i, c := range children {
		newChildren[i] = substituteVars(a, c, vars, replacements)
		if newChildren[i] != c {
			changed = true
		}
	}
	if !changed {
		return expr
	}
	return rebuildExpr(a, expr, newChildren)
}

// rebuildExpr reconstructs h's node with newChildren replacing its
// current children, preserving kind/dtype/buf/cmp/lanes.
func rebuildExpr(a *ir.Arena, h ir.ExprHandle, newChildren []ir.ExprHandle) ir.ExprHandle {
	switch a.Kind(h) {
	case ir.KindAdd:
		return a.Add(newChildren[0], newChildren[1])
	case ir.KindSub:
		return a.Sub(newChildren[0], newChildren[1])
	case ir.KindMul:
		return a.Mul(newChildren[0], newChildren[1])
	case ir.KindDiv:
		return a.Div(newChildren[0], newChildren[1])
	case ir.KindMod:
		return a.Mod(newChildren[0], newChildren[1])
	case ir.KindMin:
		return a.Min(newChildren[0], newChildren[1])
	case ir.KindMax:
		return a.Max(newChildren[0], newChildren[1])
	case ir.KindCompareSelect:
		return a.CompareSelect(newChildren[0], newChildren[1], a.CompareOp(h), newChildren[2], newChildren[3])
	case ir.KindIfThenElse:
		return a.IfThenElse(newChildren[0], newChildren[1], newChildren[2])
	case ir.KindCast:
		return a.Cast(newChildren[0], a.DType(h))
	case ir.KindLoad:
		return a.Load(a.LoadBuf(h), newChildren, a.DType(h))
	case ir.KindRamp:
		return a.Ramp(newChildren[0], newChildren[1], a.Lanes(h))
	case ir.KindBroadcast:
		return a.Broadcast(newChildren[0], a.Lanes(h))
	default:
		return h
	}
}
