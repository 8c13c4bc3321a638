package ir

import "github.com/texpr-dev/texpr/dtype"

type exprKind int

const (
	exprInvalid exprKind = iota
	exprIntImm
	exprFloatImm
	exprBoolImm
	exprVar
	exprAdd
	exprSub
	exprMul
	exprDiv
	exprMod
	exprMin
	exprMax
	exprCompareSelect
	exprIfThenElse
	exprCast
	exprLoad
	exprRamp     // vectorization: base + lane*stride for lanes 0..n-1
	exprBroadcast // vectorization: a scalar expr replicated across lanes
)

// CompareOp is the comparison kind of a CompareSelect expr (used by the
// Output Restrider's size==1 test and by conditional-optimization).
type CompareOp int

const (
	CmpEQ CompareOp = iota
	CmpNE
	CmpLT
	CmpLE
	CmpGT
	CmpGE
)

type exprNode struct {
	kind  exprKind
	dtype dtype.DType

	// Immediates.
	intVal   int64
	floatVal float64
	boolVal  bool

	// Var / Load.
	name string
	buf  BufHandle

	// Generic children: binary ops use [lhs, rhs]; Load/Cast/IfThenElse/
	// CompareSelect/Ramp/Broadcast use as documented per constructor.
	children []ExprHandle

	cmp  CompareOp
	lanes int
}

// Var creates a named scalar variable of the given dtype (spec §4.1
// varForShape / §4.2 scalar inputs).
func (a *Arena) Var(name string, dt dtype.DType) ExprHandle {
	return a.addExpr(exprNode{kind: exprVar, dtype: dt, name: name})
}

// IntImm creates a concrete integer immediate (spec §4.1 "static" shape symbols).
func (a *Arena) IntImm(v int64) ExprHandle {
	return a.addExpr(exprNode{kind: exprIntImm, dtype: dtype.Int64, intVal: v})
}

// FloatImm creates a concrete floating-point immediate.
func (a *Arena) FloatImm(v float64, dt dtype.DType) ExprHandle {
	return a.addExpr(exprNode{kind: exprFloatImm, dtype: dt, floatVal: v})
}

// BoolImm creates a concrete boolean immediate.
func (a *Arena) BoolImm(v bool) ExprHandle {
	return a.addExpr(exprNode{kind: exprBoolImm, dtype: dtype.Bool, boolVal: v})
}

func (a *Arena) binary(kind exprKind, lhs, rhs ExprHandle) ExprHandle {
	dt := a.expr(lhs).dtype
	if a.expr(rhs).dtype.ByteWidth() > dt.ByteWidth() {
		dt = a.expr(rhs).dtype
	}
	return a.addExpr(exprNode{kind: kind, dtype: dt, children: []ExprHandle{lhs, rhs}})
}

func (a *Arena) Add(lhs, rhs ExprHandle) ExprHandle { return a.binary(exprAdd, lhs, rhs) }
func (a *Arena) Sub(lhs, rhs ExprHandle) ExprHandle { return a.binary(exprSub, lhs, rhs) }
func (a *Arena) Mul(lhs, rhs ExprHandle) ExprHandle { return a.binary(exprMul, lhs, rhs) }
func (a *Arena) Div(lhs, rhs ExprHandle) ExprHandle { return a.binary(exprDiv, lhs, rhs) }
func (a *Arena) Mod(lhs, rhs ExprHandle) ExprHandle { return a.binary(exprMod, lhs, rhs) }
func (a *Arena) Min(lhs, rhs ExprHandle) ExprHandle { return a.binary(exprMin, lhs, rhs) }
func (a *Arena) Max(lhs, rhs ExprHandle) ExprHandle { return a.binary(exprMax, lhs, rhs) }

// CompareSelect builds `(lhs op rhs) ? t : f`, used by conditional
// optimization and by bounds-check elimination ahead of vectorization.
func (a *Arena) CompareSelect(lhs, rhs ExprHandle, op CompareOp, t, f ExprHandle) ExprHandle {
	return a.addExpr(exprNode{
		kind:     exprCompareSelect,
		dtype:    a.expr(t).dtype,
		cmp:      op,
		children: []ExprHandle{lhs, rhs, t, f},
	})
}

// IfThenElse builds a ternary expression `cond ? t : f`.
func (a *Arena) IfThenElse(cond, t, f ExprHandle) ExprHandle {
	return a.addExpr(exprNode{kind: exprIfThenElse, dtype: a.expr(t).dtype, children: []ExprHandle{cond, t, f}})
}

// Cast reinterprets e as dt.
func (a *Arena) Cast(e ExprHandle, dt dtype.DType) ExprHandle {
	if a.expr(e).dtype == dt {
		return e
	}
	return a.addExpr(exprNode{kind: exprCast, dtype: dt, children: []ExprHandle{e}})
}

// Load reads buf at the given multi-dimensional indices (one ExprHandle
// per dimension), the core primitive a compute tensor's body is built
// from.
func (a *Arena) Load(buf BufHandle, indices []ExprHandle, dt dtype.DType) ExprHandle {
	return a.addExpr(exprNode{kind: exprLoad, dtype: dt, buf: buf, children: indices})
}

// Ramp builds base + lane*stride for lanes 0..n-1, the vectorized-index
// expression Vectorize Inner Loops (spec §4.6 step 10) substitutes for a
// scalar loop variable.
func (a *Arena) Ramp(base, stride ExprHandle, lanes int) ExprHandle {
	return a.addExpr(exprNode{kind: exprRamp, dtype: a.expr(base).dtype, children: []ExprHandle{base, stride}, lanes: lanes})
}

// Broadcast replicates a scalar expr across lanes, used when vectorizing
// a loop body that references a loop-invariant scalar.
func (a *Arena) Broadcast(e ExprHandle, lanes int) ExprHandle {
	return a.addExpr(exprNode{kind: exprBroadcast, dtype: a.expr(e).dtype, children: []ExprHandle{e}, lanes: lanes})
}

// DType returns the static type of an expression.
func (a *Arena) DType(h ExprHandle) dtype.DType { return a.expr(h).dtype }

// IsConstInt reports whether h is an IntImm and returns its value.
func (a *Arena) IsConstInt(h ExprHandle) (int64, bool) {
	n := a.expr(h)
	if n.kind == exprIntImm {
		return n.intVal, true
	}
	return 0, false
}

// ExprEqual reports whether two expressions are structurally identical
// (used by horizontal fusion's constant-equal-bounds test and by CSE).
func (a *Arena) ExprEqual(x, y ExprHandle) bool {
	if x == y {
		return true
	}
	nx, ny := a.expr(x), a.expr(y)
	if nx.kind != ny.kind || nx.dtype != ny.dtype {
		return false
	}
	switch nx.kind {
	case exprIntImm:
		return nx.intVal == ny.intVal
	case exprFloatImm:
		return nx.floatVal == ny.floatVal
	case exprBoolImm:
		return nx.boolVal == ny.boolVal
	case exprVar:
		return nx.name == ny.name
	}
	if nx.buf != ny.buf || nx.cmp != ny.cmp || nx.lanes != ny.lanes {
		return false
	}
	if len(nx.children) != len(ny.children) {
		return false
	}
	for i := range nx.children {
		if !a.ExprEqual(nx.children[i], ny.children[i]) {
			return false
		}
	}
	return true
}
