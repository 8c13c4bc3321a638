// Package interpreter implements the simple IR interpreter the Backend
// Selector falls back to on CPU when LLVM is unavailable and not
// required (spec §4.7), and that the Fallback Controller (spec §4.9)
// always keeps alive as the last-resort execution path. It walks a
// compiled *ir.LoopNest directly, with no codegen step, trading
// performance for the guarantee that every nest the rest of the
// pipeline can produce is at least directly executable.
package interpreter

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/texprerr"
)

// Value is a tagged runtime scalar: every expression in the IR evaluates
// to one of these during interpretation, matching the dtype carried on
// the corresponding ExprHandle.
type Value struct {
	Int     int64
	Float   float64
	Bool    bool
	IsFloat bool
	IsBool  bool
}

func intValue(v int64) Value     { return Value{Int: v} }
func floatValue(v float64) Value { return Value{Float: v, IsFloat: true} }
func boolValue(v bool) Value     { return Value{Bool: v, IsBool: true} }

func (v Value) asFloat() float64 {
	switch {
	case v.IsBool:
		if v.Bool {
			return 1
		}
		return 0
	case v.IsFloat:
		return v.Float
	default:
		return float64(v.Int)
	}
}

func (v Value) asInt() int64 {
	switch {
	case v.IsBool:
		if v.Bool {
			return 1
		}
		return 0
	case v.IsFloat:
		return int64(v.Float)
	default:
		return v.Int
	}
}

func (v Value) asBool() bool {
	switch {
	case v.IsBool:
		return v.Bool
	case v.IsFloat:
		return v.Float != 0
	default:
		return v.Int != 0
	}
}

// Memory owns the raw byte backing of every buffer an interpreted nest
// touches: kernel inputs/outputs/constants bound in from the caller, and
// intermediates the interpreter allocates lazily on first use.
type Memory struct {
	data map[ir.BufHandle][]byte
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory { return &Memory{data: make(map[ir.BufHandle][]byte)} }

// Bind attaches externally-owned raw bytes to buf (a kernel input,
// output, or constant pointer); the interpreter reads/writes through raw
// directly rather than copying.
func (m *Memory) Bind(buf ir.BufHandle, raw []byte) { m.data[buf] = raw }

func (m *Memory) ensure(a *ir.Arena, env map[ir.ExprHandle]Value, buf ir.BufHandle) ([]byte, error) {
	if raw, ok := m.data[buf]; ok {
		return raw, nil
	}
	b := a.Buffer(buf)
	n := int64(1)
	for _, d := range b.Dims {
		v, err := Eval(a, env, m, d)
		if err != nil {
			return nil, err
		}
		n *= v.asInt()
	}
	raw := make([]byte, n*int64(b.DType.ByteWidth()))
	m.data[buf] = raw
	return raw, nil
}

func flatOffset(a *ir.Arena, env map[ir.ExprHandle]Value, m *Memory, buf ir.BufHandle, indices []ir.ExprHandle) (int64, error) {
	b := a.Buffer(buf)
	if b.Dims == nil {
		// A raw/flat placeholder buffer (no declared Dims): the single
		// index is already an absolute element offset (spec §4.2's
		// strided-input placeholder convention).
		v, err := Eval(a, env, m, indices[0])
		if err != nil {
			return 0, err
		}
		return v.asInt(), nil
	}

	strides := make([]int64, len(b.Dims))
	acc := int64(1)
	for i := len(b.Dims) - 1; i >= 0; i-- {
		strides[i] = acc
		dv, err := Eval(a, env, m, b.Dims[i])
		if err != nil {
			return 0, err
		}
		acc *= dv.asInt()
	}

	var offset int64
	for i, idx := range indices {
		v, err := Eval(a, env, m, idx)
		if err != nil {
			return 0, err
		}
		stride := int64(1)
		if i < len(strides) {
			stride = strides[i]
		}
		offset += v.asInt() * stride
	}
	return offset, nil
}

func readElem(raw []byte, offset int64, dt dtype.DType) (Value, error) {
	width := int64(dt.ByteWidth())
	start := offset * width
	if start < 0 || start+width > int64(len(raw)) {
		return Value{}, texprerr.New(texprerr.Internal, "interpreter", "buffer read out of bounds")
	}
	b := raw[start : start+width]
	switch dt {
	case dtype.Bool:
		return boolValue(b[0] != 0), nil
	case dtype.Int32:
		return intValue(int64(int32(binary.LittleEndian.Uint32(b)))), nil
	case dtype.Int64:
		return intValue(int64(binary.LittleEndian.Uint64(b))), nil
	case dtype.Float32:
		return floatValue(float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))), nil
	case dtype.Float64:
		return floatValue(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case dtype.Half, dtype.BFloat16:
		widened, err := dtype.WidenToFloat32(dt, b)
		if err != nil {
			return Value{}, err
		}
		return floatValue(float64(widened[0])), nil
	default:
		return Value{}, texprerr.New(texprerr.Internal, "interpreter", fmt.Sprintf("unhandled dtype %v on read", dt))
	}
}

func writeElem(raw []byte, offset int64, dt dtype.DType, v Value) error {
	width := int64(dt.ByteWidth())
	start := offset * width
	if start < 0 || start+width > int64(len(raw)) {
		return texprerr.New(texprerr.Internal, "interpreter", "buffer write out of bounds")
	}
	b := raw[start : start+width]
	switch dt {
	case dtype.Bool:
		if v.asBool() {
			b[0] = 1
		} else {
			b[0] = 0
		}
		return nil
	case dtype.Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v.asInt())))
		return nil
	case dtype.Int64:
		binary.LittleEndian.PutUint64(b, uint64(v.asInt()))
		return nil
	case dtype.Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v.asFloat())))
		return nil
	case dtype.Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v.asFloat()))
		return nil
	case dtype.Half, dtype.BFloat16:
		narrow, err := dtype.NarrowFloats(dt, []float32{float32(v.asFloat())})
		if err != nil {
			return err
		}
		copy(b, narrow)
		return nil
	default:
		return texprerr.New(texprerr.Internal, "interpreter", fmt.Sprintf("unhandled dtype %v on write", dt))
	}
}

// Eval evaluates expression h under env, reading through mem for Loads.
func Eval(a *ir.Arena, env map[ir.ExprHandle]Value, m *Memory, h ir.ExprHandle) (Value, error) {
	switch a.Kind(h) {
	case ir.KindIntImm:
		v, _ := a.IsConstInt(h)
		return intValue(v), nil
	case ir.KindFloatImm:
		return floatValue(a.FloatValue(h)), nil
	case ir.KindBoolImm:
		return boolValue(a.BoolValue(h)), nil
	case ir.KindVar:
		v, ok := env[h]
		if !ok {
			return Value{}, texprerr.New(texprerr.Internal, "interpreter", fmt.Sprintf("unbound variable %q", a.VarName(h)))
		}
		return v, nil
	case ir.KindAdd, ir.KindSub, ir.KindMul, ir.KindDiv, ir.KindMod, ir.KindMin, ir.KindMax:
		return evalBinary(a, env, m, h)
	case ir.KindCompareSelect:
		return evalCompareSelect(a, env, m, h)
	case ir.KindIfThenElse:
		children := a.Children(h)
		cond, err := Eval(a, env, m, children[0])
		if err != nil {
			return Value{}, err
		}
		if cond.asBool() {
			return Eval(a, env, m, children[1])
		}
		return Eval(a, env, m, children[2])
	case ir.KindCast:
		children := a.Children(h)
		v, err := Eval(a, env, m, children[0])
		if err != nil {
			return Value{}, err
		}
		return castValue(v, a.DType(h)), nil
	case ir.KindLoad:
		buf := a.LoadBuf(h)
		raw, err := m.ensure(a, env, buf)
		if err != nil {
			return Value{}, err
		}
		offset, err := flatOffset(a, env, m, buf, a.Children(h))
		if err != nil {
			return Value{}, err
		}
		return readElem(raw, offset, a.DType(h))
	default:
		return Value{}, texprerr.New(texprerr.Runtime, "interpreter", fmt.Sprintf("expression kind %v is not interpretable (vectorized code requires a real backend)", a.Kind(h)))
	}
}

func castValue(v Value, dt dtype.DType) Value {
	if dt == dtype.Bool {
		return boolValue(v.asBool())
	}
	if dt.IsFloating() {
		return floatValue(v.asFloat())
	}
	return intValue(v.asInt())
}

func evalBinary(a *ir.Arena, env map[ir.ExprHandle]Value, m *Memory, h ir.ExprHandle) (Value, error) {
	children := a.Children(h)
	lhs, err := Eval(a, env, m, children[0])
	if err != nil {
		return Value{}, err
	}
	rhs, err := Eval(a, env, m, children[1])
	if err != nil {
		return Value{}, err
	}
	floating := a.DType(h).IsFloating()
	switch a.Kind(h) {
	case ir.KindAdd:
		if floating {
			return floatValue(lhs.asFloat() + rhs.asFloat()), nil
		}
		return intValue(lhs.asInt() + rhs.asInt()), nil
	case ir.KindSub:
		if floating {
			return floatValue(lhs.asFloat() - rhs.asFloat()), nil
		}
		return intValue(lhs.asInt() - rhs.asInt()), nil
	case ir.KindMul:
		if floating {
			return floatValue(lhs.asFloat() * rhs.asFloat()), nil
		}
		return intValue(lhs.asInt() * rhs.asInt()), nil
	case ir.KindDiv:
		if floating {
			return floatValue(lhs.asFloat() / rhs.asFloat()), nil
		}
		if rhs.asInt() == 0 {
			return Value{}, texprerr.New(texprerr.Internal, "interpreter", "integer division by zero")
		}
		return intValue(lhs.asInt() / rhs.asInt()), nil
	case ir.KindMod:
		if floating {
			return floatValue(math.Mod(lhs.asFloat(), rhs.asFloat())), nil
		}
		if rhs.asInt() == 0 {
			return Value{}, texprerr.New(texprerr.Internal, "interpreter", "integer modulo by zero")
		}
		return intValue(lhs.asInt() % rhs.asInt()), nil
	case ir.KindMin:
		if floating {
			return floatValue(math.Min(lhs.asFloat(), rhs.asFloat())), nil
		}
		if lhs.asInt() < rhs.asInt() {
			return lhs, nil
		}
		return rhs, nil
	case ir.KindMax:
		if floating {
			return floatValue(math.Max(lhs.asFloat(), rhs.asFloat())), nil
		}
		if lhs.asInt() > rhs.asInt() {
			return lhs, nil
		}
		return rhs, nil
	default:
		return Value{}, texprerr.New(texprerr.Internal, "interpreter", "unreachable binary kind")
	}
}

func evalCompareSelect(a *ir.Arena, env map[ir.ExprHandle]Value, m *Memory, h ir.ExprHandle) (Value, error) {
	children := a.Children(h)
	lhs, err := Eval(a, env, m, children[0])
	if err != nil {
		return Value{}, err
	}
	rhs, err := Eval(a, env, m, children[1])
	if err != nil {
		return Value{}, err
	}
	var cmp bool
	l, r := lhs.asFloat(), rhs.asFloat()
	switch a.CompareOp(h) {
	case ir.CmpEQ:
		cmp = l == r
	case ir.CmpNE:
		cmp = l != r
	case ir.CmpLT:
		cmp = l < r
	case ir.CmpLE:
		cmp = l <= r
	case ir.CmpGT:
		cmp = l > r
	case ir.CmpGE:
		cmp = l >= r
	}
	if cmp {
		return Eval(a, env, m, children[2])
	}
	return Eval(a, env, m, children[3])
}

// Exec executes statement h, mutating env (for Let/For bindings) and mem
// (for Store/Allocate) in place.
func Exec(a *ir.Arena, env map[ir.ExprHandle]Value, m *Memory, h ir.StmtHandle) error {
	if h == ir.Invalid {
		return nil
	}
	switch a.StmtKind(h) {
	case ir.KindBlock:
		for _, s := range a.BlockStmts(h) {
			if err := Exec(a, env, m, s); err != nil {
				return err
			}
		}
		return nil
	case ir.KindFor:
		f := a.ForFields(h)
		start, err := Eval(a, env, m, f.Start)
		if err != nil {
			return err
		}
		end, err := Eval(a, env, m, f.End)
		if err != nil {
			return err
		}
		for i := start.asInt(); i < end.asInt(); i++ {
			env[f.LoopVar] = intValue(i)
			if err := Exec(a, env, m, f.Body); err != nil {
				return err
			}
		}
		delete(env, f.LoopVar)
		return nil
	case ir.KindStore:
		buf, indices, value := a.StoreFields(h)
		raw, err := m.ensure(a, env, buf)
		if err != nil {
			return err
		}
		offset, err := flatOffset(a, env, m, buf, indices)
		if err != nil {
			return err
		}
		v, err := Eval(a, env, m, value)
		if err != nil {
			return err
		}
		return writeElem(raw, offset, a.Buffer(buf).DType, v)
	case ir.KindLet:
		v, val := a.LetFields(h)
		evaluated, err := Eval(a, env, m, val)
		if err != nil {
			return err
		}
		env[v] = evaluated
		return nil
	case ir.KindCond:
		cond, t, f := a.CondFields(h)
		c, err := Eval(a, env, m, cond)
		if err != nil {
			return err
		}
		if c.asBool() {
			return Exec(a, env, m, t)
		}
		return Exec(a, env, m, f)
	case ir.KindAllocate:
		_, err := m.ensure(a, env, a.AllocBuffer(h))
		return err
	case ir.KindFree:
		return nil
	default:
		return texprerr.New(texprerr.Internal, "interpreter", fmt.Sprintf("unhandled statement kind %v", a.StmtKind(h)))
	}
}

// Run interprets every compute tensor in nest, in order, against mem and
// the scalar environment env (pre-populated with kernel input scalars
// and resolved shape-symbol values by the Runtime Invoker).
func Run(a *ir.Arena, nest *ir.LoopNest, m *Memory, env map[ir.ExprHandle]Value) error {
	for _, c := range nest.Computes {
		if c.IsPassThrough() {
			continue
		}
		if err := Exec(a, env, m, c.Body); err != nil {
			return err
		}
	}
	return nil
}
