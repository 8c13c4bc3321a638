// Package argval is the ArgValue tagged union lowerings pattern-match on
// when converting a graph value into something a lowering function can
// consume (spec §3, §4.4). Spec §9 requires a tagged union rather than
// an interface hierarchy here, since every lowering switches on the tag
// directly; a Kind-discriminated struct is the idiomatic Go shape for
// that instead of a sealed interface with type assertions everywhere.
package argval

import "github.com/texpr-dev/texpr/ir"

// Kind discriminates the variant a Value holds.
type Kind int

const (
	KindBuffer Kind = iota
	KindInt
	KindDouble
	KindBool
	KindIntList
	KindDoubleList
	KindBufferList
	KindNone
)

func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindIntList:
		return "int-list"
	case KindDoubleList:
		return "double-list"
	case KindBufferList:
		return "buffer-list"
	case KindNone:
		return "none"
	default:
		return "unknown"
	}
}

// Value is the sum type a lowering's argument list is made of: buffer
// handle, one of three scalar kinds, one of two list kinds, a list of
// buffer handles, or the none-sentinel (spec §3).
type Value struct {
	Kind Kind

	Buf        ir.BufHandle
	Int        int64
	Double     float64
	Bool       bool
	IntList    []int64
	DoubleList []float64
	BufferList []ir.BufHandle
}

// Buffer wraps a buffer handle argument.
func Buffer(h ir.BufHandle) Value { return Value{Kind: KindBuffer, Buf: h} }

// Int wraps a scalar int argument.
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Double wraps a scalar double argument.
func Double(v float64) Value { return Value{Kind: KindDouble, Double: v} }

// Bool wraps a scalar bool argument.
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// IntList wraps a vector-of-int argument.
func IntList(v []int64) Value { return Value{Kind: KindIntList, IntList: v} }

// DoubleList wraps a vector-of-double argument.
func DoubleList(v []float64) Value { return Value{Kind: KindDoubleList, DoubleList: v} }

// BufferList wraps a homogeneous list-of-buffers argument (spec §4.4
// toArg: "homogeneous list of buffers → list-of-buffers").
func BufferList(v []ir.BufHandle) Value { return Value{Kind: KindBufferList, BufferList: v} }

// None is the sentinel ArgValue for an absent optional argument (e.g.
// conv2d's omitted bias before synthesis, spec §4.4).
func None() Value { return Value{Kind: KindNone} }

// IsNone reports whether v is the none-sentinel.
func (v Value) IsNone() bool { return v.Kind == KindNone }
