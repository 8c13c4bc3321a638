// Package dtype defines the scalar element types the tensor-expression IR
// knows about, generalizing the teacher's ml.DType enum from a fixed model
// inference vocabulary to the graph-level dtypes spec.md §2-3 requires for
// binding (Float, Double, Long/Int, Bool, Half, BFloat16).
package dtype

// DType is the scalar element type of a Buffer or ExprHandle.
type DType int

const (
	Invalid DType = iota
	Bool
	Int32
	Int64
	Float32
	Float64
	Half
	BFloat16
)

func (d DType) String() string {
	switch d {
	case Bool:
		return "bool"
	case Int32:
		return "int"
	case Int64:
		return "long"
	case Float32:
		return "float"
	case Float64:
		return "double"
	case Half:
		return "half"
	case BFloat16:
		return "bfloat16"
	default:
		return "invalid"
	}
}

// ByteWidth returns the size in bytes of one element, used by the
// pre-allocation pass (spec §4.6 step 7) to size host buffers.
func (d DType) ByteWidth() int {
	switch d {
	case Bool:
		return 1
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	case Half, BFloat16:
		return 2
	default:
		return 0
	}
}

// IsFloating reports whether the dtype participates in floating-point
// arithmetic (as opposed to integer/boolean indexing math).
func (d DType) IsFloating() bool {
	switch d {
	case Float32, Float64, Half, BFloat16:
		return true
	default:
		return false
	}
}

// Default is the dtype given to the placeholder buffer the Constant Binder
// creates for a custom (opaque) constant.
const Default = Float32
