// Package graph models the external dataflow subgraph the Kernel ingests:
// SSA values with possibly-symbolic shapes, strides, and dtypes, and the
// operator nodes that consume/produce them (spec §3). The upstream graph
// optimizer that builds this structure is an external collaborator; this
// package only defines the shape the Kernel reads.
package graph

import "github.com/texpr-dev/texpr/dtype"

// ValueKind is the SSA value's coarse type, matching spec §3's "kind".
type ValueKind int

const (
	KindTensor ValueKind = iota
	KindFloat
	KindInt
	KindBool
	KindNone
	KindList
)

func (k ValueKind) String() string {
	switch k {
	case KindTensor:
		return "tensor"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindNone:
		return "none"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// ShapeSymbol is either a concrete size or an opaque dynamic dimension
// bound to an integer graph input at runtime (spec §3).
//
//	static(size)  -- ID == 0, Size >= 0
//	dynamic(id)   -- ID < 0, identifies the symbol
type ShapeSymbol struct {
	id   int
	size int
}

// Static returns a shape symbol for a concrete non-negative size.
func Static(size int) ShapeSymbol {
	if size < 0 {
		panic("graph: static shape symbol must be non-negative")
	}
	return ShapeSymbol{id: 0, size: size}
}

// Dynamic returns a shape symbol identifying an unknown dimension. id
// must be negative, matching the "opaque negative symbol identifier"
// convention of spec §3.
func Dynamic(id int) ShapeSymbol {
	if id >= 0 {
		panic("graph: dynamic shape symbol id must be negative")
	}
	return ShapeSymbol{id: id, size: 0}
}

// IsStatic reports whether this symbol is a concrete size.
func (s ShapeSymbol) IsStatic() bool { return s.id == 0 }

// StaticSize returns the concrete size; only valid when IsStatic().
func (s ShapeSymbol) StaticSize() int { return s.size }

// DynamicID returns the symbol id; only valid when !IsStatic().
func (s ShapeSymbol) DynamicID() int { return s.id }

func (s ShapeSymbol) String() string {
	if s.IsStatic() {
		return itoa(s.size)
	}
	return "ss" + itoa(-s.id)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Value is one SSA value in the subgraph: a tensor, scalar, constant,
// none, or list, carrying the optional shape/stride/dtype metadata spec
// §3 describes.
type Value struct {
	Name string
	Kind ValueKind

	// Shape is the ordered sequence of shape symbols; nil/absent for
	// scalars, and "unknown rank" when Kind == KindTensor but Shape == nil
	// and KnownSizes == nil.
	Shape []ShapeSymbol

	// Strides holds concrete element strides when known (only meaningful
	// alongside a fully concrete Shape). nil means "unknown" or "default
	// contiguous", distinguished by HasStrides.
	Strides    []int
	HasStrides bool

	// KnownSizes is a fallback cache of concrete sizes for tensor values
	// whose Shape field was not populated by the upstream optimizer but
	// whose sizes are otherwise known (spec §4.1 sizesForValue).
	KnownSizes []int

	DType    dtype.DType
	HasDType bool

	// Producer is the Node that computes this value, or nil for graph
	// inputs and constants.
	Producer *Node

	// Const holds the embedded payload of a Constant-node output; its
	// IsConstant flag is false for plain graph inputs (spec §4.3).
	Const ConstPayload
}

// ConstPayload describes a Constant node's output; IsConstant is set when a
// Value is such an output.
type ConstPayload struct {
	IsConstant  bool
	IsCustom    bool // opaque/custom-class constant (spec §4.3 bullet 1)
	IsScalar    bool // scalar constant embedded directly as an IValue (bullet 2)
	TensorData  []byte
	ScalarBool  bool
	ScalarInt   int64
	ScalarFloat float64
}

// Rank returns the tensor rank if known, or -1 if the rank itself is unknown.
func (v *Value) Rank() int {
	if v.Shape != nil {
		return len(v.Shape)
	}
	if v.KnownSizes != nil {
		return len(v.KnownSizes)
	}
	return -1
}

// IsContiguous reports whether v's strides (if present) match the default
// row-major strides for its shape. Values with no stride information are
// treated as contiguous, matching the teacher's "strides == nil means
// canonical" convention (ml tensor.IsContiguous / EasyRobot types.Shape).
func (v *Value) IsContiguous() bool {
	if !v.HasStrides {
		return true
	}
	want := DefaultStrides(v.KnownSizes)
	if len(want) != len(v.Strides) {
		return false
	}
	for i := range want {
		if want[i] != v.Strides[i] {
			return false
		}
	}
	return true
}

// DefaultStrides computes row-major contiguous strides for sizes.
func DefaultStrides(sizes []int) []int {
	n := len(sizes)
	if n == 0 {
		return nil
	}
	strides := make([]int, n)
	acc := 1
	for i := n - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= sizes[i]
	}
	return strides
}

// IsDenseNonOverlapping reports whether strides/sizes describe a layout
// whose element addresses cover distinct positions under some permutation
// of axes (spec §4.5, glossary "dense non-overlapping"). Equivalent to:
// sorting axes by stride ascending (innermost first), each stride equals
// the product of the sizes before it, so there are no gaps or overlaps.
func IsDenseNonOverlapping(sizes, strides []int) bool {
	n := len(sizes)
	if n != len(strides) {
		return false
	}
	type axis struct{ size, stride int }
	axes := make([]axis, 0, n)
	for i := 0; i < n; i++ {
		if sizes[i] == 1 {
			continue // size-1 dims never contribute to overlap
		}
		axes = append(axes, axis{sizes[i], strides[i]})
	}
	// Sort by stride ascending (simple insertion sort; n is small).
	for i := 1; i < len(axes); i++ {
		for j := i; j > 0 && axes[j].stride < axes[j-1].stride; j-- {
			axes[j], axes[j-1] = axes[j-1], axes[j]
		}
	}
	expected := 1
	for _, a := range axes {
		if a.stride != expected {
			return false
		}
		expected *= a.size
	}
	return true
}
