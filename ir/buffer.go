package ir

import "github.com/texpr-dev/texpr/dtype"

// Buffer describes a tensor's backing storage inside a compute's loop
// nest: its name, element type, and per-dimension extents. Dims are
// expressions rather than plain ints so symbolic (dynamic) shapes can
// flow straight through without a separate representation (spec §4.1).
type Buffer struct {
	Name  string
	DType dtype.DType
	Dims  []ExprHandle

	// IsArgument marks a buffer bound from the Kernel's input/output
	// argument list rather than an intermediate materialized during
	// lowering (spec §4.2-4.3); Pre-allocate Intermediate Buffers (spec
	// §4.6 step 12) only considers non-argument buffers.
	IsArgument bool

	// HostPtr is set once Pre-allocate Intermediate Buffers has reserved
	// backing storage for a statically-shaped intermediate (spec §4.6
	// step 12); nil until then, and always nil for dynamically-shaped or
	// argument buffers.
	HostPtr []byte
}

// NewBuffer allocates and registers a buffer, returning its handle.
func (a *Arena) NewBuffer(name string, dt dtype.DType, dims []ExprHandle) BufHandle {
	return a.addBuffer(Buffer{Name: name, DType: dt, Dims: dims})
}

// Rank returns the number of dimensions of the buffer at h.
func (a *Arena) Rank(h BufHandle) int { return len(a.Buffer(h).Dims) }
