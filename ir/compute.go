package ir

// ComputeTensor binds a tensor value's backing Buffer to the Stmt that
// computes it. Body is Invalid for a pass-through tensor (e.g. a view or
// an unused constant) that contributes no loop nest of its own (spec
// §4.4's "for node outputs with no compute, record a pass-through
// binding rather than a Store").
type ComputeTensor struct {
	Buf  BufHandle
	Body StmtHandle
}

// IsPassThrough reports whether the compute has no statement body.
func (c ComputeTensor) IsPassThrough() bool { return c.Body == Invalid }

// LoopNest is the ordered list of compute tensors produced by lowering,
// in the order the Loop-Nest Transformer will walk them (spec §4.4-4.6).
// A single Arena backs every Expr/Stmt/Buffer referenced from it.
type LoopNest struct {
	Arena    *Arena
	Computes []ComputeTensor

	// Root is the top-level statement emitted once the transformer has
	// finished fusing and scheduling the individual computes; Invalid
	// until Loop-Nest Transformer step 6 (horizontal fusion) or later
	// has produced it.
	Root StmtHandle
}

// NewLoopNest returns an empty loop nest backed by a at a.
func NewLoopNest(a *Arena) *LoopNest {
	return &LoopNest{Arena: a}
}

// Add appends a compute tensor to the nest.
func (l *LoopNest) Add(c ComputeTensor) { l.Computes = append(l.Computes, c) }
