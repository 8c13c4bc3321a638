package graph

// Node is one operator application in the subgraph: an operator symbol
// (e.g. "aten::add"), a schema string for standard-registry dispatch, and
// its ordered input/output values (spec §4.4).
type Node struct {
	// Op is the operator identifier used to key the custom lowering
	// registry (spec §4.4 dispatch step 1).
	Op string

	// Schema is the full schema string used to key the standard lowering
	// registry when no custom lowering matches (spec §4.4 dispatch step 2).
	Schema string

	Inputs  []*Value
	Outputs []*Value
}

// HasUses reports whether any output of n is consumed elsewhere in the
// subgraph or is itself a declared graph output. Lowering Dispatch only
// binds outputs with uses (spec §4.4: "for each graph node output with
// uses").
func (n *Node) HasUses(used map[*Value]bool) bool {
	for _, o := range n.Outputs {
		if used[o] {
			return true
		}
	}
	return false
}

// IsConstantChunk, IsTo, IsQuantizePerTensor, and IsConv2D identify the
// special-cased argument-list ops of spec §4.4.
func (n *Node) IsConstantChunk() bool      { return n.Op == "prim::ConstantChunk" }
func (n *Node) IsTo() bool                 { return n.Op == "aten::to" }
func (n *Node) IsQuantizePerTensor() bool  { return n.Op == "aten::quantize_per_tensor" }
func (n *Node) IsConv2D() bool             { return n.Op == "aten::conv2d" }
func (n *Node) IsListConstruct() bool      { return n.Op == "prim::ListConstruct" }
func (n *Node) IsConstant() bool           { return n.Op == "prim::Constant" }
