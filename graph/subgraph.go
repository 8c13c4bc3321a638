package graph

// Subgraph is the typed dataflow subgraph the Kernel binds and lowers
// (spec §1-3). Inputs and Outputs preserve the graph-declared order the
// Kernel's bufferArgs layout depends on (spec §4.2, §8 invariants).
type Subgraph struct {
	// FunctionName names the compiled kernel, used in codegen symbol
	// names and log lines.
	FunctionName string

	Inputs  []*Value
	Outputs []*Value

	// Nodes lists every node in definition (topological) order; the
	// Lowering Dispatcher walks this slice once (spec §4.4).
	Nodes []*Node

	// Constants lists every prim::Constant node in the graph, in
	// definition order, independent of whether any output has uses —
	// the Constant Binder always materializes them (spec §4.3).
	Constants []*Node

	// SymbolicShapeIDs is the construction-time list of dynamic shape
	// symbol ids the caller has promised to bind (spec §6 "Construction
	// inputs"). BindSymbolicShapeInputs assigns ShapeSymbolInputPos
	// entries in this order.
	SymbolicShapeIDs []int
}

// UsedValues computes the set of values consumed by some node input or
// declared as a graph output, for the Lowering Dispatcher's "node output
// with uses" filter (spec §4.4).
func (g *Subgraph) UsedValues() map[*Value]bool {
	used := make(map[*Value]bool, len(g.Nodes)*2)
	for _, n := range g.Nodes {
		for _, in := range n.Inputs {
			used[in] = true
		}
	}
	for _, o := range g.Outputs {
		used[o] = true
	}
	return used
}
