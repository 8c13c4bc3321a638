package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/texprerr"
)

// fixture is the on-disk JSON shape texprc compile reads: a minimal,
// human-writable stand-in for whatever upstream graph builder would
// otherwise hand a Kernel a graph.Subgraph directly. Only statically
// shaped values are expressible here; a dynamic shape symbol would need
// its own id allocator, which is outside a developer fixture's scope.
type fixture struct {
	FunctionName string         `json:"function_name"`
	Values       []fixtureValue `json:"values"`
	Nodes        []fixtureNode  `json:"nodes"`
	Inputs       []string       `json:"inputs"`
	Outputs      []string       `json:"outputs"`
}

type fixtureValue struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"` // "tensor", "float", "int", "bool", "none"
	Shape []int  `json:"shape,omitempty"`
	DType string `json:"dtype,omitempty"`
}

type fixtureNode struct {
	Op      string   `json:"op"`
	Schema  string   `json:"schema"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

func loadFixture(path string) (*graph.Subgraph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, texprerr.Wrap(texprerr.Malformed, "texprc", "reading fixture", err)
	}
	var f fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, texprerr.Wrap(texprerr.Malformed, "texprc", "parsing fixture", err)
	}
	return f.toSubgraph()
}

func (f *fixture) toSubgraph() (*graph.Subgraph, error) {
	values := make(map[string]*graph.Value, len(f.Values))
	for _, fv := range f.Values {
		v, err := fv.toValue()
		if err != nil {
			return nil, err
		}
		values[fv.Name] = v
	}

	lookup := func(name string) (*graph.Value, error) {
		v, ok := values[name]
		if !ok {
			return nil, texprerr.New(texprerr.Malformed, "texprc", fmt.Sprintf("fixture references undeclared value %q", name))
		}
		return v, nil
	}

	sg := &graph.Subgraph{FunctionName: f.FunctionName}

	for _, name := range f.Inputs {
		v, err := lookup(name)
		if err != nil {
			return nil, err
		}
		sg.Inputs = append(sg.Inputs, v)
	}
	for _, name := range f.Outputs {
		v, err := lookup(name)
		if err != nil {
			return nil, err
		}
		sg.Outputs = append(sg.Outputs, v)
	}

	for _, fn := range f.Nodes {
		node := &graph.Node{Op: fn.Op, Schema: fn.Schema}
		for _, name := range fn.Inputs {
			v, err := lookup(name)
			if err != nil {
				return nil, err
			}
			node.Inputs = append(node.Inputs, v)
		}
		for _, name := range fn.Outputs {
			v, err := lookup(name)
			if err != nil {
				return nil, err
			}
			v.Producer = node
			node.Outputs = append(node.Outputs, v)
		}
		sg.Nodes = append(sg.Nodes, node)
		if node.IsConstant() {
			sg.Constants = append(sg.Constants, node)
		}
	}

	return sg, nil
}

func (fv fixtureValue) toValue() (*graph.Value, error) {
	v := &graph.Value{Name: fv.Name}

	switch fv.Kind {
	case "tensor":
		v.Kind = graph.KindTensor
	case "float":
		v.Kind = graph.KindFloat
	case "int":
		v.Kind = graph.KindInt
	case "bool":
		v.Kind = graph.KindBool
	case "none":
		v.Kind = graph.KindNone
	case "list":
		v.Kind = graph.KindList
	default:
		return nil, texprerr.New(texprerr.Malformed, "texprc", fmt.Sprintf("value %q has unknown kind %q", fv.Name, fv.Kind))
	}

	if len(fv.Shape) > 0 {
		shape := make([]graph.ShapeSymbol, len(fv.Shape))
		for i, n := range fv.Shape {
			shape[i] = graph.Static(n)
		}
		v.Shape = shape
		v.KnownSizes = fv.Shape
	}

	if fv.DType != "" {
		dt, err := parseDType(fv.DType)
		if err != nil {
			return nil, err
		}
		v.DType = dt
		v.HasDType = true
	}

	return v, nil
}

func parseDType(s string) (dtype.DType, error) {
	switch s {
	case "bool":
		return dtype.Bool, nil
	case "int32":
		return dtype.Int32, nil
	case "int64":
		return dtype.Int64, nil
	case "float32":
		return dtype.Float32, nil
	case "float64":
		return dtype.Float64, nil
	case "half":
		return dtype.Half, nil
	case "bfloat16":
		return dtype.BFloat16, nil
	default:
		return dtype.Invalid, texprerr.New(texprerr.Malformed, "texprc", fmt.Sprintf("unknown dtype %q", s))
	}
}
