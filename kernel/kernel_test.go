package kernel

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/texpr-dev/texpr/argval"
	"github.com/texpr-dev/texpr/backend"
	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/lowering"
)

// addLowering is a minimal standard-registry-style lowering used by
// these tests in place of a real aten::add: out[i...] = lhs[i...] +
// rhs[i...] over a rank-1 output shape.
func addLowering(a *ir.Arena, args []argval.Value, outputShape []ir.ExprHandle, outputDType dtype.DType, device string) (ir.ComputeTensor, error) {
	lhs, rhs := args[0].Buf, args[1].Buf
	out := a.NewBuffer(a.UniqueName("add_out"), outputDType, outputShape)
	i := a.Var(a.UniqueName("i"), dtype.Int64)
	load1 := a.Load(lhs, []ir.ExprHandle{i}, outputDType)
	load2 := a.Load(rhs, []ir.ExprHandle{i}, outputDType)
	store := a.Store(out, []ir.ExprHandle{i}, a.Add(load1, load2))
	loop := a.For(i, a.IntImm(0), outputShape[0], store)
	return ir.ComputeTensor{Buf: out, Body: loop}, nil
}

func float32Bytes(vals ...float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func readFloat32s(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out
}

func buildAddTwoOnesSubgraph(n int) *graph.Subgraph {
	shape := []graph.ShapeSymbol{graph.Static(n)}
	a := &graph.Value{Name: "a", Kind: graph.KindTensor, Shape: shape, KnownSizes: []int{n}, DType: dtype.Float32, HasDType: true}
	b := &graph.Value{Name: "b", Kind: graph.KindTensor, Shape: shape, KnownSizes: []int{n}, DType: dtype.Float32, HasDType: true}
	out := &graph.Value{Name: "out", Kind: graph.KindTensor, Shape: shape, KnownSizes: []int{n}, DType: dtype.Float32, HasDType: true}
	node := &graph.Node{Op: "aten::add", Schema: "aten::add(Tensor, Tensor) -> Tensor", Inputs: []*graph.Value{a, b}, Outputs: []*graph.Value{out}}
	out.Producer = node

	return &graph.Subgraph{
		FunctionName: "add_two_ones",
		Inputs:       []*graph.Value{a, b},
		Outputs:      []*graph.Value{out},
		Nodes:        []*graph.Node{node},
	}
}

func TestKernelRunAddTwoOnes(t *testing.T) {
	t.Setenv("DONT_USE_LLVM", "1")

	sg := buildAddTwoOnesSubgraph(16)
	registry := lowering.NewRegistry()
	registry.RegisterCustom("aten::add", addLowering)

	k, err := New(sg, registry, backend.CPU, Options{ThreadCount: 1, PreAlloc: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ones := float32Bytes(1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	stack := []Value{
		TensorVal(TensorValue{Data: append([]byte(nil), ones...), DType: dtype.Float32}),
		TensorVal(TensorValue{Data: append([]byte(nil), ones...), DType: dtype.Float32}),
	}
	if err := k.Run(&stack); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stack) != 1 {
		t.Fatalf("expected 1 result on stack, got %d", len(stack))
	}
	got := readFloat32s(stack[0].Tensor.Data)
	for i, v := range got {
		if v != 2 {
			t.Fatalf("out[%d] = %v, want 2", i, v)
		}
	}
}

func buildAddSymbolicSubgraph() *graph.Subgraph {
	shape := []graph.ShapeSymbol{graph.Dynamic(-1)}
	a := &graph.Value{Name: "a", Kind: graph.KindTensor, Shape: shape, DType: dtype.Float32, HasDType: true}
	b := &graph.Value{Name: "b", Kind: graph.KindTensor, Shape: shape, DType: dtype.Float32, HasDType: true}
	out := &graph.Value{Name: "out", Kind: graph.KindTensor, Shape: shape, DType: dtype.Float32, HasDType: true}
	node := &graph.Node{Op: "aten::add", Schema: "aten::add(Tensor, Tensor) -> Tensor", Inputs: []*graph.Value{a, b}, Outputs: []*graph.Value{out}}
	out.Producer = node

	return &graph.Subgraph{
		FunctionName:     "add_symbolic",
		Inputs:           []*graph.Value{a, b},
		Outputs:          []*graph.Value{out},
		Nodes:            []*graph.Node{node},
		SymbolicShapeIDs: []int{-1},
	}
}

func TestKernelRunSymbolicShape(t *testing.T) {
	t.Setenv("DONT_USE_LLVM", "1")

	sg := buildAddSymbolicSubgraph()
	registry := lowering.NewRegistry()
	registry.RegisterCustom("aten::add", addLowering)

	k, err := New(sg, registry, backend.CPU, Options{ThreadCount: 1, PreAlloc: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, n := range []int{4, 8} {
		data := float32Bytes(repeat(n, 1)...)
		stack := []Value{
			TensorVal(TensorValue{Data: append([]byte(nil), data...), DType: dtype.Float32}),
			TensorVal(TensorValue{Data: append([]byte(nil), data...), DType: dtype.Float32}),
			IntValue(int64(n)),
		}
		if err := k.Run(&stack); err != nil {
			t.Fatalf("Run n=%d: %v", n, err)
		}
		if len(stack) != 1 {
			t.Fatalf("expected 1 result on stack, got %d", len(stack))
		}
		got := readFloat32s(stack[0].Tensor.Data)
		if len(got) != n {
			t.Fatalf("n=%d: expected %d outputs, got %d", n, n, len(got))
		}
		for i, v := range got {
			if v != 2 {
				t.Fatalf("n=%d out[%d] = %v, want 2", n, i, v)
			}
		}
	}
}

func repeat(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestKernelRecompileForShapes(t *testing.T) {
	t.Setenv("DONT_USE_LLVM", "1")

	sg := buildAddSymbolicSubgraph()
	registry := lowering.NewRegistry()
	registry.RegisterCustom("aten::add", addLowering)

	k, err := New(sg, registry, backend.CPU, Options{ThreadCount: 1, PreAlloc: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	firstCodegen := k.Codegen
	if err := k.RecompileForShapes([]int64{4}, Options{ThreadCount: 1, PreAlloc: true}); err != nil {
		t.Fatalf("RecompileForShapes: %v", err)
	}
	if k.Codegen == firstCodegen {
		t.Fatal("expected first RecompileForShapes call to recompile (no prior shape key)")
	}

	recompiled := k.Codegen
	if err := k.RecompileForShapes([]int64{4}, Options{ThreadCount: 1, PreAlloc: true}); err != nil {
		t.Fatalf("RecompileForShapes (repeat): %v", err)
	}
	if k.Codegen != recompiled {
		t.Fatal("expected repeated shape assignment to skip recompilation")
	}
}

func TestKernelFallbackEnforced(t *testing.T) {
	t.Setenv("FALLBACK", "2")

	sg := buildAddTwoOnesSubgraph(8)
	registry := lowering.NewRegistry()
	registry.RegisterCustom("aten::add", addLowering)

	k, err := New(sg, registry, backend.CPU, Options{ThreadCount: 1, PreAlloc: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if k.Codegen != nil {
		t.Fatal("expected no primary codegen compiled when fallback is enforced")
	}
	if k.Interpreter == nil {
		t.Fatal("expected interpreter codegen compiled when fallback is enforced")
	}
}
