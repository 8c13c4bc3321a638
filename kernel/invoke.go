package kernel

import (
	"fmt"

	"github.com/texpr-dev/texpr/backend"
	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/texprerr"
)

// ValueKind discriminates a Stack Value's payload, spec §4.8's "int,
// double, bool, or tensor" evaluation-stack entry.
type ValueKind int

const (
	ValueTensor ValueKind = iota
	ValueInt
	ValueDouble
	ValueBool
)

// TensorValue is one tensor's raw data pointer and layout metadata as it
// rides on the evaluation stack.
type TensorValue struct {
	Data    []byte
	Sizes   []int64
	Strides []int64 // nil means default contiguous for Sizes
	DType   dtype.DType
}

// Value is one entry of the evaluation stack the Runtime Invoker pops
// inputs from and pushes outputs onto (spec §4.8).
type Value struct {
	Kind   ValueKind
	Tensor TensorValue
	Int    int64
	Double float64
	Bool   bool
}

func IntValue(v int64) Value        { return Value{Kind: ValueInt, Int: v} }
func DoubleValue(v float64) Value   { return Value{Kind: ValueDouble, Double: v} }
func BoolValue(v bool) Value        { return Value{Kind: ValueBool, Bool: v} }
func TensorVal(t TensorValue) Value { return Value{Kind: ValueTensor, Tensor: t} }

// Run implements the Runtime Invoker's run(stack) (spec §4.8): decides
// between the primary codegen and the fallback interpreter per the
// Fallback Controller's decision (spec §4.9), popping the declared
// inputs off the top of *stack and pushing one result per graph output.
func (k *Kernel) Run(stack *[]Value) error {
	if k.fallbackEnforced {
		return k.runWith(k.Interpreter, stack)
	}
	if !k.fallbackAllowed {
		return k.runWith(k.Codegen, stack)
	}
	if k.useFallback {
		return k.runWith(k.Interpreter, stack)
	}
	if err := k.runWith(k.Codegen, stack); err != nil {
		k.runMu.Lock()
		k.useFallback = true
		k.runMu.Unlock()
		if ferr := k.ensureInterpreterCompiled(); ferr != nil {
			return texprerr.Wrap(texprerr.Internal, "kernel", fmt.Sprintf("run failed (%v) and fallback compile also failed", err), ferr)
		}
		return k.runWith(k.Interpreter, stack)
	}
	return nil
}

func (k *Kernel) ensureInterpreterCompiled() error {
	if k.Interpreter != nil {
		return nil
	}
	return k.compileInterpreterFallback(Options{PreAlloc: true})
}

// runWith implements runKernel (spec §4.8 steps 1-7) against cg.
func (k *Kernel) runWith(cg backend.Codegen, stack *[]Value) error {
	if cg == nil {
		return texprerr.New(texprerr.Internal, "kernel", "no codegen compiled")
	}

	k.runMu.Lock()
	defer k.runMu.Unlock()

	nInputs := len(k.Graph.Inputs) + len(k.Graph.SymbolicShapeIDs)
	s := *stack
	if len(s) < nInputs {
		return texprerr.New(texprerr.Internal, "kernel", fmt.Sprintf("stack has %d values, need %d inputs", len(s), nInputs))
	}
	inputs := s[len(s)-nInputs:]
	s = s[:len(s)-nInputs]

	declared := inputs[:len(k.Graph.Inputs)]
	shapeSymbolValues := inputs[len(k.Graph.Inputs):]

	args, outputs, err := k.assembleArgs(declared, shapeSymbolValues)
	if err != nil {
		return err
	}

	if err := cg.Invoke(args); err != nil {
		return err
	}

	s = append(s, outputs...)
	*stack = s
	return nil
}

// RunFast implements runFast (spec §4.8): the same argument assembly and
// invocation as Run, but against pre-resolved raw buffers with no stack
// interaction and no output allocation — callers own input and output
// storage for the lifetime of the call.
func (k *Kernel) RunFast(inputs []TensorValue, shapeSymbols []int64, outputs []TensorValue) error {
	cg := k.Codegen
	if k.fallbackEnforced || k.useFallback {
		cg = k.Interpreter
	}
	if cg == nil {
		return texprerr.New(texprerr.Internal, "kernel", "no codegen compiled")
	}

	k.runMu.Lock()
	defer k.runMu.Unlock()

	args := make([]backend.Arg, len(k.Slots))
	pos := 0
	for i := 0; i < len(k.Binder.BufferArgs()); i, pos = i+1, pos+1 {
		if i >= len(inputs) {
			return texprerr.New(texprerr.Internal, "kernel", "not enough tensor inputs for runFast")
		}
		args[pos] = backend.BufferArg(inputs[i].Data)
	}
	// runFast has no scalar-int/double/bool inputs in this Kernel's usage
	// (it exists for the hot, shape-stable repeat-invocation path where
	// only tensor data pointers and resolved shape-symbol values change);
	// any declared scalar graph inputs still occupy their slot positions.
	nScalar := countScalarInputSlots(k)
	for i := 0; i < nScalar; i, pos = i+1, pos+1 {
		args[pos] = backend.IntArg(0)
	}
	for i := 0; i < len(shapeSymbols); i, pos = i+1, pos+1 {
		args[pos] = backend.IntArg(shapeSymbols[i])
	}
	for i := 0; i < len(k.OutputBufs); i, pos = i+1, pos+1 {
		if i >= len(outputs) {
			return texprerr.New(texprerr.Internal, "kernel", "not enough output buffers for runFast")
		}
		args[pos] = backend.BufferArg(outputs[i].Data)
	}
	for _, c := range k.Binder.Constants {
		args[pos] = backend.BufferArg(c.Data)
		pos++
	}

	return cg.Invoke(args)
}

func countScalarInputSlots(k *Kernel) int {
	n := 0
	for _, v := range k.Graph.Inputs {
		if _, ok := k.Binder.Scalars[v]; ok {
			n++
		}
	}
	return n
}

// assembleArgs builds the positional argument vector in k.Slots order
// (spec §4.8 steps 1-5) and allocates the output tensors (step 4).
func (k *Kernel) assembleArgs(declared []Value, shapeSymbolValues []Value) ([]backend.Arg, []Value, error) {
	args := make([]backend.Arg, len(k.Slots))
	pos := 0

	for i, v := range k.Graph.Inputs {
		if v.Kind != graph.KindTensor {
			continue
		}
		args[pos] = backend.BufferArg(declared[i].Tensor.Data)
		pos++
	}

	for i, v := range k.Graph.Inputs {
		if v.Kind == graph.KindTensor {
			continue
		}
		args[pos] = scalarArg(declared[i])
		pos++
	}

	env := make(map[ir.ExprHandle]int64, len(shapeSymbolValues))
	shapeVars := orderShapeSymbolVars(k.Binder.ShapeSymbolInputPos)
	for i, v := range shapeVars {
		if i >= len(shapeSymbolValues) {
			return nil, nil, texprerr.New(texprerr.Internal, "kernel", "not enough symbolic-shape inputs on stack")
		}
		val := shapeSymbolValues[i].Int
		env[v] = val
		args[pos] = backend.IntArg(val)
		pos++
	}

	outputs := make([]Value, len(k.OutputBufs))
	for i, buf := range k.OutputBufs {
		b := k.Arena.Buffer(buf)
		sizes, err := resolveDims(k.Arena, b.Dims, env)
		if err != nil {
			return nil, nil, err
		}
		n := int64(1)
		for _, sz := range sizes {
			n *= sz
		}
		data := make([]byte, n*int64(b.DType.ByteWidth()))
		args[pos] = backend.BufferArg(data)
		outputs[i] = TensorVal(TensorValue{Data: data, Sizes: sizes, DType: b.DType})
		pos++
	}

	for _, c := range k.Binder.Constants {
		args[pos] = backend.BufferArg(c.Data)
		pos++
	}

	return args, outputs, nil
}

func resolveDims(a *ir.Arena, dims []ir.ExprHandle, env map[ir.ExprHandle]int64) ([]int64, error) {
	out := make([]int64, len(dims))
	for i, d := range dims {
		if v, ok := a.IsConstInt(d); ok {
			out[i] = v
			continue
		}
		v, ok := env[d]
		if !ok {
			return nil, texprerr.New(texprerr.Malformed, "kernel", fmt.Sprintf("output dimension %d has no constant value or bound shape symbol", i))
		}
		out[i] = v
	}
	return out, nil
}

func scalarArg(v Value) backend.Arg {
	switch v.Kind {
	case ValueInt:
		return backend.IntArg(v.Int)
	case ValueDouble:
		return backend.FloatArg(v.Double)
	default:
		return backend.BoolArg(v.Bool)
	}
}
