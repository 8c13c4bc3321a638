package main

import (
	"github.com/texpr-dev/texpr/argval"
	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/lowering"
)

// builtinRegistry returns the small set of elementwise lowerings texprc
// ships so a fixture can be compiled without an embedder supplying its
// own operator library — the Lowering Dispatcher itself stays agnostic
// to any particular op set (spec §4.4); this is just enough of one to
// exercise the pipeline end to end from the command line.
func builtinRegistry() *lowering.Registry {
	r := lowering.NewRegistry()
	r.RegisterCustom("aten::add", binaryElementwise(func(a *ir.Arena, x, y ir.ExprHandle) ir.ExprHandle { return a.Add(x, y) }))
	r.RegisterCustom("aten::sub", binaryElementwise(func(a *ir.Arena, x, y ir.ExprHandle) ir.ExprHandle { return a.Sub(x, y) }))
	r.RegisterCustom("aten::mul", binaryElementwise(func(a *ir.Arena, x, y ir.ExprHandle) ir.ExprHandle { return a.Mul(x, y) }))
	return r
}

func binaryElementwise(op func(a *ir.Arena, x, y ir.ExprHandle) ir.ExprHandle) lowering.Func {
	return func(a *ir.Arena, args []argval.Value, outputShape []ir.ExprHandle, outputDType dtype.DType, device string) (ir.ComputeTensor, error) {
		lhs, rhs := args[0].Buf, args[1].Buf
		out := a.NewBuffer(a.UniqueName("out"), outputDType, outputShape)

		vars := make([]ir.ExprHandle, len(outputShape))
		for i := range outputShape {
			vars[i] = a.Var(a.UniqueName("i"), dtype.Int64)
		}

		load1 := a.Load(lhs, vars, outputDType)
		load2 := a.Load(rhs, vars, outputDType)
		body := a.Store(out, vars, op(a, load1, load2))

		for i := len(outputShape) - 1; i >= 0; i-- {
			body = a.For(vars[i], a.IntImm(0), outputShape[i], body)
		}

		return ir.ComputeTensor{Buf: out, Body: body}, nil
	}
}
