package binder

import (
	"fmt"

	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/texprerr"
)

// BindInputs binds every graph input in order (spec §4.2), appending each
// tensor input's buffer (a strided input's placeholder) to
// Binder.bufferArgs in graph order. Scalar inputs become scalar variables
// rather than bufferArgs entries, and symbolic-shape inputs are recorded
// separately by BindSymbolicShapeInputs.
func (b *Binder) BindInputs(inputs []*graph.Value) error {
	for i, v := range inputs {
		if err := b.bindInput(i, v); err != nil {
			return err
		}
	}
	return nil
}

func (b *Binder) bindInput(index int, v *graph.Value) error {
	switch v.Kind {
	case graph.KindTensor:
		return b.bindTensorInput(index, v)
	case graph.KindFloat:
		h := b.Arena.Var(uniqueName(v.Name, b.seenNames), dtype.Float64)
		b.Scalars[v] = h
		return nil
	case graph.KindBool:
		h := b.Arena.Var(uniqueName(v.Name, b.seenNames), dtype.Bool)
		b.Scalars[v] = h
		return nil
	case graph.KindInt:
		h := b.Arena.Var(uniqueName(v.Name, b.seenNames), dtype.Int64)
		b.Scalars[v] = h
		return nil
	default:
		return texprerr.New(texprerr.Malformed, "input-binder", fmt.Sprintf("unsupported graph input kind %v for %q", v.Kind, v.Name))
	}
}

func (b *Binder) bindTensorInput(index int, v *graph.Value) error {
	name := uniqueName(v.Name, b.seenNames)
	valueDType, err := dt(v)
	if err != nil {
		return err
	}

	if v.Rank() < 0 {
		return texprerr.New(texprerr.Malformed, "input-binder", fmt.Sprintf("tensor input %q has unknown rank", v.Name))
	}

	switch {
	case v.Shape != nil && !isStaticValue(v):
		// Symbolic (incomplete) shape: only contiguous layout accepted.
		if v.HasStrides && !v.IsContiguous() {
			return texprerr.New(texprerr.Unsupported, "input-binder", fmt.Sprintf("symbolic-shape input %q must be contiguous", v.Name))
		}
		dims, err := b.Shapes.SizesFromSymbolicShape(v.Shape)
		if err != nil {
			return err
		}
		buf := b.Arena.NewBuffer(name, valueDType, dims)
		b.setArgBuffer(buf)
		b.Bufs[v] = buf
		return nil

	case v.IsContiguous():
		dims, err := b.Shapes.SizesForValue(v)
		if err != nil {
			return err
		}
		buf := b.Arena.NewBuffer(name, valueDType, dims)
		b.setArgBuffer(buf)
		b.Bufs[v] = buf
		return nil

	default:
		return b.bindStridedTensorInput(name, valueDType, v)
	}
}

// bindStridedTensorInput implements spec §4.2's "Tensor, complete,
// non-contiguous" case: a zero-sized raw placeholder buffer plus a
// compute tensor reading placeholder[Σ axes[i]·strides[i]], normalizing
// all internal computation onto a contiguous logical tensor.
func (b *Binder) bindStridedTensorInput(name string, dt dtype.DType, v *graph.Value) error {
	placeholder := b.Arena.NewBuffer(name+"_raw", dt, nil)
	b.setArgBuffer(placeholder)

	logicalDims, err := b.Shapes.SizesForValue(v)
	if err != nil {
		return err
	}
	logicalBuf := b.Arena.NewBuffer(name, dt, logicalDims)

	axes := make([]ir.ExprHandle, len(v.KnownSizes))
	for i := range axes {
		axes[i] = b.Arena.Var(fmt.Sprintf("%s_i%d", name, i), dtype.Int64)
	}

	var offset ir.ExprHandle
	for i, axis := range axes {
		term := b.Arena.Mul(axis, b.Arena.IntImm(int64(v.Strides[i])))
		if i == 0 {
			offset = term
		} else {
			offset = b.Arena.Add(offset, term)
		}
	}
	if len(axes) == 0 {
		offset = b.Arena.IntImm(0)
	}

	load := b.Arena.Load(placeholder, []ir.ExprHandle{offset}, dt)
	store := b.Arena.Store(logicalBuf, axes, load)

	stmt := store
	for i := len(axes) - 1; i >= 0; i-- {
		size := logicalDims[i]
		stmt = b.Arena.For(axes[i], b.Arena.IntImm(0), size, stmt)
	}

	b.Computes = append(b.Computes, ir.ComputeTensor{Buf: logicalBuf, Body: stmt})
	b.Bufs[v] = logicalBuf
	return nil
}

func (b *Binder) setArgBuffer(h ir.BufHandle) {
	buf := b.Arena.Buffer(h)
	buf.IsArgument = true
	b.Arena.SetBuffer(h, buf)
	b.bufferArgs = append(b.bufferArgs, h)
}

// isStaticValue reports whether every shape symbol in a value's shape is
// static; used to route complete-and-static vs. incomplete tensor
// inputs per spec §4.2.
func isStaticValue(v *graph.Value) bool {
	for _, s := range v.Shape {
		if !s.IsStatic() {
			return false
		}
	}
	return true
}
