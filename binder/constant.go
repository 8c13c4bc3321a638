package binder

import (
	"fmt"

	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/texprerr"
)

// BindConstants implements the Constant Binder (spec §4.3) for every
// Constant node in the subgraph, in definition order.
func (b *Binder) BindConstants(constants []*graph.Node) error {
	for _, n := range constants {
		if err := b.bindConstant(n); err != nil {
			return err
		}
	}
	return nil
}

func (b *Binder) bindConstant(n *graph.Node) error {
	if len(n.Outputs) != 1 {
		return texprerr.New(texprerr.Internal, "constant-binder", fmt.Sprintf("Constant node %q must have exactly one output", n.Op))
	}
	v := n.Outputs[0]

	switch {
	case v.Const.IsCustom:
		// Opaque/custom-class payload: a zero-dim float placeholder buffer
		// backends that understand the node can resolve out-of-band.
		buf := b.Arena.NewBuffer(uniqueName(v.Name, b.seenNames), dtype.Default, nil)
		b.Constants = append(b.Constants, ConstantEntry{Buf: buf, Data: nil, Node: n})
		b.Bufs[v] = buf
		return nil

	case v.Const.IsScalar:
		// Lowerings embed scalar constants as immediates straight from the
		// graph value; nothing to bind here.
		return nil

	case v.Kind == graph.KindTensor:
		return b.bindConstantTensor(n, v)

	default:
		return texprerr.New(texprerr.Malformed, "constant-binder", fmt.Sprintf("unhandled constant kind %v", v.Kind))
	}
}

func (b *Binder) bindConstantTensor(n *graph.Node, v *graph.Value) error {
	valueDType, err := dt(v)
	if err != nil {
		return err
	}

	data := v.Const.TensorData
	if v.HasStrides && !v.IsContiguous() {
		cloned, err := cloneContiguous(valueDType, v, data)
		if err != nil {
			return err
		}
		data = cloned
	}

	dims := make([]ir.ExprHandle, len(v.KnownSizes))
	for i, sz := range v.KnownSizes {
		dims[i] = b.Arena.IntImm(int64(sz))
	}

	buf := b.Arena.NewBuffer(uniqueName(v.Name, b.seenNames), valueDType, dims)
	b.Constants = append(b.Constants, ConstantEntry{Buf: buf, Data: data, Node: n})
	b.Bufs[v] = buf
	return nil
}

// cloneContiguous reorders raw element bytes from v's strided layout
// into row-major order, the "clone to a new contiguous tensor and keep
// ownership" step of spec §4.3. Element width comes from valueDType;
// narrow floats (half/bfloat16) are handled the same as any other fixed
// width since this only permutes element positions.
func cloneContiguous(valueDType dtype.DType, v *graph.Value, data []byte) ([]byte, error) {
	width := valueDType.ByteWidth()
	n := 1
	for _, s := range v.KnownSizes {
		n *= s
	}
	if len(data) != n*width {
		return nil, texprerr.New(texprerr.Malformed, "constant-binder", fmt.Sprintf("constant tensor %q has %d bytes, want %d", v.Name, len(data), n*width))
	}

	out := make([]byte, len(data))
	defaultStrides := graph.DefaultStrides(v.KnownSizes)
	indices := make([]int, len(v.KnownSizes))
	for linear := 0; linear < n; linear++ {
		rem := linear
		srcOffset := 0
		for i, stride := range defaultStrides {
			indices[i] = rem / stride
			rem %= stride
			srcOffset += indices[i] * v.Strides[i]
		}
		copy(out[linear*width:(linear+1)*width], data[srcOffset*width:(srcOffset+1)*width])
	}
	return out, nil
}
