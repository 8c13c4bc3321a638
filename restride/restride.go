// Package restride implements the Output Restrider (spec §4.5):
// synthesizing a permuting compute tensor when a declared output's
// strides differ from default contiguous, so the backend's linear
// writes land at the caller's requested element positions.
package restride

import (
	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/graph"
	"github.com/texpr-dev/texpr/ir"
)

// Needed reports whether v needs restriding: declared strides present,
// differing from default contiguous, and dense-non-overlapping. If
// strides are unknown, equal to default, or not dense-non-overlapping,
// no restriding occurs (spec §4.5).
func Needed(v *graph.Value) bool {
	if !v.HasStrides || v.KnownSizes == nil {
		return false
	}
	if v.IsContiguous() {
		return false
	}
	return graph.IsDenseNonOverlapping(v.KnownSizes, v.Strides)
}

// Synthesize builds output_N: a compute tensor of v's logical shape
// whose indexing permutes the source buffer's contiguous positions
// into v's requested strides, per the absolute-offset algorithm of
// spec §4.5.
func Synthesize(a *ir.Arena, name string, buf ir.BufHandle, v *graph.Value, dt dtype.DType) ir.ComputeTensor {
	sizes := v.KnownSizes
	strides := v.Strides
	n := len(sizes)

	axes := make([]ir.ExprHandle, n)
	for i := range axes {
		axes[i] = a.Var(name+"_ax"+itoa(i), dtype.Int64)
	}

	defaultStrides := graph.DefaultStrides(sizes)

	// absolute = Σ axes[i]·default_stride[i]
	var absolute ir.ExprHandle
	for i, ax := range axes {
		term := a.Mul(ax, a.IntImm(int64(defaultStrides[i])))
		if i == 0 {
			absolute = term
		} else {
			absolute = a.Add(absolute, term)
		}
	}
	if n == 0 {
		absolute = a.IntImm(0)
	}

	// Order stride indices by stride descending.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := 1; i < n; i++ {
		for j := i; j > 0 && strides[order[j]] > strides[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	newAxes := make([]ir.ExprHandle, n)
	remaining := absolute
	for _, idx := range order {
		if sizes[idx] == 1 {
			newAxes[idx] = a.IntImm(0)
			continue
		}
		stride := a.IntImm(int64(strides[idx]))
		newAxes[idx] = a.Div(remaining, stride)
		remaining = a.Mod(remaining, stride)
	}

	outDims := make([]ir.ExprHandle, n)
	for i, sz := range sizes {
		outDims[i] = a.IntImm(int64(sz))
	}
	outBuf := a.NewBuffer(name, dt, outDims)

	load := a.Load(buf, newAxes, dt)
	store := a.Store(outBuf, axes, load)

	stmt := store
	for i := n - 1; i >= 0; i-- {
		stmt = a.For(axes[i], a.IntImm(0), outDims[i], stmt)
	}

	return ir.ComputeTensor{Buf: outBuf, Body: stmt}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
