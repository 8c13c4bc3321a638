package transform

import "github.com/texpr-dev/texpr/ir"

// preallocateIntermediates implements spec §4.6 step 7: for each
// intermediate buffer (not a kernel argument) whose dims are all
// compile-time constant, reserve host memory sized by the product of
// its dims times its element width. A buffer whose shape depends on a
// runtime symbol, or whose size overflows what a single allocation can
// address, is left for the backend to allocate at codegen/run time —
// failure here is not fatal to the pass.
func preallocateIntermediates(a *ir.Arena, nest *ir.LoopNest) {
	for _, c := range nest.Computes {
		buf := a.Buffer(c.Buf)
		if buf.IsArgument || buf.HostPtr != nil {
			continue
		}
		size, ok := constantByteSize(a, buf)
		if !ok || size <= 0 {
			continue
		}
		buf.HostPtr = make([]byte, size)
		a.SetBuffer(c.Buf, buf)
	}
}

func constantByteSize(a *ir.Arena, buf ir.Buffer) (int64, bool) {
	total := int64(buf.DType.ByteWidth())
	for _, d := range buf.Dims {
		n, ok := a.IsConstInt(d)
		if !ok || n < 0 {
			return 0, false
		}
		next := total * n
		if n != 0 && next/n != total {
			return 0, false // byte size overflows int64
		}
		total = next
	}
	return total, true
}
