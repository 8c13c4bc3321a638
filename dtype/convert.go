package dtype

import (
	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// NarrowFloats packs a slice of float32 into the 2-byte wire
// representation of dst, used by the interpreter backend when it stores
// a value into a Half or BFloat16 buffer. This is the exact
// problem the teacher's MLX backend solves with the same library
// (x/ml/backend/mlx/quant.go), generalized here to also cover BFloat16
// via go-bfloat16.
func NarrowFloats(dst DType, src []float32) ([]byte, error) {
	switch dst {
	case Half:
		out := make([]byte, 2*len(src))
		for i, f := range src {
			h := float16.Fromfloat32(f)
			out[2*i] = byte(h)
			out[2*i+1] = byte(h >> 8)
		}
		return out, nil
	case BFloat16:
		return bfloat16.Encode(src), nil
	default:
		return nil, errInvalidNarrow(dst)
	}
}

// WidenToFloat32 is the inverse of NarrowFloats, used when the Runtime
// Invoker or the interpreter backend needs to read a narrow constant back
// out as float32 for arithmetic.
func WidenToFloat32(src DType, raw []byte) ([]float32, error) {
	switch src {
	case Half:
		n := len(raw) / 2
		out := make([]float32, n)
		for i := range out {
			bits := uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
			out[i] = float16.Float16(bits).Float32()
		}
		return out, nil
	case BFloat16:
		return bfloat16.Decode(raw), nil
	default:
		return nil, errInvalidNarrow(src)
	}
}

func errInvalidNarrow(d DType) error {
	return &invalidNarrowError{d}
}

type invalidNarrowError struct{ d DType }

func (e *invalidNarrowError) Error() string {
	return "dtype: " + e.d.String() + " is not a narrow float type"
}
