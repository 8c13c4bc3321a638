package kernel

import (
	"encoding/binary"
	"hash/maphash"
)

// shapeCacheSeed is fixed for the process so equal assignments hash to
// equal keys across ShapeCacheKey calls.
var shapeCacheSeed = maphash.MakeSeed()

// ShapeCacheKey hashes a symbolic-shape assignment the same way the
// teacher's GPULayersList.Hash identifies a layer assignment: order-
// stable field writes into one maphash.Hash, summed to a uint64. A
// caller driving repeated Recompile calls against the same Kernel for a
// sequence of concrete shapes can use this to skip a redundant
// interpreter/primary recompile when the new assignment hashes equal to
// the last one it already compiled for.
func (k *Kernel) ShapeCacheKey(shapeSymbolValues []int64) uint64 {
	var h maphash.Hash
	h.SetSeed(shapeCacheSeed)
	for _, v := range orderShapeSymbolVars(k.Binder.ShapeSymbolInputPos) {
		binary.Write(&h, binary.NativeEndian, int64(v))
	}
	for _, v := range shapeSymbolValues {
		binary.Write(&h, binary.NativeEndian, v)
	}
	return h.Sum64()
}
