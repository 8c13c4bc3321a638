package dtype

import "testing"

func TestNarrowWidenHalfRoundTrip(t *testing.T) {
	src := []float32{0, 1, -1, 3.5, -0.25}
	raw, err := NarrowFloats(Half, src)
	if err != nil {
		t.Fatalf("NarrowFloats: %v", err)
	}
	got, err := WidenToFloat32(Half, raw)
	if err != nil {
		t.Fatalf("WidenToFloat32: %v", err)
	}
	for i := range src {
		if got[i] != src[i] {
			t.Errorf("round-trip[%d] = %v, want %v", i, got[i], src[i])
		}
	}
}

func TestNarrowInvalidDType(t *testing.T) {
	if _, err := NarrowFloats(Float32, []float32{1}); err == nil {
		t.Error("expected error narrowing to a non-narrow dtype")
	}
}
