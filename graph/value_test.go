package graph

import "testing"

func TestShapeSymbolStaticDynamic(t *testing.T) {
	s := Static(4)
	if !s.IsStatic() || s.StaticSize() != 4 {
		t.Errorf("Static(4) = %+v", s)
	}

	d := Dynamic(-1)
	if d.IsStatic() || d.DynamicID() != -1 {
		t.Errorf("Dynamic(-1) = %+v", d)
	}
}

func TestDefaultStrides(t *testing.T) {
	got := DefaultStrides([]int{2, 3, 4})
	want := []int{12, 4, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DefaultStrides = %v, want %v", got, want)
		}
	}
}

func TestIsDenseNonOverlapping(t *testing.T) {
	cases := []struct {
		name            string
		sizes, strides  []int
		want            bool
	}{
		{"contiguous", []int{2, 3, 4}, []int{12, 4, 1}, true},
		{"transposed still dense", []int{2, 3}, []int{1, 2}, true},
		{"broadcast stride 0 overlaps", []int{2, 3}, []int{0, 1}, false},
		{"size-1 dim stride ignored", []int{1, 4}, []int{99, 1}, true},
		{"gap", []int{2, 3}, []int{10, 1}, false},
	}
	for _, c := range cases {
		if got := IsDenseNonOverlapping(c.sizes, c.strides); got != c.want {
			t.Errorf("%s: IsDenseNonOverlapping(%v, %v) = %v, want %v", c.name, c.sizes, c.strides, got, c.want)
		}
	}
}

func TestValueIsContiguous(t *testing.T) {
	v := &Value{KnownSizes: []int{2, 3}, HasStrides: true, Strides: []int{3, 1}}
	if !v.IsContiguous() {
		t.Error("expected contiguous")
	}
	v2 := &Value{KnownSizes: []int{2, 3}, HasStrides: true, Strides: []int{1, 2}}
	if v2.IsContiguous() {
		t.Error("expected non-contiguous")
	}
	v3 := &Value{KnownSizes: []int{2, 3}}
	if !v3.IsContiguous() {
		t.Error("values with no stride info default to contiguous")
	}
}
