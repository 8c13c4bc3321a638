package argval

import "testing"

func TestNoneSentinel(t *testing.T) {
	v := None()
	if !v.IsNone() {
		t.Fatal("None() should be IsNone")
	}
	if Int(3).IsNone() {
		t.Fatal("Int(3) should not be IsNone")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindBuffer:     "buffer",
		KindInt:        "int",
		KindDouble:     "double",
		KindBool:       "bool",
		KindIntList:    "int-list",
		KindDoubleList: "double-list",
		KindBufferList: "buffer-list",
		KindNone:       "none",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
