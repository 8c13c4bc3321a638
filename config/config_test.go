package config

import "testing"

func TestFallback(t *testing.T) {
	cases := []struct {
		env  string
		want FallbackMode
	}{
		{"", FallbackFollowFlag},
		{"0", FallbackOff},
		{"2", FallbackEnforced},
		{"1", FallbackFollowFlag},
	}

	for _, c := range cases {
		t.Setenv("FALLBACK", c.env)
		if got := Fallback(); got != c.want {
			t.Errorf("Fallback() with FALLBACK=%q = %v, want %v", c.env, got, c.want)
		}
	}
}

func TestDontUseLLVM(t *testing.T) {
	t.Setenv("DONT_USE_LLVM", "1")
	if !DontUseLLVM() {
		t.Error("DontUseLLVM() = false, want true when DONT_USE_LLVM=1")
	}

	t.Setenv("DONT_USE_LLVM", "0")
	if DontUseLLVM() {
		t.Error("DontUseLLVM() = true, want false when DONT_USE_LLVM=0")
	}
}

func TestBoolWithDefault(t *testing.T) {
	t.Setenv("TEXPR_TEST_BOOL", "")
	get := BoolWithDefault("TEXPR_TEST_BOOL")
	if get(true) != true {
		t.Error("expected default true when unset")
	}

	t.Setenv("TEXPR_TEST_BOOL", "false")
	if get(true) != false {
		t.Error("expected false when explicitly set to false")
	}

	t.Setenv("TEXPR_TEST_BOOL", "not-a-bool")
	if get(false) != true {
		t.Error("expected unparseable value to default to true")
	}
}

func TestCUDAPointwiseLoopLevelsDefault(t *testing.T) {
	t.Setenv("TEXPR_CUDA_POINTWISE_LOOP_LEVELS", "")
	if got := CUDAPointwiseLoopLevels(); got != 0 {
		t.Errorf("CUDAPointwiseLoopLevels() = %d, want 0 (caller normalizes <=0 to 2)", got)
	}
}
