package backend_test

import (
	"testing"

	"github.com/texpr-dev/texpr/backend"
	_ "github.com/texpr-dev/texpr/backend/interpreter"
	"github.com/texpr-dev/texpr/transform"
)

func TestSelectCPUFallsBackToInterpreterWithoutLLVM(t *testing.T) {
	t.Setenv("DONT_USE_LLVM", "1")
	cg, target, err := backend.Select(backend.CPU)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if target != transform.TargetInterpreter {
		t.Fatalf("expected interpreter target, got %v", target)
	}
	if cg.Target() != transform.TargetInterpreter {
		t.Fatalf("expected codegen target interpreter, got %v", cg.Target())
	}
}

func TestSelectGPUHasNoRegisteredCUDACodegen(t *testing.T) {
	_, _, err := backend.Select(backend.GPU)
	if err == nil {
		t.Fatalf("expected error: no CUDA codegen is registered in this repository")
	}
}

func TestSelectMustUseLLVMFailsWithoutLLVM(t *testing.T) {
	t.Setenv("DONT_USE_LLVM", "1")
	t.Setenv("TEXPR_MUST_USE_LLVM_ON_CPU", "true")
	_, _, err := backend.Select(backend.CPU)
	if err == nil {
		t.Fatalf("expected fatal error when LLVM is required but unavailable")
	}
}
