// Package backend implements the Backend Selector (spec §4.7): picking
// which codegen library a compiled LoopNest hands off to, and the small
// registration surface codegen implementations plug into. Real codegen
// (LLVM, CUDA, the block-codegen library) is external collaborator code
// this repository does not vendor (spec §1); only the interpreter
// codegen is concretely registered here, the same shape as the teacher's
// RegisterBackend/NewBackend pair, which only ever had "ggml" filled in.
package backend

import (
	"fmt"

	"github.com/texpr-dev/texpr/config"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/texprerr"
	"github.com/texpr-dev/texpr/transform"
)

// Device is the Kernel's declared execution device (spec §4.7's "device").
type Device int

const (
	CPU Device = iota
	GPU
)

// Slot describes one position in the codegen argument vector spec §4.8
// builds: either a buffer-backed argument (a kernel tensor input,
// output, or constant) or a scalar runtime variable (a kernel scalar
// input or a resolved shape-symbol dimension).
type Slot struct {
	IsBuffer bool
	Buf      ir.BufHandle
	Var      ir.ExprHandle
}

// ArgKind tags one entry of the runtime argument vector Invoke receives.
type ArgKind int

const (
	ArgBuffer ArgKind = iota
	ArgInt
	ArgFloat
	ArgBool
)

// Arg is one positional argument Invoke passes to a compiled nest: a raw
// tensor data pointer (modeled as the backing byte slice) or a scalar
// immediate, matching spec §4.8 step 2's "if int/double/bool push as
// immediate argument; if tensor push its data pointer."
type Arg struct {
	Kind   ArgKind
	Buffer []byte
	Int    int64
	Float  float64
	Bool   bool
}

func BufferArg(b []byte) Arg { return Arg{Kind: ArgBuffer, Buffer: b} }
func IntArg(v int64) Arg     { return Arg{Kind: ArgInt, Int: v} }
func FloatArg(v float64) Arg { return Arg{Kind: ArgFloat, Float: v} }
func BoolArg(v bool) Arg     { return Arg{Kind: ArgBool, Bool: v} }

// Codegen is the handoff surface the Loop-Nest Transformer's output
// crosses into (spec §1's "external collaborator"): compile a
// transformed nest once, then invoke it repeatedly against positional
// argument vectors.
type Codegen interface {
	Target() transform.Target
	Compile(a *ir.Arena, nest *ir.LoopNest, slots []Slot) error
	Invoke(args []Arg) error
}

// Factory constructs a fresh Codegen instance for one compile.
type Factory func() (Codegen, error)

var registry = make(map[transform.Target]Factory)

// RegisterCodegen installs a codegen factory for target. Called from a
// backend implementation's init() (see backend/interpreter); panics on
// double registration the same way the teacher's RegisterBackend does.
func RegisterCodegen(target transform.Target, f Factory) {
	if _, ok := registry[target]; ok {
		panic("backend: codegen already registered for this target")
	}
	registry[target] = f
}

// NewInterpreterCodegen returns a fresh instance of whatever codegen is
// registered for the always-available interpreter target, bypassing the
// device/flag decision tree — the Fallback Controller (spec §4.9) needs
// the interpreter specifically, not whatever Select would otherwise pick.
func NewInterpreterCodegen() (Codegen, error) {
	return newCodegen(transform.TargetInterpreter)
}

func newCodegen(target transform.Target) (Codegen, error) {
	f, ok := registry[target]
	if !ok {
		return nil, texprerr.New(texprerr.BackendUnavailable, "backend-selector", fmt.Sprintf("no codegen registered for target %v", target))
	}
	return f()
}

// Select implements the spec §4.7 decision tree:
//
//	if device is GPU → CUDA codegen
//	else if CPU and block-codegen flag set → Block codegen
//	else if CPU:
//	    if LLVM available and not disabled → LLVM codegen
//	    else if must-use-LLVM-on-CPU → fatal "LLVM backend not found"
//	    else → simple IR interpreter
//	else → fatal "invalid device type"
func Select(device Device) (Codegen, transform.Target, error) {
	switch device {
	case GPU:
		cg, err := newCodegen(transform.TargetCUDA)
		return cg, transform.TargetCUDA, err

	case CPU:
		if config.GenerateBlockCode() {
			cg, err := newCodegen(transform.TargetBlock)
			return cg, transform.TargetBlock, err
		}
		if !config.DontUseLLVM() {
			if cg, err := newCodegen(transform.TargetLLVMCPU); err == nil {
				return cg, transform.TargetLLVMCPU, nil
			}
		}
		if config.MustUseLLVMOnCPU() {
			return nil, transform.TargetInterpreter, texprerr.New(texprerr.BackendUnavailable, "backend-selector", "LLVM backend not found")
		}
		cg, err := newCodegen(transform.TargetInterpreter)
		return cg, transform.TargetInterpreter, err

	default:
		return nil, transform.TargetInterpreter, texprerr.New(texprerr.Malformed, "backend-selector", "invalid device type")
	}
}
