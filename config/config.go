// Package config holds the process-wide knobs that steer kernel
// compilation and backend selection (spec §6). Each knob is a getter
// function over an environment variable, the same shape as the
// teacher's envconfig package: one Var lookup, one function per knob,
// an AsMap for introspection.
package config

import (
	"os"
	"strconv"
	"strings"

	"log/slog"
)

// Var returns an environment variable, trimming surrounding whitespace
// and any quotes a shell left behind.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// BoolWithDefault returns a getter for a boolean environment variable.
// An unparseable non-empty value is treated as true, matching the
// teacher's "assume the caller meant to enable it" behavior.
func BoolWithDefault(key string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		s := Var(key)
		if s == "" {
			return defaultValue
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return true
		}
		return b
	}
}

// Bool returns a getter for a boolean environment variable defaulting to false.
func Bool(key string) func() bool {
	withDefault := BoolWithDefault(key)
	return func() bool { return withDefault(false) }
}

// Int returns a getter for an integer environment variable with a default.
func Int(key string, defaultValue int) func() int {
	return func() int {
		s := Var(key)
		if s == "" {
			return defaultValue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			return defaultValue
		}
		return n
	}
}

var (
	// GenerateBlockCode selects the block backend on CPU (spec §6 generate_block_code).
	GenerateBlockCode = Bool("TEXPR_GENERATE_BLOCK_CODE")

	// MustUseLLVMOnCPU fails compilation rather than silently falling back
	// to the interpreter when LLVM is unavailable on CPU (must_use_llvm_on_cpu).
	MustUseLLVMOnCPU = Bool("TEXPR_MUST_USE_LLVM_ON_CPU")

	// CatWithoutConditionals enables conditional-free concat codegen (cat_without_conditionals).
	CatWithoutConditionals = Bool("TEXPR_CAT_WITHOUT_CONDITIONALS")

	// OptimizeConditionals runs the conditional optimization pass (optimize_conditionals).
	OptimizeConditionals = Bool("TEXPR_OPTIMIZE_CONDITIONALS")

	// FallbackAllowed enables per-call fallback-on-exception (fallback_allowed).
	FallbackAllowed = BoolWithDefault("TEXPR_FALLBACK_ALLOWED")

	// CUDAPointwiseLoopLevels selects the 2- or 3-level CUDA mapping (cuda_pointwise_loop_levels).
	// The raw value is returned; CUDA scheduling treats <= 0 as 2 and panics on any other value than 2 or 3.
	CUDAPointwiseLoopLevels = Int("TEXPR_CUDA_POINTWISE_LOOP_LEVELS", 0)

	// CUDAPointwiseBlockCount defaults to 1280 (3-level mapping only).
	CUDAPointwiseBlockCount = Int("TEXPR_CUDA_POINTWISE_BLOCK_COUNT", 0)

	// CUDAPointwiseBlockSize defaults to 512 (2-level) / 256 (3-level) when <= 0.
	CUDAPointwiseBlockSize = Int("TEXPR_CUDA_POINTWISE_BLOCK_SIZE", 0)
)

// FallbackMode captures how FALLBACK steers the Fallback Controller (spec §6, §4.9).
type FallbackMode int

const (
	// FallbackFollowFlag means no FALLBACK env var is set; follow FallbackAllowed().
	FallbackFollowFlag FallbackMode = iota
	// FallbackOff forces fallback off regardless of FallbackAllowed (FALLBACK=0).
	FallbackOff
	// FallbackEnforced forces the fallback path unconditionally (FALLBACK=2).
	FallbackEnforced
)

// Fallback reads the FALLBACK environment variable per spec §6:
// "FALLBACK=0 -> fallback off; =2 -> fallback enforced; unset -> follow fallback_allowed."
func Fallback() FallbackMode {
	switch Var("FALLBACK") {
	case "0":
		return FallbackOff
	case "2":
		return FallbackEnforced
	default:
		return FallbackFollowFlag
	}
}

// DontUseLLVM implements "DONT_USE_LLVM=1 -> select simple IR interpreter on CPU".
func DontUseLLVM() bool {
	return Var("DONT_USE_LLVM") == "1"
}

// EnvVar describes one environment-backed knob for documentation and CLI --help output.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every recognized knob with its current value, for `texprc compile --env-docs`
// and for the compile command's usage template (teacher's appendEnvDocs pattern).
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"TEXPR_GENERATE_BLOCK_CODE":        {"TEXPR_GENERATE_BLOCK_CODE", GenerateBlockCode(), "Select the block backend on CPU"},
		"TEXPR_MUST_USE_LLVM_ON_CPU":       {"TEXPR_MUST_USE_LLVM_ON_CPU", MustUseLLVMOnCPU(), "Fail rather than fall back to the interpreter when LLVM is unavailable"},
		"TEXPR_CAT_WITHOUT_CONDITIONALS":   {"TEXPR_CAT_WITHOUT_CONDITIONALS", CatWithoutConditionals(), "Enable conditional-free concat codegen"},
		"TEXPR_OPTIMIZE_CONDITIONALS":      {"TEXPR_OPTIMIZE_CONDITIONALS", OptimizeConditionals(), "Run the pre-fusion conditional optimization pass"},
		"TEXPR_FALLBACK_ALLOWED":           {"TEXPR_FALLBACK_ALLOWED", FallbackAllowed(false), "Allow falling back to the interpreter on compile or run failure"},
		"TEXPR_CUDA_POINTWISE_LOOP_LEVELS": {"TEXPR_CUDA_POINTWISE_LOOP_LEVELS", CUDAPointwiseLoopLevels(), "2 or 3 level CUDA block/thread mapping"},
		"TEXPR_CUDA_POINTWISE_BLOCK_COUNT": {"TEXPR_CUDA_POINTWISE_BLOCK_COUNT", CUDAPointwiseBlockCount(), "3-level mapping block count (default 1280)"},
		"TEXPR_CUDA_POINTWISE_BLOCK_SIZE":  {"TEXPR_CUDA_POINTWISE_BLOCK_SIZE", CUDAPointwiseBlockSize(), "Block size for CUDA mapping (default 512/256)"},
		"FALLBACK":                         {"FALLBACK", Var("FALLBACK"), "0 disables fallback, 2 enforces it, unset follows TEXPR_FALLBACK_ALLOWED"},
		"DONT_USE_LLVM":                    {"DONT_USE_LLVM", Var("DONT_USE_LLVM"), "1 selects the simple IR interpreter on CPU"},
	}
}
