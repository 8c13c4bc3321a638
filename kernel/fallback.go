package kernel

import (
	"github.com/texpr-dev/texpr/backend"
	_ "github.com/texpr-dev/texpr/backend/interpreter" // registers transform.TargetInterpreter
	"github.com/texpr-dev/texpr/config"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/transform"
)

// readFallbackConfig implements the construction-time half of spec §4.9:
// fallbackAllowed, overridable off by FALLBACK=0; fallbackEnforced by
// FALLBACK=2, unless block-codegen is active (a block-codegen compile
// has no interpreter-equivalent fallback to enforce).
func (k *Kernel) readFallbackConfig() {
	switch config.Fallback() {
	case config.FallbackOff:
		k.fallbackAllowed = false
	case config.FallbackEnforced:
		k.fallbackAllowed = true
		k.fallbackEnforced = !config.GenerateBlockCode()
	default:
		k.fallbackAllowed = config.FallbackAllowed(false)
	}
}

// compilePrimary runs the Loop-Nest Transformer for the Backend
// Selector's chosen target and compiles that codegen (spec §4.6-§4.7).
func (k *Kernel) compilePrimary(opts Options) error {
	cg, target, err := backend.Select(k.Device)
	if err != nil {
		return err
	}
	k.Target = target

	nest := cloneNest(k.rawNest)
	txOpts := transform.DefaultOptions(target, opts.ThreadCount)
	if !opts.PreAlloc {
		txOpts.PreAlloc = false
	}
	transform.Run(nest, txOpts)

	if err := cg.Compile(k.Arena, nest, k.Slots); err != nil {
		return err
	}
	k.Nest = nest
	k.Codegen = cg
	return nil
}

// compileInterpreterFallback runs its own Loop-Nest Transformer pass
// scheduled for the interpreter target (no fusion/parallelize/vectorize)
// over a fresh clone of the unscheduled lowered computes, independent of
// whatever the primary target already did to k.Nest.
func (k *Kernel) compileInterpreterFallback(opts Options) error {
	cg, err := backend.NewInterpreterCodegen()
	if err != nil {
		return err
	}

	nest := cloneNest(k.rawNest)
	txOpts := transform.DefaultOptions(transform.TargetInterpreter, opts.ThreadCount)
	txOpts.PreAlloc = opts.PreAlloc
	transform.Run(nest, txOpts)

	if err := cg.Compile(k.Arena, nest, k.Slots); err != nil {
		return err
	}
	if k.Codegen == nil {
		k.Nest = nest
	}
	k.Interpreter = cg
	return nil
}

func cloneNest(src *ir.LoopNest) *ir.LoopNest {
	return &ir.LoopNest{Arena: src.Arena, Computes: append([]ir.ComputeTensor(nil), src.Computes...)}
}
