package kernel

import "github.com/texpr-dev/texpr/transform"

// Recompile rebuilds only the codegen object against the already-lowered
// and already-transformed statement tree (spec.md §3 Lifecycle: "the
// codegen output is replaceable (recompile() rebuilds only codegen)").
// Binder/lowering/restride/transform state is untouched; only the
// Backend Selector runs again, picking up any process-wide config change
// (e.g. DONT_USE_LLVM toggled between compiles) without re-lowering the
// graph.
func (k *Kernel) Recompile(opts Options) error {
	k.compileMu.Lock()
	defer k.compileMu.Unlock()

	k.readFallbackConfig()

	if k.fallbackEnforced {
		k.Codegen = nil
		k.Target = transform.TargetInterpreter
		if err := k.compileInterpreterFallback(opts); err != nil {
			return err
		}
		k.useFallback = true
		return nil
	}

	k.useFallback = false
	if err := k.compilePrimary(opts); err != nil {
		if !k.fallbackAllowed {
			return err
		}
		if err := k.compileInterpreterFallback(opts); err != nil {
			return err
		}
		k.useFallback = true
	}
	return nil
}

// RecompileForShapes calls Recompile only when shapeSymbolValues hashes
// differently from the last assignment this Kernel was recompiled for
// (spec.md §9 Design Note domain addition: symbolic-shape hashing lets
// recompile() detect a repeated shape assignment and reuse the existing
// codegen instead of rebuilding it).
func (k *Kernel) RecompileForShapes(shapeSymbolValues []int64, opts Options) error {
	key := k.ShapeCacheKey(shapeSymbolValues)
	if k.hasShapeKey && key == k.shapeKey {
		return nil
	}
	if err := k.Recompile(opts); err != nil {
		return err
	}
	k.hasShapeKey = true
	k.shapeKey = key
	return nil
}
