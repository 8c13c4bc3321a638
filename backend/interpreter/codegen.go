package interpreter

import (
	"fmt"

	"github.com/texpr-dev/texpr/backend"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/texprerr"
	"github.com/texpr-dev/texpr/transform"
)

func init() {
	backend.RegisterCodegen(transform.TargetInterpreter, func() (backend.Codegen, error) {
		return &codegen{}, nil
	})
}

// codegen adapts the statement-tree interpreter to the backend.Codegen
// handoff surface, standing in for a real compiled backend so every
// Kernel has at least one always-available execution path (spec §4.9's
// fallback, and the CPU branch of spec §4.7 when LLVM is absent).
type codegen struct {
	arena *ir.Arena
	nest  *ir.LoopNest
	slots []backend.Slot
}

func (c *codegen) Target() transform.Target { return transform.TargetInterpreter }

func (c *codegen) Compile(a *ir.Arena, nest *ir.LoopNest, slots []backend.Slot) error {
	c.arena, c.nest, c.slots = a, nest, slots
	return nil
}

func (c *codegen) Invoke(args []backend.Arg) error {
	if len(args) != len(c.slots) {
		return texprerr.New(texprerr.Internal, "interpreter-codegen", fmt.Sprintf("argument count %d does not match compiled slot count %d", len(args), len(c.slots)))
	}

	mem := NewMemory()
	env := make(map[ir.ExprHandle]Value, len(args))
	for i, slot := range c.slots {
		arg := args[i]
		if slot.IsBuffer {
			if arg.Kind != backend.ArgBuffer {
				return texprerr.New(texprerr.Internal, "interpreter-codegen", fmt.Sprintf("slot %d expects a buffer argument", i))
			}
			mem.Bind(slot.Buf, arg.Buffer)
			continue
		}
		switch arg.Kind {
		case backend.ArgInt:
			env[slot.Var] = intValue(arg.Int)
		case backend.ArgFloat:
			env[slot.Var] = floatValue(arg.Float)
		case backend.ArgBool:
			env[slot.Var] = boolValue(arg.Bool)
		default:
			return texprerr.New(texprerr.Internal, "interpreter-codegen", fmt.Sprintf("slot %d expects a scalar argument", i))
		}
	}

	return Run(c.arena, c.nest, mem, env)
}
