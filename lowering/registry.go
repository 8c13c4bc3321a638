// Package lowering implements the Lowering Dispatcher (spec §4.4):
// resolving each graph node to a per-operator lowering function (custom
// registry first, then schema-keyed standard registry), building its
// ordered argument list, and invoking it to produce a compute tensor.
package lowering

import (
	"fmt"

	"github.com/agnivade/levenshtein"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/texpr-dev/texpr/argval"
	"github.com/texpr-dev/texpr/dtype"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/texprerr"
)

// Func is the interface shape spec §9 licenses: "a closure or interface
// with a single lower method"; this package uses a plain function type,
// the closer-to-stdlib idiom used throughout the teacher pack for
// registries of named behavior (cf. backend.RegisterCodegen).
type Func func(a *ir.Arena, args []argval.Value, outputShape []ir.ExprHandle, outputDType dtype.DType, device string) (ir.ComputeTensor, error)

// Registry holds the custom (operator-symbol-keyed) and standard
// (schema-string-keyed) lowering tables. go-ordered-map keeps
// registration order so "did you mean" suggestions and any future
// dump/listing command enumerate lowerings deterministically, rather
// than in Go's randomized map order.
type Registry struct {
	custom   *orderedmap.OrderedMap[string, Func]
	standard *orderedmap.OrderedMap[string, Func]

	hasRandom    bool
	hasBroadcast bool
}

// NewRegistry returns an empty dispatcher registry.
func NewRegistry() *Registry {
	return &Registry{
		custom:   orderedmap.New[string, Func](),
		standard: orderedmap.New[string, Func](),
	}
}

// RegisterCustom installs a lowering keyed by operator symbol (spec
// §4.4 dispatch step 1).
func (r *Registry) RegisterCustom(op string, fn Func) { r.custom.Set(op, fn) }

// RegisterStandard installs a lowering keyed by schema string (spec
// §4.4 dispatch step 2).
func (r *Registry) RegisterStandard(schema string, fn Func) { r.standard.Set(schema, fn) }

// MarkRandom and MarkBroadcast record that some lowering invoked this
// compile used a random generator or a broadcasting shape, for the
// random×broadcast conflict check (spec §4.4).
func (r *Registry) MarkRandom()    { r.hasRandom = true }
func (r *Registry) MarkBroadcast() { r.hasBroadcast = true }

// CheckRandomBroadcastConflict fails if both a random lowering and a
// broadcasting lowering ran in the same compile (spec §4.4: "the
// combination is unsupported due to broadcast-dependent random seed
// replication").
func (r *Registry) CheckRandomBroadcastConflict() error {
	if r.hasRandom && r.hasBroadcast {
		return texprerr.New(texprerr.Runtime, "lowering-dispatcher", "random and broadcasting lowerings cannot coexist in one compile")
	}
	return nil
}

// resolve implements the two-step dispatch order, returning a
// "did you mean" suggestion drawn from both registries' keys when
// nothing matches (spec §4.4 step 3).
func (r *Registry) resolve(op, schema string) (Func, error) {
	if fn, ok := r.custom.Get(op); ok {
		return fn, nil
	}
	if fn, ok := r.standard.Get(schema); ok {
		return fn, nil
	}
	return nil, texprerr.New(texprerr.Malformed, "lowering-dispatcher",
		fmt.Sprintf("no lowering for op %q schema %q%s", op, schema, r.suggest(op, schema)))
}

func (r *Registry) suggest(op, schema string) string {
	best, bestDist := "", -1
	consider := func(key string) {
		d := levenshtein.ComputeDistance(op, key)
		if bestDist == -1 || d < bestDist {
			best, bestDist = key, d
		}
	}
	for pair := r.custom.Oldest(); pair != nil; pair = pair.Next() {
		consider(pair.Key)
	}
	for pair := r.standard.Oldest(); pair != nil; pair = pair.Next() {
		consider(pair.Key)
	}
	if best == "" || bestDist > len(op) {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}
