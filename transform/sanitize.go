package transform

import "github.com/texpr-dev/texpr/ir"

// sanitizeNames assigns a globally unique identifier to every buffer in
// the nest (spec §4.6 step 1), the first pass and a prerequisite for
// every later rewrite that needs name stability.
func sanitizeNames(a *ir.Arena, nest *ir.LoopNest) {
	seen := map[ir.BufHandle]bool{}
	for _, c := range nest.Computes {
		if seen[c.Buf] {
			continue
		}
		seen[c.Buf] = true
		b := a.Buffer(c.Buf)
		b.Name = a.UniqueName(b.Name)
		a.SetBuffer(c.Buf, b)
	}
}
