package binder

import "github.com/dlclark/regexp2"

// identifierRun matches a maximal run of characters illegal in a bare
// identifier. regexp2 (rather than stdlib regexp) isn't needed for this
// pattern; both identifier patterns in this file use it. Name-collision
// resolution (uniqueName) appends underscores and uses no regex.
var identifierRun = regexp2.MustCompile(`[^A-Za-z0-9_]+`, regexp2.None)

// leadingDigit matches an identifier that starts with a digit, which
// needs an underscore prefix to become legal.
var leadingDigit = regexp2.MustCompile(`^[0-9]`, regexp2.None)

func sanitizeIdentifier(name string) string {
	if name == "" {
		name = "v"
	}
	cleaned, err := identifierRun.Replace(name, "_", -1, -1)
	if err != nil {
		cleaned = name
	}
	if ok, _ := leadingDigit.MatchString(cleaned); ok {
		cleaned = "_" + cleaned
	}
	return cleaned
}

// uniqueName sanitizes base and, on collision with a name already
// handed out from seen, appends underscores until unique (spec §4.2
// "Name sanitization... collisions are resolved by appending
// underscores until unique").
func uniqueName(base string, seen map[string]bool) string {
	name := sanitizeIdentifier(base)
	for seen[name] {
		name += "_"
	}
	seen[name] = true
	return name
}
