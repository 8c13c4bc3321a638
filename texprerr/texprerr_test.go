package texprerr

import (
	"errors"
	"testing"
)

func TestIsByKind(t *testing.T) {
	err := New(Malformed, "binder", "missing shape for %rank0")
	if !errors.Is(err, Sentinel(Malformed)) {
		t.Error("expected errors.Is to match on Kind")
	}
	if errors.Is(err, Sentinel(Internal)) {
		t.Error("did not expect errors.Is to match a different Kind")
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(Runtime, "transform", "invalid loop level", cause)
	if !errors.Is(err, cause) {
		t.Error("expected Wrap to preserve the cause for errors.Is")
	}
}
