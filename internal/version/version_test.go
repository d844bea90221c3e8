package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "noise ") {
		t.Fatalf("unexpected version line %q", s)
	}
	if !strings.Contains(s, Version) || !strings.Contains(s, Commit) {
		t.Fatalf("version line %q misses metadata", s)
	}
}
