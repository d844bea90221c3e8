package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
		{"Phase", KeyPhase, "render", Phase("render")},
		{"Hook", KeyHook, "manifest", Hook("manifest")},
		{"Route", KeyRoute, "/index.html", Route("/index.html")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Template", KeyTemplate, "page.html", Template("page.html")},
		{"Project", KeyProject, "site", Project("site")},
		{"Outcome", KeyOutcome, "success", Outcome("success")},
		{"Error", KeyError, "boom", Error(errors.New("boom"))},
		{"ErrorNil", KeyError, "", Error(nil)},
	}
	for _, c := range cases {
		if c.attr.Key != c.attrKey {
			t.Fatalf("%s key mismatch: got %s want %s", c.name, c.attr.Key, c.attrKey)
		}
		if c.attr.Value.String() != c.attrVal {
			t.Fatalf("%s value mismatch: got %s want %s", c.name, c.attr.Value.String(), c.attrVal)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Files(3); a.Key != KeyFiles || a.Value.Int64() != 3 {
		t.Fatalf("Files attr unexpected: %v", a)
	}
	if a := DurationMS(1.5); a.Key != KeyDurationMS || a.Value.Float64() != 1.5 {
		t.Fatalf("DurationMS attr unexpected: %v", a)
	}
}
