package testing

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"git.home.luguber.info/inful/noise/internal/listing"
)

// FileAssertions provides utilities for asserting build tree state in tests
type FileAssertions struct {
	t       *testing.T
	baseDir string
}

// NewFileAssertions creates a new file assertions helper rooted at baseDir
func NewFileAssertions(t *testing.T, baseDir string) *FileAssertions {
	return &FileAssertions{
		t:       t,
		baseDir: baseDir,
	}
}

// AssertFileExists validates that a file exists
func (fa *FileAssertions) AssertFileExists(relativePath string) *FileAssertions {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		fa.t.Errorf("Expected file to exist: %s", fullPath)
	}
	return fa
}

// AssertFileNotExists validates that a file does not exist
func (fa *FileAssertions) AssertFileNotExists(relativePath string) *FileAssertions {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)
	if _, err := os.Stat(fullPath); err == nil {
		fa.t.Errorf("Expected file to not exist: %s", fullPath)
	}
	return fa
}

// AssertFileEquals validates the exact content of a file
func (fa *FileAssertions) AssertFileEquals(relativePath, expected string) *FileAssertions {
	fa.t.Helper()
	got := fa.GetFileContent(relativePath)
	if got != expected {
		fa.t.Errorf("File %s content mismatch\nExpected:\n%s\nActual:\n%s", relativePath, expected, got)
	}
	return fa
}

// AssertFileContains validates that a file contains expected content
func (fa *FileAssertions) AssertFileContains(relativePath, expectedContent string) *FileAssertions {
	fa.t.Helper()
	content := fa.GetFileContent(relativePath)
	if !strings.Contains(content, expectedContent) {
		fa.t.Errorf("Expected file %s to contain %q\nActual content:\n%s",
			relativePath, expectedContent, content)
	}
	return fa
}

// AssertTree validates the complete set of files under the base dir, hidden
// entries excluded, in walk order
func (fa *FileAssertions) AssertTree(expected ...string) *FileAssertions {
	fa.t.Helper()
	got := fa.ListTree()
	if !slices.Equal(got, expected) {
		fa.t.Errorf("Tree mismatch\nExpected: %v\nActual:   %v", expected, got)
	}
	return fa
}

// ListTree returns every non-hidden file under the base dir in walk order
func (fa *FileAssertions) ListTree() []string {
	fa.t.Helper()
	snap, err := listing.Walk(fa.baseDir, listing.NewMatcher(listing.DefaultIgnore))
	if err != nil {
		fa.t.Fatalf("Failed to walk %s: %v", fa.baseDir, err)
	}
	return snap.Files()
}

// GetFileContent reads and returns the content of a file
func (fa *FileAssertions) GetFileContent(relativePath string) string {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)

	content, err := os.ReadFile(fullPath) // #nosec G304 -- test path
	if err != nil {
		fa.t.Fatalf("Failed to read file %s: %v", fullPath, err)
	}
	return string(content)
}
