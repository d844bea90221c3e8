// Package testing contains fixtures and assertions shared by package tests:
// a fluent builder for on-disk projects and helpers for checking the build
// tree.
package testing

const (
	// testDirPermissions is the permission mode for creating test directories.
	testDirPermissions = 0o750

	// testFilePermissions is the permission mode for creating test files.
	testFilePermissions = 0o600
)
