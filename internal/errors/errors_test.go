package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoiseError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *NoiseError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryTemplate, SeverityFatal, "template not found"),
			expected: "template (fatal): template not found: file not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestNoiseError_UnwrapReachesSentinel(t *testing.T) {
	sentinel := stderrors.New("boom")
	err := fmt.Errorf("stage render: %w", ArchiveError("archive.zip", sentinel))
	require.ErrorIs(t, err, sentinel)
	require.True(t, IsCategory(err, CategoryArchive))
	require.Equal(t, CategoryArchive, GetCategory(err))
}

func TestIsCategory_Nested(t *testing.T) {
	inner := TemplateMissing("page.html", nil)
	outer := BuildFailed("render", inner)
	require.True(t, IsCategory(outer, CategoryBuild))
	require.True(t, IsCategory(outer, CategoryTemplate))
	require.False(t, IsCategory(outer, CategoryConfig))
	require.False(t, IsCategory(fmt.Errorf("plain"), CategoryBuild))
}

func TestGetCategory_DefaultsToInternal(t *testing.T) {
	require.Equal(t, CategoryInternal, GetCategory(fmt.Errorf("plain")))
}

func TestWithContext(t *testing.T) {
	err := HookFailed("manifest", "postrender", fmt.Errorf("io"))
	require.Equal(t, "manifest", err.Context["hook"])
	require.Equal(t, "postrender", err.Context["phase"])
}

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	cases := map[ErrorCategory]int{
		CategoryValidation: 2,
		CategoryConfig:     7,
		CategoryTemplate:   9,
		CategoryHook:       9,
		CategoryBuild:      11,
		CategoryFileSystem: 11,
		CategoryArchive:    11,
		CategoryRuntime:    12,
		CategoryInternal:   10,
	}
	for cat, code := range cases {
		require.Equal(t, code, a.ExitCodeFor(New(cat, SeverityError, "x")), string(cat))
	}
	require.Equal(t, 0, a.ExitCodeFor(nil))
	require.Equal(t, 1, a.ExitCodeFor(fmt.Errorf("plain")))
	require.Equal(t, 11, a.ExitCodeFor(fmt.Errorf("wrapped: %w", BuildFailed("render", nil))))
	require.Equal(t, 9, a.ExitCodeFor(BuildFailed("render", fmt.Errorf("page: %w", TemplateMissing("x.html", nil)))))
}

func TestCLIErrorAdapter_Report(t *testing.T) {
	var out bytes.Buffer
	a := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.out = &out

	code := a.Report(ConfigInvalid("config.json", fmt.Errorf("bad")))
	require.Equal(t, 7, code)
	require.Equal(t, "configuration invalid path=config.json: bad\n", out.String())

	out.Reset()
	code = a.Report(fmt.Errorf("plain"))
	require.Equal(t, 1, code)
	require.Equal(t, "Error: plain\n", out.String())

	out.Reset()
	code = a.Report(HookFailed("sitemap", "postrender", fmt.Errorf("disk full")))
	require.Equal(t, 9, code)
	require.Equal(t, "hook failed hook=sitemap phase=postrender: disk full\n", out.String())
}
