package hooks

import (
	"bufio"
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/noise/internal/config"
	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/logfields"
	"git.home.luguber.info/inful/noise/internal/site"
)

// DefaultManifestName is the manifest file written when none is configured.
const DefaultManifestName = "manifest.txt"

// ManifestTimeFormat is the timestamp layout of manifest lines.
const ManifestTimeFormat = "2006-01-02T15:04:05Z"

// hashChunkBlocks is the number of hash blocks read per chunk.
const hashChunkBlocks = 127

// ManifestOptions configure a Manifest.
type ManifestOptions struct {
	File    string
	Hash    string
	Exclude string
}

// Manifest writes one "<timestamp> <digest> /<path>" line per output file.
type Manifest struct {
	RenderedFile
	newHash func() hash.Hash
	exclude string
}

// NewManifest declares the manifest file in app and returns the hook.
func NewManifest(app *site.App, opts ManifestOptions) (*Manifest, error) {
	if opts.File == "" {
		opts.File = DefaultManifestName
	}
	m := &Manifest{exclude: opts.Exclude}
	switch opts.Hash {
	case "", config.HashSHA512:
		m.newHash = sha512.New
	case config.HashSHA256:
		m.newHash = sha256.New
	default:
		return nil, nerrors.ConfigInvalid(app.Paths.Config, fmt.Errorf("unknown manifest hash %q", opts.Hash)).
			WithContext("field", "manifest_hash")
	}
	m.RenderedFile = newRenderedFile(app, opts.File)
	return m, nil
}

// Name implements site.Hook.
func (m *Manifest) Name() string { return "manifest" }

// Postrender rewrites the manifest from a walk of the finished tree.
func (m *Manifest) Postrender(_ context.Context, b *site.Build) error {
	snap, err := b.Snapshot()
	if err != nil {
		return nerrors.FilesystemError("walk build tree", err)
	}
	f, err := os.OpenFile(m.Path(b), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) // #nosec G304 -- build tree file
	if err != nil {
		return nerrors.FilesystemError("open manifest", err)
	}
	w := bufio.NewWriter(f)
	ex := newExclusion(b, m.File(), m.exclude)
	count := 0
	for _, rel := range snap.Files() {
		if ex.skip(rel) {
			continue
		}
		line, err := m.line(b, rel)
		if err != nil {
			_ = f.Close()
			return err
		}
		if _, err := w.WriteString(line); err != nil {
			_ = f.Close()
			return nerrors.FilesystemError("write manifest", err)
		}
		count++
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nerrors.FilesystemError("write manifest", err)
	}
	if err := f.Close(); err != nil {
		return nerrors.FilesystemError("close manifest", err)
	}
	slog.Debug("Manifest written", logfields.BuildID(b.ID), logfields.Path(m.File()), logfields.Files(count))
	return nil
}

func (m *Manifest) line(b *site.Build, rel string) (string, error) {
	ts, err := b.ModTime(rel)
	if err != nil {
		return "", nerrors.FilesystemError("stat output file", err).WithContext("path", rel)
	}
	sum, err := Digest(b.Paths.BuildPath(rel), m.newHash)
	if err != nil {
		return "", nerrors.FilesystemError("hash output file", err).WithContext("path", rel)
	}
	return fmt.Sprintf("%s %s /%s\n", ts.UTC().Format(ManifestTimeFormat), sum, rel), nil
}

// Digest streams the file at path through newHash in chunks of 127 hash
// blocks and returns the hex digest.
func Digest(path string, newHash func() hash.Hash) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- build tree file
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := newHash()
	buf := make([]byte, hashChunkBlocks*h.BlockSize())
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
