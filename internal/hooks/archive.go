package hooks

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"git.home.luguber.info/inful/noise/internal/config"
	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/logfields"
	"git.home.luguber.info/inful/noise/internal/site"
)

// ArchiveWriter streams files into one archive format.
type ArchiveWriter interface {
	Open(w io.Writer) error
	WriteEntry(name string, fi fs.FileInfo, r io.Reader) error
	Close() error
}

// NewArchiveWriter returns the writer for format.
func NewArchiveWriter(format string) (ArchiveWriter, error) {
	switch format {
	case config.FormatZip:
		return &zipWriter{}, nil
	case config.FormatTarGz:
		return &tarWriter{compress: func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil }}, nil
	case config.FormatTarZst:
		return &tarWriter{compress: func(w io.Writer) (io.WriteCloser, error) { return zstd.NewWriter(w) }}, nil
	default:
		return nil, fmt.Errorf("unknown archive format %q", format)
	}
}

// DefaultArchiveName is archive_YYYY-MM-DD.<format> for the UTC date of now.
func DefaultArchiveName(format string, now time.Time) string {
	return fmt.Sprintf("archive_%s.%s", now.UTC().Format("2006-01-02"), format)
}

type zipWriter struct {
	zw *zip.Writer
}

func (z *zipWriter) Open(w io.Writer) error {
	z.zw = zip.NewWriter(w)
	return nil
}

func (z *zipWriter) WriteEntry(name string, fi fs.FileInfo, r io.Reader) error {
	hdr, err := zip.FileInfoHeader(fi)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	w, err := z.zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

func (z *zipWriter) Close() error {
	if z.zw == nil {
		return nil
	}
	err := z.zw.Close()
	z.zw = nil
	return err
}

type tarWriter struct {
	compress func(io.Writer) (io.WriteCloser, error)
	cw       io.WriteCloser
	tw       *tar.Writer
}

func (t *tarWriter) Open(w io.Writer) error {
	cw, err := t.compress(w)
	if err != nil {
		return err
	}
	t.cw = cw
	t.tw = tar.NewWriter(cw)
	return nil
}

func (t *tarWriter) WriteEntry(name string, fi fs.FileInfo, r io.Reader) error {
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := t.tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(t.tw, r)
	return err
}

func (t *tarWriter) Close() error {
	if t.tw == nil {
		return nil
	}
	err := t.tw.Close()
	if cerr := t.cw.Close(); err == nil {
		err = cerr
	}
	t.tw, t.cw = nil, nil
	return err
}

// Archive packs the output tree into one archive file. Entries are streamed
// during postrender; the archive is finalized on complete.
type Archive struct {
	RenderedFile
	format  string
	exclude string

	writer ArchiveWriter
	file   *os.File
}

// ArchiveOptions configure an Archive.
type ArchiveOptions struct {
	Format  string
	File    string
	Exclude string
}

// NewArchive declares the archive file in app and returns the hook.
func NewArchive(app *site.App, opts ArchiveOptions) (*Archive, error) {
	if _, err := NewArchiveWriter(opts.Format); err != nil {
		return nil, nerrors.ConfigInvalid(app.Paths.Config, err).WithContext("field", "archives")
	}
	if opts.File == "" {
		opts.File = DefaultArchiveName(opts.Format, time.Now())
	}
	return &Archive{
		RenderedFile: newRenderedFile(app, opts.File),
		format:       opts.Format,
		exclude:      opts.Exclude,
	}, nil
}

// Name implements site.Hook.
func (a *Archive) Name() string { return "archive:" + a.format }

// Format returns the archive format.
func (a *Archive) Format() string { return a.format }

// Postrender opens the archive and streams every output file into it.
func (a *Archive) Postrender(_ context.Context, b *site.Build) error {
	snap, err := b.Snapshot()
	if err != nil {
		return nerrors.FilesystemError("walk build tree", err)
	}
	if err := a.open(b); err != nil {
		return err
	}
	ex := newExclusion(b, a.File(), a.exclude)
	count := 0
	for _, rel := range snap.Files() {
		if ex.skip(rel) {
			continue
		}
		if err := a.add(b, rel); err != nil {
			a.Abort(b)
			return nerrors.ArchiveError(a.File(), err).WithContext("path", rel)
		}
		count++
	}
	slog.Debug("Archive entries written", logfields.BuildID(b.ID), logfields.Path(a.File()), logfields.Files(count))
	return nil
}

// Complete finalizes the archive.
func (a *Archive) Complete(_ context.Context, b *site.Build) error {
	if a.writer == nil {
		return nil
	}
	werr := a.writer.Close()
	ferr := a.file.Close()
	a.writer, a.file = nil, nil
	if werr != nil {
		return nerrors.ArchiveError(a.File(), werr)
	}
	if ferr != nil {
		return nerrors.ArchiveError(a.File(), ferr)
	}
	slog.Info("Archive written", logfields.BuildID(b.ID), logfields.Path(a.File()))
	return nil
}

// Abort closes an archive left open by a failed build.
func (a *Archive) Abort(b *site.Build) {
	if a.writer == nil {
		return
	}
	if err := a.writer.Close(); err != nil {
		slog.Debug("Closing aborted archive", logfields.BuildID(b.ID), logfields.Error(err))
	}
	_ = a.file.Close()
	a.writer, a.file = nil, nil
}

func (a *Archive) open(b *site.Build) error {
	w, err := NewArchiveWriter(a.format)
	if err != nil {
		return nerrors.ArchiveError(a.File(), err)
	}
	f, err := os.OpenFile(a.Path(b), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) // #nosec G304 -- build tree file
	if err != nil {
		return nerrors.ArchiveError(a.File(), err)
	}
	if err := w.Open(f); err != nil {
		_ = f.Close()
		return nerrors.ArchiveError(a.File(), err)
	}
	a.writer, a.file = w, f
	return nil
}

func (a *Archive) add(b *site.Build, rel string) error {
	f, err := os.Open(b.Paths.BuildPath(rel)) // #nosec G304 -- build tree file
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	return a.writer.WriteEntry(strings.TrimPrefix(rel, "/"), fi, f)
}
