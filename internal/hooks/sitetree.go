package hooks

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/listing"
	"git.home.luguber.info/inful/noise/internal/site"
)

// DefaultSitetreeName is the sitetree file written when none is configured.
const DefaultSitetreeName = "sitemap.txt"

// Sitetree writes a plain-text tree of the output, in the style of
// `tree -Fn --charset=ASCII` with the root shown as "/".
type Sitetree struct {
	RenderedFile
}

// NewSitetree declares the sitetree file in app and returns the hook.
func NewSitetree(app *site.App, file string) *Sitetree {
	if file == "" {
		file = DefaultSitetreeName
	}
	return &Sitetree{RenderedFile: newRenderedFile(app, file)}
}

// Name implements site.Hook.
func (s *Sitetree) Name() string { return "sitetree" }

// Complete writes the tree listing.
func (s *Sitetree) Complete(_ context.Context, b *site.Build) error {
	snap, err := b.Snapshot()
	if err != nil {
		return nerrors.FilesystemError("walk build tree", err)
	}
	if err := os.WriteFile(s.Path(b), []byte(Tree(snap)), 0o644); err != nil { // #nosec G306 -- public site output
		return nerrors.FilesystemError("write sitetree", err)
	}
	return nil
}

// Tree renders snap as an ASCII tree followed by the directory and file
// counts.
func Tree(snap listing.Snapshot) string {
	byRel := make(map[string]listing.Dir, len(snap))
	for _, d := range snap {
		byRel[d.Rel] = d
	}
	var sb strings.Builder
	sb.WriteString("/\n")
	var dirs, files int
	var walk func(d listing.Dir, prefix string)
	walk = func(d listing.Dir, prefix string) {
		type entry struct {
			name  string
			isDir bool
		}
		entries := make([]entry, 0, len(d.Dirs)+len(d.Files))
		for _, n := range d.Dirs {
			entries = append(entries, entry{n, true})
		}
		for _, n := range d.Files {
			entries = append(entries, entry{n, false})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
		for i, e := range entries {
			last := i == len(entries)-1
			branch, indent := "|-- ", "|   "
			if last {
				branch, indent = "`-- ", "    "
			}
			sb.WriteString(prefix + branch + e.name)
			if !e.isDir {
				files++
				sb.WriteByte('\n')
				continue
			}
			dirs++
			sb.WriteString("/\n")
			walk(byRel[d.FilePath(e.name)], prefix+indent)
		}
	}
	if len(snap) > 0 {
		walk(snap[0], "")
	}
	fmt.Fprintf(&sb, "\n%d %s, %d %s", dirs, plural(dirs, "directory", "directories"), files, plural(files, "file", "files"))
	return sb.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
