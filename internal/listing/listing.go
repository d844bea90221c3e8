package listing

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// TimeFormat is the timestamp layout used in listings.
const TimeFormat = "2006-01-02 15:04:05 UTC"

// Listing describes the visible contents of one directory.
//
// Entries holds directories first (sorted, suffixed "/") then files (sorted).
// Size is only recorded for files.
type Listing struct {
	Pwd     string
	Entries []string
	Mtime   map[string]string
	Size    map[string]int64
}

// Item is a flattened view of one entry, convenient for templates.
type Item struct {
	Name  string
	Dir   bool
	Mtime string
	Size  int64
}

// Items returns the entries in listing order.
func (l *Listing) Items() []Item {
	out := make([]Item, 0, len(l.Entries))
	for _, e := range l.Entries {
		out = append(out, Item{
			Name:  e,
			Dir:   strings.HasSuffix(e, "/"),
			Mtime: l.Mtime[e],
			Size:  l.Size[e],
		})
	}
	return out
}

// Map converts the listing into plain maps and slices so every template engine
// can walk it.
func (l *Listing) Map() map[string]any {
	entries := make([]any, 0, len(l.Entries))
	mtime := make(map[string]any, len(l.Mtime))
	size := make(map[string]any, len(l.Size))
	items := make([]any, 0, len(l.Entries))
	for _, e := range l.Entries {
		entries = append(entries, e)
	}
	for k, v := range l.Mtime {
		mtime[k] = v
	}
	for k, v := range l.Size {
		size[k] = v
	}
	for _, it := range l.Items() {
		m := map[string]any{"name": it.Name, "dir": it.Dir, "mtime": it.Mtime}
		if !it.Dir {
			m["size"] = it.Size
		}
		items = append(items, m)
	}
	return map[string]any{
		"pwd":     l.Pwd,
		"entries": entries,
		"mtime":   mtime,
		"size":    size,
		"items":   items,
	}
}

// List builds the listing of dir, which must be root or a directory below it.
func List(root, dir string, m Matcher) (*Listing, error) {
	rel, err := relSlash(root, dir)
	if err != nil {
		return nil, err
	}
	dirs, files, err := readFiltered(dir, rel, m)
	if err != nil {
		return nil, err
	}

	l := &Listing{
		Pwd:   pwd(rel),
		Mtime: make(map[string]string, len(dirs)+len(files)),
		Size:  make(map[string]int64, len(files)),
	}
	for _, d := range dirs {
		fi, err := os.Stat(filepath.Join(dir, d))
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", d, err)
		}
		name := d + "/"
		l.Entries = append(l.Entries, name)
		l.Mtime[name] = fi.ModTime().UTC().Format(TimeFormat)
	}
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(dir, f))
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", f, err)
		}
		l.Entries = append(l.Entries, f)
		l.Mtime[f] = fi.ModTime().UTC().Format(TimeFormat)
		l.Size[f] = fi.Size()
	}
	return l, nil
}

// Index pairs a directory's listing with its parent's. Parent is nil at the
// output root.
type Index struct {
	Current *Listing
	Parent  *Listing
}

// IndexFor lists dir and, unless dir is root, its parent.
func IndexFor(root, dir string, m Matcher) (Index, error) {
	cur, err := List(root, dir, m)
	if err != nil {
		return Index{}, err
	}
	ix := Index{Current: cur}
	if filepath.Clean(dir) == filepath.Clean(root) {
		return ix, nil
	}
	parent, err := List(root, filepath.Dir(dir), m)
	if err != nil {
		return Index{}, err
	}
	ix.Parent = parent
	return ix, nil
}

// Map returns the template view of the index: keys "." and ".." with the
// aliases "current" and "parent". The parent keys are absent at the root.
func (ix Index) Map() map[string]any {
	out := map[string]any{}
	if ix.Current != nil {
		cur := ix.Current.Map()
		out["."] = cur
		out["current"] = cur
	}
	if ix.Parent != nil {
		parent := ix.Parent.Map()
		out[".."] = parent
		out["parent"] = parent
	}
	return out
}

func relSlash(root, dir string) (string, error) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", dir, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", dir, root)
	}
	return rel, nil
}

func pwd(rel string) string {
	if rel == "" {
		return "/"
	}
	return path.Clean("/"+rel) + "/"
}
