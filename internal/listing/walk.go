package listing

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// Dir is one directory of a tree snapshot with its filtered, sorted children.
type Dir struct {
	Rel   string // output-relative slash path, "" for the root
	Abs   string
	Dirs  []string
	Files []string
}

// FilePath returns the output-relative path of a file in d.
func (d Dir) FilePath(name string) string {
	if d.Rel == "" {
		return name
	}
	return d.Rel + "/" + name
}

// Snapshot is the ordered result of Walk.
type Snapshot []Dir

// Files returns every file path of the snapshot in walk order.
func (s Snapshot) Files() []string {
	var out []string
	for _, d := range s {
		for _, f := range d.Files {
			out = append(out, d.FilePath(f))
		}
	}
	return out
}

// Walk snapshots the tree under root top-down: each directory is followed by
// its subdirectories in lexical order. Ignored entries are filtered before
// descending, so they neither appear nor get traversed.
func Walk(root string, m Matcher) (Snapshot, error) {
	var out Snapshot
	if err := walkDir(root, "", m, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkDir(root, rel string, m Matcher, out *Snapshot) error {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	dirs, files, err := readFiltered(abs, rel, m)
	if err != nil {
		return err
	}
	*out = append(*out, Dir{Rel: rel, Abs: abs, Dirs: dirs, Files: files})
	for _, d := range dirs {
		if err := walkDir(root, path.Join(rel, d), m, out); err != nil {
			return err
		}
	}
	return nil
}

// readFiltered lists abs and returns its non-ignored directory and file names,
// each group sorted.
func readFiltered(abs, rel string, m Matcher) (dirs, files []string, err error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("read directory %s: %w", abs, err)
	}
	for _, e := range entries {
		child := path.Join(rel, e.Name())
		isDir := e.IsDir()
		if !isDir && e.Type()&os.ModeSymlink != 0 {
			if fi, statErr := os.Stat(filepath.Join(abs, e.Name())); statErr == nil {
				isDir = fi.IsDir()
			}
		}
		if m.Match(child, isDir) {
			continue
		}
		switch {
		case isDir:
			dirs = append(dirs, e.Name())
		case e.Type().IsRegular() || e.Type()&os.ModeSymlink != 0:
			files = append(files, e.Name())
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)
	return dirs, files, nil
}
