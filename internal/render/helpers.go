package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ASCII encodes every rune of s as a numeric HTML character reference.
func ASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		fmt.Fprintf(&b, "&#%d;", r)
	}
	return b.String()
}

// URL joins the site base and an output-relative path.
func URL(base, p string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}

// readTemplateFile reads rel from the template root, refusing to leave it.
func readTemplateFile(dir, rel string) ([]byte, error) {
	clean := filepath.Clean(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(rel, "/"))))
	root := filepath.Clean(dir)
	if clean != root && !strings.HasPrefix(clean, root+string(filepath.Separator)) {
		return nil, &NotFoundError{Name: rel}
	}
	raw, err := os.ReadFile(clean) // #nosec G304 -- confined to the template root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Name: rel}
		}
		return nil, err
	}
	return raw, nil
}
