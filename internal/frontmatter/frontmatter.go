// Package frontmatter splits YAML front matter from markdown content pages.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnterminated indicates the document opened a front matter block but never
// closed it.
var ErrUnterminated = errors.New("front matter opened with --- but never closed")

// Document is a content file split into its front matter fields and body.
type Document struct {
	Fields map[string]any
	Raw    []byte
	Body   []byte
	Had    bool
}

// Parse splits content on a leading "---" line and decodes the YAML between
// the delimiters. CRLF line endings are accepted.
func Parse(content []byte) (Document, error) {
	nl := []byte("\n")
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = []byte("\r\n")
	}
	open := append([]byte("---"), nl...)
	if !bytes.HasPrefix(content, open) {
		return Document{Fields: map[string]any{}, Body: content}, nil
	}

	rest := content[len(open):]
	var raw, body []byte
	if bytes.HasPrefix(rest, open) {
		body = rest[len(open):]
	} else {
		closing := append(append([]byte{}, nl...), open...)
		idx := bytes.Index(rest, closing)
		if idx < 0 {
			return Document{}, ErrUnterminated
		}
		raw = rest[:idx+len(nl)]
		body = rest[idx+len(closing):]
	}

	fields := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := yaml.Unmarshal(raw, &fields); err != nil {
			return Document{}, fmt.Errorf("decode front matter: %w", err)
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}
	return Document{Fields: fields, Raw: raw, Body: body, Had: true}, nil
}

// Canonical serializes fields as YAML with keys sorted at every level and no
// trailing newline. Empty input yields "".
func Canonical(fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sortedNode(fields)); err != nil {
		_ = enc.Close()
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// sortedNode builds a yaml.Node tree with deterministic mapping key order.
func sortedNode(v any) *yaml.Node {
	switch vv := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range keys {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				sortedNode(vv[k]))
		}
		return n
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range vv {
			n.Content = append(n.Content, sortedNode(item))
		}
		return n
	default:
		var n yaml.Node
		if err := n.Encode(v); err != nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(v)}
		}
		return &n
	}
}
