// Package conf edits rabbitmq.conf style key=value files without
// disturbing the lines it does not touch. Comments, blank lines and the
// formatting of unmodified settings survive a parse and render cycle
// byte for byte.
package conf

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

type line struct {
	raw   string
	key   string
	value string
}

// Document is a parsed config file.
type Document struct {
	lines []line
	// trailingNewline records whether the source ended with one.
	trailingNewline bool
}

// Parse reads a key=value document. Blank lines and lines starting with
// # are preserved verbatim. A non-blank line without = or with a
// malformed key is an error.
func Parse(text string) (*Document, error) {
	doc := &Document{trailingNewline: strings.HasSuffix(text, "\n") || text == ""}
	raw := strings.TrimSuffix(text, "\n")
	if raw == "" && text == "" {
		return doc, nil
	}
	for i, l := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			doc.lines = append(doc.lines, line{raw: l})
			continue
		}
		key, rest, ok := strings.Cut(l, "=")
		if !ok {
			return nil, errors.Errorf("line %d: not a key = value setting: %q", i+1, l)
		}
		key = strings.TrimSpace(key)
		if !keyPattern.MatchString(key) {
			return nil, errors.Errorf("line %d: malformed key %q", i+1, key)
		}
		doc.lines = append(doc.lines, line{raw: l, key: key, value: parseValue(rest)})
	}
	return doc, nil
}

// parseValue strips surrounding space, an unquoted trailing comment and
// single quotes around the remaining value.
func parseValue(rest string) string {
	v := strings.TrimSpace(rest)
	if strings.HasPrefix(v, "'") {
		if end := strings.Index(v[1:], "'"); end >= 0 {
			return v[1 : end+1]
		}
		return v
	}
	if i := strings.Index(v, "#"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v
}

// Get returns the value of a key. With duplicate keys the last
// occurrence wins.
func (d *Document) Get(key string) (string, bool) {
	for i := len(d.lines) - 1; i >= 0; i-- {
		if d.lines[i].key == key {
			return d.lines[i].value, true
		}
	}
	return "", false
}

// Keys returns every set key in file order, duplicates included.
func (d *Document) Keys() []string {
	var out []string
	for _, l := range d.lines {
		if l.key != "" {
			out = append(out, l.key)
		}
	}
	return out
}

// Set updates a key. With duplicate keys the last occurrence is
// rewritten; a missing key is appended.
func (d *Document) Set(key, value string) error {
	if !keyPattern.MatchString(key) {
		return errors.Errorf("malformed key %q", key)
	}
	rendered := key + " = " + value
	for i := len(d.lines) - 1; i >= 0; i-- {
		if d.lines[i].key == key {
			d.lines[i] = line{raw: rendered, key: key, value: value}
			return nil
		}
	}
	d.lines = append(d.lines, line{raw: rendered, key: key, value: value})
	return nil
}

// Unset drops every line setting a key. Unsetting a missing key is a
// no-op.
func (d *Document) Unset(key string) {
	kept := d.lines[:0]
	for _, l := range d.lines {
		if l.key != key {
			kept = append(kept, l)
		}
	}
	d.lines = kept
}

// Render writes the document back out.
func (d *Document) Render() string {
	if len(d.lines) == 0 {
		return ""
	}
	raws := make([]string, len(d.lines))
	for i, l := range d.lines {
		raws[i] = l.raw
	}
	out := strings.Join(raws, "\n")
	if d.trailingNewline {
		out += "\n"
	}
	return out
}
