// Package label derives class labels from corpus file and directory names.
//
// Source images are named `<anything>_<label>.<ext>`; the label is a 1-based
// class id. Downstream consumers use the 0-based class index returned by
// Label.Index.
package label

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Label is a 1-based class id as encoded on disk.
type Label int

// Index returns the 0-based class index used by training consumers.
func (l Label) Index() int { return int(l) - 1 }

// String renders the label as its on-disk directory name.
func (l Label) String() string { return strconv.Itoa(int(l)) }

// ParseError reports a file or directory name that does not carry a valid label.
type ParseError struct {
	Name   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("label: cannot parse %q: %s", e.Name, e.Reason)
}

// Parse extracts the label from a file name of the form `<anything>_<label>.<ext>`.
// Only the base name is inspected, so keys with directory components are accepted.
func Parse(name string) (Label, error) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.LastIndexByte(base, '.')
	if ext < 0 {
		return 0, &ParseError{Name: name, Reason: "missing extension"}
	}
	stem := base[:ext]
	sep := strings.LastIndexByte(stem, '_')
	if sep < 0 {
		return 0, &ParseError{Name: name, Reason: "missing '_' separator"}
	}
	return parseToken(name, stem[sep+1:])
}

// FromDir parses a class directory name (as written by the partitioner) back into a Label.
func FromDir(dir string) (Label, error) {
	return parseToken(dir, path.Base(strings.TrimSuffix(dir, "/")))
}

func parseToken(name, token string) (Label, error) {
	if token == "" {
		return 0, &ParseError{Name: name, Reason: "empty label token"}
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return 0, &ParseError{Name: name, Reason: fmt.Sprintf("label token %q is not numeric", token)}
		}
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, &ParseError{Name: name, Reason: err.Error()}
	}
	if n < 1 {
		return 0, &ParseError{Name: name, Reason: "labels start at 1"}
	}
	return Label(n), nil
}
