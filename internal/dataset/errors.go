package dataset

import (
	"errors"
	"fmt"

	"corpusprep/internal/label"
)

// Kind classifies a per-file failure.
type Kind string

const (
	KindParse Kind = "parse"
	KindIO    Kind = "io"
	KindShape Kind = "shape"
)

// FileError is a per-file failure. Stages record it in their Summary and move
// on to the next file.
type FileError struct {
	Key  string
	Kind Kind
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %s: %v", e.Key, e.Kind, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

// IOError is a read, decode, encode or write failure.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

// ShapeError reports an image whose geometry or channel layout cannot be handled.
type ShapeError struct {
	Reason string
	Err    error
}

func (e *ShapeError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}
func (e *ShapeError) Unwrap() error { return e.Err }

// DirError is fatal: a class or view directory could not be cleared or created.
type DirError struct {
	Dir string
	Op  string
	Err error
}

func (e *DirError) Error() string { return fmt.Sprintf("%s directory %s: %v", e.Op, e.Dir, e.Err) }
func (e *DirError) Unwrap() error { return e.Err }

// fileError wraps err for key, deriving the kind from its type.
func fileError(key string, err error) *FileError {
	var pe *label.ParseError
	var se *ShapeError
	kind := KindIO
	switch {
	case errors.As(err, &pe):
		kind = KindParse
	case errors.As(err, &se):
		kind = KindShape
	}
	return &FileError{Key: key, Kind: kind, Err: err}
}
