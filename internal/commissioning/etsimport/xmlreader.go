package etsimport

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeXMLFile unmarshals the file at path into v.
//
// A missing file is ErrMalformedArchive: every file read here is an
// expected archive member. Anything the XML decoder rejects is
// ErrMalformedXML.
func decodeXMLFile(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is inside the staging directory
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: missing %s", ErrMalformedArchive, filepath.Base(path))
		}
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedXML, filepath.Base(path), err)
	}
	return nil
}

// attrs reads typed attribute values for one element.
//
// Attributes arrive as *string: nil when absent. The first failure is
// kept and every later call becomes a no-op returning zero values, so a
// caller reads all attributes and checks Err once.
type attrs struct {
	file    string
	element string
	err     error
}

func newAttrs(file, element string) *attrs {
	return &attrs{file: file, element: element}
}

// Err returns the first failure, or nil.
func (a *attrs) Err() error {
	return a.err
}

func (a *attrs) missing(name string) {
	if a.err == nil {
		a.err = &SchemaError{File: a.file, Element: a.element, Attribute: name}
	}
}

func (a *attrs) invalid(name, value, reason string) {
	if a.err == nil {
		a.err = &SchemaError{File: a.file, Element: a.element, Attribute: name, Value: value, Reason: reason}
	}
}

// String returns a required attribute.
func (a *attrs) String(name string, v *string) string {
	if v == nil {
		a.missing(name)
		return ""
	}
	return *v
}

// OptString returns an optional attribute, nil when absent.
func (a *attrs) OptString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

// Int returns a required integer attribute.
func (a *attrs) Int(name string, v *string) int {
	if v == nil {
		a.missing(name)
		return 0
	}
	n := a.OptInt(name, v)
	if n == nil {
		return 0
	}
	return *n
}

// OptInt returns an optional integer attribute, nil when absent.
func (a *attrs) OptInt(name string, v *string) *int {
	if v == nil || a.err != nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*v))
	if err != nil {
		a.invalid(name, *v, "not an integer")
		return nil
	}
	return &n
}

// OptRange is OptInt restricted to [lo, hi].
func (a *attrs) OptRange(name string, v *string, lo, hi int) *int {
	n := a.OptInt(name, v)
	if n != nil && (*n < lo || *n > hi) {
		a.invalid(name, *v, fmt.Sprintf("out of range %d-%d", lo, hi))
		return nil
	}
	return n
}

// OptFlag reads an Enabled/Disabled flag, nil when absent.
func (a *attrs) OptFlag(name string, v *string) *bool {
	if v == nil || a.err != nil {
		return nil
	}
	var b bool
	switch *v {
	case "Enabled":
		b = true
	case "Disabled":
		b = false
	default:
		a.invalid(name, *v, "want Enabled or Disabled")
		return nil
	}
	return &b
}
