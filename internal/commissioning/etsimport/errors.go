package etsimport

import (
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-etsdecode/internal/commissioning/archive"
)

// Sentinel errors for decoding. Every decode failure wraps exactly one of
// these; check with errors.Is.
var (
	// ErrArchiveNotFound indicates the archive path does not exist.
	ErrArchiveNotFound = archive.ErrArchiveNotFound

	// ErrDecryptionFailed indicates the project container could not be
	// decrypted with the given passphrase.
	ErrDecryptionFailed = archive.ErrDecryptionFailed

	// ErrMalformedArchive indicates an expected member is absent or a
	// container is unreadable.
	ErrMalformedArchive = archive.ErrMalformedArchive

	// ErrMalformedXML indicates a member is not well-formed XML.
	ErrMalformedXML = errors.New("malformed XML")

	// ErrSchemaViolation indicates a required attribute is missing or a
	// value is outside its recognised set.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrUnresolvedReference indicates an ID reference has no target.
	ErrUnresolvedReference = errors.New("unresolved reference")
)

// SchemaError describes a missing or invalid attribute.
type SchemaError struct {
	File      string
	Element   string
	Attribute string

	// Value is the offending value; empty when the attribute is missing.
	Value string
	// Reason is set for values that are present but not accepted.
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s: <%s> missing required attribute %s",
			ErrSchemaViolation, e.File, e.Element, e.Attribute)
	}
	return fmt.Sprintf("%s: %s: <%s %s=%q>: %s",
		ErrSchemaViolation, e.File, e.Element, e.Attribute, e.Value, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchemaViolation }

// UnresolvedReferenceError describes a reference with no target.
type UnresolvedReferenceError struct {
	// Kind is the kind of entity looked up, e.g. "Manufacturer".
	Kind string
	ID   string
	// Referrer identifies where the reference was read, when known.
	Referrer string
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("%s: %s %q", ErrUnresolvedReference, e.Kind, e.ID)
	}
	return fmt.Sprintf("%s: %s %q referenced by %s", ErrUnresolvedReference, e.Kind, e.ID, e.Referrer)
}

func (e *UnresolvedReferenceError) Unwrap() error { return ErrUnresolvedReference }

// Warning codes for non-fatal decode issues.
const (
	// WarnDPTUnknown: a group address names a datapoint type the Catalog
	// does not know. The group address keeps no datapoint type.
	WarnDPTUnknown = "DPT_UNKNOWN"

	// WarnSpaceUsageUnknown: a space names an unknown usage code.
	WarnSpaceUsageUnknown = "SPACE_USAGE_UNKNOWN"

	// WarnDeviceRefUnknown: a space lists a device the topology lacks.
	WarnDeviceRefUnknown = "DEVICE_REF_UNKNOWN"
)

// Warning is a non-fatal issue found while decoding.
type Warning struct {
	// Code is a machine-readable warning code.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// ID is the relative ID of the affected element.
	ID string `json:"id"`
}
