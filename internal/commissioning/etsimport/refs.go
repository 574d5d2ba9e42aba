package etsimport

import (
	"strconv"
	"strings"
)

// RefResolver maps absolute project IDs to the relative IDs used as keys
// throughout the Project model.
//
// ETS prefixes every ID inside an installation file with
// "<project id>-<installation index>_", e.g. "P-0501-0_GA-1". The resolver
// removes that prefix. IDs that do not carry it are returned unchanged, so
// Catalog references ("M-0083_...", "MT-0") pass through untouched.
//
// RefResolver is a value type and safe for concurrent use.
type RefResolver struct {
	prefix string
}

// NewRefResolver returns the resolver for the given project and
// installation index.
func NewRefResolver(projectID string, installation int) RefResolver {
	return RefResolver{prefix: projectID + "-" + strconv.Itoa(installation) + "_"}
}

// Prefix returns the removable prefix.
func (r RefResolver) Prefix() string {
	return r.prefix
}

// Relative strips the project prefix from id.
func (r RefResolver) Relative(id string) string {
	return strings.TrimPrefix(id, r.prefix)
}

// RelativeList splits a space-separated reference list and strips each
// entry. Empty input yields an empty, non-nil slice.
func (r RefResolver) RelativeList(list string) []string {
	fields := strings.Fields(list)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, r.Relative(f))
	}
	return out
}
