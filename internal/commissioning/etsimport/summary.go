package etsimport

import "time"

// Summary is a compact, publishable description of a decode.
type Summary struct {
	DecodeID   string       `json:"decode_id"`
	ProjectID  string       `json:"project_id"`
	Name       *string      `json:"name,omitempty"`
	Style      string       `json:"group_address_style"`
	CacheHit   bool         `json:"cache_hit"`
	DurationMS int64        `json:"duration_ms"`
	Finished   time.Time    `json:"finished"`
	Catalog    CatalogStats `json:"catalog"`

	Areas          int `json:"areas"`
	Lines          int `json:"lines"`
	Devices        int `json:"devices"`
	GroupAddresses int `json:"group_addresses"`
	Spaces         int `json:"spaces"`
	Warnings       int `json:"warnings"`
}

// Summary counts the entities of r. Spaces are counted at every depth.
func (r *Result) Summary(finished time.Time) Summary {
	s := Summary{
		DecodeID:       r.DecodeID,
		ProjectID:      r.Project.ID,
		Name:           r.Project.Name,
		Style:          string(r.Project.GroupAddressStyle),
		CacheHit:       r.CacheHit,
		DurationMS:     r.Duration.Milliseconds(),
		Finished:       finished.UTC(),
		Catalog:        r.Catalog.Stats(),
		Areas:          len(r.Project.Topology),
		GroupAddresses: len(r.Project.GroupAddresses),
		Warnings:       len(r.Warnings),
	}
	for _, area := range r.Project.Topology {
		s.Lines += len(area.Lines)
		for _, line := range area.Lines {
			s.Devices += len(line.Devices)
		}
	}
	s.Spaces = countSpaces(r.Project.Locations)
	return s
}

func countSpaces(spaces map[string]Space) int {
	n := len(spaces)
	for _, sp := range spaces {
		n += countSpaces(sp.Spaces)
	}
	return n
}
