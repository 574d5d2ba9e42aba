package etsimport

import (
	"encoding/json"
	"fmt"
)

// Catalog is the master data of one staged archive: datapoint types,
// media, manufacturers, space usages, products and hardware-to-program
// mappings, each keyed by global ID.
//
// A Catalog is immutable once built and safe for concurrent reads. Every
// lookup is fallible and reports an *UnresolvedReferenceError on a miss.
type Catalog struct {
	datapoints        map[string]DatapointType
	mediumTypes       map[string]MediumType
	manufacturers     map[string]Manufacturer
	spaceUsages       map[string]SpaceUsage
	products          map[string]Product
	hardware2Programs map[string]Hardware2Program
}

// CatalogStats reports how many entries each Catalog map holds.
type CatalogStats struct {
	Datapoints        int `json:"datapoints"`
	MediumTypes       int `json:"medium_types"`
	Manufacturers     int `json:"manufacturers"`
	SpaceUsages       int `json:"space_usages"`
	Products          int `json:"products"`
	Hardware2Programs int `json:"hardware2programs"`

	// ComObjects is summed over every Hardware2Program.
	ComObjects int `json:"com_objects"`
}

func newCatalog() *Catalog {
	return &Catalog{
		datapoints:        make(map[string]DatapointType),
		mediumTypes:       make(map[string]MediumType),
		manufacturers:     make(map[string]Manufacturer),
		spaceUsages:       make(map[string]SpaceUsage),
		products:          make(map[string]Product),
		hardware2Programs: make(map[string]Hardware2Program),
	}
}

func lookup[T any](m map[string]T, kind, id string) (T, error) {
	v, ok := m[id]
	if !ok {
		var zero T
		return zero, &UnresolvedReferenceError{Kind: kind, ID: id}
	}
	return v, nil
}

// Datapoint returns the datapoint type or subtype with the given ID.
func (c *Catalog) Datapoint(id string) (DatapointType, error) {
	return lookup(c.datapoints, "DatapointType", id)
}

// MediumType returns the medium type with the given ID.
func (c *Catalog) MediumType(id string) (MediumType, error) {
	return lookup(c.mediumTypes, "MediumType", id)
}

// Manufacturer returns the manufacturer with the given ID.
func (c *Catalog) Manufacturer(id string) (Manufacturer, error) {
	return lookup(c.manufacturers, "Manufacturer", id)
}

// SpaceUsage returns the space usage with the given ID.
func (c *Catalog) SpaceUsage(id string) (SpaceUsage, error) {
	return lookup(c.spaceUsages, "SpaceUsage", id)
}

// Product returns the product with the given ID.
func (c *Catalog) Product(id string) (Product, error) {
	return lookup(c.products, "Product", id)
}

// Hardware2Program returns the hardware-to-program mapping with the given ID.
func (c *Catalog) Hardware2Program(id string) (Hardware2Program, error) {
	return lookup(c.hardware2Programs, "Hardware2Program", id)
}

// Stats returns per-map entry counts.
func (c *Catalog) Stats() CatalogStats {
	s := CatalogStats{
		Datapoints:        len(c.datapoints),
		MediumTypes:       len(c.mediumTypes),
		Manufacturers:     len(c.manufacturers),
		SpaceUsages:       len(c.spaceUsages),
		Products:          len(c.products),
		Hardware2Programs: len(c.hardware2Programs),
	}
	for _, h2p := range c.hardware2Programs {
		s.ComObjects += len(h2p.ComObjects)
	}
	return s
}

// EffectiveComObjects merges a device's own overrides onto the program
// objects of its Hardware2Program. The result is keyed by the global
// ComObjectRef ID.
//
// The decoder stores device overrides unmerged; this is the consumer-side
// fold of the third layer. Objects the device does not override are
// returned as the program defines them.
//
// Returns:
//   - map[string]ComObject: Effective objects for the device
//   - error: UnresolvedReference if the device's Hardware2Program or an
//     overridden ComObjectRef is unknown
func (c *Catalog) EffectiveComObjects(d Device) (map[string]ComObject, error) {
	out := make(map[string]ComObject)
	if d.Hardware2ProgramRefID == nil {
		if len(d.ComObjects) > 0 {
			return nil, &UnresolvedReferenceError{Kind: "Hardware2Program", ID: "", Referrer: d.ID}
		}
		return out, nil
	}

	h2p, err := c.Hardware2Program(*d.Hardware2ProgramRefID)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", d.ID, err)
	}
	for id, co := range h2p.ComObjects {
		out[id] = co
	}

	for ref, inst := range d.ComObjects {
		key := ref
		if _, ok := out[key]; !ok {
			key = h2p.ApplicationProgramID + "_" + ref
		}
		base, ok := out[key]
		if !ok {
			return nil, &UnresolvedReferenceError{Kind: "ComObjectRef", ID: ref, Referrer: d.ID}
		}
		out[key] = Merge(base, inst.Override)
	}
	return out, nil
}

// catalogSnapshot is the serialised form of a Catalog.
type catalogSnapshot struct {
	Datapoints        map[string]DatapointType    `json:"datapoints"`
	MediumTypes       map[string]MediumType       `json:"medium_types"`
	Manufacturers     map[string]Manufacturer     `json:"manufacturers"`
	SpaceUsages       map[string]SpaceUsage       `json:"space_usages"`
	Products          map[string]Product          `json:"products"`
	Hardware2Programs map[string]Hardware2Program `json:"hardware2programs"`
}

// MarshalJSON implements json.Marshaler.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(catalogSnapshot{
		Datapoints:        c.datapoints,
		MediumTypes:       c.mediumTypes,
		Manufacturers:     c.manufacturers,
		SpaceUsages:       c.spaceUsages,
		Products:          c.products,
		Hardware2Programs: c.hardware2Programs,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var s catalogSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = *newCatalog()
	for id, v := range s.Datapoints {
		c.datapoints[id] = v
	}
	for id, v := range s.MediumTypes {
		c.mediumTypes[id] = v
	}
	for id, v := range s.Manufacturers {
		c.manufacturers[id] = v
	}
	for id, v := range s.SpaceUsages {
		c.spaceUsages[id] = v
	}
	for id, v := range s.Products {
		c.products[id] = v
	}
	for id, v := range s.Hardware2Programs {
		if v.ComObjects == nil {
			v.ComObjects = make(map[string]ComObject)
		}
		c.hardware2Programs[id] = v
	}
	return nil
}
