package etsimport

import "fmt"

// DatapointType is a datapoint main type or subtype from the master data.
type DatapointType struct {
	ID string `json:"id"`

	// Number is "<main>" for main types and "<main>.<sub>" for subtypes,
	// the subtype zero-padded to three digits ("1.001").
	Number string `json:"number"`
	Name   string `json:"name"`
	Text   string `json:"text"`
}

// MediumType is a bus medium such as TP or IP.
type MediumType struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name"`
	Text   string `json:"text"`
}

// Manufacturer is a KNX manufacturer.
type Manufacturer struct {
	ID                string `json:"id"`
	KnxManufacturerID int    `json:"knx_manufacturer_id"`
	Name              string `json:"name"`
}

// SpaceUsage is a usage code that can be attached to a space.
type SpaceUsage struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Product is a hardware product as sold.
type Product struct {
	ID           string       `json:"id"`
	Text         string       `json:"text"`
	OrderNumber  string       `json:"order_number"`
	Manufacturer Manufacturer `json:"manufacturer"`
}

// Hardware2Program maps a hardware unit to its application program.
type Hardware2Program struct {
	ID string `json:"id"`

	// ApplicationProgramID is the program referenced by the mapping, or ""
	// for hardware without a program. Device-level references are relative
	// to this ID.
	ApplicationProgramID string       `json:"application_program_id"`
	MediumTypes          []MediumType `json:"medium_types"`

	// ComObjects holds the effective object per ComObjectRef, keyed by the
	// ComObjectRef's global ID.
	ComObjects map[string]ComObject `json:"com_objects"`
}

// ObjectSize is the data size of a communication object.
type ObjectSize string

// Priority is a transmission priority.
type Priority string

// Transmission priorities.
const (
	PriorityLow   Priority = "Low"
	PriorityHigh  Priority = "High"
	PriorityAlert Priority = "Alert"
)

// ObjectSizeLegacyVarData is the variable-length object size.
const ObjectSizeLegacyVarData ObjectSize = "LegacyVarData"

// validObjectSizes holds "1 Bit".."7 Bit", "1 Byte", "2 Bytes".."50 Bytes"
// and LegacyVarData.
var validObjectSizes = func() map[ObjectSize]bool {
	sizes := map[ObjectSize]bool{
		"1 Byte":                true,
		ObjectSizeLegacyVarData: true,
	}
	for i := 1; i <= 7; i++ {
		sizes[ObjectSize(fmt.Sprintf("%d Bit", i))] = true
	}
	for i := 2; i <= 50; i++ {
		sizes[ObjectSize(fmt.Sprintf("%d Bytes", i))] = true
	}
	return sizes
}()

// ComObject is a communication object, or a sparse override of one.
// A nil field is absent: on an override it leaves the base untouched.
type ComObject struct {
	Number            *int        `json:"number,omitempty"`
	Text              *string     `json:"text,omitempty"`
	FunctionText      *string     `json:"function_text,omitempty"`
	ObjectSize        *ObjectSize `json:"object_size,omitempty"`
	Priority          *Priority   `json:"priority,omitempty"`
	ReadFlag          *bool       `json:"read_flag,omitempty"`
	WriteFlag         *bool       `json:"write_flag,omitempty"`
	CommunicationFlag *bool       `json:"communication_flag,omitempty"`
	TransmitFlag      *bool       `json:"transmit_flag,omitempty"`
	UpdateFlag        *bool       `json:"update_flag,omitempty"`
	ReadOnInitFlag    *bool       `json:"read_on_init_flag,omitempty"`

	// DatapointTypes is nil when unset. An override that names only
	// unknown types yields an empty, non-nil list.
	DatapointTypes []DatapointType `json:"datapoint_types"`
}

// GroupAddressStyle governs how group addresses are rendered.
type GroupAddressStyle string

// Group address styles.
const (
	StyleThreeLevel GroupAddressStyle = "ThreeLevel"
	StyleTwoLevel   GroupAddressStyle = "TwoLevel"
	StyleFree       GroupAddressStyle = "Free"
)

// BuildingPartType is the type of a Space.
type BuildingPartType string

// Building part types.
const (
	BuildingPartBuilding          BuildingPartType = "Building"
	BuildingPartBuildingPart      BuildingPartType = "BuildingPart"
	BuildingPartFloor             BuildingPartType = "Floor"
	BuildingPartStairway          BuildingPartType = "Stairway"
	BuildingPartRoom              BuildingPartType = "Room"
	BuildingPartRoomPart          BuildingPartType = "RoomPart"
	BuildingPartCorridor          BuildingPartType = "Corridor"
	BuildingPartDistributionBoard BuildingPartType = "DistributionBoard"
	BuildingPartArea              BuildingPartType = "Area"
	BuildingPartGround            BuildingPartType = "Ground"
	BuildingPartSegment           BuildingPartType = "Segment"
)

var validBuildingPartTypes = map[BuildingPartType]bool{
	BuildingPartBuilding:          true,
	BuildingPartBuildingPart:      true,
	BuildingPartFloor:             true,
	BuildingPartStairway:          true,
	BuildingPartRoom:              true,
	BuildingPartRoomPart:          true,
	BuildingPartCorridor:          true,
	BuildingPartDistributionBoard: true,
	BuildingPartArea:              true,
	BuildingPartGround:            true,
	BuildingPartSegment:           true,
}

// Project is a decoded ETS project installation.
type Project struct {
	ID                string            `json:"id"`
	Name              *string           `json:"name,omitempty"`
	GroupAddressStyle GroupAddressStyle `json:"group_address_style"`

	// Installation is the index of the installation file decoded.
	Installation int `json:"installation"`

	// Topology maps area ID to Area.
	Topology map[string]Area `json:"topology"`

	// Locations maps the ID of each root space to its tree.
	Locations map[string]Space `json:"locations"`

	// GroupAddresses maps group address ID to GroupAddress, flattened
	// across all group ranges.
	GroupAddresses map[string]GroupAddress `json:"group_addresses"`
}

// Area is a topology area (address 0-15).
type Area struct {
	ID              string          `json:"id"`
	Address         *int            `json:"address,omitempty"`
	PhysicalAddress string          `json:"physical_address"`
	Name            *string         `json:"name,omitempty"`
	Lines           map[string]Line `json:"lines"`
}

// Line is a topology line (address 0-15).
type Line struct {
	ID              string            `json:"id"`
	Address         *int              `json:"address,omitempty"`
	PhysicalAddress string            `json:"physical_address"`
	Name            *string           `json:"name,omitempty"`
	MediumType      *MediumType       `json:"medium_type,omitempty"`
	Devices         map[string]Device `json:"devices"`
}

// Device is a device instance (address 0-255).
type Device struct {
	ID              string  `json:"id"`
	Address         *int    `json:"address,omitempty"`
	PhysicalAddress string  `json:"physical_address"`
	Name            *string `json:"name,omitempty"`

	// ProductRefID and Hardware2ProgramRefID are Catalog keys.
	ProductRefID          *string `json:"product_ref_id,omitempty"`
	Hardware2ProgramRefID *string `json:"hardware2program_ref_id,omitempty"`

	Comment     *string `json:"comment,omitempty"`
	Description *string `json:"description,omitempty"`

	// SerialNumber is rendered as upper-case hex, "XXXX:XXXXXXXX".
	SerialNumber *string `json:"serial_number,omitempty"`

	// ComObjects holds the device's own overrides keyed by the relative
	// ComObjectRef ID they refer to ("O-0_R-1").
	ComObjects map[string]ComObjectInstance `json:"com_objects"`
}

// ComObjectInstance is a device-level communication object override.
type ComObjectInstance struct {
	RefID    string    `json:"ref_id"`
	Override ComObject `json:"override"`

	// Links lists the relative IDs of linked group addresses, in order.
	Links []string `json:"links"`
}

// Space is a node in the building structure.
type Space struct {
	ID          string           `json:"id"`
	Type        BuildingPartType `json:"type"`
	Name        *string          `json:"name,omitempty"`
	Number      *string          `json:"number,omitempty"`
	Usage       *SpaceUsage      `json:"usage,omitempty"`
	Description *string          `json:"description,omitempty"`

	Spaces map[string]Space `json:"spaces"`

	// Devices lists relative device IDs located in this space. They refer
	// into Topology and are not owned by the space.
	Devices []string `json:"devices"`
}

// GroupAddress is a group (multicast) address.
type GroupAddress struct {
	ID string `json:"id"`

	// Raw is the numeric address, absent when the element has none.
	Raw *int `json:"raw,omitempty"`

	// Address is Raw rendered per the project's style, or "?".
	Address       string         `json:"address"`
	Name          *string        `json:"name,omitempty"`
	DatapointType *DatapointType `json:"datapoint_type,omitempty"`
}
