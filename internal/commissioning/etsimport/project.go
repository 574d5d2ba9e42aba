package etsimport

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	projectDirPrefix  = "P-"
	projectDescriptor = "project.xml"

	maxAreaAddress   = 15
	maxLineAddress   = 15
	maxDeviceAddress = 255
)

// XML shapes for P-xxxx/project.xml.

type xmlProjectFile struct {
	Project xmlProjectDescriptor `xml:"Project"`
}

type xmlProjectDescriptor struct {
	ID          *string         `xml:"Id,attr"`
	Information *xmlProjectInfo `xml:"ProjectInformation"`
}

type xmlProjectInfo struct {
	Name              *string `xml:"Name,attr"`
	GroupAddressStyle *string `xml:"GroupAddressStyle,attr"`
}

// XML shapes for P-xxxx/<n>.xml.

type xmlInstallationFile struct {
	Installations []xmlInstallation `xml:"Project>Installations>Installation"`
}

type xmlInstallation struct {
	Areas          []xmlArea    `xml:"Topology>Area"`
	Spaces         []xmlSpace   `xml:"Locations>Space"`
	GroupAddresses xmlGroupNode `xml:"GroupAddresses"`
}

type xmlArea struct {
	ID      *string   `xml:"Id,attr"`
	Name    *string   `xml:"Name,attr"`
	Address *string   `xml:"Address,attr"`
	Lines   []xmlLine `xml:"Line"`
}

type xmlLine struct {
	ID              *string             `xml:"Id,attr"`
	Name            *string             `xml:"Name,attr"`
	Address         *string             `xml:"Address,attr"`
	MediumTypeRefID *string             `xml:"MediumTypeRefId,attr"`
	Devices         []xmlDeviceInstance `xml:"DeviceInstance"`
	Segments        []xmlSegment        `xml:"Segment"`
}

// xmlSegment is the ETS6 line subdivision; devices may sit here instead
// of directly below the line.
type xmlSegment struct {
	MediumTypeRefID *string             `xml:"MediumTypeRefId,attr"`
	Devices         []xmlDeviceInstance `xml:"DeviceInstance"`
}

type xmlDeviceInstance struct {
	ID                    *string                   `xml:"Id,attr"`
	Name                  *string                   `xml:"Name,attr"`
	Address               *string                   `xml:"Address,attr"`
	ProductRefID          *string                   `xml:"ProductRefId,attr"`
	Hardware2ProgramRefID *string                   `xml:"Hardware2ProgramRefId,attr"`
	Comment               *string                   `xml:"Comment,attr"`
	Description           *string                   `xml:"Description,attr"`
	SerialNumber          *string                   `xml:"SerialNumber,attr"`
	ComObjectInstanceRefs []xmlComObjectInstanceRef `xml:"ComObjectInstanceRefs>ComObjectInstanceRef"`
}

type xmlComObjectInstanceRef struct {
	RefID      *string        `xml:"RefId,attr"`
	Links      *string        `xml:"Links,attr"`
	Connectors *xmlConnectors `xml:"Connectors"`
	xmlComObjectAttrs
}

// xmlConnectors holds ETS5 Send and Receive links in document order.
type xmlConnectors struct {
	Items []xmlConnector `xml:",any"`
}

type xmlConnector struct {
	GroupAddressRefID *string `xml:"GroupAddressRefId,attr"`
}

type xmlSpace struct {
	ID          *string    `xml:"Id,attr"`
	Type        *string    `xml:"Type,attr"`
	Name        *string    `xml:"Name,attr"`
	Number      *string    `xml:"Number,attr"`
	Usage       *string    `xml:"Usage,attr"`
	Description *string    `xml:"Description,attr"`
	Spaces      []xmlSpace `xml:"Space"`
	DeviceRefs  []xmlRef   `xml:"DeviceInstanceRef"`
}

// xmlGroupNode is any element below GroupAddresses. Ranges nest to a
// style-dependent depth, so the tree is walked generically and only
// GroupAddress leaves are kept.
type xmlGroupNode struct {
	XMLName       xml.Name
	ID            *string        `xml:"Id,attr"`
	Address       *string        `xml:"Address,attr"`
	Name          *string        `xml:"Name,attr"`
	DatapointType *string        `xml:"DatapointType,attr"`
	Children      []xmlGroupNode `xml:",any"`
}

// ProjectOptions selects what to decode from a staged archive.
type ProjectOptions struct {
	// ProjectID selects the project directory. Empty selects the
	// lexically first.
	ProjectID string

	// Installation selects the installation file index. Nil selects the
	// lowest index present.
	Installation *int
}

// projectBuilder carries the state of one project decode.
type projectBuilder struct {
	cat      *Catalog
	refs     RefResolver
	file     string
	style    GroupAddressStyle
	devices  map[string]bool
	warnings []Warning
	logger   Logger
}

// BuildProject decodes the project of a staged archive against cat.
//
// Order matters: the descriptor supplies the project ID and address style
// that the installation file is read with.
//
// Parameters:
//   - stagedDir: Directory produced by the archive stager
//   - cat: Catalog of the same archive
//   - opts: Project and installation selection
//   - logger: Receives warnings as they are found
//
// Returns:
//   - *Project: The decoded project
//   - []Warning: Non-fatal issues, in document order
//   - error: The first fatal failure
func BuildProject(stagedDir string, cat *Catalog, opts ProjectOptions, logger Logger) (*Project, []Warning, error) {
	dir, err := findProjectDir(stagedDir, opts.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	proj, err := parseProjectDescriptor(filepath.Join(dir, projectDescriptor))
	if err != nil {
		return nil, nil, err
	}

	index, path, err := findInstallation(dir, opts.Installation)
	if err != nil {
		return nil, nil, err
	}
	proj.Installation = index

	var doc xmlInstallationFile
	if err := decodeXMLFile(path, &doc); err != nil {
		return nil, nil, err
	}

	b := &projectBuilder{
		cat:     cat,
		refs:    NewRefResolver(proj.ID, index),
		file:    filepath.Base(dir) + "/" + filepath.Base(path),
		style:   proj.GroupAddressStyle,
		devices: make(map[string]bool),
		logger:  logger,
	}

	if len(doc.Installations) > 0 {
		inst := doc.Installations[0]
		if err := b.buildTopology(proj, inst.Areas); err != nil {
			return nil, nil, err
		}
		if err := b.buildLocations(proj, inst.Spaces); err != nil {
			return nil, nil, err
		}
		if err := b.walkGroupAddresses(proj, inst.GroupAddresses.Children); err != nil {
			return nil, nil, err
		}
	}

	logger.Info("project decoded",
		"project_id", proj.ID,
		"installation", index,
		"areas", len(proj.Topology),
		"devices", len(b.devices),
		"group_addresses", len(proj.GroupAddresses),
		"warnings", len(b.warnings),
	)
	return proj, b.warnings, nil
}

// findProjectDir returns the selected P-* directory holding project.xml.
func findProjectDir(stagedDir, projectID string) (string, error) {
	entries, err := os.ReadDir(stagedDir)
	if err != nil {
		return "", fmt.Errorf("reading staged directory: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), projectDirPrefix) {
			continue
		}
		if projectID != "" && e.Name() != projectID {
			continue
		}
		dir := filepath.Join(stagedDir, e.Name())
		if _, err := os.Stat(filepath.Join(dir, projectDescriptor)); err == nil {
			return dir, nil
		}
	}

	if projectID != "" {
		return "", fmt.Errorf("%w: project %s not found", ErrMalformedArchive, projectID)
	}
	return "", fmt.Errorf("%w: no project directory", ErrMalformedArchive)
}

func parseProjectDescriptor(path string) (*Project, error) {
	var doc xmlProjectFile
	if err := decodeXMLFile(path, &doc); err != nil {
		return nil, err
	}

	a := newAttrs(projectDescriptor, "Project")
	proj := &Project{
		ID:                a.String("Id", doc.Project.ID),
		GroupAddressStyle: StyleThreeLevel,
		Topology:          make(map[string]Area),
		Locations:         make(map[string]Space),
		GroupAddresses:    make(map[string]GroupAddress),
	}
	if err := a.Err(); err != nil {
		return nil, err
	}

	// Without a ProjectInformation element the style stays ThreeLevel;
	// with one, the style is required.
	if info := doc.Project.Information; info != nil {
		ia := newAttrs(projectDescriptor, "ProjectInformation")
		proj.Name = ia.OptString(info.Name)
		style := GroupAddressStyle(ia.String("GroupAddressStyle", info.GroupAddressStyle))
		if err := ia.Err(); err != nil {
			return nil, err
		}
		switch style {
		case StyleThreeLevel, StyleTwoLevel, StyleFree:
			proj.GroupAddressStyle = style
		default:
			return nil, &SchemaError{
				File:      projectDescriptor,
				Element:   "ProjectInformation",
				Attribute: "GroupAddressStyle",
				Value:     string(style),
				Reason:    "want ThreeLevel, TwoLevel or Free",
			}
		}
	}
	return proj, nil
}

// findInstallation returns the selected numbered installation file.
func findInstallation(dir string, want *int) (int, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, "", fmt.Errorf("reading project directory: %w", err)
	}

	best := -1
	for _, e := range entries {
		stem, ok := strings.CutSuffix(e.Name(), ".xml")
		if !ok || e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(stem)
		if err != nil || n < 0 || strconv.Itoa(n) != stem {
			continue
		}
		if want != nil {
			if n == *want {
				return n, filepath.Join(dir, e.Name()), nil
			}
			continue
		}
		if best < 0 || n < best {
			best = n
		}
	}

	if want != nil {
		return 0, "", fmt.Errorf("%w: installation %d not found in %s", ErrMalformedArchive, *want, filepath.Base(dir))
	}
	if best < 0 {
		return 0, "", fmt.Errorf("%w: no installation file in %s", ErrMalformedArchive, filepath.Base(dir))
	}
	return best, filepath.Join(dir, strconv.Itoa(best)+".xml"), nil
}

func (b *projectBuilder) warn(code, id, format string, args ...any) {
	w := Warning{Code: code, ID: id, Message: fmt.Sprintf(format, args...)}
	b.warnings = append(b.warnings, w)
	b.logger.Warn("decode warning", "code", w.Code, "id", w.ID, "message", w.Message)
}

// mediumType resolves an optional medium reference.
func (b *projectBuilder) mediumType(ref *string, referrer string) (*MediumType, error) {
	if ref == nil {
		return nil, nil
	}
	mt, err := b.cat.MediumType(*ref)
	if err != nil {
		return nil, withReferrer(err, referrer)
	}
	return &mt, nil
}

func (b *projectBuilder) buildTopology(proj *Project, areas []xmlArea) error {
	for _, xa := range areas {
		a := newAttrs(b.file, "Area")
		area := Area{
			ID:      b.refs.Relative(a.String("Id", xa.ID)),
			Address: a.OptRange("Address", xa.Address, 0, maxAreaAddress),
			Name:    a.OptString(xa.Name),
			Lines:   make(map[string]Line),
		}
		if err := a.Err(); err != nil {
			return err
		}
		area.PhysicalAddress = PhysicalAddress(area.Address, nil, nil)

		for _, xl := range xa.Lines {
			line, err := b.buildLine(area, xl)
			if err != nil {
				return err
			}
			area.Lines[line.ID] = line
		}
		proj.Topology[area.ID] = area
	}
	return nil
}

func (b *projectBuilder) buildLine(area Area, xl xmlLine) (Line, error) {
	a := newAttrs(b.file, "Line")
	line := Line{
		ID:      b.refs.Relative(a.String("Id", xl.ID)),
		Address: a.OptRange("Address", xl.Address, 0, maxLineAddress),
		Name:    a.OptString(xl.Name),
		Devices: make(map[string]Device),
	}
	if err := a.Err(); err != nil {
		return Line{}, err
	}
	line.PhysicalAddress = PhysicalAddress(area.Address, line.Address, nil)

	mt, err := b.mediumType(xl.MediumTypeRefID, line.ID)
	if err != nil {
		return Line{}, err
	}
	line.MediumType = mt

	devices := xl.Devices
	for _, seg := range xl.Segments {
		segMedium, err := b.mediumType(seg.MediumTypeRefID, line.ID)
		if err != nil {
			return Line{}, err
		}
		if line.MediumType == nil {
			line.MediumType = segMedium
		}
		devices = append(devices, seg.Devices...)
	}

	for _, xd := range devices {
		dev, err := b.buildDevice(area, line, xd)
		if err != nil {
			return Line{}, err
		}
		line.Devices[dev.ID] = dev
		b.devices[dev.ID] = true
	}
	return line, nil
}

func (b *projectBuilder) buildDevice(area Area, line Line, xd xmlDeviceInstance) (Device, error) {
	a := newAttrs(b.file, "DeviceInstance")
	dev := Device{
		ID:                    b.refs.Relative(a.String("Id", xd.ID)),
		Address:               a.OptRange("Address", xd.Address, 0, maxDeviceAddress),
		Name:                  a.OptString(xd.Name),
		ProductRefID:          a.OptString(xd.ProductRefID),
		Hardware2ProgramRefID: a.OptString(xd.Hardware2ProgramRefID),
		Comment:               a.OptString(xd.Comment),
		Description:           a.OptString(xd.Description),
		ComObjects:            make(map[string]ComObjectInstance),
	}
	if err := a.Err(); err != nil {
		return Device{}, err
	}
	dev.PhysicalAddress = PhysicalAddress(area.Address, line.Address, dev.Address)

	if xd.SerialNumber != nil {
		serial, err := decodeSerialNumber(*xd.SerialNumber)
		if err != nil {
			return Device{}, &SchemaError{
				File: b.file, Element: "DeviceInstance", Attribute: "SerialNumber",
				Value: *xd.SerialNumber, Reason: "not base64",
			}
		}
		dev.SerialNumber = &serial
	}

	if dev.ProductRefID != nil {
		if _, err := b.cat.Product(*dev.ProductRefID); err != nil {
			return Device{}, withReferrer(err, dev.ID)
		}
	}
	if dev.Hardware2ProgramRefID != nil {
		if _, err := b.cat.Hardware2Program(*dev.Hardware2ProgramRefID); err != nil {
			return Device{}, withReferrer(err, dev.ID)
		}
	}

	for _, xr := range xd.ComObjectInstanceRefs {
		ra := newAttrs(b.file, "ComObjectInstanceRef")
		inst := ComObjectInstance{
			RefID:    b.refs.Relative(ra.String("RefId", xr.RefID)),
			Override: parseComObject(ra, xr.xmlComObjectAttrs, b.cat),
		}
		if err := ra.Err(); err != nil {
			return Device{}, err
		}

		if xr.Links != nil {
			inst.Links = b.refs.RelativeList(*xr.Links)
		} else {
			inst.Links = []string{}
			if xr.Connectors != nil {
				for _, c := range xr.Connectors.Items {
					if c.GroupAddressRefID != nil {
						inst.Links = append(inst.Links, b.refs.Relative(*c.GroupAddressRefID))
					}
				}
			}
		}
		dev.ComObjects[inst.RefID] = inst
	}
	return dev, nil
}

// decodeSerialNumber renders a base64 serial as upper-case hex with a
// colon after the manufacturer part: "AIMAAAAB" -> "0083:00000001".
// Whitespace and line breaks inside the value are ignored.
func decodeSerialNumber(s string) (string, error) {
	s = strings.Join(strings.Fields(s), "")
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	h := strings.ToUpper(hex.EncodeToString(raw))
	if len(h) <= 4 {
		return h, nil
	}
	return h[:4] + ":" + h[4:], nil
}

func (b *projectBuilder) buildLocations(proj *Project, spaces []xmlSpace) error {
	for _, xs := range spaces {
		sp, err := b.buildSpace(xs)
		if err != nil {
			return err
		}
		proj.Locations[sp.ID] = sp
	}
	return nil
}

func (b *projectBuilder) buildSpace(xs xmlSpace) (Space, error) {
	a := newAttrs(b.file, "Space")
	sp := Space{
		ID:          b.refs.Relative(a.String("Id", xs.ID)),
		Type:        BuildingPartType(a.String("Type", xs.Type)),
		Name:        a.OptString(xs.Name),
		Number:      a.OptString(xs.Number),
		Description: a.OptString(xs.Description),
		Spaces:      make(map[string]Space),
		Devices:     []string{},
	}
	if err := a.Err(); err != nil {
		return Space{}, err
	}
	if !validBuildingPartTypes[sp.Type] {
		return Space{}, &SchemaError{
			File: b.file, Element: "Space", Attribute: "Type",
			Value: string(sp.Type), Reason: "unknown building part type",
		}
	}

	if xs.Usage != nil {
		if su, err := b.cat.SpaceUsage(*xs.Usage); err == nil {
			sp.Usage = &su
		} else {
			b.warn(WarnSpaceUsageUnknown, sp.ID, "space usage %q not in master data", *xs.Usage)
		}
	}

	for _, xr := range xs.DeviceRefs {
		ra := newAttrs(b.file, "DeviceInstanceRef")
		id := b.refs.Relative(ra.String("RefId", xr.RefID))
		if err := ra.Err(); err != nil {
			return Space{}, err
		}
		if !b.devices[id] {
			b.warn(WarnDeviceRefUnknown, sp.ID, "device %q not in topology", id)
		}
		sp.Devices = append(sp.Devices, id)
	}

	for _, child := range xs.Spaces {
		c, err := b.buildSpace(child)
		if err != nil {
			return Space{}, err
		}
		sp.Spaces[c.ID] = c
	}
	return sp, nil
}

// walkGroupAddresses flattens every GroupAddress below nodes, at any depth.
func (b *projectBuilder) walkGroupAddresses(proj *Project, nodes []xmlGroupNode) error {
	for _, n := range nodes {
		if n.XMLName.Local != "GroupAddress" {
			if err := b.walkGroupAddresses(proj, n.Children); err != nil {
				return err
			}
			continue
		}

		a := newAttrs(b.file, "GroupAddress")
		ga := GroupAddress{
			ID:   b.refs.Relative(a.String("Id", n.ID)),
			Raw:  a.OptRange("Address", n.Address, 0, maxGroupAddress),
			Name: a.OptString(n.Name),
		}
		if err := a.Err(); err != nil {
			return err
		}
		ga.Address = FormatGroupAddress(b.style, ga.Raw)

		if n.DatapointType != nil {
			if dpts := resolveDatapoints(*n.DatapointType, b.cat); len(dpts) > 0 {
				ga.DatapointType = &dpts[0]
			} else {
				b.warn(WarnDPTUnknown, ga.ID, "datapoint type %q not in master data", *n.DatapointType)
			}
		}
		proj.GroupAddresses[ga.ID] = ga
	}
	return nil
}
