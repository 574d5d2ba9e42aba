package etsimport

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// File names inside a staged archive.
const (
	masterFile   = "knx_master.xml"
	hardwareFile = "Hardware.xml"
)

// XML shapes for knx_master.xml.

type xmlMaster struct {
	DatapointTypes []xmlDatapointType `xml:"MasterData>DatapointTypes>DatapointType"`
	MediumTypes    []xmlMediumType    `xml:"MasterData>MediumTypes>MediumType"`
	SpaceUsages    []xmlSpaceUsage    `xml:"MasterData>SpaceUsages>SpaceUsage"`
	Manufacturers  []xmlManufacturer  `xml:"MasterData>Manufacturers>Manufacturer"`
}

type xmlDatapointType struct {
	ID       *string               `xml:"Id,attr"`
	Number   *string               `xml:"Number,attr"`
	Name     *string               `xml:"Name,attr"`
	Text     *string               `xml:"Text,attr"`
	Subtypes []xmlDatapointSubtype `xml:"DatapointSubtypes>DatapointSubtype"`
}

type xmlDatapointSubtype struct {
	ID     *string `xml:"Id,attr"`
	Number *string `xml:"Number,attr"`
	Name   *string `xml:"Name,attr"`
	Text   *string `xml:"Text,attr"`
}

type xmlMediumType struct {
	ID     *string `xml:"Id,attr"`
	Number *string `xml:"Number,attr"`
	Name   *string `xml:"Name,attr"`
	Text   *string `xml:"Text,attr"`
}

type xmlSpaceUsage struct {
	ID     *string `xml:"Id,attr"`
	Number *string `xml:"Number,attr"`
	Text   *string `xml:"Text,attr"`
}

type xmlManufacturer struct {
	ID                *string `xml:"Id,attr"`
	KnxManufacturerID *string `xml:"KnxManufacturerId,attr"`
	Name              *string `xml:"Name,attr"`
}

// XML shapes for <manufacturer>/Hardware.xml.

type xmlHardwareFile struct {
	Manufacturers []xmlHardwareManufacturer `xml:"ManufacturerData>Manufacturer"`
}

type xmlHardwareManufacturer struct {
	RefID    *string       `xml:"RefId,attr"`
	Hardware []xmlHardware `xml:"Hardware>Hardware"`
}

type xmlHardware struct {
	ID                *string               `xml:"Id,attr"`
	Products          []xmlProduct          `xml:"Products>Product"`
	Hardware2Programs []xmlHardware2Program `xml:"Hardware2Programs>Hardware2Program"`
}

type xmlProduct struct {
	ID          *string `xml:"Id,attr"`
	Text        *string `xml:"Text,attr"`
	OrderNumber *string `xml:"OrderNumber,attr"`
}

type xmlHardware2Program struct {
	ID          *string  `xml:"Id,attr"`
	MediumTypes *string  `xml:"MediumTypes,attr"`
	ProgramRefs []xmlRef `xml:"ApplicationProgramRef"`
}

type xmlRef struct {
	RefID *string `xml:"RefId,attr"`
}

// XML shapes for <manufacturer>/<program>.xml.

type xmlProgramFile struct {
	Programs []xmlApplicationProgram `xml:"ManufacturerData>Manufacturer>ApplicationPrograms>ApplicationProgram"`
}

type xmlApplicationProgram struct {
	ID            *string           `xml:"Id,attr"`
	ComObjects    []xmlComObject    `xml:"Static>ComObjectTable>ComObject"`
	ComObjectRefs []xmlComObjectRef `xml:"Static>ComObjectRefs>ComObjectRef"`
}

type xmlComObject struct {
	ID *string `xml:"Id,attr"`
	xmlComObjectAttrs
}

type xmlComObjectRef struct {
	ID    *string `xml:"Id,attr"`
	RefID *string `xml:"RefId,attr"`
	xmlComObjectAttrs
}

// CatalogBuilder parses the master and manufacturer data of a staged
// archive into a Catalog.
type CatalogBuilder struct {
	parallelism int
	logger      Logger
}

// NewCatalogBuilder creates a builder. parallelism bounds concurrent
// application-program parsing; 0 means one worker per CPU.
func NewCatalogBuilder(parallelism int, logger Logger) *CatalogBuilder {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return &CatalogBuilder{parallelism: parallelism, logger: logger}
}

// pendingH2P is a mapping whose program objects are not yet attached.
type pendingH2P struct {
	h2p        Hardware2Program
	programs   []string
	programDir string
}

// Build parses the staged directory.
//
// Order:
//  1. knx_master.xml: datapoints, media, space usages, manufacturers
//  2. every Hardware.xml, in lexical path order: products and mappings
//  3. every referenced application program, once each, in parallel
//
// Parameters:
//   - ctx: Cancels program parsing between files
//   - stagedDir: Directory produced by the archive stager
//
// Returns:
//   - *Catalog: The finished, immutable catalog
//   - error: The first failure in file order
func (b *CatalogBuilder) Build(ctx context.Context, stagedDir string) (*Catalog, error) {
	cat := newCatalog()

	if err := b.parseMaster(cat, filepath.Join(stagedDir, masterFile)); err != nil {
		return nil, err
	}

	hwFiles, err := findHardwareFiles(stagedDir)
	if err != nil {
		return nil, err
	}

	var pending []pendingH2P
	for _, path := range hwFiles {
		p, err := b.parseHardware(cat, stagedDir, path)
		if err != nil {
			return nil, err
		}
		pending = append(pending, p...)
	}

	programs, err := b.parsePrograms(ctx, cat, pending)
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		h2p := p.h2p
		for _, programID := range p.programs {
			for id, co := range programs[programFileKey(p.programDir, programID)] {
				h2p.ComObjects[id] = co
			}
		}
		cat.hardware2Programs[h2p.ID] = h2p
	}

	b.logger.Debug("catalog built",
		"hardware_files", len(hwFiles),
		"programs", len(programs),
		"hardware2programs", len(cat.hardware2Programs),
	)
	return cat, nil
}

func (b *CatalogBuilder) parseMaster(cat *Catalog, path string) error {
	var doc xmlMaster
	if err := decodeXMLFile(path, &doc); err != nil {
		return err
	}

	for _, x := range doc.DatapointTypes {
		a := newAttrs(masterFile, "DatapointType")
		dpt := DatapointType{
			ID:     a.String("Id", x.ID),
			Number: a.String("Number", x.Number),
			Name:   a.String("Name", x.Name),
			Text:   a.String("Text", x.Text),
		}
		if err := a.Err(); err != nil {
			return err
		}
		cat.datapoints[dpt.ID] = dpt

		for _, sx := range x.Subtypes {
			sa := newAttrs(masterFile, "DatapointSubtype")
			sub := DatapointType{
				ID:   sa.String("Id", sx.ID),
				Name: sa.String("Name", sx.Name),
				Text: sa.String("Text", sx.Text),
			}
			n := sa.Int("Number", sx.Number)
			if err := sa.Err(); err != nil {
				return err
			}
			sub.Number = SubtypeNumber(dpt.Number, n)
			cat.datapoints[sub.ID] = sub
		}
	}

	for _, x := range doc.MediumTypes {
		a := newAttrs(masterFile, "MediumType")
		mt := MediumType{
			ID:     a.String("Id", x.ID),
			Number: a.Int("Number", x.Number),
			Name:   a.String("Name", x.Name),
			Text:   a.String("Text", x.Text),
		}
		if err := a.Err(); err != nil {
			return err
		}
		cat.mediumTypes[mt.ID] = mt
	}

	for _, x := range doc.SpaceUsages {
		a := newAttrs(masterFile, "SpaceUsage")
		su := SpaceUsage{
			ID:     a.String("Id", x.ID),
			Number: a.Int("Number", x.Number),
			Text:   a.String("Text", x.Text),
		}
		if err := a.Err(); err != nil {
			return err
		}
		cat.spaceUsages[su.ID] = su
	}

	for _, x := range doc.Manufacturers {
		a := newAttrs(masterFile, "Manufacturer")
		m := Manufacturer{
			ID:                a.String("Id", x.ID),
			KnxManufacturerID: a.Int("KnxManufacturerId", x.KnxManufacturerID),
			Name:              a.String("Name", x.Name),
		}
		if err := a.Err(); err != nil {
			return err
		}
		cat.manufacturers[m.ID] = m
	}

	return nil
}

// findHardwareFiles returns every Hardware.xml below root. WalkDir visits
// in lexical order, so the result is deterministic.
func findHardwareFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == hardwareFile {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning for %s: %w", hardwareFile, err)
	}
	return files, nil
}

func (b *CatalogBuilder) parseHardware(cat *Catalog, stagedDir, path string) ([]pendingH2P, error) {
	rel, err := filepath.Rel(stagedDir, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	var doc xmlHardwareFile
	if err := decodeXMLFile(path, &doc); err != nil {
		return nil, err
	}

	var pending []pendingH2P
	for _, xm := range doc.Manufacturers {
		a := newAttrs(rel, "Manufacturer")
		mfrID := a.String("RefId", xm.RefID)
		if err := a.Err(); err != nil {
			return nil, err
		}
		mfr, err := cat.Manufacturer(mfrID)
		if err != nil {
			return nil, withReferrer(err, rel)
		}

		for _, xh := range xm.Hardware {
			for _, xp := range xh.Products {
				pa := newAttrs(rel, "Product")
				prod := Product{
					ID:           pa.String("Id", xp.ID),
					Text:         pa.String("Text", xp.Text),
					OrderNumber:  pa.String("OrderNumber", xp.OrderNumber),
					Manufacturer: mfr,
				}
				if err := pa.Err(); err != nil {
					return nil, err
				}
				cat.products[prod.ID] = prod
			}

			for _, xhp := range xh.Hardware2Programs {
				p, err := parseHardware2Program(cat, rel, filepath.Join(stagedDir, mfrID), xhp)
				if err != nil {
					return nil, err
				}
				pending = append(pending, p)
			}
		}
	}

	b.logger.Debug("hardware parsed", "file", rel, "mappings", len(pending))
	return pending, nil
}

func parseHardware2Program(cat *Catalog, file, programDir string, x xmlHardware2Program) (pendingH2P, error) {
	a := newAttrs(file, "Hardware2Program")
	h2p := Hardware2Program{
		ID:          a.String("Id", x.ID),
		MediumTypes: []MediumType{},
		ComObjects:  make(map[string]ComObject),
	}
	mediumList := a.OptString(x.MediumTypes)
	if err := a.Err(); err != nil {
		return pendingH2P{}, err
	}

	var ids []string
	if mediumList != nil {
		ids = strings.Fields(*mediumList)
	}
	for _, id := range ids {
		mt, err := cat.MediumType(id)
		if err != nil {
			return pendingH2P{}, withReferrer(err, h2p.ID)
		}
		h2p.MediumTypes = append(h2p.MediumTypes, mt)
	}

	p := pendingH2P{h2p: h2p, programDir: programDir}
	for _, ref := range x.ProgramRefs {
		ra := newAttrs(file, "ApplicationProgramRef")
		id := ra.String("RefId", ref.RefID)
		if err := ra.Err(); err != nil {
			return pendingH2P{}, err
		}
		p.programs = append(p.programs, id)
	}
	if len(p.programs) > 0 {
		p.h2p.ApplicationProgramID = p.programs[0]
	}
	return p, nil
}

func programFileKey(dir, programID string) string {
	return filepath.Join(dir, programID+".xml")
}

// parsePrograms parses every distinct program file named by pending.
// Workers only read the finished datapoint map, so they share cat safely.
// Errors are reported in sorted path order regardless of which worker
// failed first.
func (b *CatalogBuilder) parsePrograms(ctx context.Context, cat *Catalog, pending []pendingH2P) (map[string]map[string]ComObject, error) {
	type job struct {
		path      string
		programID string
	}

	seen := make(map[string]bool)
	var jobs []job
	for _, p := range pending {
		for _, id := range p.programs {
			path := programFileKey(p.programDir, id)
			if !seen[path] {
				seen[path] = true
				jobs = append(jobs, job{path: path, programID: id})
			}
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].path < jobs[j].path })

	results := make([]map[string]ComObject, len(jobs))
	errs := make([]error, len(jobs))

	var g errgroup.Group
	g.SetLimit(b.parallelism)
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			results[i], errs[i] = parseProgram(cat, j.path, j.programID)
			return errs[i]
		})
	}

	if g.Wait() != nil {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}

	out := make(map[string]map[string]ComObject, len(jobs))
	for i, j := range jobs {
		out[j.path] = results[i]
	}
	b.logger.Debug("application programs parsed", "count", len(jobs), "workers", b.parallelism)
	return out, nil
}

// parseProgram builds the effective object table of one application
// program: templates first, then each ComObjectRef merged over the
// template it names. The table is keyed by ComObjectRef ID.
func parseProgram(dpts datapointLookup, path, programID string) (map[string]ComObject, error) {
	file := filepath.Base(filepath.Dir(path)) + "/" + filepath.Base(path)

	var doc xmlProgramFile
	if err := decodeXMLFile(path, &doc); err != nil {
		return nil, err
	}

	var prog *xmlApplicationProgram
	for i := range doc.Programs {
		if doc.Programs[i].ID != nil && *doc.Programs[i].ID == programID {
			prog = &doc.Programs[i]
			break
		}
	}
	if prog == nil {
		return nil, &UnresolvedReferenceError{Kind: "ApplicationProgram", ID: programID, Referrer: file}
	}

	templates := make(map[string]ComObject, len(prog.ComObjects))
	for _, x := range prog.ComObjects {
		a := newAttrs(file, "ComObject")
		id := a.String("Id", x.ID)
		co := Merge(ComObject{}, parseComObject(a, x.xmlComObjectAttrs, dpts))
		if err := a.Err(); err != nil {
			return nil, err
		}
		templates[id] = co
	}

	table := make(map[string]ComObject, len(prog.ComObjectRefs))
	for _, x := range prog.ComObjectRefs {
		a := newAttrs(file, "ComObjectRef")
		id := a.String("Id", x.ID)
		refID := a.String("RefId", x.RefID)
		override := parseComObject(a, x.xmlComObjectAttrs, dpts)
		if err := a.Err(); err != nil {
			return nil, err
		}
		base, ok := templates[refID]
		if !ok {
			return nil, &UnresolvedReferenceError{Kind: "ComObject", ID: refID, Referrer: id}
		}
		table[id] = Merge(base, override)
	}
	return table, nil
}

// withReferrer fills in the referrer of an *UnresolvedReferenceError.
func withReferrer(err error, referrer string) error {
	var ue *UnresolvedReferenceError
	if errors.As(err, &ue) && ue.Referrer == "" {
		out := *ue
		out.Referrer = referrer
		return &out
	}
	return err
}
