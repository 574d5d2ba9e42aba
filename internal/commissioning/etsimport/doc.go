// Package etsimport decodes staged KNX ETS project archives.
//
// ETS (Engineering Tool Software) is the standard configuration tool for KNX
// installations. A .knxproj archive, once staged by package archive, holds
// three kinds of XML:
//
//   - knx_master.xml: global master data (datapoint types, media,
//     manufacturers, space usages)
//   - <manufacturer>/Hardware.xml and <manufacturer>/<program>.xml:
//     products, hardware-to-program mappings and communication objects
//   - P-xxxx/project.xml and P-xxxx/<n>.xml: the project itself
//
// Decoding builds a Catalog from the first two and a Project from the third.
//
// # Identifiers
//
// Catalog entries are keyed by their global IDs ("M-0083_H-0001-1_P-..."),
// exactly as written. Project entries are keyed by relative IDs: the global
// ID with the "<project id>-<installation>_" prefix removed ("A-1", "GA-7").
// RefResolver performs the stripping; every ID and reference read from an
// installation file goes through it.
//
// # Communication objects
//
// A communication object's effective attributes come from three layers:
//
//	ComObject (program template)
//	  <- ComObjectRef (program override, keyed by its own ID)
//	    <- ComObjectInstanceRef (device override)
//
// Each layer only sets the attributes it carries. The first two layers are
// merged while the Catalog is built. The device layer is stored on the
// Device as-is; Catalog.EffectiveComObjects merges it on request.
//
// # Usage
//
//	dec := etsimport.NewDecoder(etsimport.Options{StagingRoot: root}, logger)
//	res, err := dec.Decode(ctx, "Office.knxproj", password)
//	if err != nil {
//	    return err
//	}
//	for id, ga := range res.Project.GroupAddresses {
//	    fmt.Println(id, ga.Address)
//	}
package etsimport
