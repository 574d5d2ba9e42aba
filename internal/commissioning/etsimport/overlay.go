package etsimport

import "strings"

// xmlComObjectAttrs are the attributes a communication object carries at
// every layer. Each is nil when absent.
type xmlComObjectAttrs struct {
	Number            *string `xml:"Number,attr"`
	Text              *string `xml:"Text,attr"`
	FunctionText      *string `xml:"FunctionText,attr"`
	ObjectSize        *string `xml:"ObjectSize,attr"`
	Priority          *string `xml:"Priority,attr"`
	ReadFlag          *string `xml:"ReadFlag,attr"`
	WriteFlag         *string `xml:"WriteFlag,attr"`
	CommunicationFlag *string `xml:"CommunicationFlag,attr"`
	TransmitFlag      *string `xml:"TransmitFlag,attr"`
	UpdateFlag        *string `xml:"UpdateFlag,attr"`
	ReadOnInitFlag    *string `xml:"ReadOnInitFlag,attr"`
	DatapointType     *string `xml:"DatapointType,attr"`
}

// datapointLookup resolves datapoint IDs. *Catalog satisfies it.
type datapointLookup interface {
	Datapoint(id string) (DatapointType, error)
}

// parseComObject reads the attributes present on one element into a sparse
// ComObject. Datapoint references are resolved immediately; references
// the lookup does not know are dropped.
func parseComObject(a *attrs, x xmlComObjectAttrs, dpts datapointLookup) ComObject {
	co := ComObject{
		Number:            a.OptInt("Number", x.Number),
		Text:              a.OptString(x.Text),
		FunctionText:      a.OptString(x.FunctionText),
		ReadFlag:          a.OptFlag("ReadFlag", x.ReadFlag),
		WriteFlag:         a.OptFlag("WriteFlag", x.WriteFlag),
		CommunicationFlag: a.OptFlag("CommunicationFlag", x.CommunicationFlag),
		TransmitFlag:      a.OptFlag("TransmitFlag", x.TransmitFlag),
		UpdateFlag:        a.OptFlag("UpdateFlag", x.UpdateFlag),
		ReadOnInitFlag:    a.OptFlag("ReadOnInitFlag", x.ReadOnInitFlag),
	}

	if x.ObjectSize != nil {
		size := ObjectSize(*x.ObjectSize)
		if validObjectSizes[size] {
			co.ObjectSize = &size
		} else {
			a.invalid("ObjectSize", *x.ObjectSize, "unknown object size")
		}
	}

	if x.Priority != nil {
		p := Priority(*x.Priority)
		switch p {
		case PriorityLow, PriorityHigh, PriorityAlert:
			co.Priority = &p
		default:
			a.invalid("Priority", *x.Priority, "want Low, High or Alert")
		}
	}

	if x.DatapointType != nil {
		co.DatapointTypes = resolveDatapoints(*x.DatapointType, dpts)
	}

	return co
}

// resolveDatapoints resolves a space-separated datapoint list, keeping
// only known entries. The result is never nil.
func resolveDatapoints(list string, dpts datapointLookup) []DatapointType {
	out := []DatapointType{}
	for _, id := range strings.Fields(list) {
		if dpt, err := dpts.Datapoint(id); err == nil {
			out = append(out, dpt)
		}
	}
	return out
}

// Merge applies a sparse override to base and returns the result. Every
// field set on override replaces the base field; unset fields leave the
// base untouched. Neither argument is modified.
//
// Merge is the one overlay primitive for all three layers: template,
// program override and device instance. Folding left to right gives the
// effective object:
//
//	Merge(Merge(Merge(ComObject{}, template), programRef), instanceRef)
func Merge(base, override ComObject) ComObject {
	out := base
	if override.Number != nil {
		out.Number = override.Number
	}
	if override.Text != nil {
		out.Text = override.Text
	}
	if override.FunctionText != nil {
		out.FunctionText = override.FunctionText
	}
	if override.ObjectSize != nil {
		out.ObjectSize = override.ObjectSize
	}
	if override.Priority != nil {
		out.Priority = override.Priority
	}
	if override.ReadFlag != nil {
		out.ReadFlag = override.ReadFlag
	}
	if override.WriteFlag != nil {
		out.WriteFlag = override.WriteFlag
	}
	if override.CommunicationFlag != nil {
		out.CommunicationFlag = override.CommunicationFlag
	}
	if override.TransmitFlag != nil {
		out.TransmitFlag = override.TransmitFlag
	}
	if override.UpdateFlag != nil {
		out.UpdateFlag = override.UpdateFlag
	}
	if override.ReadOnInitFlag != nil {
		out.ReadOnInitFlag = override.ReadOnInitFlag
	}
	if override.DatapointTypes != nil {
		out.DatapointTypes = override.DatapointTypes
	}
	return out
}
