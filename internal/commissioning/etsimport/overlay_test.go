package etsimport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

// fakeDatapoints knows DPST-1-1 and DPST-5-1 only.
type fakeDatapoints struct{}

func (fakeDatapoints) Datapoint(id string) (DatapointType, error) {
	switch id {
	case "DPST-1-1":
		return DatapointType{ID: id, Number: "1.001", Name: "DPT_Switch"}, nil
	case "DPST-5-1":
		return DatapointType{ID: id, Number: "5.001", Name: "DPT_Scaling"}, nil
	}
	return DatapointType{}, &UnresolvedReferenceError{Kind: "DatapointType", ID: id}
}

func TestMerge_KeepsUnsetFields(t *testing.T) {
	base := ComObject{Number: intp(1)}
	override := ComObject{Text: strp("two")}

	got := Merge(base, override)

	require.NotNil(t, got.Number)
	assert.Equal(t, 1, *got.Number)
	require.NotNil(t, got.Text)
	assert.Equal(t, "two", *got.Text)

	// Inputs are untouched.
	assert.Nil(t, base.Text)
	assert.Nil(t, override.Number)
}

func TestMerge_OverrideWins(t *testing.T) {
	base := ComObject{
		Number:         intp(0),
		Text:           strp("Channel A"),
		ReadFlag:       boolp(false),
		DatapointTypes: []DatapointType{{ID: "DPST-1-1"}},
	}
	override := ComObject{
		Text:           strp("Light"),
		ReadFlag:       boolp(true),
		DatapointTypes: []DatapointType{},
	}

	got := Merge(base, override)

	assert.Equal(t, 0, *got.Number)
	assert.Equal(t, "Light", *got.Text)
	assert.True(t, *got.ReadFlag)
	assert.NotNil(t, got.DatapointTypes)
	assert.Empty(t, got.DatapointTypes)
}

func TestMerge_FoldsLeftToRight(t *testing.T) {
	template := ComObject{Text: strp("t"), FunctionText: strp("t"), Priority: ptr(PriorityLow)}
	programRef := ComObject{FunctionText: strp("p")}
	instance := ComObject{Priority: ptr(PriorityAlert)}

	got := Merge(Merge(Merge(ComObject{}, template), programRef), instance)

	assert.Equal(t, "t", *got.Text)
	assert.Equal(t, "p", *got.FunctionText)
	assert.Equal(t, PriorityAlert, *got.Priority)
}

func ptr[T any](v T) *T { return &v }

func TestParseComObject(t *testing.T) {
	a := newAttrs("test.xml", "ComObject")
	got := parseComObject(a, xmlComObjectAttrs{
		Number:        strp("7"),
		ObjectSize:    strp("2 Bytes"),
		Priority:      strp("High"),
		ReadFlag:      strp("Enabled"),
		WriteFlag:     strp("Disabled"),
		DatapointType: strp("DPST-1-1 DPST-99-99 DPST-5-1"),
	}, fakeDatapoints{})
	require.NoError(t, a.Err())

	assert.Equal(t, 7, *got.Number)
	assert.Equal(t, ObjectSize("2 Bytes"), *got.ObjectSize)
	assert.Equal(t, PriorityHigh, *got.Priority)
	assert.True(t, *got.ReadFlag)
	assert.False(t, *got.WriteFlag)
	assert.Nil(t, got.Text)
	assert.Nil(t, got.TransmitFlag)

	require.Len(t, got.DatapointTypes, 2)
	assert.Equal(t, "DPST-1-1", got.DatapointTypes[0].ID)
	assert.Equal(t, "DPST-5-1", got.DatapointTypes[1].ID)
}

func TestParseComObject_NoDatapointAttributeIsNil(t *testing.T) {
	a := newAttrs("test.xml", "ComObject")
	got := parseComObject(a, xmlComObjectAttrs{Text: strp("x")}, fakeDatapoints{})
	require.NoError(t, a.Err())
	assert.Nil(t, got.DatapointTypes)

	a = newAttrs("test.xml", "ComObject")
	got = parseComObject(a, xmlComObjectAttrs{DatapointType: strp("DPST-99-99")}, fakeDatapoints{})
	require.NoError(t, a.Err())
	assert.NotNil(t, got.DatapointTypes)
	assert.Empty(t, got.DatapointTypes)
}

func TestParseComObject_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		x    xmlComObjectAttrs
		attr string
	}{
		{"flag", xmlComObjectAttrs{ReadFlag: strp("Yes")}, "ReadFlag"},
		{"object size", xmlComObjectAttrs{ObjectSize: strp("51 Bytes")}, "ObjectSize"},
		{"object size bits", xmlComObjectAttrs{ObjectSize: strp("8 Bit")}, "ObjectSize"},
		{"priority", xmlComObjectAttrs{Priority: strp("Urgent")}, "Priority"},
		{"number", xmlComObjectAttrs{Number: strp("one")}, "Number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAttrs("test.xml", "ComObject")
			parseComObject(a, tt.x, fakeDatapoints{})

			err := a.Err()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchemaViolation))

			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.attr, se.Attribute)
		})
	}
}

func TestValidObjectSizes(t *testing.T) {
	for _, s := range []ObjectSize{"1 Bit", "7 Bit", "1 Byte", "2 Bytes", "50 Bytes", ObjectSizeLegacyVarData} {
		if !validObjectSizes[s] {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []ObjectSize{"0 Bit", "1 Bytes", "2 Byte", "51 Bytes", ""} {
		if validObjectSizes[s] {
			t.Errorf("%q should be invalid", s)
		}
	}
}
