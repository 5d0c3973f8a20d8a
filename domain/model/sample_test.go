package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	missing, err := NewMissingValues("NA", -999)
	require.NoError(t, err)

	tests := []struct {
		name        string
		cell        RawCell
		wantMissing bool
		wantError   bool
		wantType    DataType
	}{
		{name: "blank", cell: RawCell{Kind: CellBlank}, wantMissing: true},
		{name: "boolean", cell: RawCell{Kind: CellBoolean, Bool: true}, wantType: Boolean},
		{name: "number", cell: RawCell{Kind: CellNumeric, Number: 3.5}, wantType: Numeric},
		{name: "number sentinel", cell: RawCell{Kind: CellNumeric, Number: -999}, wantMissing: true},
		{name: "date formatted number", cell: RawCell{Kind: CellNumeric, Number: 45292, DateFormatted: true}, wantType: DateTime},
		{name: "date formatted invalid serial", cell: RawCell{Kind: CellNumeric, Number: -5, DateFormatted: true}, wantType: Numeric},
		{name: "string", cell: RawCell{Kind: CellString, Text: "x"}, wantType: String},
		{name: "string sentinel", cell: RawCell{Kind: CellString, Text: "NA"}, wantMissing: true},
		{name: "sentinel match is exact", cell: RawCell{Kind: CellString, Text: "na"}, wantType: String},
		{name: "error cell", cell: RawCell{Kind: CellError, Text: "#DIV/0!"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := Classify("Sheet1!A1", tt.cell, missing, false)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMissing, s.IsMissing())
			assert.Equal(t, tt.wantError, s.IsError())
			if !tt.wantMissing && !tt.wantError {
				assert.Equal(t, tt.wantType, s.Type())
			}
		})
	}

	t.Run("formula is fatal", func(t *testing.T) {
		t.Parallel()
		_, err := Classify("A1", RawCell{Kind: CellFormula, Text: "SUM(A2:A3)"}, missing, false)
		assert.ErrorIs(t, err, ErrCellClassification)
	})

	t.Run("unknown is fatal", func(t *testing.T) {
		t.Parallel()
		_, err := Classify("A1", RawCell{Kind: CellUnknown}, missing, false)
		assert.ErrorIs(t, err, ErrCellClassification)
	})
}

func TestNewMissingValues(t *testing.T) {
	t.Parallel()

	mv, err := NewMissingValues("", "n/a", 0, int64(-1), 2.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "n/a"}, mv.Strings)
	assert.Equal(t, []float64{0, -1, 2.5}, mv.Numbers)
	assert.False(t, mv.IsEmpty())

	_, err = NewMissingValues(true)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSampleFromValue(t *testing.T) {
	t.Parallel()

	mv := MissingValues{Strings: []string{"-"}}

	s, err := SampleFromValue("r1", int64(7), mv)
	require.NoError(t, err)
	assert.Equal(t, Numeric, s.Type())
	assert.Equal(t, 7.0, s.Value())

	s, err = SampleFromValue("r2", []byte("-"), mv)
	require.NoError(t, err)
	assert.True(t, s.IsMissing())

	s, err = SampleFromValue("r3", nil, mv)
	require.NoError(t, err)
	assert.True(t, s.IsMissing())

	_, err = SampleFromValue("r4", struct{}{}, mv)
	assert.ErrorIs(t, err, ErrCellClassification)
}
