package xlframe

import (
	"github.com/nao1215/xlframe/domain/model"
)

// DataType is the semantic kind of a column: Boolean, Numeric, DateTime or String.
type DataType = model.DataType

// Column data types, from narrowest to widest.
const (
	Boolean  = model.Boolean
	Numeric  = model.Numeric
	DateTime = model.DateTime
	String   = model.String
)

// DataFrame is an ordered collection of named, typed columns sharing one row count.
type DataFrame = model.DataFrame

// Column is an immutable typed column with a missing bitmap.
type Column = model.Column

// ConversionWarning reports a cell that became missing during a read.
type ConversionWarning = model.ConversionWarning

// ErrorCellPolicy decides how error cells (#DIV/0!, #N/A, ...) are read.
type ErrorCellPolicy = model.ErrorCellPolicy

const (
	// ErrorCellStop aborts the read on the first error cell
	ErrorCellStop = model.ErrorCellStop
	// ErrorCellWarn reads error cells as missing values and reports a warning
	ErrorCellWarn = model.ErrorCellWarn
)

// NewDataFrame creates an empty DataFrame.
func NewDataFrame() *DataFrame {
	return model.NewDataFrame()
}

// NewColumn creates a column of type dt. A nil value is missing.
func NewColumn(dt DataType, values ...any) (*Column, error) {
	return model.NewColumn(dt, values)
}
