package model

import (
	"fmt"
)

// DataFrame is an ordered collection of named, typed columns that share
// one row count. Columns are append-only.
type DataFrame struct {
	// names holds the column names; "" means the column has no name.
	names []string
	// columns holds the typed column data.
	columns []*Column
	// rows is the row count, established by the first column.
	rows int
}

// NewDataFrame creates an empty DataFrame.
func NewDataFrame() *DataFrame {
	return &DataFrame{}
}

// AddColumn appends a column. The first column establishes the row count;
// every later column must have the same length.
func (df *DataFrame) AddColumn(name string, column *Column) error {
	if column == nil {
		return fmt.Errorf("%w: column %q is nil", ErrDimensionMismatch, name)
	}
	if len(df.columns) > 0 && column.Len() != df.rows {
		return fmt.Errorf("%w: column %q has %d rows, frame has %d", ErrDimensionMismatch, name, column.Len(), df.rows)
	}
	if len(df.columns) == 0 {
		df.rows = column.Len()
	}
	df.names = append(df.names, name)
	df.columns = append(df.columns, column)
	return nil
}

// ColumnCount returns the number of columns.
func (df *DataFrame) ColumnCount() int {
	return len(df.columns)
}

// RowCount returns the number of rows.
func (df *DataFrame) RowCount() int {
	return df.rows
}

// IsEmpty reports whether the frame has no columns.
func (df *DataFrame) IsEmpty() bool {
	return len(df.columns) == 0
}

// HasHeader reports whether at least one column has a name.
func (df *DataFrame) HasHeader() bool {
	for _, n := range df.names {
		if n != "" {
			return true
		}
	}
	return false
}

// Column returns the i-th column.
func (df *DataFrame) Column(i int) *Column {
	return df.columns[i]
}

// Name returns the i-th column name ("" when unnamed).
func (df *DataFrame) Name(i int) string {
	return df.names[i]
}

// Type returns the i-th column type.
func (df *DataFrame) Type(i int) DataType {
	return df.columns[i].Type()
}

// Names returns a copy of the column names.
func (df *DataFrame) Names() []string {
	out := make([]string, len(df.names))
	copy(out, df.names)
	return out
}

// ColumnByName returns the first column with the given name.
func (df *DataFrame) ColumnByName(name string) (*Column, bool) {
	for i, n := range df.names {
		if n == name {
			return df.columns[i], true
		}
	}
	return nil, false
}
