// Package model provides domain model for xlframe
package model

import (
	"fmt"
	"strings"
)

// DataType is the semantic kind of a column.
type DataType int

const (
	// Boolean represents logical values
	Boolean DataType = iota
	// Numeric represents double precision numbers
	Numeric
	// DateTime represents points in time (stored in cells as date serials)
	DateTime
	// String represents text
	String
)

// DataTypes lists every DataType from narrowest to widest.
var DataTypes = []DataType{Boolean, Numeric, DateTime, String}

const (
	dataTypeBoolean  = "Boolean"
	dataTypeNumeric  = "Numeric"
	dataTypeDateTime = "DateTime"
	dataTypeString   = "String"
)

// Rank returns the position of the type in the widening order
// Boolean < Numeric < DateTime < String.
// The order is spelled out explicitly so it never depends on the
// declaration order of the constants.
func (dt DataType) Rank() (int, error) {
	switch dt {
	case Boolean:
		return 0, nil
	case Numeric:
		return 1, nil
	case DateTime:
		return 2, nil
	case String:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownDataType, int(dt))
	}
}

// IsValid reports whether dt is one of the four known types.
func (dt DataType) IsValid() bool {
	_, err := dt.Rank()
	return err == nil
}

// IsMaximal reports whether no type is wider than dt.
func (dt DataType) IsMaximal() bool {
	return dt == String
}

// String returns the type name used in style names and messages
func (dt DataType) String() string {
	switch dt {
	case Boolean:
		return dataTypeBoolean
	case Numeric:
		return dataTypeNumeric
	case DateTime:
		return dataTypeDateTime
	case String:
		return dataTypeString
	default:
		return fmt.Sprintf("DataType(%d)", int(dt))
	}
}

// ParseDataType parses a type name case-insensitively.
func ParseDataType(name string) (DataType, error) {
	for _, dt := range DataTypes {
		if strings.EqualFold(strings.TrimSpace(name), dt.String()) {
			return dt, nil
		}
	}
	return Boolean, fmt.Errorf("%w: %q", ErrUnknownDataType, name)
}

// Wider returns the wider of a and b. Widening only ever moves towards
// String; it never narrows.
func Wider(a, b DataType) (DataType, error) {
	ra, err := a.Rank()
	if err != nil {
		return a, err
	}
	rb, err := b.Rank()
	if err != nil {
		return b, err
	}
	if rb > ra {
		return b, nil
	}
	return a, nil
}
