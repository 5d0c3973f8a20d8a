package model

import "fmt"

// WarningKind tells why a cell became missing during a column build.
type WarningKind int

const (
	// WarningDisallowed is a conversion rejected because forced conversion is off
	WarningDisallowed WarningKind = iota
	// WarningFailed is a conversion that was attempted and failed
	WarningFailed
	// WarningUnsupported is a conversion that is never possible
	WarningUnsupported
	// WarningErrorCell is an error cell read under the warn policy
	WarningErrorCell
)

// ConversionWarning is a non-fatal, per-cell problem found while building a
// column. The cell ends up missing and the build continues.
type ConversionWarning struct {
	Kind WarningKind
	// Cell is the address of the offending cell, e.g. "Sheet1!C7".
	Cell string
	// Value is the source value rendered as text.
	Value string
	From  DataType
	To    DataType
}

// String renders the warning for logs and reports.
func (w ConversionWarning) String() string {
	switch w.Kind {
	case WarningErrorCell:
		return fmt.Sprintf("cell %s: error value %s read as missing", w.Cell, w.Value)
	case WarningDisallowed:
		return fmt.Sprintf("cell %s: conversion of %s value %q to %s requires forced conversion", w.Cell, w.From, w.Value, w.To)
	case WarningUnsupported:
		return fmt.Sprintf("cell %s: conversion of %s value %q to %s is not supported", w.Cell, w.From, w.Value, w.To)
	default:
		return fmt.Sprintf("cell %s: could not convert %s value %q to %s", w.Cell, w.From, w.Value, w.To)
	}
}
