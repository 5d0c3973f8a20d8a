// Package model provides domain model for xlframe
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is the parent of every configuration error: unsupported
	// style actions, spreadsheet versions, image types and data types.
	ErrConfiguration = errors.New("xlframe: configuration error")

	// ErrUnsupportedStyleAction is returned for a style action outside the known set
	ErrUnsupportedStyleAction = fmt.Errorf("%w: unsupported style action", ErrConfiguration)

	// ErrUnsupportedVersion is returned for a spreadsheet version that cannot be opened or saved
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported spreadsheet version", ErrConfiguration)

	// ErrUnsupportedImage is returned for an image file extension the codec cannot embed
	ErrUnsupportedImage = fmt.Errorf("%w: unsupported image file extension", ErrConfiguration)

	// ErrUnknownDataType is returned when a DataType outside the known set reaches a switch
	ErrUnknownDataType = fmt.Errorf("%w: unknown data type", ErrConfiguration)

	// ErrNotFound is the parent of lookup failures
	ErrNotFound = errors.New("xlframe: not found")

	// ErrSheetNotFound is returned for an unknown worksheet
	ErrSheetNotFound = fmt.Errorf("%w: sheet", ErrNotFound)

	// ErrNameNotFound is returned for an unknown defined name
	ErrNameNotFound = fmt.Errorf("%w: name", ErrNotFound)

	// ErrNameAlreadyExists is returned when defining a name that exists without overwrite
	ErrNameAlreadyExists = errors.New("xlframe: name already exists")

	// ErrBoundsUndetermined is returned when auto-detected bounds cannot be resolved
	ErrBoundsUndetermined = errors.New("xlframe: bounds cannot be determined")

	// ErrCellClassification is returned when a cell cannot be classified
	// (unevaluated formula, error cell, unknown cell kind)
	ErrCellClassification = errors.New("xlframe: cell classification failed")

	// ErrDimensionMismatch is returned when a column length disagrees with the frame
	ErrDimensionMismatch = errors.New("xlframe: dimension mismatch")

	// ErrInvalidReference is returned for a malformed cell or area reference
	ErrInvalidReference = errors.New("xlframe: invalid reference")
)
