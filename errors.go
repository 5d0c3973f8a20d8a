package xlframe

import (
	"fmt"
	"strings"

	"github.com/nao1215/xlframe/domain/model"
)

// Error sentinels. Configuration and lookup errors form two families so that
// callers can test either the family or the precise cause with errors.Is.
var (
	// ErrConfiguration indicates an invalid setting or an unsupported feature
	ErrConfiguration = model.ErrConfiguration

	// ErrUnsupportedStyleAction indicates a style action outside the known set
	ErrUnsupportedStyleAction = model.ErrUnsupportedStyleAction

	// ErrUnsupportedVersion indicates a workbook file extension that cannot be opened or saved
	ErrUnsupportedVersion = model.ErrUnsupportedVersion

	// ErrUnsupportedImage indicates an image file extension that cannot be embedded
	ErrUnsupportedImage = model.ErrUnsupportedImage

	// ErrUnknownDataType indicates a DataType outside the known set
	ErrUnknownDataType = model.ErrUnknownDataType

	// ErrNotFound indicates a missing sheet or defined name
	ErrNotFound = model.ErrNotFound

	// ErrSheetNotFound indicates an unknown worksheet
	ErrSheetNotFound = model.ErrSheetNotFound

	// ErrNameNotFound indicates an unknown defined name
	ErrNameNotFound = model.ErrNameNotFound

	// ErrNameAlreadyExists indicates a defined name clash without overwrite
	ErrNameAlreadyExists = model.ErrNameAlreadyExists

	// ErrBoundsUndetermined indicates auto-detection found no rows or cells
	ErrBoundsUndetermined = model.ErrBoundsUndetermined

	// ErrCellClassification indicates a cell that cannot be read as data
	ErrCellClassification = model.ErrCellClassification

	// ErrDimensionMismatch indicates a column whose length disagrees with the frame
	ErrDimensionMismatch = model.ErrDimensionMismatch

	// ErrInvalidReference indicates a malformed cell or area reference
	ErrInvalidReference = model.ErrInvalidReference
)

// ErrorContext provides context for where an error occurred
type ErrorContext struct {
	Operation string
	FilePath  string
	Sheet     string
	Name      string
	Details   string
}

// NewErrorContext creates a new error context
func NewErrorContext(operation, filePath string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
		FilePath:  filePath,
	}
}

// WithSheet adds worksheet context to the error
func (ec *ErrorContext) WithSheet(sheet string) *ErrorContext {
	ec.Sheet = sheet
	return ec
}

// WithName adds defined name context to the error
func (ec *ErrorContext) WithName(name string) *ErrorContext {
	ec.Name = name
	return ec
}

// WithDetails adds details to the error context
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

// Error creates a formatted error with context
func (ec *ErrorContext) Error(baseErr error) error {
	var parts []string
	parts = append(parts, fmt.Sprintf("xlframe: %s failed", ec.Operation))

	if ec.FilePath != "" {
		parts = append(parts, "file: "+ec.FilePath)
	}

	if ec.Sheet != "" {
		parts = append(parts, "sheet: "+ec.Sheet)
	}

	if ec.Name != "" {
		parts = append(parts, "name: "+ec.Name)
	}

	if ec.Details != "" {
		parts = append(parts, "details: "+ec.Details)
	}

	context := strings.Join(parts, ", ")
	if baseErr != nil {
		return fmt.Errorf("%s: %w", context, baseErr)
	}
	return fmt.Errorf("%s", context)
}
