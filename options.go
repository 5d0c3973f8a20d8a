package xlframe

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nao1215/xlframe/domain/model"
)

const (
	// DefaultStyleNamePrefix is the prefix used by StyleActionNamePrefix lookups
	DefaultStyleNamePrefix = "XLFRAME"
	// DefaultDateFormat is the number format applied to DateTime cells by the builtin palette
	DefaultDateFormat = "yyyy-mm-dd hh:mm:ss"
)

// StyleAction selects how a write chooses cell styles.
type StyleAction int

const (
	// StyleActionBuiltin applies the workbook's builtin palette
	StyleActionBuiltin StyleAction = iota
	// StyleActionReuse samples the styles already present at the destination
	StyleActionReuse
	// StyleActionNamePrefix looks styles up by name in the workbook style registry
	StyleActionNamePrefix
	// StyleActionNone leaves cell styles untouched
	StyleActionNone
)

// String returns the string representation of StyleAction
func (a StyleAction) String() string {
	switch a {
	case StyleActionBuiltin:
		return "builtin"
	case StyleActionReuse:
		return "reuse"
	case StyleActionNamePrefix:
		return "name-prefix"
	case StyleActionNone:
		return "none"
	default:
		return fmt.Sprintf("StyleAction(%d)", int(a))
	}
}

func (a StyleAction) validate() error {
	switch a {
	case StyleActionBuiltin, StyleActionReuse, StyleActionNamePrefix, StyleActionNone:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedStyleAction, int(a))
	}
}

// Options configures a Workbook.
//
// Example:
//
//	options := xlframe.NewOptions().
//		WithCreate(true).
//		WithMissingValues("NA", -999)
//
//	wb, err := xlframe.Open("report.xlsx", options)
type Options struct {
	// Create creates the workbook when the file does not exist
	Create bool
	// StyleAction selects the write style policy
	StyleAction StyleAction
	// StyleNamePrefix is the prefix for StyleActionNamePrefix lookups
	StyleNamePrefix string
	// MissingValues lists string and number sentinels read as missing
	MissingValues []any
	// DateFormat is the number format of DateTime cells written with the builtin palette
	DateFormat string
	// Logger receives conversion warnings and style fallbacks
	Logger *logrus.Logger
}

// NewOptions creates default workbook options (no creation, builtin styles,
// no missing-value sentinels).
func NewOptions() Options {
	return Options{
		StyleAction:     StyleActionBuiltin,
		StyleNamePrefix: DefaultStyleNamePrefix,
		DateFormat:      DefaultDateFormat,
	}
}

// WithCreate creates the workbook when the file does not exist.
func (o Options) WithCreate(create bool) Options {
	o.Create = create
	return o
}

// WithStyleAction sets the write style policy.
func (o Options) WithStyleAction(action StyleAction) Options {
	o.StyleAction = action
	return o
}

// WithStyleNamePrefix sets the prefix for name based style lookups.
func (o Options) WithStyleNamePrefix(prefix string) Options {
	o.StyleNamePrefix = prefix
	return o
}

// WithMissingValues sets the sentinels read as missing. Each value must be a
// string or a number.
func (o Options) WithMissingValues(values ...any) Options {
	o.MissingValues = values
	return o
}

// WithDateFormat sets the number format of DateTime cells, e.g. "yyyy-mm-dd".
func (o Options) WithDateFormat(format string) Options {
	o.DateFormat = format
	return o
}

// WithLogger sets the logger.
func (o Options) WithLogger(logger *logrus.Logger) Options {
	o.Logger = logger
	return o
}

// ReadOptions configures ReadWorksheet and ReadNamedRegion.
type ReadOptions struct {
	// Header reads the first row of the region as column names
	Header bool
	// ColTypes forces column types. Empty infers every column, a single
	// entry applies to all columns, otherwise one entry per column.
	ColTypes []DataType
	// ForceConversion enables lossy and parsing conversions
	ForceConversion bool
	// DateTimeLayout is the Go time layout for DateTime <-> String conversion
	DateTimeLayout string
	// ErrorCells selects how error cells are read
	ErrorCells ErrorCellPolicy
	// UseCachedValues reads the cached result of formula cells instead of evaluating them
	UseCachedValues bool
}

// NewReadOptions creates default read options (header row, inferred types,
// strict conversion).
func NewReadOptions() ReadOptions {
	return ReadOptions{
		Header:     true,
		ErrorCells: ErrorCellStop,
	}
}

// WithHeader sets whether the first row holds column names.
func (o ReadOptions) WithHeader(header bool) ReadOptions {
	o.Header = header
	return o
}

// WithColTypes forces the column types.
func (o ReadOptions) WithColTypes(types ...DataType) ReadOptions {
	o.ColTypes = types
	return o
}

// WithForceConversion enables lossy and parsing conversions.
func (o ReadOptions) WithForceConversion(force bool) ReadOptions {
	o.ForceConversion = force
	return o
}

// WithDateTimeLayout sets the Go time layout used to render and parse DateTime text.
func (o ReadOptions) WithDateTimeLayout(layout string) ReadOptions {
	o.DateTimeLayout = layout
	return o
}

// WithErrorCells sets the error cell policy.
func (o ReadOptions) WithErrorCells(policy ErrorCellPolicy) ReadOptions {
	o.ErrorCells = policy
	return o
}

// WithCachedValues reads cached formula results instead of evaluating formulas.
func (o ReadOptions) WithCachedValues(cached bool) ReadOptions {
	o.UseCachedValues = cached
	return o
}

// columnTypes returns the forced type of each column, or nil to infer.
func (o ReadOptions) columnTypes(cols int) ([]DataType, error) {
	switch len(o.ColTypes) {
	case 0:
		return nil, nil
	case 1:
		types := make([]DataType, cols)
		for i := range types {
			types[i] = o.ColTypes[0]
		}
		return types, nil
	case cols:
		return o.ColTypes, nil
	default:
		return nil, fmt.Errorf("%w: %d column types for %d columns", ErrDimensionMismatch, len(o.ColTypes), cols)
	}
}

func (o ReadOptions) builderConfig(missing model.MissingValues, date1904 bool) model.BuilderConfig {
	policy := model.CoercionStrict
	if o.ForceConversion {
		policy = model.CoercionForce
	}
	return model.BuilderConfig{
		Policy:         policy,
		MissingValues:  missing,
		ErrorCells:     o.ErrorCells,
		DateTimeLayout: o.DateTimeLayout,
		Date1904:       date1904,
	}
}

// WriteOptions configures WriteWorksheet and WriteNamedRegion.
type WriteOptions struct {
	// Header writes the column names as the first row when the frame has any
	Header bool
	// Overwrite replaces an existing defined name
	Overwrite bool
	// Location anchors a named region, e.g. "Sheet1!$B$2". Empty keeps the
	// top-left cell of the existing name.
	Location string
	// StartRow is the 0-based worksheet row of the top-left cell
	StartRow int
	// StartCol is the 0-based worksheet column of the top-left cell
	StartCol int
}

// NewWriteOptions creates default write options (header row, anchored at A1,
// no overwrite).
func NewWriteOptions() WriteOptions {
	return WriteOptions{Header: true}
}

// WithHeader sets whether column names are written.
func (o WriteOptions) WithHeader(header bool) WriteOptions {
	o.Header = header
	return o
}

// WithOverwrite allows replacing an existing defined name.
func (o WriteOptions) WithOverwrite(overwrite bool) WriteOptions {
	o.Overwrite = overwrite
	return o
}

// WithLocation anchors a named region at the given cell reference.
func (o WriteOptions) WithLocation(location string) WriteOptions {
	o.Location = location
	return o
}

// WithStart anchors a worksheet write at the given 0-based cell.
func (o WriteOptions) WithStart(row, col int) WriteOptions {
	o.StartRow = row
	o.StartCol = col
	return o
}

const unspecified = -1

// Bounds selects a worksheet rectangle. Every bound left unspecified is
// detected from the sheet content. Rows and columns are 0-based and
// inclusive; end bounds may also be given as counts.
type Bounds struct {
	startRow, startCol int
	endRow, endCol     int
	rowCount, colCount int
}

// NewBounds creates fully auto-detected bounds.
func NewBounds() Bounds {
	return Bounds{
		startRow: unspecified,
		startCol: unspecified,
		endRow:   unspecified,
		endCol:   unspecified,
		rowCount: unspecified,
		colCount: unspecified,
	}
}

// WithStartRow sets the first row.
func (b Bounds) WithStartRow(row int) Bounds {
	b.startRow = row
	return b
}

// WithStartCol sets the first column.
func (b Bounds) WithStartCol(col int) Bounds {
	b.startCol = col
	return b
}

// WithEndRow sets the last row.
func (b Bounds) WithEndRow(row int) Bounds {
	b.endRow = row
	b.rowCount = unspecified
	return b
}

// WithEndCol sets the last column.
func (b Bounds) WithEndCol(col int) Bounds {
	b.endCol = col
	b.colCount = unspecified
	return b
}

// WithRowCount sets the number of rows, header included.
func (b Bounds) WithRowCount(n int) Bounds {
	b.rowCount = n
	b.endRow = unspecified
	return b
}

// WithColCount sets the number of columns.
func (b Bounds) WithColCount(n int) Bounds {
	b.colCount = n
	b.endCol = unspecified
	return b
}

func (b Bounds) validate() error {
	for _, v := range []int{b.startRow, b.startCol, b.endRow, b.endCol} {
		if v < unspecified {
			return fmt.Errorf("%w: negative bound %d", ErrInvalidReference, v)
		}
	}
	if b.rowCount == 0 || b.rowCount < unspecified || b.colCount == 0 || b.colCount < unspecified {
		return fmt.Errorf("%w: row and column counts must be positive", ErrInvalidReference)
	}
	return nil
}

// SaveOptions configures Write.
type SaveOptions struct {
	// Compression compresses the written workbook
	Compression CompressionType
}

// NewSaveOptions creates default save options (no compression).
func NewSaveOptions() SaveOptions {
	return SaveOptions{Compression: CompressionNone}
}

// WithCompression compresses the written workbook.
func (o SaveOptions) WithCompression(compression CompressionType) SaveOptions {
	o.Compression = compression
	return o
}
