package xlframe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/nao1215/xlframe/domain/model"
)

// Workbook is an open spreadsheet file. It reads worksheets and named
// regions into DataFrames and writes DataFrames back with styles.
//
// A Workbook is not safe for concurrent use; callers must serialize access.
type Workbook struct {
	file        *excelize.File
	path        string
	version     Version
	compression CompressionType
	// readOnly is set for workbooks imported from the legacy format
	readOnly bool

	styleAction     StyleAction
	styleNamePrefix string
	dateFormat      string
	missing         model.MissingValues

	logger   *logrus.Logger
	codec    *cellCodec
	regions  *regionResolver
	registry *styleRegistry
	palette  stylePalette
}

// Open opens the workbook at path. The format is chosen from the file
// extension (.xlsx/.xlsm, or .xls which is read only); a trailing
// .gz, .bz2, .xz or .zst is decompressed transparently. With the Create
// option a missing file yields a new empty workbook that is written on Save.
func Open(path string, opts ...Options) (*Workbook, error) {
	options := NewOptions()
	if len(opts) > 0 {
		options = opts[0]
	}
	ec := NewErrorContext("open", path)

	if err := options.StyleAction.validate(); err != nil {
		return nil, ec.Error(err)
	}
	missing, err := model.NewMissingValues(options.MissingValues...)
	if err != nil {
		return nil, ec.Error(err)
	}

	factory := NewCompressionFactory()
	version := factory.DetectVersion(path)
	if version == VersionUnsupported {
		return nil, ec.WithDetails(filepath.Ext(factory.RemoveCompressionExtension(path))).Error(ErrUnsupportedVersion)
	}

	var file *excelize.File
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if file, err = openFile(factory, path, version); err != nil {
			return nil, ec.Error(err)
		}
	case errors.Is(statErr, os.ErrNotExist) && options.Create:
		if version == VersionXLS {
			return nil, ec.WithDetails("legacy workbooks cannot be created").Error(ErrUnsupportedVersion)
		}
		file = excelize.NewFile()
	default:
		return nil, ec.Error(statErr)
	}

	wb, err := newWorkbook(file, options, missing)
	if err != nil {
		_ = file.Close()
		return nil, ec.Error(err)
	}
	wb.path = path
	wb.version = version
	wb.compression = factory.DetectCompressionType(path)
	wb.readOnly = version == VersionXLS
	return wb, nil
}

func openFile(factory *CompressionFactory, path string, version Version) (*excelize.File, error) {
	reader, cleanup, err := factory.CreateReaderForFile(path)
	if err != nil {
		return nil, err
	}
	defer cleanup() //nolint:errcheck // read-only stream

	if version == VersionXLS {
		return importLegacy(reader)
	}
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workbook: %w", err)
	}
	return file, nil
}

func newWorkbook(file *excelize.File, options Options, missing model.MissingValues) (*Workbook, error) {
	logger := options.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	palette, err := newStylePalette(file, options.DateFormat)
	if err != nil {
		return nil, err
	}
	return &Workbook{
		file:            file,
		styleAction:     options.StyleAction,
		styleNamePrefix: options.StyleNamePrefix,
		dateFormat:      options.DateFormat,
		missing:         missing,
		logger:          logger,
		codec:           newCellCodec(file),
		regions:         &regionResolver{file: file, logger: logger},
		registry:        newStyleRegistry(file),
		palette:         palette,
	}, nil
}

// Path returns the file path the workbook was opened from.
func (w *Workbook) Path() string {
	return w.path
}

// Version returns the file format of the workbook.
func (w *Workbook) Version() Version {
	return w.version
}

// File exposes the underlying excelize workbook.
func (w *Workbook) File() *excelize.File {
	return w.file
}

// SheetNames returns the worksheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// ExistsSheet reports whether a worksheet exists.
func (w *Workbook) ExistsSheet(name string) bool {
	idx, err := w.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// CreateSheet creates a worksheet. An existing sheet is left untouched.
func (w *Workbook) CreateSheet(name string) error {
	if w.ExistsSheet(name) {
		return nil
	}
	if _, err := w.file.NewSheet(name); err != nil {
		return NewErrorContext("create sheet", w.path).WithSheet(name).Error(err)
	}
	return nil
}

// RemoveSheet removes a worksheet.
func (w *Workbook) RemoveSheet(name string) error {
	ec := NewErrorContext("remove sheet", w.path).WithSheet(name)
	if !w.ExistsSheet(name) {
		return ec.Error(ErrSheetNotFound)
	}
	if err := w.file.DeleteSheet(name); err != nil {
		return ec.Error(err)
	}
	return nil
}

// ExistsName reports whether a defined name exists.
func (w *Workbook) ExistsName(name string) bool {
	_, ok := w.regions.lookupName(name)
	return ok
}

// NamedRegions returns the workbook scoped defined names in definition order.
func (w *Workbook) NamedRegions() []string {
	var names []string
	for _, dn := range w.file.GetDefinedName() {
		if dn.Scope == "Workbook" {
			names = append(names, dn.Name)
		}
	}
	return names
}

// CreateName defines a workbook scoped name for formula, e.g.
// "Sheet1!$A$1:$C$5". An existing name is replaced only with overwrite.
func (w *Workbook) CreateName(name, formula string, overwrite bool) error {
	ec := NewErrorContext("create name", w.path).WithName(name)
	area, err := ParseAreaRef(formula)
	if err != nil {
		return ec.Error(err)
	}
	if area.First.Sheet == "" {
		return ec.WithDetails(formula).Error(ErrInvalidReference)
	}

	previous, exists := w.regions.lookupName(name)
	if exists && !overwrite {
		return ec.Error(ErrNameAlreadyExists)
	}
	var prev *excelize.DefinedName
	if exists {
		prev = &previous
	}
	bounds := RegionBounds{
		Sheet:    area.First.Sheet,
		StartRow: area.First.Row,
		StartCol: area.First.Col,
		EndRow:   area.Last.Row,
		EndCol:   area.Last.Col,
	}
	if err := w.regions.bindName(name, prev, bounds); err != nil {
		return ec.Error(err)
	}
	return nil
}

// RemoveName removes a defined name.
func (w *Workbook) RemoveName(name string) error {
	ec := NewErrorContext("remove name", w.path).WithName(name)
	dn, ok := w.regions.lookupName(name)
	if !ok {
		return ec.Error(ErrNameNotFound)
	}
	if err := w.file.DeleteDefinedName(&excelize.DefinedName{Name: dn.Name, Scope: dn.Scope}); err != nil {
		return ec.Error(err)
	}
	return nil
}

// NameReference returns the formula a defined name refers to.
func (w *Workbook) NameReference(name string) (string, error) {
	dn, ok := w.regions.lookupName(name)
	if !ok {
		return "", NewErrorContext("name reference", w.path).WithName(name).Error(ErrNameNotFound)
	}
	return dn.RefersTo, nil
}

// NamedRegionBounds returns the rectangle a defined name refers to.
func (w *Workbook) NamedRegionBounds(name string) (RegionBounds, error) {
	bounds, err := w.regions.namedRead(name)
	if err != nil {
		return RegionBounds{}, NewErrorContext("named region bounds", w.path).WithName(name).Error(err)
	}
	return bounds, nil
}

// SheetBounds returns the auto-detected data rectangle of a worksheet.
func (w *Workbook) SheetBounds(sheet string) (RegionBounds, error) {
	bounds, err := w.regions.worksheet(sheet, NewBounds())
	if err != nil {
		return RegionBounds{}, NewErrorContext("sheet bounds", w.path).WithSheet(sheet).Error(err)
	}
	return bounds, nil
}

// supportedImageExtensions are the image types the codec can embed.
var supportedImageExtensions = map[string]bool{
	".bmp": true, ".emf": true, ".emz": true, ".gif": true, ".jpeg": true, ".jpg": true,
	".png": true, ".svg": true, ".tif": true, ".tiff": true, ".wmf": true, ".wmz": true,
}

// AddImage embeds the image file at the top-left cell of a named region.
func (w *Workbook) AddImage(name, imagePath string) error {
	ec := NewErrorContext("add image", w.path).WithName(name)

	ext := strings.ToLower(filepath.Ext(imagePath))
	if !supportedImageExtensions[ext] {
		return ec.WithDetails(imagePath).Error(ErrUnsupportedImage)
	}
	bounds, err := w.regions.namedRead(name)
	if err != nil {
		return ec.Error(err)
	}
	data, err := os.ReadFile(imagePath) //nolint:gosec // User-provided path is necessary for file operations
	if err != nil {
		return ec.Error(err)
	}

	err = w.file.AddPictureFromBytes(bounds.Sheet, bounds.TopLeft().CellName(), &excelize.Picture{
		Extension: ext,
		File:      data,
		Format:    &excelize.GraphicOptions{LockAspectRatio: true},
	})
	if err != nil {
		return ec.WithSheet(bounds.Sheet).Error(err)
	}
	return nil
}

// CreateCellStyle registers a named cell style for StyleActionNamePrefix
// lookups and returns its style id.
func (w *Workbook) CreateCellStyle(name string, style *excelize.Style) (int, error) {
	id, err := w.registry.create(name, style)
	if err != nil {
		return 0, NewErrorContext("create cell style", w.path).WithDetails(name).Error(err)
	}
	return id, nil
}

// CellStyle returns the id of a named cell style.
func (w *Workbook) CellStyle(name string) (int, bool) {
	return w.registry.lookup(name)
}

// SetMissingValues replaces the sentinels read as missing. Each value must be
// a string or a number.
func (w *Workbook) SetMissingValues(values ...any) error {
	missing, err := model.NewMissingValues(values...)
	if err != nil {
		return NewErrorContext("set missing values", w.path).Error(err)
	}
	w.missing = missing
	return nil
}

// SetStyleAction sets the write style policy.
func (w *Workbook) SetStyleAction(action StyleAction) error {
	if err := action.validate(); err != nil {
		return NewErrorContext("set style action", w.path).Error(err)
	}
	w.styleAction = action
	return nil
}

// SetStyleNamePrefix sets the prefix for StyleActionNamePrefix lookups.
func (w *Workbook) SetStyleNamePrefix(prefix string) {
	w.styleNamePrefix = prefix
}

// SetDateFormat sets the number format of DateTime cells written with the
// builtin palette.
func (w *Workbook) SetDateFormat(format string) error {
	id, err := newDateStyle(w.file, format)
	if err != nil {
		return NewErrorContext("set date format", w.path).Error(err)
	}
	w.dateFormat = format
	w.palette.date = id
	return nil
}

// Save writes the workbook to the path it was opened from, compressed the
// same way.
func (w *Workbook) Save() error {
	if w.readOnly {
		return NewErrorContext("save", w.path).
			WithDetails("legacy workbooks are read only, use SaveAs with a .xlsx path").
			Error(ErrUnsupportedVersion)
	}
	return w.saveTo(w.path, w.compression, "save")
}

// SaveAs writes the workbook to path. The format and compression follow the
// extension of path.
func (w *Workbook) SaveAs(path string) error {
	factory := NewCompressionFactory()
	if err := w.saveTo(path, factory.DetectCompressionType(path), "save as"); err != nil {
		return err
	}
	w.path = path
	w.compression = factory.DetectCompressionType(path)
	w.version = VersionXLSX
	w.readOnly = false
	return nil
}

func (w *Workbook) saveTo(path string, compression CompressionType, operation string) error {
	ec := NewErrorContext(operation, path)
	if path == "" {
		return ec.WithDetails("no file path").Error(ErrConfiguration)
	}
	if v := NewCompressionFactory().DetectVersion(path); v != VersionXLSX {
		return ec.WithDetails("only .xlsx and .xlsm can be written").Error(ErrUnsupportedVersion)
	}

	writer, cleanup, err := NewCompressionFactory().CreateWriterForFile(path, compression)
	if err != nil {
		return ec.Error(err)
	}
	if err := w.file.Write(writer); err != nil {
		return ec.Error(errors.Join(err, cleanup()))
	}
	if err := cleanup(); err != nil {
		return ec.Error(err)
	}
	w.logger.WithFields(logrus.Fields{"path": path, "compression": compression.String()}).Debug("saved workbook")
	return nil
}

// Write writes the workbook in .xlsx format to out.
func (w *Workbook) Write(out io.Writer, opts ...SaveOptions) error {
	options := NewSaveOptions()
	if len(opts) > 0 {
		options = opts[0]
	}
	ec := NewErrorContext("write", w.path)

	writer, closeWriter, err := NewCompressionHandler(options.Compression).CreateWriter(out)
	if err != nil {
		return ec.Error(err)
	}
	if err := w.file.Write(writer); err != nil {
		return ec.Error(errors.Join(err, closeWriter()))
	}
	if err := closeWriter(); err != nil {
		return ec.Error(err)
	}
	return nil
}

// Close releases the resources of the workbook without saving.
func (w *Workbook) Close() error {
	if err := w.file.Close(); err != nil {
		return NewErrorContext("close", w.path).Error(err)
	}
	return nil
}

func (w *Workbook) styleResolver() *styleResolver {
	return &styleResolver{
		file:     w.file,
		action:   w.styleAction,
		prefix:   w.styleNamePrefix,
		registry: w.registry,
		palette:  w.palette,
		logger:   w.logger,
	}
}
