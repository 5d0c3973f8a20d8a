package xlframe

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// RegionBounds is a resolved rectangle on one sheet. Rows and columns are
// 0-based and inclusive.
type RegionBounds struct {
	Sheet    string
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

// Rows returns the number of rows.
func (b RegionBounds) Rows() int {
	return b.EndRow - b.StartRow + 1
}

// Cols returns the number of columns.
func (b RegionBounds) Cols() int {
	return b.EndCol - b.StartCol + 1
}

// TopLeft returns the top-left cell.
func (b RegionBounds) TopLeft() CellRef {
	return NewCellRef(b.Sheet, b.StartRow, b.StartCol)
}

// Area returns the bounds as an area reference.
func (b RegionBounds) Area() AreaRef {
	return AreaRef{
		First: NewCellRef(b.Sheet, b.StartRow, b.StartCol),
		Last:  NewCellRef(b.Sheet, b.EndRow, b.EndCol),
	}
}

// String formats the bounds as "Sheet1!A1:C5".
func (b RegionBounds) String() string {
	return b.Area().String()
}

// regionResolver maps defined names and worksheet bounds onto RegionBounds.
type regionResolver struct {
	file   *excelize.File
	logger *logrus.Logger
}

// lookupName returns the definition of a workbook scoped name. A sheet
// scoped name is used when no workbook scoped one exists.
func (r *regionResolver) lookupName(name string) (excelize.DefinedName, bool) {
	var (
		local excelize.DefinedName
		found bool
	)
	for _, dn := range r.file.GetDefinedName() {
		if dn.Name != name {
			continue
		}
		if dn.Scope == "Workbook" {
			return dn, true
		}
		if !found {
			local, found = dn, true
		}
	}
	return local, found
}

// namedRead resolves the area a defined name refers to.
func (r *regionResolver) namedRead(name string) (RegionBounds, error) {
	dn, ok := r.lookupName(name)
	if !ok {
		return RegionBounds{}, fmt.Errorf("%w: %q", ErrNameNotFound, name)
	}
	area, err := ParseAreaRef(dn.RefersTo)
	if err != nil {
		return RegionBounds{}, fmt.Errorf("name %q: %w", name, err)
	}
	if area.First.Sheet == "" {
		return RegionBounds{}, fmt.Errorf("%w: name %q refers to %q without a sheet", ErrInvalidReference, name, dn.RefersTo)
	}
	if idx, _ := r.file.GetSheetIndex(area.First.Sheet); idx < 0 {
		return RegionBounds{}, fmt.Errorf("%w: %q referenced by name %q", ErrSheetNotFound, area.First.Sheet, name)
	}

	bounds := RegionBounds{
		Sheet:    area.First.Sheet,
		StartRow: area.First.Row,
		StartCol: area.First.Col,
		EndRow:   area.Last.Row,
		EndCol:   area.Last.Col,
	}
	r.logger.WithFields(logrus.Fields{"name": name, "bounds": bounds.String()}).Debug("resolved named region")
	return bounds, nil
}

// namedWriteAnchor resolves the top-left cell of a named region write. An
// existing name requires overwrite; without a location its own top-left
// cell is the anchor. The existing definition, if any, is returned so that
// bindName can replace it once the block is written.
func (r *regionResolver) namedWriteAnchor(name string, opts WriteOptions) (CellRef, *excelize.DefinedName, error) {
	dn, exists := r.lookupName(name)
	if exists && !opts.Overwrite {
		return CellRef{}, nil, fmt.Errorf("%w: %q", ErrNameAlreadyExists, name)
	}

	var anchor CellRef
	switch {
	case opts.Location != "":
		area, err := ParseAreaRef(opts.Location)
		if err != nil {
			return CellRef{}, nil, err
		}
		anchor = area.First
	case exists:
		area, err := ParseAreaRef(dn.RefersTo)
		if err != nil {
			return CellRef{}, nil, fmt.Errorf("name %q: %w", name, err)
		}
		anchor = area.First
	default:
		return CellRef{}, nil, fmt.Errorf("%w: %q and no location given", ErrNameNotFound, name)
	}
	if anchor.Sheet == "" {
		return CellRef{}, nil, fmt.Errorf("%w: location of name %q has no sheet", ErrInvalidReference, name)
	}

	if !exists {
		return anchor, nil, nil
	}
	return anchor, &dn, nil
}

// bindName points a workbook scoped name at the given bounds, replacing
// the previous definition.
func (r *regionResolver) bindName(name string, previous *excelize.DefinedName, bounds RegionBounds) error {
	if previous != nil {
		if err := r.file.DeleteDefinedName(&excelize.DefinedName{Name: previous.Name, Scope: previous.Scope}); err != nil {
			return fmt.Errorf("failed to remove name %q: %w", name, err)
		}
	}
	formula := bounds.Area().Formula()
	if err := r.file.SetDefinedName(&excelize.DefinedName{Name: name, RefersTo: formula}); err != nil {
		return fmt.Errorf("failed to define name %q as %s: %w", name, formula, err)
	}
	r.logger.WithFields(logrus.Fields{"name": name, "refers_to": formula}).Debug("bound named region")
	return nil
}

// worksheet resolves worksheet bounds, detecting every unspecified bound
// from the sheet content.
func (r *regionResolver) worksheet(sheet string, b Bounds) (RegionBounds, error) {
	if err := b.validate(); err != nil {
		return RegionBounds{}, err
	}
	if idx, _ := r.file.GetSheetIndex(sheet); idx < 0 {
		return RegionBounds{}, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	var (
		rows [][]string
		err  error
	)
	needsContent := b.startRow == unspecified || b.startCol == unspecified ||
		(b.endRow == unspecified && b.rowCount == unspecified) ||
		(b.endCol == unspecified && b.colCount == unspecified)
	if needsContent {
		if rows, err = r.file.GetRows(sheet, excelize.Options{RawCellValue: true}); err != nil {
			return RegionBounds{}, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
		}
	}

	bounds := RegionBounds{Sheet: sheet}

	bounds.StartRow = b.startRow
	if bounds.StartRow == unspecified {
		if bounds.StartRow = firstContentRow(rows); bounds.StartRow < 0 {
			return RegionBounds{}, fmt.Errorf("%w: sheet %q has no rows", ErrBoundsUndetermined, sheet)
		}
	}

	switch {
	case b.endRow != unspecified:
		bounds.EndRow = b.endRow
	case b.rowCount != unspecified:
		bounds.EndRow = bounds.StartRow + b.rowCount - 1
	default:
		if bounds.EndRow = lastContentRow(rows); bounds.EndRow < 0 {
			return RegionBounds{}, fmt.Errorf("%w: sheet %q has no rows", ErrBoundsUndetermined, sheet)
		}
	}

	bounds.StartCol = b.startCol
	if bounds.StartCol == unspecified {
		if bounds.StartCol = firstContentCol(rows, bounds.StartRow); bounds.StartCol < 0 {
			return RegionBounds{}, fmt.Errorf("%w: row %d of sheet %q has no cells", ErrBoundsUndetermined, bounds.StartRow, sheet)
		}
	}

	switch {
	case b.endCol != unspecified:
		bounds.EndCol = b.endCol
	case b.colCount != unspecified:
		bounds.EndCol = bounds.StartCol + b.colCount - 1
	default:
		if bounds.EndCol = lastContentCol(rows, bounds.EndRow); bounds.EndCol < 0 {
			return RegionBounds{}, fmt.Errorf("%w: row %d of sheet %q has no cells", ErrBoundsUndetermined, bounds.EndRow, sheet)
		}
	}

	if bounds.EndRow < bounds.StartRow || bounds.EndCol < bounds.StartCol {
		return RegionBounds{}, fmt.Errorf("%w: empty range rows %d-%d, columns %d-%d on sheet %q",
			ErrInvalidReference, bounds.StartRow, bounds.EndRow, bounds.StartCol, bounds.EndCol, sheet)
	}

	r.logger.WithFields(logrus.Fields{"sheet": sheet, "bounds": bounds.String()}).Debug("resolved worksheet bounds")
	return bounds, nil
}

func rowHasContent(row []string) bool {
	for _, v := range row {
		if v != "" {
			return true
		}
	}
	return false
}

func firstContentRow(rows [][]string) int {
	for i, row := range rows {
		if rowHasContent(row) {
			return i
		}
	}
	return -1
}

func lastContentRow(rows [][]string) int {
	for i := len(rows) - 1; i >= 0; i-- {
		if rowHasContent(rows[i]) {
			return i
		}
	}
	return -1
}

func firstContentCol(rows [][]string, row int) int {
	if row < 0 || row >= len(rows) {
		return -1
	}
	for j, v := range rows[row] {
		if v != "" {
			return j
		}
	}
	return -1
}

func lastContentCol(rows [][]string, row int) int {
	if row < 0 || row >= len(rows) {
		return -1
	}
	for j := len(rows[row]) - 1; j >= 0; j-- {
		if rows[row][j] != "" {
			return j
		}
	}
	return -1
}
