package xlframe

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CellRef is a cell position on a sheet. Row and Col are 0-based.
type CellRef struct {
	Sheet string
	Row   int
	Col   int
}

// NewCellRef creates a CellRef.
func NewCellRef(sheet string, row, col int) CellRef {
	return CellRef{Sheet: sheet, Row: row, Col: col}
}

// ParseCellRef parses "A1", "$B$5", "Sheet1!C3" or "'My Sheet'!$D$4".
func ParseCellRef(s string) (CellRef, error) {
	sheet, cell, err := splitSheet(s)
	if err != nil {
		return CellRef{}, err
	}
	if strings.Contains(cell, ":") {
		return CellRef{}, fmt.Errorf("%w: %q is an area, not a cell", ErrInvalidReference, s)
	}
	row, col, err := parseCellName(cell)
	if err != nil {
		return CellRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidReference, s, err)
	}
	return CellRef{Sheet: sheet, Row: row, Col: col}, nil
}

// parseCellName parses "A1" or "$A$1" into 0-based coordinates.
func parseCellName(name string) (row, col int, err error) {
	c, r, err := excelize.CellNameToCoordinates(strings.ReplaceAll(name, "$", ""))
	if err != nil {
		return 0, 0, err
	}
	return r - 1, c - 1, nil
}

// cellName formats 0-based coordinates as "A1".
func cellName(row, col int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Sprintf("R%dC%d", row+1, col+1)
	}
	return name
}

// CellName returns the cell part like "A1" without sheet name.
func (c CellRef) CellName() string {
	return cellName(c.Row, c.Col)
}

// Absolute returns the cell part with absolute markers like "$A$1".
func (c CellRef) Absolute() string {
	name, err := excelize.CoordinatesToCellName(c.Col+1, c.Row+1, true)
	if err != nil {
		return c.CellName()
	}
	return name
}

// String formats the CellRef as "Sheet1!A1" or "A1" if no sheet.
func (c CellRef) String() string {
	if c.Sheet == "" {
		return c.CellName()
	}
	return quoteSheetName(c.Sheet) + "!" + c.CellName()
}

// AreaRef is a rectangle between two cells on one sheet.
type AreaRef struct {
	First CellRef
	Last  CellRef
}

// ParseAreaRef parses a defined name formula such as "Sheet1!$A$1:$C$5",
// "'My Sheet'!A1:B2" or the single-cell form "Sheet1!$B$3". A leading "="
// is ignored.
func ParseAreaRef(s string) (AreaRef, error) {
	sheet, cells, err := splitSheet(s)
	if err != nil {
		return AreaRef{}, err
	}
	parts := strings.Split(cells, ":")
	if len(parts) > 2 {
		return AreaRef{}, fmt.Errorf("%w: %q", ErrInvalidReference, s)
	}

	firstRow, firstCol, err := parseCellName(parts[0])
	if err != nil {
		return AreaRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidReference, s, err)
	}
	lastRow, lastCol := firstRow, firstCol
	if len(parts) == 2 {
		if lastRow, lastCol, err = parseCellName(parts[1]); err != nil {
			return AreaRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidReference, s, err)
		}
	}
	if lastRow < firstRow {
		firstRow, lastRow = lastRow, firstRow
	}
	if lastCol < firstCol {
		firstCol, lastCol = lastCol, firstCol
	}

	return AreaRef{
		First: CellRef{Sheet: sheet, Row: firstRow, Col: firstCol},
		Last:  CellRef{Sheet: sheet, Row: lastRow, Col: lastCol},
	}, nil
}

// Formula formats the area as an absolute defined name formula like
// "Sheet1!$A$1:$C$5".
func (a AreaRef) Formula() string {
	ref := a.First.Absolute() + ":" + a.Last.Absolute()
	if a.First.Sheet == "" {
		return ref
	}
	return quoteSheetName(a.First.Sheet) + "!" + ref
}

// String formats the area as "Sheet1!A1:C5".
func (a AreaRef) String() string {
	return a.First.String() + ":" + a.Last.CellName()
}

// splitSheet separates the optional sheet prefix from the cell part.
// Quoted sheet names may contain "!" and escape a quote as a doubled single quote.
func splitSheet(s string) (sheet, cells string, err error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "=")
	if s == "" {
		return "", "", fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}

	if strings.HasPrefix(s, "'") {
		var b strings.Builder
		for i := 1; i < len(s); i++ {
			if s[i] != '\'' {
				b.WriteByte(s[i])
				continue
			}
			if i+1 < len(s) && s[i+1] == '\'' {
				b.WriteByte('\'')
				i++
				continue
			}
			if i+1 >= len(s) || s[i+1] != '!' {
				return "", "", fmt.Errorf("%w: %q", ErrInvalidReference, s)
			}
			return b.String(), s[i+2:], nil
		}
		return "", "", fmt.Errorf("%w: unterminated sheet name in %q", ErrInvalidReference, s)
	}

	if idx := strings.LastIndex(s, "!"); idx >= 0 {
		return s[:idx], s[idx+1:], nil
	}
	return "", s, nil
}

// quoteSheetName quotes a sheet name when it is not a plain identifier.
func quoteSheetName(name string) string {
	plain := name != ""
	for _, r := range name {
		if !(r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			plain = false
			break
		}
	}
	if plain && (name[0] < '0' || name[0] > '9') {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
