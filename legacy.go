package xlframe

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/nao1215/xlframe/domain/model"
)

// legacyCharsets are tried in order when decoding legacy workbooks.
var legacyCharsets = []string{"utf-8", "windows-1252"}

// importLegacy reads a legacy .xls workbook into an in-memory modern
// workbook. The legacy reader yields text only, so cells that look like
// numbers, logical values or dates are stored typed.
func importLegacy(r io.Reader) (*excelize.File, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy workbook: %w", err)
	}

	var wb *xls.WorkBook
	for _, charset := range legacyCharsets {
		if wb, err = openLegacyWorkbook(b, charset); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy workbook: %w", err)
	}
	if wb == nil {
		return nil, fmt.Errorf("%w: no workbook stream found", ErrUnsupportedVersion)
	}

	f := excelize.NewFile()
	dateStyle, err := newDateStyle(f, DefaultDateFormat)
	if err != nil {
		return nil, err
	}

	defaultSheet := f.GetSheetName(0)
	imported := 0
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		name := sheet.Name
		if imported == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("failed to import sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to import sheet %q: %w", name, err)
		}
		imported++

		for r := 0; r <= int(sheet.MaxRow); r++ {
			first, cells := legacyRowCells(sheet, r)
			for j, text := range cells {
				if err := importLegacyCell(f, name, r, first+j, text, dateStyle); err != nil {
					return nil, fmt.Errorf("failed to import cell %s of sheet %q: %w", cellName(r, first+j), name, err)
				}
			}
		}
	}
	return f, nil
}

// openLegacyWorkbook opens the compound document in b. The legacy reader
// panics on some malformed streams; those are reported as errors.
func openLegacyWorkbook(b []byte, charset string) (wb *xls.WorkBook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("%w: malformed legacy workbook: %v", ErrUnsupportedVersion, r)
		}
	}()
	return xls.OpenReader(bytes.NewReader(b), charset)
}

// legacyRowCells returns the first column index and the cell texts of row
// r. The legacy reader panics on rows it never stored, which read as empty.
func legacyRowCells(sheet *xls.WorkSheet, r int) (first int, cells []string) {
	defer func() {
		if recover() != nil {
			first, cells = 0, nil
		}
	}()
	row := sheet.Row(r)
	if row == nil {
		return 0, nil
	}
	first = row.FirstCol()
	for c := first; c < row.LastCol(); c++ {
		cells = append(cells, row.Col(c))
	}
	return first, cells
}

func importLegacyCell(f *excelize.File, sheet string, row, col int, text string, dateStyle int) error {
	if text == "" {
		return nil
	}
	cell := cellName(row, col)

	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return f.SetCellFloat(sheet, cell, v, -1, 64)
	}
	switch strings.ToUpper(text) {
	case "TRUE":
		return f.SetCellBool(sheet, cell, true)
	case "FALSE":
		return f.SetCellBool(sheet, cell, false)
	}
	if t, ok := model.ParseDateTime(text, ""); ok && model.ValidSerial(model.TimeToSerial(t, false), false) {
		if err := f.SetCellFloat(sheet, cell, model.TimeToSerial(t, false), -1, 64); err != nil {
			return err
		}
		return f.SetCellStyle(sheet, cell, cell, dateStyle)
	}
	return f.SetCellStr(sheet, cell, text)
}
