package xlframe

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nao1215/xlframe/domain/model"
)

// WriteNamedRegion writes df as a block and binds name to exactly the cells
// written. A new name is anchored at the Location option; an existing name
// requires the Overwrite option and keeps its top-left cell unless a
// Location is given. The target sheet is created when missing.
func (w *Workbook) WriteNamedRegion(df *DataFrame, name string, opts ...WriteOptions) error {
	options := writeOptions(opts)
	ec := NewErrorContext("write named region", w.path).WithName(name)
	if df == nil {
		return ec.WithDetails("nil data frame").Error(ErrConfiguration)
	}

	anchor, previous, err := w.regions.namedWriteAnchor(name, options)
	if err != nil {
		return ec.Error(err)
	}
	ec = ec.WithSheet(anchor.Sheet)
	if err := w.CreateSheet(anchor.Sheet); err != nil {
		return ec.Error(err)
	}

	bounds, err := w.writeBlock(df, anchor, options.Header)
	if err != nil {
		return ec.Error(err)
	}
	if err := w.regions.bindName(name, previous, bounds); err != nil {
		return ec.Error(err)
	}
	return nil
}

// WriteWorksheet writes df as a block whose top-left cell is given by the
// StartRow and StartCol options. The sheet is created when missing.
func (w *Workbook) WriteWorksheet(df *DataFrame, sheet string, opts ...WriteOptions) error {
	options := writeOptions(opts)
	ec := NewErrorContext("write worksheet", w.path).WithSheet(sheet)
	if df == nil {
		return ec.WithDetails("nil data frame").Error(ErrConfiguration)
	}
	if options.StartRow < 0 || options.StartCol < 0 {
		return ec.WithDetails(fmt.Sprintf("start row %d, start column %d", options.StartRow, options.StartCol)).
			Error(ErrInvalidReference)
	}
	if err := w.CreateSheet(sheet); err != nil {
		return ec.Error(err)
	}
	if _, err := w.writeBlock(df, NewCellRef(sheet, options.StartRow, options.StartCol), options.Header); err != nil {
		return ec.Error(err)
	}
	return nil
}

func writeOptions(opts []WriteOptions) WriteOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return NewWriteOptions()
}

// writeBlock writes the header row and the columns of df at anchor and
// returns the covered rectangle, never smaller than one cell.
func (w *Workbook) writeBlock(df *DataFrame, anchor CellRef, header bool) (RegionBounds, error) {
	header = header && df.HasHeader()

	// styles are resolved before any cell is written so that reuse samples
	// the destination as it was
	styles, err := w.styleResolver().resolve(df, anchor, header)
	if err != nil {
		return RegionBounds{}, err
	}

	sheet := anchor.Sheet
	if header {
		for i := 0; i < df.ColumnCount(); i++ {
			col := anchor.Col + i
			if err := w.codec.writeHeader(sheet, anchor.Row, col, df.Name(i)); err != nil {
				return RegionBounds{}, fmt.Errorf("failed to write header %q: %w", df.Name(i), err)
			}
			if id, ok := styles.Header(i); ok {
				cell := cellName(anchor.Row, col)
				if err := w.file.SetCellStyle(sheet, cell, cell, id); err != nil {
					return RegionBounds{}, fmt.Errorf("failed to style header %q: %w", df.Name(i), err)
				}
			}
		}
	}

	firstDataRow := anchor.Row
	if header {
		firstDataRow++
	}
	rows := df.RowCount()
	for i := 0; i < df.ColumnCount(); i++ {
		col := anchor.Col + i
		column := df.Column(i)
		for r := 0; r < rows; r++ {
			if err := w.codec.writeValue(sheet, firstDataRow+r, col, column, r); err != nil {
				return RegionBounds{}, fmt.Errorf("failed to write cell %s: %w", NewCellRef(sheet, firstDataRow+r, col), err)
			}
		}
		if rows == 0 {
			continue
		}
		id, ok, err := w.dataStyle(styles, i, column.Type())
		if err != nil {
			return RegionBounds{}, fmt.Errorf("failed to style column %q: %w", df.Name(i), err)
		}
		if ok {
			if err := w.file.SetCellStyle(sheet, cellName(firstDataRow, col), cellName(firstDataRow+rows-1, col), id); err != nil {
				return RegionBounds{}, fmt.Errorf("failed to style column %q: %w", df.Name(i), err)
			}
		}
	}

	if err := w.codec.requestRecalculation(); err != nil {
		return RegionBounds{}, fmt.Errorf("failed to request recalculation: %w", err)
	}

	bounds := RegionBounds{
		Sheet:    sheet,
		StartRow: anchor.Row,
		StartCol: anchor.Col,
		EndRow:   firstDataRow + rows - 1,
		EndCol:   anchor.Col + df.ColumnCount() - 1,
	}
	bounds.EndRow = max(bounds.EndRow, bounds.StartRow)
	bounds.EndCol = max(bounds.EndCol, bounds.StartCol)

	w.logger.WithFields(logrus.Fields{
		"region":       bounds.String(),
		"style_action": w.styleAction.String(),
		"header":       header,
	}).Debug("wrote block")
	return bounds, nil
}

// dataStyle returns the style of data column i. DateTime serials need a date
// format to read back as DateTime, so a missing style or a reused style
// without one falls back to the palette date style.
func (w *Workbook) dataStyle(styles StyleMap, i int, dt model.DataType) (int, bool, error) {
	id, ok := styles.Data(i)
	if dt != model.DateTime {
		return id, ok, nil
	}
	if ok && w.styleAction == StyleActionReuse {
		isDate, err := w.codec.isDateStyle(id)
		if err != nil {
			return 0, false, err
		}
		ok = isDate
	}
	if !ok {
		return w.palette.date, true, nil
	}
	return id, true, nil
}
