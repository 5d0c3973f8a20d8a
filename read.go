package xlframe

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nao1215/xlframe/domain/model"
)

// ReadNamedRegion reads the rectangle a defined name refers to into a
// DataFrame. Non-fatal conversion problems are returned as warnings; the
// affected cells are missing in the frame.
func (w *Workbook) ReadNamedRegion(name string, opts ...ReadOptions) (*DataFrame, []ConversionWarning, error) {
	ec := NewErrorContext("read named region", w.path).WithName(name)
	bounds, err := w.regions.namedRead(name)
	if err != nil {
		return nil, nil, ec.Error(err)
	}
	df, warnings, err := w.readRegion(bounds, readOptions(opts))
	if err != nil {
		return nil, nil, ec.WithSheet(bounds.Sheet).Error(err)
	}
	return df, warnings, nil
}

// ReadWorksheet reads a worksheet rectangle into a DataFrame. Bounds left
// unspecified are detected from the sheet content.
//
// Example:
//
//	df, warnings, err := wb.ReadWorksheet("Sales", xlframe.NewBounds().WithStartRow(2),
//		xlframe.NewReadOptions().WithForceConversion(true))
func (w *Workbook) ReadWorksheet(sheet string, bounds Bounds, opts ...ReadOptions) (*DataFrame, []ConversionWarning, error) {
	ec := NewErrorContext("read worksheet", w.path).WithSheet(sheet)
	resolved, err := w.regions.worksheet(sheet, bounds)
	if err != nil {
		return nil, nil, ec.Error(err)
	}
	df, warnings, err := w.readRegion(resolved, readOptions(opts))
	if err != nil {
		return nil, nil, ec.Error(err)
	}
	return df, warnings, nil
}

// ReadWorksheetAt reads the worksheet at the 0-based position index.
func (w *Workbook) ReadWorksheetAt(index int, bounds Bounds, opts ...ReadOptions) (*DataFrame, []ConversionWarning, error) {
	sheets := w.SheetNames()
	if index < 0 || index >= len(sheets) {
		return nil, nil, NewErrorContext("read worksheet", w.path).
			WithDetails(fmt.Sprintf("index %d of %d sheets", index, len(sheets))).
			Error(ErrSheetNotFound)
	}
	return w.ReadWorksheet(sheets[index], bounds, opts...)
}

func readOptions(opts []ReadOptions) ReadOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return NewReadOptions()
}

// readRegion builds one column per region column. The first row holds the
// column names when the header option is set.
func (w *Workbook) readRegion(bounds RegionBounds, opts ReadOptions) (*DataFrame, []ConversionWarning, error) {
	types, err := opts.columnTypes(bounds.Cols())
	if err != nil {
		return nil, nil, err
	}
	cfg := opts.builderConfig(w.missing, w.codec.date1904)

	firstDataRow := bounds.StartRow
	if opts.Header {
		firstDataRow++
	}

	df := model.NewDataFrame()
	var warnings []ConversionWarning
	for j := 0; j < bounds.Cols(); j++ {
		col := bounds.StartCol + j

		name := ""
		if opts.Header {
			cell, err := w.codec.readCell(bounds.Sheet, bounds.StartRow, col, opts.UseCachedValues)
			if err == nil {
				name = headerText(cell, w.codec.date1904)
			}
			if name == "" {
				name = fmt.Sprintf("Col%d", j+1)
			}
		}

		builder := model.NewColumnBuilder(cfg, bounds.EndRow-firstDataRow+1)
		for row := firstDataRow; row <= bounds.EndRow; row++ {
			ref := NewCellRef(bounds.Sheet, row, col).String()
			cell, err := w.codec.readCell(bounds.Sheet, row, col, opts.UseCachedValues)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read cell %s: %w", ref, err)
			}
			if err := builder.AddCell(ref, cell); err != nil {
				return nil, nil, fmt.Errorf("column %q: %w", name, err)
			}
		}

		var column *model.Column
		if types == nil {
			column, err = builder.BuildInferred()
		} else {
			column, err = builder.Build(types[j])
		}
		if err != nil {
			return nil, nil, fmt.Errorf("column %q: %w", name, err)
		}
		if err := df.AddColumn(name, column); err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, builder.Warnings()...)
	}

	for _, warning := range warnings {
		w.logger.WithFields(logrus.Fields{
			"cell": warning.Cell,
			"from": warning.From.String(),
			"to":   warning.To.String(),
		}).Info(warning.String())
	}
	w.logger.WithFields(logrus.Fields{
		"region":   bounds.String(),
		"columns":  df.ColumnCount(),
		"rows":     df.RowCount(),
		"warnings": len(warnings),
	}).Debug("read region")
	return df, warnings, nil
}
