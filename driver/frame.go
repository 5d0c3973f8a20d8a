package driver

import (
	"database/sql"
	"fmt"

	"github.com/nao1215/xlframe/domain/model"
)

// resultConfig converts query results. SQLite columns are dynamically
// typed, so every value is forced to the widest type seen in its column.
var resultConfig = model.BuilderConfig{
	Policy:     model.CoercionForce,
	ErrorCells: model.ErrorCellWarn,
}

// frameCollector accumulates result rows column by column.
type frameCollector struct {
	names    []string
	builders []*model.ColumnBuilder
	rows     int
}

func newFrameCollector(names []string) *frameCollector {
	builders := make([]*model.ColumnBuilder, len(names))
	for i := range builders {
		builders[i] = model.NewColumnBuilder(resultConfig, 0)
	}
	return &frameCollector{names: names, builders: builders}
}

// add appends one result row. values must hold one entry per column.
func (fc *frameCollector) add(values []any) error {
	fc.rows++
	for i, v := range values {
		ref := fmt.Sprintf("row %d, column %q", fc.rows, fc.names[i])
		if err := fc.builders[i].AddValue(ref, v); err != nil {
			return err
		}
	}
	return nil
}

// frame builds one column per result column with its inferred type.
func (fc *frameCollector) frame() (*model.DataFrame, []model.ConversionWarning, error) {
	df := model.NewDataFrame()
	var warnings []model.ConversionWarning
	for i, b := range fc.builders {
		col, err := b.BuildInferred()
		if err != nil {
			return nil, nil, fmt.Errorf("column %q: %w", fc.names[i], err)
		}
		warnings = append(warnings, b.Warnings()...)
		if err := df.AddColumn(fc.names[i], col); err != nil {
			return nil, nil, err
		}
	}
	return df, warnings, nil
}

// QueryFrame drains rows into a DataFrame, one column per result column.
// Column types are inferred from the values; NULL becomes a missing entry.
// Values that could not be converted to their column type are reported as
// warnings. QueryFrame closes rows.
func QueryFrame(rows *sql.Rows) (*model.DataFrame, []model.ConversionWarning, error) {
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get result columns: %w", err)
	}

	declTypes := make([]string, len(names))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			declTypes[i] = ct.DatabaseTypeName()
		}
	}

	fc := newFrameCollector(names)
	values := make([]any, len(names))
	dest := make([]any, len(names))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row %d: %w", fc.rows+1, err)
		}
		for i, v := range values {
			values[i] = resultValue(declTypes[i], v)
		}
		if err := fc.add(values); err != nil {
			return nil, nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return fc.frame()
}
