// Package arrowframe builds DataFrames from foreign arrays and converts them
// to and from Apache Arrow records and Parquet files.
//
// The package is a boundary adapter: every conversion maps one foreign column
// onto one DataFrame column through model.DataFrame.AddColumn, so the core
// data model never learns about Arrow.
package arrowframe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"github.com/nao1215/xlframe/domain/model"
)

// timestampType is the Arrow type used for DateTime columns.
var timestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// ArrayColumn is one foreign column: a value array plus a parallel
// "is missing" array of the same length. Missing may be nil when no entry is missing.
type ArrayColumn struct {
	// Name is the column name, "" for an unnamed column.
	Name string
	// Type is the semantic type of the values.
	Type model.DataType
	// Values holds bool, numeric, time.Time or string entries according to Type.
	// Entries flagged as missing are ignored and may hold any placeholder.
	Values []any
	// Missing flags missing entries.
	Missing []bool
}

// FromArrays builds a DataFrame with one column per ArrayColumn, in order.
func FromArrays(columns []ArrayColumn) (*model.DataFrame, error) {
	df := model.NewDataFrame()
	for i, ac := range columns {
		if ac.Missing != nil && len(ac.Missing) != len(ac.Values) {
			return nil, fmt.Errorf("column %d (%q): %w: %d values but %d missing flags",
				i, ac.Name, model.ErrDimensionMismatch, len(ac.Values), len(ac.Missing))
		}
		values := make([]any, len(ac.Values))
		for j, v := range ac.Values {
			if ac.Missing != nil && ac.Missing[j] {
				continue
			}
			values[j] = v
		}
		col, err := model.NewColumn(ac.Type, values)
		if err != nil {
			return nil, fmt.Errorf("column %d (%q): %w", i, ac.Name, err)
		}
		if err := df.AddColumn(ac.Name, col); err != nil {
			return nil, err
		}
	}
	return df, nil
}

// ToArrays is the inverse of FromArrays.
func ToArrays(df *model.DataFrame) []ArrayColumn {
	out := make([]ArrayColumn, df.ColumnCount())
	for i := range out {
		col := df.Column(i)
		out[i] = ArrayColumn{
			Name:    df.Name(i),
			Type:    col.Type(),
			Values:  col.Values(),
			Missing: col.Missing(),
		}
	}
	return out
}

// fieldName returns the Arrow field name of column i. Unnamed columns get
// the same Col<n> name a headerless read would give them.
func fieldName(df *model.DataFrame, i int) string {
	if name := df.Name(i); name != "" {
		return name
	}
	return fmt.Sprintf("Col%d", i+1)
}

func arrowType(dt model.DataType) (arrow.DataType, error) {
	switch dt {
	case model.Boolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case model.Numeric:
		return arrow.PrimitiveTypes.Float64, nil
	case model.DateTime:
		return timestampType, nil
	case model.String:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, fmt.Errorf("%w: %d", model.ErrUnknownDataType, int(dt))
	}
}

// Schema returns the Arrow schema matching the frame's columns.
func Schema(df *model.DataFrame) (*arrow.Schema, error) {
	fields := make([]arrow.Field, df.ColumnCount())
	for i := range fields {
		typ, err := arrowType(df.Type(i))
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: fieldName(df, i), Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToRecord converts the frame into a single Arrow record. Missing entries
// become nulls. The caller must Release the record.
func ToRecord(df *model.DataFrame, mem memory.Allocator) (arrow.Record, error) {
	if df == nil {
		return nil, fmt.Errorf("%w: nil data frame", model.ErrConfiguration)
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	schema, err := Schema(df)
	if err != nil {
		return nil, err
	}

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for i := range df.ColumnCount() {
		if err := appendColumn(rb.Field(i), df.Column(i)); err != nil {
			return nil, fmt.Errorf("column %q: %w", fieldName(df, i), err)
		}
	}
	return rb.NewRecord(), nil
}

func appendColumn(b array.Builder, col *model.Column) error {
	n := col.Len()
	b.Reserve(n)
	for r := range n {
		if col.IsMissing(r) {
			b.AppendNull()
			continue
		}
		switch fb := b.(type) {
		case *array.BooleanBuilder:
			fb.Append(col.Bool(r))
		case *array.Float64Builder:
			fb.Append(col.Number(r))
		case *array.TimestampBuilder:
			ts, err := arrow.TimestampFromTime(col.Time(r), timestampType.Unit)
			if err != nil {
				return err
			}
			fb.Append(ts)
		case *array.StringBuilder:
			fb.Append(col.Text(r))
		default:
			return fmt.Errorf("%w: builder %T", model.ErrUnknownDataType, b)
		}
	}
	return nil
}

// FromRecord converts an Arrow record into a DataFrame. Boolean, integer,
// floating point, string, date and timestamp fields are supported; any other
// field type is ErrUnknownDataType. Nulls become missing entries.
func FromRecord(rec arrow.Record) (*model.DataFrame, error) {
	df := model.NewDataFrame()
	schema := rec.Schema()
	for i, field := range schema.Fields() {
		col, err := columnFromArray(rec.Column(i))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		if err := df.AddColumn(field.Name, col); err != nil {
			return nil, err
		}
	}
	return df, nil
}

func columnFromArray(arr arrow.Array) (*model.Column, error) {
	n := arr.Len()
	missing := make([]bool, n)
	for i := range n {
		missing[i] = arr.IsNull(i)
	}

	switch a := arr.(type) {
	case *array.Boolean:
		values := make([]bool, n)
		for i := range n {
			values[i] = a.Value(i)
		}
		return model.NewBooleanColumn(values, missing)
	case *array.String:
		values := make([]string, n)
		for i := range n {
			values[i] = a.Value(i)
		}
		return model.NewStringColumn(values, missing)
	case *array.LargeString:
		values := make([]string, n)
		for i := range n {
			values[i] = a.Value(i)
		}
		return model.NewStringColumn(values, missing)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		values := make([]time.Time, n)
		for i := range n {
			values[i] = a.Value(i).ToTime(unit)
		}
		return model.NewDateTimeColumn(values, missing)
	case *array.Date32:
		values := make([]time.Time, n)
		for i := range n {
			values[i] = a.Value(i).ToTime()
		}
		return model.NewDateTimeColumn(values, missing)
	case *array.Date64:
		values := make([]time.Time, n)
		for i := range n {
			values[i] = a.Value(i).ToTime()
		}
		return model.NewDateTimeColumn(values, missing)
	}

	values, ok := numericValues(arr)
	if !ok {
		return nil, fmt.Errorf("%w: arrow type %s", model.ErrUnknownDataType, arr.DataType())
	}
	return model.NewNumericColumn(values, missing)
}

// numericValues widens any Arrow integer or floating point array to float64.
func numericValues(arr arrow.Array) ([]float64, bool) {
	n := arr.Len()
	values := make([]float64, n)
	switch a := arr.(type) {
	case *array.Float64:
		copy(values, a.Float64Values())
	case *array.Float32:
		for i := range n {
			values[i] = float64(a.Value(i))
		}
	case *array.Int64:
		for i := range n {
			values[i] = float64(a.Value(i))
		}
	case *array.Int32:
		for i := range n {
			values[i] = float64(a.Value(i))
		}
	case *array.Int16:
		for i := range n {
			values[i] = float64(a.Value(i))
		}
	case *array.Int8:
		for i := range n {
			values[i] = float64(a.Value(i))
		}
	case *array.Uint64:
		for i := range n {
			values[i] = float64(a.Value(i))
		}
	case *array.Uint32:
		for i := range n {
			values[i] = float64(a.Value(i))
		}
	case *array.Uint16:
		for i := range n {
			values[i] = float64(a.Value(i))
		}
	case *array.Uint8:
		for i := range n {
			values[i] = float64(a.Value(i))
		}
	default:
		return nil, false
	}
	return values, true
}

// WriteParquet writes the frame to w as a single Parquet row group,
// zstd compressed, with the Arrow schema stored in the file metadata.
func WriteParquet(w io.Writer, df *model.DataFrame) error {
	rec, err := ToRecord(df, memory.DefaultAllocator)
	if err != nil {
		return err
	}
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Zstd))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(rec.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		return errors.Join(fmt.Errorf("failed to write parquet record: %w", err), writer.Close())
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads a whole Parquet file from r into a DataFrame. Parquet
// needs random access, so the input is buffered in memory first.
func ReadParquet(ctx context.Context, r io.Reader) (*model.DataFrame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty parquet file")
	}

	pqReader, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	defer table.Release()

	return fromTable(table)
}

// fromTable concatenates the table's chunks into one record and converts it.
func fromTable(table arrow.Table) (*model.DataFrame, error) {
	tr := array.NewTableReader(table, 0)
	defer tr.Release()

	var records []arrow.Record
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	for tr.Next() {
		rec := tr.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("error reading table records: %w", err)
	}

	if len(records) == 1 {
		return FromRecord(records[0])
	}
	return concatRecords(table.Schema(), records)
}

// concatRecords joins the columns of several records sharing one schema.
// With no records every column is empty.
func concatRecords(schema *arrow.Schema, records []arrow.Record) (*model.DataFrame, error) {

	df := model.NewDataFrame()
	for i, field := range schema.Fields() {
		chunks := make([]arrow.Array, len(records))
		for j, rec := range records {
			chunks[j] = rec.Column(i)
		}
		var (
			arr arrow.Array
			err error
		)
		if len(chunks) == 0 {
			arr = array.MakeArrayOfNull(memory.DefaultAllocator, field.Type, 0)
		} else {
			arr, err = array.Concatenate(chunks, memory.DefaultAllocator)
		}
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		col, err := columnFromArray(arr)
		arr.Release()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		if err := df.AddColumn(field.Name, col); err != nil {
			return nil, err
		}
	}
	return df, nil
}
