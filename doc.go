// Package xlframe converts between spreadsheet cell grids and typed,
// columnar in-memory tables (data frames), and writes tables back into
// spreadsheets with cell styles.
//
// A DataFrame holds named columns of one of four types, ordered from
// narrowest to widest: Boolean, Numeric, DateTime and String. Every entry
// may be missing.
//
// # Features
//
//   - Read worksheets and named regions, with per-column type inference
//   - Forced column types with strict or lossy conversion
//   - Missing-value sentinels (strings and numbers)
//   - Automatic detection of worksheet data bounds
//   - Named regions that grow or shrink to exactly the written block
//   - Builtin, reused or name based cell styles on write
//   - Modern (.xlsx, .xlsm) and legacy (.xls, read only) workbooks
//   - Transparent compression (gzip, bzip2, xz, zstandard)
//
// # Basic Usage
//
//	wb, err := xlframe.Open("sales.xlsx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer wb.Close()
//
//	df, warnings, err := wb.ReadWorksheet("Q1", xlframe.NewBounds())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, w := range warnings {
//	    log.Println(w)
//	}
//
// # Writing
//
//	df := xlframe.NewDataFrame()
//	letters, _ := xlframe.NewColumn(xlframe.String, "A", "B", nil)
//	_ = df.AddColumn("Letter", letters)
//
//	wb, _ := xlframe.Open("out.xlsx", xlframe.NewOptions().WithCreate(true))
//	err := wb.WriteNamedRegion(df, "letters",
//	    xlframe.NewWriteOptions().WithLocation("Data!$B$2"))
//	if err == nil {
//	    err = wb.Save()
//	}
//
// # Type Conversion
//
// Without forced types each column takes the widest type among its cells.
// Forcing a narrower type, or converting text to numbers and dates, needs
// ForceConversion. Cells that cannot be converted become missing and are
// reported as ConversionWarning values; reads never fail on them. Error
// cells such as #DIV/0! stop the read unless ErrorCellWarn is selected.
//
// # Styles
//
// StyleActionBuiltin applies a bold header style and a date number format
// to DateTime columns. StyleActionReuse keeps the styles already present at
// the destination. StyleActionNamePrefix looks styles up by name among
// those created with CreateCellStyle, trying for headers
// "<prefix>.Header.<name>", "<prefix>.Header.<index>" and "<prefix>.Header",
// and for data "<prefix>.Column.<name>", "<prefix>.Column.<index>" and
// "<prefix>.Column.<Type>". Indexes are 1-based.
//
// # SQL
//
// The driver subpackage registers a database/sql driver that exposes every
// worksheet and named region of a workbook as a SQLite table.
package xlframe
