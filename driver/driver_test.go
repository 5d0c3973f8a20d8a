package driver

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nao1215/xlframe"
	"github.com/nao1215/xlframe/domain/model"
)

var orderDay = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func mustColumn(t *testing.T, dt xlframe.DataType, values ...any) *xlframe.Column {
	t.Helper()
	col, err := xlframe.NewColumn(dt, values...)
	require.NoError(t, err)
	return col
}

// writeSalesWorkbook creates a workbook with an "Orders" sheet, a "Lookup"
// sheet holding the "Rates" named region, and an empty sheet.
func writeSalesWorkbook(t *testing.T, path string) {
	t.Helper()

	wb, err := xlframe.Open(path, xlframe.NewOptions().WithCreate(true))
	require.NoError(t, err)
	defer wb.Close()

	orders := xlframe.NewDataFrame()
	require.NoError(t, orders.AddColumn("region", mustColumn(t, xlframe.String, "north", "south", "north")))
	require.NoError(t, orders.AddColumn("amount", mustColumn(t, xlframe.Numeric, 10.5, nil, 4)))
	require.NoError(t, orders.AddColumn("paid", mustColumn(t, xlframe.Boolean, true, false, true)))
	require.NoError(t, orders.AddColumn("day", mustColumn(t, xlframe.DateTime, orderDay, orderDay.AddDate(0, 0, 1), orderDay.AddDate(0, 0, 2))))
	require.NoError(t, wb.WriteWorksheet(orders, "Orders"))

	rates := xlframe.NewDataFrame()
	require.NoError(t, rates.AddColumn("code", mustColumn(t, xlframe.String, "EUR", "JPY")))
	require.NoError(t, rates.AddColumn("rate", mustColumn(t, xlframe.Numeric, 1.1, 0.0062)))
	require.NoError(t, wb.WriteNamedRegion(rates, "Rates", xlframe.NewWriteOptions().WithLocation("Lookup!B2")))

	require.NoError(t, wb.CreateSheet("Empty"))
	require.NoError(t, wb.Save())
}

func openSales(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sales.xlsx")
	writeSalesWorkbook(t, path)

	db, err := sql.Open(DriverName, path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})
	require.NoError(t, db.Ping())
	return db
}

func TestDriverRegistered(t *testing.T) {
	t.Parallel()

	assert.Contains(t, sql.Drivers(), DriverName)

	d := NewDriver()
	connector, err := d.OpenConnector("book.xlsx")
	require.NoError(t, err)
	assert.Same(t, d, connector.Driver())
}

func TestQueryWorksheetTables(t *testing.T) {
	t.Parallel()

	db := openSales(t)
	ctx := context.Background()

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "Orders"`).Scan(&count))
	assert.Equal(t, 3, count)

	var total float64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT SUM(amount) FROM Orders`).Scan(&total))
	assert.InDelta(t, 14.5, total, 1e-9)

	var missing int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Orders WHERE amount IS NULL`).Scan(&missing))
	assert.Equal(t, 1, missing, "blank cells load as NULL")

	var paid int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Orders WHERE paid = 1`).Scan(&paid))
	assert.Equal(t, 2, paid)

	var day time.Time
	require.NoError(t, db.QueryRowContext(ctx, `SELECT day FROM Orders WHERE region = 'south'`).Scan(&day))
	assert.True(t, orderDay.AddDate(0, 0, 1).Equal(day), "got %v", day)

	var rate float64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT rate FROM Rates WHERE code = 'JPY'`).Scan(&rate))
	assert.InDelta(t, 0.0062, rate, 1e-12)

	var lookupRows int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Lookup`).Scan(&lookupRows))
	assert.Equal(t, 2, lookupRows)

	var types []string
	rows, err := db.QueryContext(ctx, `SELECT type FROM pragma_table_info('Orders') ORDER BY cid`)
	require.NoError(t, err)
	for rows.Next() {
		var typ string
		require.NoError(t, rows.Scan(&typ))
		types = append(types, typ)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"TEXT", "REAL", "BOOLEAN", "DATETIME"}, types)
}

func TestConnectionTables(t *testing.T) {
	t.Parallel()

	db := openSales(t)
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*Connection)
		require.True(t, ok)
		assert.Equal(t, []string{"Orders", "Lookup", "Rates"}, c.Tables(), "empty sheets are skipped")
		return nil
	}))
}

func TestQueryFrame(t *testing.T) {
	t.Parallel()

	db := openSales(t)
	rows, err := db.Query(`SELECT region, amount, paid, day FROM Orders ORDER BY rowid`)
	require.NoError(t, err)

	df, warnings, err := QueryFrame(rows)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"region", "amount", "paid", "day"}, df.Names())
	assert.Equal(t, 3, df.RowCount())
	assert.Equal(t, model.String, df.Type(0))
	assert.Equal(t, model.Numeric, df.Type(1))
	assert.Equal(t, model.Boolean, df.Type(2))
	assert.Equal(t, model.DateTime, df.Type(3))
	assert.Equal(t, []bool{false, true, false}, df.Column(1).Missing())
	assert.False(t, df.Column(2).Bool(1))
	assert.True(t, orderDay.Equal(df.Column(3).Time(0)))
}

func TestQueryFrame_Expressions(t *testing.T) {
	t.Parallel()

	db := openSales(t)

	t.Run("aggregates are numeric", func(t *testing.T) {
		rows, err := db.Query(`SELECT region, COUNT(*) AS n FROM Orders GROUP BY region ORDER BY region`)
		require.NoError(t, err)
		df, _, err := QueryFrame(rows)
		require.NoError(t, err)
		assert.Equal(t, model.Numeric, df.Type(1))
		assert.Equal(t, "north", df.Column(0).Text(0))
		assert.InDelta(t, 2.0, df.Column(1).Number(0), 1e-9)
	})

	t.Run("mixed values widen to string", func(t *testing.T) {
		rows, err := db.Query(`SELECT 1 AS v UNION ALL SELECT 'x'`)
		require.NoError(t, err)
		df, _, err := QueryFrame(rows)
		require.NoError(t, err)
		assert.Equal(t, model.String, df.Type(0))
		assert.Equal(t, 2, df.RowCount())
	})

	t.Run("empty result", func(t *testing.T) {
		rows, err := db.Query(`SELECT region FROM Orders WHERE 0`)
		require.NoError(t, err)
		df, _, err := QueryFrame(rows)
		require.NoError(t, err)
		assert.Equal(t, 1, df.ColumnCount())
		assert.Equal(t, 0, df.RowCount())
	})
}

func TestConnectErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	emptyBook := filepath.Join(dir, "empty.xlsx")
	require.NoError(t, excelize.NewFile().SaveAs(emptyBook))

	dupColumns := filepath.Join(dir, "dupcols.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"id", "ID"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{1, 2}))
	require.NoError(t, f.SaveAs(dupColumns))

	first := filepath.Join(dir, "first.xlsx")
	writeSalesWorkbook(t, first)
	second := filepath.Join(dir, "second.xlsx")
	writeSalesWorkbook(t, second)

	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n1,2\n"), 0o600))

	tests := []struct {
		name    string
		dsn     string
		wantErr error
	}{
		{name: "no paths", dsn: " ; ", wantErr: ErrNoPathsProvided},
		{name: "invalid path", dsn: "/etc/book.xlsx", wantErr: ErrInvalidPath},
		{name: "unsupported file", dsn: csvPath, wantErr: xlframe.ErrUnsupportedVersion},
		{name: "only empty sheets", dsn: emptyBook, wantErr: ErrNoTablesLoaded},
		{name: "duplicate columns", dsn: dupColumns, wantErr: ErrDuplicateColumnName},
		{name: "duplicate tables", dsn: first + ";" + second, wantErr: ErrDuplicateTableName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewDriver().Open(tt.dsn)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := NewDriver().Open(filepath.Join(dir, "nope.xlsx"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "path does not exist")
	})
}

func TestConnectDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSalesWorkbook(t, filepath.Join(dir, "sales.xlsx"))

	// the compressed copy would clash with sales.xlsx if it were loaded
	wb, err := xlframe.Open(filepath.Join(dir, "sales.xlsx"))
	require.NoError(t, err)
	require.NoError(t, wb.SaveAs(filepath.Join(dir, "sales.xlsx.gz")))
	require.NoError(t, wb.Close())

	other := excelize.NewFile()
	require.NoError(t, other.SetSheetName("Sheet1", "Stock"))
	require.NoError(t, other.SetSheetRow("Stock", "A1", &[]any{"item", "qty"}))
	require.NoError(t, other.SetSheetRow("Stock", "A2", &[]any{"bolt", 12}))
	require.NoError(t, other.SaveAs(filepath.Join(dir, "stock.xlsx")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("not a zip"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$sales.xlsx"), []byte("lock"), 0o600))

	db, err := OpenDB(dir)
	require.NoError(t, err)
	defer db.Close()

	var qty int
	require.NoError(t, db.QueryRow(`SELECT qty FROM Stock WHERE item = 'bolt'`).Scan(&qty))
	assert.Equal(t, 12, qty)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'`).Scan(&n))
	assert.Equal(t, 4, n, "Orders, Lookup, Rates and Stock")
}

func TestCollectDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.xlsx.zst", "a.xlsx.gz", "a.xlsx", "c.xls", "readme.md", ".hidden.xlsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.xlsx"), 0o750))

	files, err := collectDirectory(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		assert.True(t, f.fromDir)
		names = append(names, filepath.Base(f.path))
	}
	slices.Sort(names)
	assert.Equal(t, []string{"a.xlsx", "b.xlsx.zst", "c.xls"}, names)
}

func TestOpenDB(t *testing.T) {
	t.Parallel()

	_, err := OpenDB()
	require.ErrorIs(t, err, ErrNoPathsProvided)

	_, err = OpenDB(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
}

func TestConnectionTransactions(t *testing.T) {
	t.Parallel()

	db := openSales(t)

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec(`INSERT INTO Orders (region, amount) VALUES ('east', 1)`)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM Orders`).Scan(&count))
	assert.Equal(t, 3, count)

	tx, err = db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec(`INSERT INTO Orders (region, amount) VALUES ('east', 1)`)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM Orders`).Scan(&count))
	assert.Equal(t, 4, count)
}

func TestDumpDatabase(t *testing.T) {
	t.Parallel()

	db := openSales(t)
	_, err := db.Exec(`CREATE TABLE Summary AS SELECT region, SUM(amount) AS total FROM Orders GROUP BY region`)
	require.NoError(t, err)

	for _, name := range []string{"dump.xlsx", "dump.xlsx.zst"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), name)
			require.NoError(t, DumpDatabase(db, out))

			wb, err := xlframe.Open(out)
			require.NoError(t, err)
			defer wb.Close()

			assert.Equal(t, []string{"Orders", "Lookup", "Rates", "Summary"}, wb.SheetNames())

			orders, _, err := wb.ReadWorksheet("Orders", xlframe.NewBounds())
			require.NoError(t, err)
			assert.Equal(t, []string{"region", "amount", "paid", "day"}, orders.Names())
			assert.Equal(t, model.Boolean, orders.Type(2))
			assert.Equal(t, model.DateTime, orders.Type(3))
			assert.True(t, orders.Column(1).IsMissing(1))

			summary, _, err := wb.ReadWorksheet("Summary", xlframe.NewBounds())
			require.NoError(t, err)
			assert.Equal(t, 2, summary.RowCount())
		})
	}
}

func TestDumpDatabase_ReplacesExistingWorkbook(t *testing.T) {
	t.Parallel()

	db := openSales(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "existing.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "stale"))
	require.NoError(t, f.SaveAs(out))

	require.NoError(t, DumpDatabase(db, out))

	wb, err := xlframe.Open(out)
	require.NoError(t, err)
	defer wb.Close()
	assert.False(t, wb.ExistsSheet("Sheet1"))
	assert.True(t, wb.ExistsSheet("Orders"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary workbook is left behind")
}

func TestDumpDatabase_NotXlframeConnection(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	err = DumpDatabase(db, filepath.Join(t.TempDir(), "out.xlsx"))
	require.ErrorIs(t, err, ErrNotXlframeConnection)
}

func TestQueryBuilders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"plain"`, quoteIdent("plain"))
	assert.Equal(t, `"say ""hi"""`, quoteIdent(`say "hi"`))
	assert.Equal(t, `INSERT INTO "t" VALUES (?, ?, ?)`, buildInsertQuery("t", 3))

	df := model.NewDataFrame()
	require.NoError(t, df.AddColumn("flag", mustColumn(t, model.Boolean, true)))
	require.NoError(t, df.AddColumn("", mustColumn(t, model.Numeric, 1)))
	require.NoError(t, df.AddColumn("when", mustColumn(t, model.DateTime, orderDay)))
	require.NoError(t, df.AddColumn("note", mustColumn(t, model.String, "x")))

	columns, err := columnNames(df)
	require.NoError(t, err)
	assert.Equal(t, []string{"flag", "Col2", "when", "note"}, columns)
	assert.Equal(t,
		`CREATE TABLE "My Sheet" ("flag" BOOLEAN, "Col2" REAL, "when" DATETIME, "note" TEXT)`,
		buildCreateTableQuery(table{name: "My Sheet", frame: df}, columns))

	dup := model.NewDataFrame()
	require.NoError(t, dup.AddColumn("Col2", mustColumn(t, model.Numeric, 1)))
	require.NoError(t, dup.AddColumn("", mustColumn(t, model.Numeric, 2)))
	_, err = columnNames(dup)
	require.ErrorIs(t, err, ErrDuplicateColumnName)
}

func TestValueConversions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, true, resultValue("BOOLEAN", int64(1)))
	assert.Equal(t, false, resultValue("boolean", int64(0)))
	assert.Equal(t, int64(1), resultValue("INTEGER", int64(1)))
	assert.Equal(t, "x", resultValue("BOOLEAN", "x"))
	assert.Nil(t, resultValue("BOOLEAN", nil))

	assert.Equal(t, "ab", sqlValue("a\x00b"))
	assert.Equal(t, 1.5, sqlValue(1.5))
	assert.Nil(t, sqlValue(nil))
}

func TestSplitDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a.xlsx", "b dir"}, splitDSN(" a.xlsx ;; b dir ;"))
	assert.Empty(t, splitDSN(""))
}
