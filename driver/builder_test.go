package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/xlframe"
)

func salesBytes(t *testing.T) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sales.xlsx")
	writeSalesWorkbook(t, path)
	data, err := os.ReadFile(path) //nolint:gosec // test fixture
	require.NoError(t, err)
	return data
}

func TestDBBuilder_BuildErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a\n1\n"), 0o600))
	book := filepath.Join(dir, "book.xlsx")
	writeSalesWorkbook(t, book)

	tests := []struct {
		name    string
		builder *DBBuilder
		wantErr string
	}{
		{
			name:    "no inputs",
			builder: NewBuilder(),
			wantErr: ErrNoPathsProvided.Error(),
		},
		{
			name:    "missing path",
			builder: NewBuilder().AddPath(filepath.Join(dir, "missing.xlsx")),
			wantErr: "path does not exist",
		},
		{
			name:    "unsupported file",
			builder: NewBuilder().AddPath(csvPath),
			wantErr: "unsupported file type",
		},
		{
			name:    "dangerous path",
			builder: NewBuilder().AddPath("/proc/book.xlsx"),
			wantErr: ErrInvalidPath.Error(),
		},
		{
			name:    "auto-save to csv",
			builder: NewBuilder().AddPath(book).EnableAutoSave(filepath.Join(dir, "out.csv")),
			wantErr: "auto-save output must be",
		},
		{
			name:    "auto-save to missing directory",
			builder: NewBuilder().AddPath(book).EnableAutoSave(filepath.Join(dir, "nope", "out.xlsx")),
			wantErr: "not accessible",
		},
		{
			name:    "filesystem without workbooks",
			builder: NewBuilder().AddFS(fstest.MapFS{"notes.txt": {Data: []byte("hi")}}),
			wantErr: "no workbooks found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := tt.builder.Build(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDBBuilder_OpenWithoutBuild(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder().AddPath("book.xlsx").Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you call Build()")
}

func TestDBBuilder_PathsAndFS(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stock := filepath.Join(dir, "stock.xlsx")
	wb, err := xlframe.Open(stock, xlframe.NewOptions().WithCreate(true))
	require.NoError(t, err)
	df := xlframe.NewDataFrame()
	require.NoError(t, df.AddColumn("sku", mustColumn(t, xlframe.String, "a-1", "b-2")))
	require.NoError(t, df.AddColumn("qty", mustColumn(t, xlframe.Numeric, 3, 7)))
	require.NoError(t, wb.WriteWorksheet(df, "Stock"))
	require.NoError(t, wb.RemoveSheet("Sheet1"))
	require.NoError(t, wb.Save())
	require.NoError(t, wb.Close())

	fsys := fstest.MapFS{
		"data/sales.xlsx":   {Data: salesBytes(t)},
		"data/readme.md":    {Data: []byte("ignored")},
		"data/~$sales.xlsx": {Data: []byte("lock file")},
	}

	ctx := context.Background()
	builder, err := NewBuilder().AddPaths(stock).AddFS(fsys).Build(ctx)
	require.NoError(t, err)
	require.Len(t, builder.tempFiles, 1)
	tempDir := builder.tempFiles[0]

	db, err := builder.Open(ctx)
	require.NoError(t, err)

	var qty float64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT qty FROM Stock WHERE sku = 'b-2'`).Scan(&qty))
	assert.InDelta(t, 7.0, qty, 1e-9)

	var orders int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Orders`).Scan(&orders))
	assert.Equal(t, 3, orders)

	require.NoError(t, db.Close())
	require.NoError(t, builder.Cleanup())
	_, err = os.Stat(tempDir)
	assert.True(t, os.IsNotExist(err), "temporary copies are removed")
}

func TestDBBuilder_AutoSaveOnClose(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	book := filepath.Join(dir, "sales.xlsx")
	writeSalesWorkbook(t, book)
	out := filepath.Join(dir, "saved.xlsx.gz")

	ctx := context.Background()
	builder, err := NewBuilder().AddPath(book).EnableAutoSave(out).Build(ctx)
	require.NoError(t, err)
	db, err := builder.Open(ctx)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `DELETE FROM Orders WHERE region = 'south'`)
	require.NoError(t, err)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "nothing is saved before close")

	require.NoError(t, db.Close())

	saved, err := OpenDB(out)
	require.NoError(t, err)
	defer saved.Close()

	var count int
	require.NoError(t, saved.QueryRowContext(ctx, `SELECT COUNT(*) FROM Orders`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestDBBuilder_AutoSaveOnCommit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	book := filepath.Join(dir, "sales.xlsx")
	writeSalesWorkbook(t, book)
	out := filepath.Join(dir, "committed.xlsx")

	ctx := context.Background()
	builder, err := NewBuilder().AddPath(book).EnableAutoSaveOnCommit(out).Build(ctx)
	require.NoError(t, err)
	db, err := builder.Open(ctx)
	require.NoError(t, err)
	defer db.Close()

	countSaved := func() int {
		t.Helper()
		saved, err := OpenDB(out)
		require.NoError(t, err)
		defer saved.Close()
		var n int
		require.NoError(t, saved.QueryRowContext(ctx, `SELECT COUNT(*) FROM Orders`).Scan(&n))
		return n
	}

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `DELETE FROM Orders WHERE region = 'north'`)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, 1, countSaved())

	tx, err = db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `DELETE FROM Orders`)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.Equal(t, 1, countSaved(), "rollback does not save")

	tx, err = db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `INSERT INTO Orders (region, amount) VALUES ('west', 1), ('east', 2)`)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, 3, countSaved())
}

func TestDBBuilder_DisableAutoSave(t *testing.T) {
	t.Parallel()

	b := NewBuilder().EnableAutoSave("out.xlsx").DisableAutoSave()
	assert.Nil(t, b.autoSaveConfig)

	b = NewBuilder().EnableAutoSaveOnCommit("out.xlsx")
	require.NotNil(t, b.autoSaveConfig)
	assert.Equal(t, AutoSaveOnCommit, b.autoSaveConfig.Timing)
	assert.Equal(t, "out.xlsx", b.autoSaveConfig.OutputPath)
}
