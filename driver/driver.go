package driver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"

	"github.com/nao1215/xlframe"
	"github.com/nao1215/xlframe/domain/model"
)

// DriverName is the name the driver is registered under with database/sql.
const DriverName = "xlframe"

func init() {
	sql.Register(DriverName, NewDriver())
}

// Driver implements database/sql/driver.Driver interface for workbooks.
// It serves as the entry point for creating connections to workbook-backed databases.
type Driver struct{}

// Connector implements database/sql/driver.Connector interface.
// The dsn field contains workbook or directory paths separated by semicolons.
type Connector struct {
	driver   *Driver
	dsn      string
	logger   *logrus.Logger
	autoSave *AutoSaveConfig
}

// Connection implements database/sql/driver.Conn interface.
// It wraps an underlying SQLite connection that contains the loaded tables.
type Connection struct {
	conn     driver.Conn
	tables   []string
	autoSave *AutoSaveConfig
	logger   *logrus.Logger
}

// Transaction implements database/sql/driver.Tx interface.
type Transaction struct {
	tx   driver.Tx
	conn *Connection
}

// table is one worksheet or named region ready to be loaded.
type table struct {
	name   string
	source string
	frame  *model.DataFrame
}

// workbookFile is a workbook to load. Workbooks found by scanning a
// directory are skipped with a warning when they cannot be read.
type workbookFile struct {
	path    string
	fromDir bool
}

// NewDriver creates a new workbook SQL driver
func NewDriver() *Driver {
	return &Driver{}
}

// Open implements driver.Driver interface
func (d *Driver) Open(dsn string) (driver.Conn, error) {
	connector, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector implements driver.DriverContext interface
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	return &Connector{
		driver: d,
		dsn:    dsn,
		logger: logrus.StandardLogger(),
	}, nil
}

// OpenDB opens a database holding the tables of every given workbook or
// directory. The workbooks are loaded eagerly so path errors surface here.
func OpenDB(paths ...string) (*sql.DB, error) {
	if len(paths) == 0 {
		return nil, ErrNoPathsProvided
	}
	connector, err := NewDriver().OpenConnector(strings.Join(paths, ";"))
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	if err := db.Ping(); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return db, nil
}

// Connect implements driver.Connector interface
func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	sqliteDriver := &sqlite.Driver{}
	conn, err := sqliteDriver.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory database: %w", err)
	}

	tables, err := c.load(ctx, conn)
	if err != nil {
		_ = conn.Close() // Ignore close error since we're already returning an error
		return nil, fmt.Errorf("failed to load workbook: %w", err)
	}

	return &Connection{conn: conn, tables: tables, autoSave: c.autoSave, logger: c.logger}, nil
}

// Driver implements driver.Connector interface
func (c *Connector) Driver() driver.Driver {
	return c.driver
}

// splitDSN returns the non-empty paths of a semicolon separated DSN.
func splitDSN(dsn string) []string {
	var paths []string
	for _, p := range strings.Split(dsn, ";") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// load reads every workbook named by the DSN and loads its tables.
// Table names are compared case-insensitively, as SQLite does.
func (c *Connector) load(ctx context.Context, conn driver.Conn) ([]string, error) {
	paths := splitDSN(c.dsn)
	if len(paths) == 0 {
		return nil, ErrNoPathsProvided
	}

	files, err := collectWorkbooks(paths)
	if err != nil {
		return nil, err
	}

	sources := make(map[string]string)
	var loaded []string
	for _, wf := range files {
		tables, err := c.readWorkbook(wf.path)
		if err != nil {
			if wf.fromDir {
				c.logger.WithFields(logrus.Fields{"file": SanitizeForLog(filepath.Base(wf.path))}).
					WithError(err).Warn("skipping workbook")
				continue
			}
			return nil, err
		}

		for _, t := range tables {
			key := strings.ToLower(t.name)
			if existing, ok := sources[key]; ok {
				return nil, fmt.Errorf("%w: table '%s' from '%s' and '%s'", ErrDuplicateTableName, t.name, existing, t.source)
			}
			sources[key] = t.source
			if err := loadTable(ctx, conn, t); err != nil {
				return nil, fmt.Errorf("failed to load table '%s' from '%s': %w", t.name, t.source, err)
			}
			loaded = append(loaded, t.name)
		}
	}

	if len(loaded) == 0 {
		return nil, ErrNoTablesLoaded
	}
	c.logger.WithFields(logrus.Fields{"tables": len(loaded), "workbooks": len(files)}).Debug("loaded workbook tables")
	return loaded, nil
}

// collectWorkbooks expands directories and validates every path.
func collectWorkbooks(paths []string) ([]workbookFile, error) {
	var files []workbookFile
	for _, path := range paths {
		if err := ValidatePath(path); err != nil {
			return nil, fmt.Errorf("%w: %s", err, path)
		}
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("path does not exist: %s", path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat path: %w", err)
		}

		if !info.IsDir() {
			if err := ValidateFileSize(info.Size()); err != nil {
				return nil, fmt.Errorf("%w: %s", err, path)
			}
			files = append(files, workbookFile{path: path})
			continue
		}

		dirFiles, err := collectDirectory(path)
		if err != nil {
			return nil, err
		}
		files = append(files, dirFiles...)
	}
	return files, nil
}

// collectDirectory returns the workbooks directly inside dir. When a
// workbook exists both plain and compressed, the plain file is preferred.
func collectDirectory(dir string) ([]workbookFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	factory := xlframe.NewCompressionFactory()
	chosen := make(map[string]string)
	var order []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !IsValidFileName(name) || !IsWorkbookFile(name) {
			continue
		}
		base := factory.RemoveCompressionExtension(name)
		existing, ok := chosen[base]
		if !ok {
			order = append(order, base)
			chosen[base] = name
			continue
		}
		if existing != base && name == base {
			chosen[base] = name
		}
	}

	if err := ValidateFileCount(len(order)); err != nil {
		return nil, fmt.Errorf("%w: %s", err, dir)
	}

	files := make([]workbookFile, 0, len(order))
	for _, base := range order {
		path := filepath.Join(dir, chosen[base])
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat path: %w", err)
		}
		if err := ValidateFileSize(info.Size()); err != nil {
			return nil, fmt.Errorf("%w: %s", err, path)
		}
		files = append(files, workbookFile{path: path, fromDir: true})
	}
	return files, nil
}

// readWorkbook reads every non-empty worksheet and every workbook scoped
// named region. Error cells are read as NULL.
func (c *Connector) readWorkbook(path string) ([]table, error) {
	wb, err := xlframe.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	log := c.logger.WithField("file", SanitizeForLog(filepath.Base(path)))
	opts := xlframe.NewReadOptions().WithErrorCells(xlframe.ErrorCellWarn)

	var tables []table
	for _, sheet := range wb.SheetNames() {
		df, warnings, err := wb.ReadWorksheet(sheet, xlframe.NewBounds(), opts)
		if errors.Is(err, xlframe.ErrBoundsUndetermined) {
			log.WithField("sheet", sheet).Debug("skipping empty worksheet")
			continue
		}
		if err != nil {
			return nil, err
		}
		logWarnings(log, warnings)
		tables = append(tables, table{name: sheet, source: path + "!" + sheet, frame: df})
	}

	for _, name := range wb.NamedRegions() {
		if strings.HasPrefix(name, "_xlnm.") {
			continue
		}
		df, warnings, err := wb.ReadNamedRegion(name, opts)
		if errors.Is(err, xlframe.ErrNotFound) || errors.Is(err, xlframe.ErrInvalidReference) {
			log.WithField("name", name).WithError(err).Warn("skipping named region")
			continue
		}
		if err != nil {
			return nil, err
		}
		logWarnings(log, warnings)
		tables = append(tables, table{name: name, source: path + "#" + name, frame: df})
	}
	return tables, nil
}

func logWarnings(log *logrus.Entry, warnings []model.ConversionWarning) {
	for _, w := range warnings {
		log.WithField("cell", w.Cell).Info(w.String())
	}
}

// sqlType maps a column type onto the declared SQLite column type.
func sqlType(dt model.DataType) string {
	switch dt {
	case model.Boolean:
		return "BOOLEAN"
	case model.Numeric:
		return "REAL"
	case model.DateTime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnNames returns the SQL column names of df, Col<n> for unnamed columns.
func columnNames(df *model.DataFrame) ([]string, error) {
	names := make([]string, df.ColumnCount())
	seen := make(map[string]bool, len(names))
	for i := range names {
		name := df.Name(i)
		if name == "" {
			name = fmt.Sprintf("Col%d", i+1)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumnName, name)
		}
		seen[key] = true
		names[i] = name
	}
	return names, nil
}

// buildCreateTableQuery constructs a CREATE TABLE query for the given table
func buildCreateTableQuery(t table, columns []string) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(col), sqlType(t.frame.Type(i)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(t.name), strings.Join(defs, ", "))
}

// buildInsertQuery constructs an INSERT query with count placeholders
func buildInsertQuery(name string, count int) string {
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), strings.TrimSuffix(strings.Repeat("?, ", count), ", "))
}

// loadTable creates the table and inserts the frame's rows.
func loadTable(ctx context.Context, conn driver.Conn, t table) error {
	df := t.frame
	if err := ValidateColumnCount(df.ColumnCount()); err != nil {
		return err
	}
	columns, err := columnNames(df)
	if err != nil {
		return err
	}

	if err := execQuery(ctx, conn, buildCreateTableQuery(t, columns)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	if df.RowCount() == 0 {
		return nil
	}

	stmt, err := prepare(ctx, conn, buildInsertQuery(t.name, len(columns)))
	if err != nil {
		return err
	}
	defer stmt.Close()

	execer, ok := stmt.(driver.StmtExecContext)
	if !ok {
		return ErrStmtExecContextNotSupported
	}
	args := make([]driver.NamedValue, len(columns))
	for r := range df.RowCount() {
		for i := range columns {
			args[i] = driver.NamedValue{Ordinal: i + 1, Value: sqlValue(df.Column(i).Value(r))}
		}
		if _, err := execer.ExecContext(ctx, args); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", r+1, err)
		}
	}
	return nil
}

// sqlValue converts a column value to a driver value.
func sqlValue(v any) driver.Value {
	if s, ok := v.(string); ok {
		return ValidateFieldValue(s)
	}
	return v
}

// resultValue converts a value read from SQLite back into the Go type of
// its declared column type. SQLite stores booleans as integers.
func resultValue(declType string, v any) any {
	if n, ok := v.(int64); ok && strings.EqualFold(declType, "BOOLEAN") {
		return n != 0
	}
	return v
}

func prepare(ctx context.Context, conn driver.Conn, query string) (driver.Stmt, error) {
	if p, ok := conn.(driver.ConnPrepareContext); ok {
		return p.PrepareContext(ctx, query)
	}
	return nil, ErrPrepareContextNotSupported
}

func execQuery(ctx context.Context, conn driver.Conn, query string) error {
	stmt, err := prepare(ctx, conn, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	execer, ok := stmt.(driver.StmtExecContext)
	if !ok {
		return ErrStmtExecContextNotSupported
	}
	_, err = execer.ExecContext(ctx, nil)
	return err
}

// Tables returns the names of the tables loaded from the workbooks, in load order.
func (conn *Connection) Tables() []string {
	return append([]string(nil), conn.tables...)
}

// Close implements driver.Conn interface. With auto-save on close the
// tables are written to the output workbook first.
func (conn *Connection) Close() error {
	if conn.conn == nil {
		return nil
	}
	var saveErr error
	if conn.autoSaveEnabled(AutoSaveOnClose) {
		saveErr = conn.autoSaveNow()
	}
	closeErr := conn.conn.Close()
	conn.conn = nil
	return errors.Join(saveErr, closeErr)
}

func (conn *Connection) autoSaveEnabled(timing AutoSaveTiming) bool {
	return conn.autoSave != nil && conn.autoSave.Enabled && conn.autoSave.Timing == timing
}

func (conn *Connection) autoSaveNow() error {
	if err := conn.Dump(conn.autoSave.OutputPath); err != nil {
		return fmt.Errorf("auto-save failed: %w", err)
	}
	if conn.logger != nil {
		conn.logger.WithField("output", SanitizeForLog(conn.autoSave.OutputPath)).Debug("auto-saved tables")
	}
	return nil
}

// Begin implements driver.Conn interface (deprecated, use BeginTx instead)
func (conn *Connection) Begin() (driver.Tx, error) {
	return conn.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx implements driver.ConnBeginTx interface
func (conn *Connection) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if connBeginTx, ok := conn.conn.(driver.ConnBeginTx); ok {
		tx, err := connBeginTx.BeginTx(ctx, opts)
		if err != nil {
			return nil, err
		}
		return &Transaction{tx: tx, conn: conn}, nil
	}
	return nil, ErrBeginTxNotSupported
}

// Commit implements driver.Tx interface. With auto-save on commit the
// tables are written to the output workbook after a successful commit.
func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return err
	}
	if t.conn != nil && t.conn.autoSaveEnabled(AutoSaveOnCommit) {
		return t.conn.autoSaveNow()
	}
	return nil
}

// Rollback implements driver.Tx interface
func (t *Transaction) Rollback() error {
	return t.tx.Rollback()
}

// Prepare implements driver.Conn interface (deprecated, use PrepareContext instead)
func (conn *Connection) Prepare(query string) (driver.Stmt, error) {
	return conn.PrepareContext(context.Background(), query)
}

// PrepareContext implements driver.ConnPrepareContext interface
func (conn *Connection) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	return prepare(ctx, conn.conn, query)
}

// Dump writes a new workbook at outputPath holding one worksheet per
// table, replacing any existing file. A compression extension on
// outputPath compresses the saved workbook.
func (conn *Connection) Dump(outputPath string) error {
	tableNames, err := conn.getTableNames()
	if err != nil {
		return fmt.Errorf("failed to get table names: %w", err)
	}
	if len(tableNames) == 0 {
		return ErrNoTablesLoaded
	}

	// the workbook is built under a temporary name and renamed into place
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".xlframe-*-"+filepath.Base(outputPath))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := errors.Join(tmp.Close(), os.Remove(tmpPath)); err != nil {
		return fmt.Errorf("failed to prepare temp file: %w", err)
	}

	if err := conn.dumpTo(tmpPath, tableNames); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", outputPath, err)
	}
	return nil
}

func (conn *Connection) dumpTo(path string, tableNames []string) error {
	wb, err := xlframe.Open(path, xlframe.NewOptions().WithCreate(true))
	if err != nil {
		return err
	}
	defer wb.Close()

	for _, name := range tableNames {
		df, err := conn.tableFrame(name)
		if err != nil {
			return fmt.Errorf("failed to export table %s: %w", name, err)
		}
		if err := wb.WriteWorksheet(df, name); err != nil {
			return fmt.Errorf("failed to export table %s: %w", name, err)
		}
	}

	// a new workbook starts with a default sheet no table asked for
	for _, sheet := range wb.SheetNames() {
		if !containsFold(tableNames, sheet) {
			if err := wb.RemoveSheet(sheet); err != nil {
				return err
			}
		}
	}
	return wb.Save()
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// getTableNames retrieves all user-defined table names in creation order
func (conn *Connection) getTableNames() ([]string, error) {
	rows, err := conn.executeQuery("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	dest := make([]driver.Value, 1)
	for {
		if err := rows.Next(dest); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if name, ok := dest[0].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// tableFrame reads a whole table back into a DataFrame.
func (conn *Connection) tableFrame(name string) (*model.DataFrame, error) {
	rows, err := conn.executeQuery("SELECT * FROM " + quoteIdent(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := rows.Columns()
	declTypes := make([]string, len(columns))
	if typed, ok := rows.(driver.RowsColumnTypeDatabaseTypeName); ok {
		for i := range declTypes {
			declTypes[i] = typed.ColumnTypeDatabaseTypeName(i)
		}
	}

	fc := newFrameCollector(columns)
	dest := make([]driver.Value, len(columns))
	values := make([]any, len(columns))
	for {
		if err := rows.Next(dest); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		for i, v := range dest {
			values[i] = resultValue(declTypes[i], v)
		}
		if err := fc.add(values); err != nil {
			return nil, err
		}
	}

	df, _, err := fc.frame()
	return df, err
}

// executeQuery executes a query without arguments
func (conn *Connection) executeQuery(query string) (driver.Rows, error) {
	stmt, err := conn.PrepareContext(context.Background(), query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	if stmtQueryCtx, ok := stmt.(driver.StmtQueryContext); ok {
		return stmtQueryCtx.QueryContext(context.Background(), nil)
	}
	return nil, ErrStmtQueryContextNotSupported
}

// DumpDatabase writes every table of db to the workbook at outputPath.
// db must have been opened with this driver.
func DumpDatabase(db *sql.DB, outputPath string) error {
	conn, err := db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*Connection)
		if !ok {
			return ErrNotXlframeConnection
		}
		return c.Dump(outputPath)
	})
}
