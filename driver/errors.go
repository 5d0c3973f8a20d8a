package driver

import "errors"

// Predefined errors
var (
	// ErrNoPathsProvided is returned when the data source name holds no path
	ErrNoPathsProvided = errors.New("xlframe driver: no paths provided")

	// ErrNoTablesLoaded is returned when no worksheet or named region could be loaded
	ErrNoTablesLoaded = errors.New("xlframe driver: no tables were loaded")

	// ErrStmtExecContextNotSupported is returned when statement does not support ExecContext
	ErrStmtExecContextNotSupported = errors.New("xlframe driver: statement does not support ExecContext")

	// ErrStmtQueryContextNotSupported is returned when statement does not support QueryContext
	ErrStmtQueryContextNotSupported = errors.New("xlframe driver: statement does not support QueryContext")

	// ErrBeginTxNotSupported is returned when underlying connection does not support BeginTx
	ErrBeginTxNotSupported = errors.New("xlframe driver: underlying connection does not support BeginTx")

	// ErrPrepareContextNotSupported is returned when underlying connection does not support PrepareContext
	ErrPrepareContextNotSupported = errors.New("xlframe driver: underlying connection does not support PrepareContext")

	// ErrNotXlframeConnection is returned when connection is not an xlframe connection
	ErrNotXlframeConnection = errors.New("xlframe driver: connection is not an xlframe connection")

	// ErrDuplicateColumnName is returned when a table would contain the same column twice
	ErrDuplicateColumnName = errors.New("xlframe driver: duplicate column name")

	// ErrDuplicateTableName is returned when two sheets or names would create the same table
	ErrDuplicateTableName = errors.New("xlframe driver: duplicate table name")
)
