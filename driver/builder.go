package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nao1215/xlframe"
)

// DBBuilder configures workbook inputs before opening a database.
//
// The typical usage pattern is:
//
//	builder := driver.NewBuilder().AddPath("sales.xlsx").AddFS(embeddedFS)
//	validatedBuilder, err := builder.Build(ctx)
//	if err != nil {
//		return err
//	}
//	db, err := validatedBuilder.Open(ctx)
//	defer db.Close()
//	defer validatedBuilder.Cleanup() // Clean up temporary files
type DBBuilder struct {
	// paths contains workbook or directory paths
	paths []string
	// filesystems contains fs.FS instances
	filesystems []fs.FS
	// collectedPaths contains all paths after Build validation
	collectedPaths []string
	// tempFiles tracks workbooks copied out of filesystems
	tempFiles []string
	// autoSaveConfig contains auto-save settings
	autoSaveConfig *AutoSaveConfig
	logger         *logrus.Logger
}

// AutoSaveTiming specifies when automatic saving should occur
type AutoSaveTiming int

const (
	// AutoSaveOnClose saves data when db.Close() is called (default)
	AutoSaveOnClose AutoSaveTiming = iota
	// AutoSaveOnCommit saves data when a transaction is committed
	AutoSaveOnCommit
)

// AutoSaveConfig holds configuration for automatic saving
type AutoSaveConfig struct {
	// Enabled indicates whether auto-save is enabled
	Enabled bool
	// Timing specifies when to save (on close or on commit)
	Timing AutoSaveTiming
	// OutputPath is the workbook every table is written to, one worksheet
	// per table. A compression extension compresses the saved workbook.
	OutputPath string
}

// NewBuilder creates a new database builder.
func NewBuilder() *DBBuilder {
	return &DBBuilder{
		paths:          make([]string, 0),
		filesystems:    make([]fs.FS, 0),
		collectedPaths: make([]string, 0),
		tempFiles:      make([]string, 0),
		logger:         logrus.StandardLogger(),
	}
}

// AddPath adds a workbook or a directory of workbooks.
// Supported extensions are .xlsx, .xlsm and .xls, optionally followed by
// .gz, .bz2, .xz or .zst.
func (b *DBBuilder) AddPath(path string) *DBBuilder {
	b.paths = append(b.paths, path)
	return b
}

// AddPaths adds multiple workbook or directory paths.
func (b *DBBuilder) AddPaths(paths ...string) *DBBuilder {
	b.paths = append(b.paths, paths...)
	return b
}

// AddFS adds every workbook found in filesystem, e.g. an embed.FS.
// The workbooks are copied to temporary files during Build.
func (b *DBBuilder) AddFS(filesystem fs.FS) *DBBuilder {
	b.filesystems = append(b.filesystems, filesystem)
	return b
}

// WithLogger sets the logger used while loading workbooks.
func (b *DBBuilder) WithLogger(logger *logrus.Logger) *DBBuilder {
	b.logger = logger
	return b
}

// EnableAutoSave writes every table to outputPath when the database is closed.
func (b *DBBuilder) EnableAutoSave(outputPath string) *DBBuilder {
	b.autoSaveConfig = &AutoSaveConfig{
		Enabled:    true,
		Timing:     AutoSaveOnClose,
		OutputPath: outputPath,
	}
	return b
}

// EnableAutoSaveOnCommit writes every table to outputPath after each committed transaction.
func (b *DBBuilder) EnableAutoSaveOnCommit(outputPath string) *DBBuilder {
	b.autoSaveConfig = &AutoSaveConfig{
		Enabled:    true,
		Timing:     AutoSaveOnCommit,
		OutputPath: outputPath,
	}
	return b
}

// DisableAutoSave disables automatic saving.
func (b *DBBuilder) DisableAutoSave() *DBBuilder {
	b.autoSaveConfig = nil
	return b
}

// Build validates the inputs and copies filesystem workbooks to temporary files.
func (b *DBBuilder) Build(ctx context.Context) (*DBBuilder, error) {
	if len(b.paths) == 0 && len(b.filesystems) == 0 {
		return nil, ErrNoPathsProvided
	}
	if b.autoSaveConfig != nil && b.autoSaveConfig.Enabled {
		if err := validateOutputPath(b.autoSaveConfig.OutputPath); err != nil {
			return nil, err
		}
	}

	b.collectedPaths = make([]string, 0)

	for _, p := range b.paths {
		if err := ValidatePath(p); err != nil {
			return nil, fmt.Errorf("%w: %s", err, p)
		}
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("path does not exist: %s", p)
			}
			return nil, fmt.Errorf("failed to stat path %s: %w", p, err)
		}
		if !info.IsDir() && !IsWorkbookFile(p) {
			return nil, fmt.Errorf("unsupported file type: %s", p)
		}
		b.collectedPaths = append(b.collectedPaths, p)
	}

	for _, filesystem := range b.filesystems {
		if filesystem == nil {
			return nil, errors.New("FS cannot be nil")
		}
		paths, err := b.processFSInput(ctx, filesystem)
		if err != nil {
			return nil, fmt.Errorf("failed to process FS input: %w", err)
		}
		b.collectedPaths = append(b.collectedPaths, paths...)
	}

	if len(b.collectedPaths) == 0 {
		return nil, ErrNoTablesLoaded
	}
	return b, nil
}

// Open opens a database over the collected workbooks. With auto-save
// enabled the pool is limited to one connection, so every statement sees
// and saves the same in-memory database.
func (b *DBBuilder) Open(ctx context.Context) (*sql.DB, error) {
	if len(b.collectedPaths) == 0 {
		return nil, errors.New("no valid input files found, did you call Build()?")
	}

	connector := &Connector{
		driver:   NewDriver(),
		dsn:      strings.Join(b.collectedPaths, ";"),
		logger:   b.logger,
		autoSave: b.autoSaveConfig,
	}
	db := sql.OpenDB(connector)
	if b.autoSaveConfig != nil && b.autoSaveConfig.Enabled {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		var allErrors []error
		allErrors = append(allErrors, err)
		if closeErr := db.Close(); closeErr != nil {
			allErrors = append(allErrors, fmt.Errorf("failed to close database: %w", closeErr))
		}
		if cleanupErr := b.cleanup(); cleanupErr != nil {
			allErrors = append(allErrors, fmt.Errorf("cleanup failed: %w", cleanupErr))
		}
		return nil, errors.Join(allErrors...)
	}
	return db, nil
}

// validateOutputPath checks that auto-save can write a workbook to p.
func validateOutputPath(p string) error {
	if p == "" {
		return errors.New("auto-save output path cannot be empty")
	}
	if xlframe.NewCompressionFactory().DetectVersion(p) != xlframe.VersionXLSX {
		return fmt.Errorf("auto-save output must be an .xlsx or .xlsm workbook: %s", p)
	}
	if err := ValidatePath(p); err != nil {
		return fmt.Errorf("%w: %s", err, p)
	}
	dir := filepath.Dir(p)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("auto-save output directory is not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("auto-save output directory is not a directory: %s", dir)
	}
	return nil
}

// processFSInput copies every workbook in filesystem to a temporary file.
func (b *DBBuilder) processFSInput(ctx context.Context, filesystem fs.FS) ([]string, error) {
	var matches []string
	err := fs.WalkDir(filesystem, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := path.Base(p)
		if IsValidFileName(name) && IsWorkbookFile(name) {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk filesystem: %w", err)
	}
	if len(matches) == 0 {
		return nil, errors.New("no workbooks found in filesystem")
	}

	paths := make([]string, 0, len(matches))
	for _, match := range matches {
		tempPath, err := b.copyFSToTemp(ctx, filesystem, match)
		if err != nil {
			return nil, fmt.Errorf("failed to copy file %s: %w", match, err)
		}
		paths = append(paths, tempPath)
	}
	return paths, nil
}

// copyFSToTemp copies one workbook, keeping its extensions so the
// workbook version and compression are still detected.
func (b *DBBuilder) copyFSToTemp(_ context.Context, filesystem fs.FS, p string) (string, error) {
	file, err := filesystem.Open(p)
	if err != nil {
		return "", fmt.Errorf("failed to open FS file: %w", err)
	}
	defer file.Close()

	dir, err := os.MkdirTemp("", "xlframe-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	tempPath := filepath.Join(dir, path.Base(p))
	b.tempFiles = append(b.tempFiles, dir)

	tempFile, err := os.Create(tempPath) //nolint:gosec // path is inside a fresh temp directory
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, file); err != nil {
		return "", fmt.Errorf("failed to copy content: %w", err)
	}
	return tempPath, nil
}

func (b *DBBuilder) cleanup() error {
	var errs []error
	for _, p := range b.tempFiles {
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove temp file %s: %w", p, err))
		}
	}
	b.tempFiles = nil
	return errors.Join(errs...)
}

// Cleanup removes the temporary copies of filesystem workbooks.
// Call it after the database is closed.
func (b *DBBuilder) Cleanup() error {
	return b.cleanup()
}
