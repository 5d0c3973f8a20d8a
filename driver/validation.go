package driver

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/xlframe"
)

// MaxFileSize defines the maximum workbook size allowed for loading (1GB)
const MaxFileSize = 1024 * 1024 * 1024

// MaxFilesPerDirectory defines the maximum number of workbooks allowed per directory
const MaxFilesPerDirectory = 1000

// MaxColumnCount defines the maximum number of columns allowed in a table.
// It matches SQLite's default SQLITE_MAX_COLUMN.
const MaxColumnCount = 2000

// MaxValueLength defines the maximum length of a single text value
const MaxValueLength = 65536

var (
	// ErrFileTooLarge is returned when a workbook exceeds the maximum size limit
	ErrFileTooLarge = errors.New("file too large")

	// ErrTooManyFiles is returned when a directory contains too many workbooks
	ErrTooManyFiles = errors.New("too many files in directory")

	// ErrTooManyColumns is returned when a sheet or region has too many columns
	ErrTooManyColumns = errors.New("too many columns")

	// ErrInvalidPath is returned when a path is invalid or potentially dangerous
	ErrInvalidPath = errors.New("invalid or dangerous path")
)

// ValidatePath performs path validation before a workbook is opened.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrInvalidPath
	}

	// null byte injection
	if strings.Contains(path, "\x00") {
		return ErrInvalidPath
	}

	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") && !isLegitimateRelativePath(path) {
		return ErrInvalidPath
	}

	systemDirs := []string{"/etc/", "/proc/", "/sys/", "/dev/", "/boot/"}
	lowerPath := strings.ToLower(path)
	for _, sysDir := range systemDirs {
		if strings.HasPrefix(lowerPath, sysDir) {
			return ErrInvalidPath
		}
	}

	windowsDirs := []string{
		"c:\\windows\\", "c:/windows/",
		"c:\\program files", "c:/program files",
		"\\\\?\\", // UNC paths
		"\\\\",    // Network paths
	}
	for _, winDir := range windowsDirs {
		if strings.HasPrefix(lowerPath, winDir) {
			return ErrInvalidPath
		}
	}

	reservedNames := []string{"con", "prn", "aux", "nul", "com1", "com2", "com3", "com4", "com5", "com6", "com7", "com8", "com9", "lpt1", "lpt2", "lpt3", "lpt4", "lpt5", "lpt6", "lpt7", "lpt8", "lpt9"}
	baseName := strings.ToLower(xlframe.NewCompressionFactory().RemoveCompressionExtension(filepath.Base(path)))
	baseName = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	for _, reserved := range reservedNames {
		if baseName == reserved {
			return ErrInvalidPath
		}
	}

	return nil
}

// ValidateColumnCount checks if the number of columns is within acceptable limits
func ValidateColumnCount(columnCount int) error {
	if columnCount > MaxColumnCount {
		return ErrTooManyColumns
	}
	return nil
}

// ValidateFileCount checks if the number of workbooks is within acceptable limits
func ValidateFileCount(fileCount int) error {
	if fileCount > MaxFilesPerDirectory {
		return ErrTooManyFiles
	}
	return nil
}

// ValidateFileSize checks if a workbook is small enough to be loaded
func ValidateFileSize(size int64) error {
	if size > MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// ValidateFieldValue truncates over-long text on a rune boundary and removes null bytes.
func ValidateFieldValue(value string) string {
	if len(value) > MaxValueLength {
		cut := MaxValueLength
		for cut > 0 && !utf8.RuneStart(value[cut]) {
			cut--
		}
		value = value[:cut]
	}
	return strings.ReplaceAll(value, "\x00", "")
}

// IsValidFileName checks if a file found in a directory is safe to load.
func IsValidFileName(fileName string) bool {
	// hidden files and Excel lock files (~$book.xlsx)
	if strings.HasPrefix(fileName, ".") || strings.HasPrefix(fileName, "~$") {
		return false
	}

	if strings.Contains(fileName, "\x00") {
		return false
	}

	suspiciousChars := []string{"<", ">", ":", "\"", "|", "?", "*"}
	for _, char := range suspiciousChars {
		if strings.Contains(fileName, char) {
			return false
		}
	}

	return true
}

// IsWorkbookFile reports whether a file name carries a readable workbook
// extension, optionally followed by a compression extension.
func IsWorkbookFile(fileName string) bool {
	return xlframe.NewCompressionFactory().DetectVersion(fileName) != xlframe.VersionUnsupported
}

// SanitizeForLog removes sensitive information from strings before logging
func SanitizeForLog(input string) string {
	sensitive := []string{
		"password", "passwd", "secret", "key", "token",
		"credential", "auth", "private", "ssh", "rsa",
	}

	result := input
	for _, pattern := range sensitive {
		if strings.Contains(strings.ToLower(result), pattern) {
			return "[REDACTED]"
		}
	}

	const maxLogLength = 200
	if len(result) > maxLogLength {
		result = result[:maxLogLength] + "..."
	}

	return result
}

// isLegitimateRelativePath allows at most three parent directory references.
func isLegitimateRelativePath(path string) bool {
	cleanPath := filepath.Clean(path)

	if strings.HasPrefix(cleanPath, "../") || strings.HasPrefix(cleanPath, "..\\") {
		parts := strings.FieldsFunc(cleanPath, func(c rune) bool {
			return c == '/' || c == '\\'
		})
		upLevels := 0
		for _, part := range parts {
			if part == ".." {
				upLevels++
			} else if part != "." && part != "" {
				break
			}
		}
		return upLevels <= 3
	}

	return true
}
