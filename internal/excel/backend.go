package excel

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrFileNotFound      = errors.New("document not found")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrIO                = errors.New("document could not be saved")
	ErrValueTooLong      = errors.New("value too long for a cell")
)

// Backend opens documents of one container format.
type Backend interface {
	Open(path string) (Document, error)
}

// Document is an open workbook. Changes are only persisted by Save.
type Document interface {
	Sheet(name string) (Sheet, error)
	Save() error
	Close() error
}

// Sheet addresses cells by zero-based row and column.
type Sheet interface {
	// WriteCell stores value as text, replacing any value or formula.
	WriteCell(row, col int, value string) error
	// ReadCell returns the displayed text; empty cells read as "".
	ReadCell(row, col int) (string, error)
}

// BackendFor picks the backend by file extension: ".xls" is the legacy
// binary format, everything else is treated as Office Open XML.
func BackendFor(path string) Backend {
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return XLSBackend{}
	}
	return XLSXBackend{}
}
