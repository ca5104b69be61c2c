package excel

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

var zipSignature = []byte("PK\x03\x04")

// XLSXBackend edits Office Open XML workbooks through excelize.
type XLSXBackend struct{}

type xlsxDocument struct {
	file     *excelize.File
	filepath string
}

type xlsxSheet struct {
	file *excelize.File
	name string
}

// Open opens an existing workbook.
func (XLSXBackend) Open(path string) (Document, error) {
	if err := checkSignature(path, zipSignature); err != nil {
		return nil, err
	}
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open file: %v", ErrUnsupportedFormat, err)
	}
	return &xlsxDocument{
		file:     file,
		filepath: path,
	}, nil
}

// Sheet finds a sheet by name, ignoring case when there is no exact match.
func (d *xlsxDocument) Sheet(name string) (Sheet, error) {
	sheets := d.file.GetSheetList()
	for _, s := range sheets {
		if s == name {
			return &xlsxSheet{file: d.file, name: s}, nil
		}
	}
	for _, s := range sheets {
		if strings.EqualFold(s, name) {
			return &xlsxSheet{file: d.file, name: s}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

// Save saves the workbook to the file it was opened from.
func (d *xlsxDocument) Save() error {
	if err := d.file.SaveAs(d.filepath); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

func (d *xlsxDocument) Close() error {
	return d.file.Close()
}

func (s *xlsxSheet) WriteCell(row, col int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if n := len([]rune(value)); n > excelize.TotalCellChars {
		return fmt.Errorf("%w: %d characters", ErrValueTooLong, n)
	}
	// A formula would be recalculated over the text on the next open.
	if f, err := s.file.GetCellFormula(s.name, cell); err == nil && f != "" {
		if err := s.file.SetCellFormula(s.name, cell, ""); err != nil {
			return fmt.Errorf("failed to clear formula in %s: %v", cell, err)
		}
	}
	if err := s.file.SetCellStr(s.name, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %v", cell, err)
	}
	return nil
}

func (s *xlsxSheet) ReadCell(row, col int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return s.file.GetCellValue(s.name, cell)
}

// checkSignature verifies the leading bytes of the file at path.
func checkSignature(path string, signature []byte) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer f.Close()

	head := make([]byte, len(signature))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, signature) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}
