package excel

import (
	"errors"
	"fmt"

	"lademeter/internal/excel/biff"
	"lademeter/internal/excel/cfb"
	"lademeter/internal/logger"
)

// workbookStream is the BIFF8 stream name. BIFF5 files use "Book".
const workbookStream = "Workbook"

// XLSBackend edits legacy BIFF8 workbooks. The compound file is loaded
// completely and written back with only the workbook stream changed.
type XLSBackend struct{}

type xlsDocument struct {
	filepath string
	file     *cfb.File
	stream   *cfb.Entry
	book     *biff.Workbook
}

type xlsSheet struct {
	sheet *biff.Sheet
}

// Open opens an existing .xls workbook.
func (XLSBackend) Open(path string) (Document, error) {
	if err := checkSignature(path, cfb.Signature); err != nil {
		return nil, err
	}
	file, err := cfb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	stream, ok := file.Stream(workbookStream)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s stream", ErrUnsupportedFormat, path, workbookStream)
	}
	book, err := biff.Parse(stream.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return &xlsDocument{
		filepath: path,
		file:     file,
		stream:   stream,
		book:     book,
	}, nil
}

func (d *xlsDocument) Sheet(name string) (Sheet, error) {
	s, ok := d.book.Sheet(name)
	if !ok || s.Kind != 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return &xlsSheet{sheet: s}, nil
}

// Save re-encodes the workbook stream and replaces the file on disk.
func (d *xlsDocument) Save() error {
	d.stream.Data = d.book.Bytes()
	if err := d.file.WriteFile(d.filepath); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	logger.Debug("Legacy workbook saved", "path", d.filepath, "stream_bytes", len(d.stream.Data))
	return nil
}

func (d *xlsDocument) Close() error {
	d.book = nil
	d.file = nil
	return nil
}

func (s *xlsSheet) WriteCell(row, col int, value string) error {
	err := s.sheet.SetLabel(row, col, value)
	switch {
	case errors.Is(err, biff.ErrTooLong):
		return fmt.Errorf("%w: %v", ErrValueTooLong, err)
	case errors.Is(err, biff.ErrOutOfRange):
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return err
}

func (s *xlsSheet) ReadCell(row, col int) (string, error) {
	v, _, err := s.sheet.Cell(row, col)
	return v, err
}
