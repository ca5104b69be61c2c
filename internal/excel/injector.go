package excel

import (
	"fmt"
	"strconv"
	"strings"

	"lademeter/internal/logger"
)

// Injector writes text into one sheet of one document. Every Inject call
// opens, writes, saves and closes the document.
type Injector struct {
	path    string
	sheet   string
	backend Backend
}

// NewInjector selects the backend for path once, by its extension.
func NewInjector(path, sheet string) *Injector {
	return &Injector{
		path:    path,
		sheet:   sheet,
		backend: BackendFor(path),
	}
}

// Inject writes payload line by line downwards from anchor and returns the
// number of rows written. maxRows limits the rows; 0 means no limit. Rows
// below a shorter payload keep whatever an earlier call wrote there.
func (in *Injector) Inject(anchor string, payload any, maxRows int) (int, error) {
	addr, err := ParseAddress(anchor)
	if err != nil {
		return 0, err
	}
	if maxRows < 0 {
		return 0, fmt.Errorf("max rows must not be negative, got %d", maxRows)
	}
	text, err := payloadText(payload)
	if err != nil {
		return 0, err
	}
	lines := SplitLines(text)
	if maxRows > 0 && len(lines) > maxRows {
		logger.Warn("Payload truncated", "anchor", anchor, "lines", len(lines), "max_rows", maxRows)
		lines = lines[:maxRows]
	}

	doc, err := in.backend.Open(in.path)
	if err != nil {
		logger.Error("Failed to open document", "path", in.path, "error", err)
		return 0, err
	}
	defer doc.Close()

	sheet, err := doc.Sheet(in.sheet)
	if err != nil {
		logger.Error("Sheet lookup failed", "path", in.path, "sheet", in.sheet, "error", err)
		return 0, err
	}
	for i, line := range lines {
		cell := addr.Offset(i)
		if err := sheet.WriteCell(cell.Row, cell.Col, line); err != nil {
			logger.Error("Failed to write cell", "cell", cell.String(), "error", err)
			return 0, fmt.Errorf("write %s: %w", cell, err)
		}
	}
	if err := doc.Save(); err != nil {
		logger.Error("Failed to save document", "path", in.path, "error", err)
		return 0, err
	}

	logger.Info("Payload injected", "path", in.path, "sheet", in.sheet, "anchor", anchor, "rows", len(lines))
	return len(lines), nil
}

// InjectField writes payload into a well-known template field.
func (in *Injector) InjectField(f Field, payload any) (int, error) {
	return in.Inject(f.Anchor, payload, f.MaxRows)
}

// SplitLines splits on any line break and drops trailing blank lines. The
// result always holds at least one line.
func SplitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func payloadText(payload any) (string, error) {
	switch v := payload.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []string:
		return strings.Join(v, "\n"), nil
	case fmt.Stringer:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", fmt.Errorf("unsupported payload type %T", payload)
}
