package biff

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// defaultXF is the cell format index Excel gives unformatted cells.
const defaultXF = 15

var errorCodes = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
}

// cellSpan reports the row and column range covered by a cell record.
func cellSpan(r Record) (row, first, last int, ok bool) {
	switch r.Type {
	case TypeLabel, TypeLabelSST, TypeNumber, TypeRK, TypeBlank, TypeBoolErr, TypeFormula, TypeRString:
		if len(r.Data) < 6 {
			return 0, 0, 0, false
		}
		col := u16(r.Data, 2)
		return u16(r.Data, 0), col, col, true
	case TypeMulRK, TypeMulBlank:
		if len(r.Data) < 6 {
			return 0, 0, 0, false
		}
		return u16(r.Data, 0), u16(r.Data, 2), u16(r.Data, len(r.Data)-2), true
	}
	return 0, 0, 0, false
}

// follower reports records that belong to the preceding FORMULA record.
func follower(typ uint16) bool {
	switch typ {
	case TypeString, TypeContinue, TypeSharedFmla, TypeArray, TypeTable:
		return true
	}
	return false
}

// walk calls fn for every record of the sheet's own cell level, skipping
// nested substreams such as embedded charts.
func (s *Sheet) walk(records []Record, fn func(i int, r Record)) {
	depth := 0
	for i, r := range records {
		switch r.Type {
		case TypeBOF:
			depth++
			continue
		case TypeEOF:
			depth--
			continue
		}
		if depth == 1 {
			fn(i, r)
		}
	}
}

// Cell returns the displayed text of the cell at the zero-based row and
// column and false if the sheet holds no value there.
func (s *Sheet) Cell(row, col int) (string, bool, error) {
	var (
		value string
		found bool
		err   error
	)
	records := s.sub.records
	s.walk(records, func(i int, r Record) {
		if found || err != nil {
			return
		}
		rw, first, last, ok := cellSpan(r)
		if !ok || rw != row || col < first || col > last {
			return
		}
		value, found, err = s.cellValue(records, i, col)
	})
	return value, found, err
}

func (s *Sheet) cellValue(records []Record, i, col int) (string, bool, error) {
	r := records[i]
	d := r.Data
	switch r.Type {
	case TypeLabel, TypeRString:
		v, _, err := readUnicodeString(d[6:], false)
		return v, true, err
	case TypeLabelSST:
		if len(d) < 10 {
			return "", false, fmt.Errorf("%w: LABELSST record", ErrCorrupt)
		}
		sst, err := s.wb.SharedStrings()
		if err != nil {
			return "", false, err
		}
		idx := int(u32(d, 6))
		if idx >= len(sst) {
			return "", false, fmt.Errorf("%w: shared string %d of %d", ErrCorrupt, idx, len(sst))
		}
		return sst[idx], true, nil
	case TypeNumber:
		if len(d) < 14 {
			return "", false, fmt.Errorf("%w: NUMBER record", ErrCorrupt)
		}
		return formatNumber(math.Float64frombits(binary.LittleEndian.Uint64(d[6:]))), true, nil
	case TypeRK:
		if len(d) < 10 {
			return "", false, fmt.Errorf("%w: RK record", ErrCorrupt)
		}
		return formatNumber(decodeRK(u32(d, 6))), true, nil
	case TypeMulRK:
		off := 4 + (col-u16(d, 2))*6
		if off+6 > len(d)-2 {
			return "", false, fmt.Errorf("%w: MULRK record", ErrCorrupt)
		}
		return formatNumber(decodeRK(u32(d, off+2))), true, nil
	case TypeBoolErr:
		if len(d) < 8 {
			return "", false, fmt.Errorf("%w: BOOLERR record", ErrCorrupt)
		}
		return boolErr(d[6], d[7] != 0), true, nil
	case TypeFormula:
		if len(d) < 14 {
			return "", false, fmt.Errorf("%w: FORMULA record", ErrCorrupt)
		}
		if d[12] != 0xFF || d[13] != 0xFF {
			return formatNumber(math.Float64frombits(binary.LittleEndian.Uint64(d[6:]))), true, nil
		}
		switch d[6] {
		case 0:
			for _, next := range records[i+1:] {
				if next.Type == TypeString {
					v, _, err := readUnicodeString(next.Data, false)
					return v, true, err
				}
				if !follower(next.Type) {
					break
				}
			}
			return "", true, nil
		case 1:
			return boolErr(d[8], false), true, nil
		case 2:
			return boolErr(d[8], true), true, nil
		}
		return "", true, nil
	}
	// BLANK and MULBLANK carry formatting only.
	return "", false, nil
}

func decodeRK(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		v = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func boolErr(v byte, isErr bool) string {
	if isErr {
		if code, ok := errorCodes[v]; ok {
			return code
		}
		return "#ERR"
	}
	if v != 0 {
		return "TRUE"
	}
	return "FALSE"
}

// SetLabel writes text into the cell at the zero-based row and column,
// replacing whatever value or formula was stored there. The replaced
// cell's format is kept.
func (s *Sheet) SetLabel(row, col int, text string) error {
	if _, err := NewLabel(row, col, defaultXF, text); err != nil {
		return err
	}

	xf := defaultXF
	records := s.removeCell(row, col, &xf)
	label, err := NewLabel(row, col, xf, text)
	if err != nil {
		return err
	}

	at := s.insertionPoint(records, row, col)
	records = append(records[:at], append([]Record{label}, records[at:]...)...)

	if !s.widen(records, row, col) {
		records = s.insertRow(records, row, col)
	}
	s.sub.records = records
	s.sub.dirty = true
	return nil
}

// NewLabel builds a LABEL record holding text at the zero-based row and
// column with cell format xf.
func NewLabel(row, col, xf int, text string) (Record, error) {
	if row < 0 || row > 0xFFFF || col < 0 || col > 0xFF {
		return Record{}, fmt.Errorf("%w: row %d, column %d", ErrOutOfRange, row+1, col+1)
	}
	chars, flags, cch := encodeChars(text)
	if cch > 255 {
		return Record{}, fmt.Errorf("%w: %d characters", ErrTooLong, cch)
	}
	d := make([]byte, 9, 9+len(chars))
	binary.LittleEndian.PutUint16(d[0:], uint16(row))
	binary.LittleEndian.PutUint16(d[2:], uint16(col))
	binary.LittleEndian.PutUint16(d[4:], uint16(xf))
	binary.LittleEndian.PutUint16(d[6:], uint16(cch))
	d[8] = flags
	return Record{Type: TypeLabel, Data: append(d, chars...)}, nil
}

// removeCell returns the sheet's records without the value at row and col.
// Multi-cell records are split around it. INDEX and DBCELL records are
// dropped since their offsets no longer hold once cells move.
func (s *Sheet) removeCell(row, col int, xf *int) []Record {
	out := make([]Record, 0, len(s.sub.records)+2)
	depth := 0
	dropFollowers := false
	for _, r := range s.sub.records {
		switch r.Type {
		case TypeBOF:
			depth++
		case TypeEOF:
			depth--
		}
		if depth != 1 || r.Type == TypeBOF {
			dropFollowers = false
			out = append(out, r)
			continue
		}
		if dropFollowers && follower(r.Type) {
			continue
		}
		dropFollowers = false

		if r.Type == TypeIndex || r.Type == TypeDBCell {
			continue
		}
		rw, first, last, ok := cellSpan(r)
		if !ok || rw != row || col < first || col > last {
			out = append(out, r)
			continue
		}
		switch r.Type {
		case TypeMulRK, TypeMulBlank:
			parts, cellXF := splitMulti(r, col)
			*xf = cellXF
			out = append(out, parts...)
		default:
			*xf = u16(r.Data, 4)
			dropFollowers = r.Type == TypeFormula
		}
	}
	return out
}

// splitMulti removes one column from a MULRK or MULBLANK record. Runs of a
// single cell become RK or BLANK records.
func splitMulti(r Record, col int) ([]Record, int) {
	d := r.Data
	row := u16(d, 0)
	first := u16(d, 2)
	last := u16(d, len(d)-2)
	width := 2
	single := TypeBlank
	if r.Type == TypeMulRK {
		width = 6
		single = TypeRK
	}

	cell := func(c int) []byte {
		off := 4 + (c-first)*width
		return d[off : off+width]
	}

	var out []Record
	emit := func(from, to int) {
		if from > to {
			return
		}
		if from == to {
			data := make([]byte, 4, 4+width)
			binary.LittleEndian.PutUint16(data[0:], uint16(row))
			binary.LittleEndian.PutUint16(data[2:], uint16(from))
			out = append(out, Record{Type: single, Data: append(data, cell(from)...)})
			return
		}
		data := make([]byte, 4, 6+(to-from+1)*width)
		binary.LittleEndian.PutUint16(data[0:], uint16(row))
		binary.LittleEndian.PutUint16(data[2:], uint16(from))
		for c := from; c <= to; c++ {
			data = append(data, cell(c)...)
		}
		data = binary.LittleEndian.AppendUint16(data, uint16(to))
		out = append(out, Record{Type: r.Type, Data: data})
	}
	emit(first, col-1)
	emit(col+1, last)
	return out, u16(cell(col), 0)
}

// insertionPoint keeps the cell table in row-major order.
func (s *Sheet) insertionPoint(records []Record, row, col int) int {
	afterCells, afterRows, afterDims, window := -1, -1, -1, -1
	at := -1
	s.walk(records, func(i int, r Record) {
		if at >= 0 {
			return
		}
		if rw, first, _, ok := cellSpan(r); ok {
			if rw > row || (rw == row && first > col) {
				at = i
				return
			}
			afterCells = i + 1
			return
		}
		switch {
		case follower(r.Type) && afterCells == i:
			afterCells = i + 1
		case r.Type == TypeRow:
			afterRows = i + 1
		case r.Type == TypeDimensions:
			afterDims = i + 1
		case r.Type == TypeWindow2 && window < 0:
			window = i
		}
	})
	for _, idx := range []int{at, afterCells, afterRows, afterDims, window} {
		if idx >= 0 {
			return idx
		}
	}
	return len(records) - 1
}

// widen grows DIMENSIONS and the cell's ROW record to include it. It
// reports whether the row has a ROW record.
func (s *Sheet) widen(records []Record, row, col int) bool {
	hasRow := false
	s.walk(records, func(i int, r Record) {
		switch {
		case r.Type == TypeDimensions && len(r.Data) >= 12:
			d := append([]byte(nil), r.Data...)
			rwMic, rwMac := int(u32(d, 0)), int(u32(d, 4))
			colMic, colMac := u16(d, 8), u16(d, 10)
			if rwMac == 0 && colMac == 0 {
				rwMic, rwMac, colMic, colMac = row, row+1, col, col+1
			} else {
				rwMic, rwMac = min(rwMic, row), max(rwMac, row+1)
				colMic, colMac = min(colMic, col), max(colMac, col+1)
			}
			binary.LittleEndian.PutUint32(d[0:], uint32(rwMic))
			binary.LittleEndian.PutUint32(d[4:], uint32(rwMac))
			binary.LittleEndian.PutUint16(d[8:], uint16(colMic))
			binary.LittleEndian.PutUint16(d[10:], uint16(colMac))
			records[i] = Record{Type: r.Type, Data: d}
		case r.Type == TypeRow && len(r.Data) >= 6 && u16(r.Data, 0) == row:
			hasRow = true
			d := append([]byte(nil), r.Data...)
			colMic, colMac := u16(d, 2), u16(d, 4)
			if colMac == 0 {
				colMic, colMac = col, col+1
			} else {
				colMic, colMac = min(colMic, col), max(colMac, col+1)
			}
			binary.LittleEndian.PutUint16(d[2:], uint16(colMic))
			binary.LittleEndian.PutUint16(d[4:], uint16(colMac))
			records[i] = Record{Type: r.Type, Data: d}
		}
	})
	return hasRow
}

// NewRow builds a ROW record of default height spanning col.
func NewRow(row, col int) Record {
	d := make([]byte, 16)
	binary.LittleEndian.PutUint16(d[0:], uint16(row))
	binary.LittleEndian.PutUint16(d[2:], uint16(col))
	binary.LittleEndian.PutUint16(d[4:], uint16(col+1))
	binary.LittleEndian.PutUint16(d[6:], 0x00FF)
	binary.LittleEndian.PutUint16(d[12:], 0x0100)
	binary.LittleEndian.PutUint16(d[14:], defaultXF)
	return Record{Type: TypeRow, Data: d}
}

// insertRow adds the ROW record readers need to see cells on a row that
// had none. It goes among the other ROW records in row order, or before
// the first cell when the sheet has no ROW records.
func (s *Sheet) insertRow(records []Record, row, col int) []Record {
	at, afterRows, firstCell := -1, -1, -1
	s.walk(records, func(i int, r Record) {
		if at >= 0 {
			return
		}
		if r.Type == TypeRow && len(r.Data) >= 2 {
			if u16(r.Data, 0) > row {
				at = i
				return
			}
			afterRows = i + 1
			return
		}
		if _, _, _, ok := cellSpan(r); ok && firstCell < 0 {
			firstCell = i
		}
	})
	for _, idx := range []int{at, afterRows, firstCell} {
		if idx >= 0 {
			return append(records[:idx], append([]Record{NewRow(row, col)}, records[idx:]...)...)
		}
	}
	return records
}
