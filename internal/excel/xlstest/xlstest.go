// Package xlstest builds small BIFF8 workbooks for tests.
package xlstest

import (
	"encoding/binary"
	"math"

	"lademeter/internal/excel/biff"
	"lademeter/internal/excel/cfb"
)

// Sheet is one worksheet. Cells holds its cell records in row-major order,
// optionally preceded by ROW records.
type Sheet struct {
	Name  string
	Cells []biff.Record
}

// Label is a LABEL cell with the default format.
func Label(row, col int, text string) biff.Record {
	r, err := biff.NewLabel(row, col, 15, text)
	if err != nil {
		panic(err)
	}
	return r
}

// LabelSST is a cell pointing into the shared string table.
func LabelSST(row, col, index int) biff.Record {
	d := cellHeader(row, col, 15)
	d = binary.LittleEndian.AppendUint32(d, uint32(index))
	return biff.Record{Type: biff.TypeLabelSST, Data: d}
}

// Number is a NUMBER cell.
func Number(row, col int, v float64) biff.Record {
	d := cellHeader(row, col, 15)
	d = binary.LittleEndian.AppendUint64(d, math.Float64bits(v))
	return biff.Record{Type: biff.TypeNumber, Data: d}
}

// Blank is a formatted empty cell.
func Blank(row, col, xf int) biff.Record {
	return biff.Record{Type: biff.TypeBlank, Data: cellHeader(row, col, xf)}
}

// MulRK stores consecutive integers starting at column first, each with
// cell format xf.
func MulRK(row, first, xf int, values ...int32) biff.Record {
	d := make([]byte, 0, 6+len(values)*6)
	d = binary.LittleEndian.AppendUint16(d, uint16(row))
	d = binary.LittleEndian.AppendUint16(d, uint16(first))
	for _, v := range values {
		d = binary.LittleEndian.AppendUint16(d, uint16(xf))
		d = binary.LittleEndian.AppendUint32(d, uint32(v)<<2|0x02)
	}
	d = binary.LittleEndian.AppendUint16(d, uint16(first+len(values)-1))
	return biff.Record{Type: biff.TypeMulRK, Data: d}
}

// Formula is a FORMULA cell with a cached number and a trivial parsed
// expression.
func Formula(row, col int, cached float64) biff.Record {
	d := cellHeader(row, col, 15)
	d = binary.LittleEndian.AppendUint64(d, math.Float64bits(cached))
	d = binary.LittleEndian.AppendUint16(d, 0)
	d = binary.LittleEndian.AppendUint32(d, 0)
	// =1 as a single PtgInt token.
	d = binary.LittleEndian.AppendUint16(d, 3)
	d = append(d, 0x1E, 0x01, 0x00)
	return biff.Record{Type: biff.TypeFormula, Data: d}
}

// StringFormula is a FORMULA cell with a cached text result, followed by
// its STRING record.
func StringFormula(row, col int, cached string) []biff.Record {
	d := cellHeader(row, col, 15)
	d = append(d, 0, 0, 0, 0, 0, 0, 0xFF, 0xFF)
	d = binary.LittleEndian.AppendUint16(d, 0)
	d = binary.LittleEndian.AppendUint32(d, 0)
	d = binary.LittleEndian.AppendUint16(d, 3)
	d = append(d, 0x1E, 0x01, 0x00)

	label := Label(0, 0, cached)
	return []biff.Record{
		{Type: biff.TypeFormula, Data: d},
		{Type: biff.TypeString, Data: label.Data[6:]},
	}
}

// Row is a ROW record covering columns first..last.
func Row(row, first, last int) biff.Record {
	r := biff.NewRow(row, first)
	binary.LittleEndian.PutUint16(r.Data[4:], uint16(last+1))
	return r
}

func cellHeader(row, col, xf int) []byte {
	d := make([]byte, 0, 32)
	d = binary.LittleEndian.AppendUint16(d, uint16(row))
	d = binary.LittleEndian.AppendUint16(d, uint16(col))
	return binary.LittleEndian.AppendUint16(d, uint16(xf))
}

// Stream builds a workbook stream with the given shared strings and sheets.
func Stream(sst []string, sheets ...Sheet) []byte {
	globals := []biff.Record{
		biff.BOF(biff.KindGlobals),
		{Type: 0x0042, Data: []byte{0xB0, 0x04}}, // CODEPAGE 1200
	}
	bound := make([]int, len(sheets))
	for i, s := range sheets {
		d := make([]byte, 6, 8+len(s.Name))
		d = append(d, byte(len(s.Name)), 0)
		d = append(d, s.Name...)
		bound[i] = len(globals)
		globals = append(globals, biff.Record{Type: biff.TypeBoundSheet, Data: d})
	}
	if len(sst) > 0 {
		globals = append(globals, sstRecords(sst)...)
	}
	globals = append(globals, biff.EOF())

	var subs [][]biff.Record
	for _, s := range sheets {
		subs = append(subs, sheetRecords(s))
	}

	pos := len(biff.AppendRecords(nil, globals))
	for i, sub := range subs {
		binary.LittleEndian.PutUint32(globals[bound[i]].Data, uint32(pos))
		pos += len(biff.AppendRecords(nil, sub))
	}

	out := biff.AppendRecords(nil, globals)
	for _, sub := range subs {
		out = biff.AppendRecords(out, sub)
	}
	return out
}

// File wraps a workbook stream into a compound file.
func File(stream []byte) *cfb.File {
	return &cfb.File{Entries: []*cfb.Entry{{Name: "Workbook", Data: stream}}}
}

// WriteFile writes a complete .xls file to path.
func WriteFile(path string, sst []string, sheets ...Sheet) error {
	return File(Stream(sst, sheets...)).WriteFile(path)
}

func sheetRecords(s Sheet) []biff.Record {
	rwMic, rwMac, colMic, colMac := 0, 0, 0, 0
	for _, c := range s.Cells {
		switch c.Type {
		case biff.TypeString, biff.TypeRow, biff.TypeIndex, biff.TypeDBCell:
			continue
		}
		row := int(binary.LittleEndian.Uint16(c.Data))
		first := int(binary.LittleEndian.Uint16(c.Data[2:]))
		last := first
		if c.Type == biff.TypeMulRK || c.Type == biff.TypeMulBlank {
			last = int(binary.LittleEndian.Uint16(c.Data[len(c.Data)-2:]))
		}
		if rwMac == 0 {
			rwMic, rwMac, colMic, colMac = row, row+1, first, last+1
			continue
		}
		rwMic, rwMac = min(rwMic, row), max(rwMac, row+1)
		colMic, colMac = min(colMic, first), max(colMac, last+1)
	}
	dims := make([]byte, 0, 14)
	dims = binary.LittleEndian.AppendUint32(dims, uint32(rwMic))
	dims = binary.LittleEndian.AppendUint32(dims, uint32(rwMac))
	dims = binary.LittleEndian.AppendUint16(dims, uint16(colMic))
	dims = binary.LittleEndian.AppendUint16(dims, uint16(colMac))
	dims = binary.LittleEndian.AppendUint16(dims, 0)

	window := make([]byte, 18)
	binary.LittleEndian.PutUint16(window, 0x06B6)

	records := []biff.Record{
		biff.BOF(biff.KindWorksheet),
		{Type: biff.TypeDimensions, Data: dims},
	}
	records = append(records, s.Cells...)
	return append(records, biff.Record{Type: biff.TypeWindow2, Data: window}, biff.EOF())
}

// sstRecords stores every string uncompressed and splits the table across
// CONTINUE records at small sizes so readers must follow the boundaries.
func sstRecords(sst []string) []biff.Record {
	const chunk = 64

	head := make([]byte, 0, 8)
	head = binary.LittleEndian.AppendUint32(head, uint32(len(sst)))
	head = binary.LittleEndian.AppendUint32(head, uint32(len(sst)))

	records := []biff.Record{{Type: biff.TypeSST, Data: head}}
	cur := &records[0]
	for _, s := range sst {
		units := []rune(s)
		if len(cur.Data)+3 > chunk {
			records = append(records, biff.Record{Type: biff.TypeContinue})
			cur = &records[len(records)-1]
		}
		cur.Data = binary.LittleEndian.AppendUint16(cur.Data, uint16(len(units)))
		cur.Data = append(cur.Data, 0x01)
		for _, u := range units {
			if len(cur.Data)+2 > chunk {
				records = append(records, biff.Record{Type: biff.TypeContinue, Data: []byte{0x01}})
				cur = &records[len(records)-1]
			}
			cur.Data = binary.LittleEndian.AppendUint16(cur.Data, uint16(u))
		}
	}
	return records
}
