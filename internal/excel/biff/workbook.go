package biff

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Workbook is a parsed BIFF8 workbook stream. Substreams are kept in file
// order; sheets reference the substream their BOUNDSHEET points to.
type Workbook struct {
	Globals    []Record
	substreams []*substream
	sheets     []*Sheet
	sst        []string
	sstLoaded  bool
}

type substream struct {
	records []Record
	offset  int
	dirty   bool
}

// Sheet is one BOUNDSHEET entry of the workbook.
type Sheet struct {
	Name  string
	Kind  byte // 0 worksheet, 1 macro sheet, 2 chart, 6 VBA module
	wb    *Workbook
	bound int
	sub   *substream
}

// Parse reads a BIFF8 workbook stream.
func Parse(stream []byte) (*Workbook, error) {
	records, err := ReadRecords(stream)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0].Type != TypeBOF || len(records[0].Data) < 4 {
		return nil, fmt.Errorf("%w: missing BOF", ErrCorrupt)
	}
	if v := u16(records[0].Data, 0); v != int(VersionBIFF8) {
		return nil, fmt.Errorf("%w: BIFF version 0x%04X, only BIFF8 is supported", ErrUnsupported, v)
	}
	if k := u16(records[0].Data, 2); k != int(KindGlobals) {
		return nil, fmt.Errorf("%w: stream does not start with workbook globals", ErrCorrupt)
	}

	wb := &Workbook{}
	pos := 0
	i := 0
	for ; i < len(records); i++ {
		wb.Globals = append(wb.Globals, records[i])
		pos += 4 + len(records[i].Data)
		if records[i].Type == TypeFilePass {
			return nil, fmt.Errorf("%w: workbook is password protected", ErrUnsupported)
		}
		if records[i].Type == TypeEOF {
			i++
			break
		}
	}

	// Split the remainder into BOF..EOF substreams, honoring nested
	// substreams such as embedded charts.
	for i < len(records) {
		sub := &substream{offset: pos}
		depth := 0
		for ; i < len(records); i++ {
			r := records[i]
			sub.records = append(sub.records, r)
			pos += 4 + len(r.Data)
			if r.Type == TypeBOF {
				depth++
			}
			if r.Type == TypeEOF {
				depth--
				if depth <= 0 {
					i++
					break
				}
			}
		}
		wb.substreams = append(wb.substreams, sub)
	}

	for idx, r := range wb.Globals {
		if r.Type != TypeBoundSheet {
			continue
		}
		if len(r.Data) < 8 {
			return nil, fmt.Errorf("%w: BOUNDSHEET record", ErrCorrupt)
		}
		name, _, err := readUnicodeString(r.Data[6:], true)
		if err != nil {
			return nil, err
		}
		sheet := &Sheet{Name: name, Kind: r.Data[5], wb: wb, bound: idx}
		offset := int(u32(r.Data, 0))
		for _, sub := range wb.substreams {
			if sub.offset == offset {
				sheet.sub = sub
				break
			}
		}
		if sheet.sub == nil {
			return nil, fmt.Errorf("%w: sheet %q points to offset %d outside any substream", ErrCorrupt, name, offset)
		}
		wb.sheets = append(wb.sheets, sheet)
	}
	return wb, nil
}

// Sheets returns the sheets in workbook order.
func (wb *Workbook) Sheets() []*Sheet {
	return wb.sheets
}

// Sheet finds a sheet by name. An exact match wins over a case-insensitive one.
func (wb *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, s := range wb.sheets {
		if s.Name == name {
			return s, true
		}
	}
	for _, s := range wb.sheets {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return nil, false
}

// SharedStrings returns the decoded shared string table.
func (wb *Workbook) SharedStrings() ([]string, error) {
	if wb.sstLoaded {
		return wb.sst, nil
	}
	for i, r := range wb.Globals {
		if r.Type != TypeSST {
			continue
		}
		var continues []Record
		for _, c := range wb.Globals[i+1:] {
			if c.Type != TypeContinue {
				break
			}
			continues = append(continues, c)
		}
		sst, err := parseSST(r, continues)
		if err != nil {
			return nil, err
		}
		wb.sst = sst
		break
	}
	wb.sstLoaded = true
	return wb.sst, nil
}

// Bytes serializes the workbook. Substream offsets are recomputed and
// written back into the BOUNDSHEET records; INDEX records of shifted but
// unmodified sheets are rebased.
func (wb *Workbook) Bytes() []byte {
	pos := recordsSize(wb.Globals)
	shift := make(map[*substream]int, len(wb.substreams))
	for _, sub := range wb.substreams {
		shift[sub] = pos - sub.offset
		sub.offset = pos
		pos += recordsSize(sub.records)
	}

	for _, s := range wb.sheets {
		r := wb.Globals[s.bound]
		data := append([]byte(nil), r.Data...)
		binary.LittleEndian.PutUint32(data, uint32(s.sub.offset))
		wb.Globals[s.bound] = Record{Type: r.Type, Data: data}
	}

	out := AppendRecords(make([]byte, 0, pos), wb.Globals)
	for _, sub := range wb.substreams {
		if d := shift[sub]; d != 0 && !sub.dirty {
			rebaseIndex(sub, d)
		}
		out = AppendRecords(out, sub.records)
	}
	return out
}

// rebaseIndex moves the absolute stream positions held by a sheet's INDEX
// record by delta.
func rebaseIndex(sub *substream, delta int) {
	for i, r := range sub.records {
		if r.Type != TypeIndex || len(r.Data) < 16 {
			continue
		}
		data := append([]byte(nil), r.Data...)
		if ib := u32(data, 12); ib != 0 {
			binary.LittleEndian.PutUint32(data[12:], uint32(int(ib)+delta))
		}
		for off := 16; off+4 <= len(data); off += 4 {
			binary.LittleEndian.PutUint32(data[off:], uint32(int(u32(data, off))+delta))
		}
		sub.records[i] = Record{Type: r.Type, Data: data}
	}
}
