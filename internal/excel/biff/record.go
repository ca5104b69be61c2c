// Package biff edits BIFF8 workbook streams, the record format inside
// legacy .xls files. Only what text injection needs is interpreted; every
// other record passes through untouched.
package biff

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Record types.
const (
	TypeFormula    uint16 = 0x0006
	TypeEOF        uint16 = 0x000A
	TypeFilePass   uint16 = 0x002F
	TypeContinue   uint16 = 0x003C
	TypeBoundSheet uint16 = 0x0085
	TypeMulRK      uint16 = 0x00BD
	TypeMulBlank   uint16 = 0x00BE
	TypeRString    uint16 = 0x00D6
	TypeDBCell     uint16 = 0x00D7
	TypeSST        uint16 = 0x00FC
	TypeLabelSST   uint16 = 0x00FD
	TypeDimensions uint16 = 0x0200
	TypeBlank      uint16 = 0x0201
	TypeNumber     uint16 = 0x0203
	TypeLabel      uint16 = 0x0204
	TypeBoolErr    uint16 = 0x0205
	TypeString     uint16 = 0x0207
	TypeRow        uint16 = 0x0208
	TypeIndex      uint16 = 0x020B
	TypeArray      uint16 = 0x0221
	TypeTable      uint16 = 0x0236
	TypeWindow2    uint16 = 0x023E
	TypeRK         uint16 = 0x027E
	TypeSharedFmla uint16 = 0x04BC
	TypeBOF        uint16 = 0x0809
)

// BOF substream kinds.
const (
	KindGlobals   uint16 = 0x0005
	KindWorksheet uint16 = 0x0010
	KindChart     uint16 = 0x0020
	KindMacro     uint16 = 0x0040

	// VersionBIFF8 is the BOF version of Excel 97 and later.
	VersionBIFF8 uint16 = 0x0600

	// MaxRecordData is the largest payload of a single record.
	MaxRecordData = 8224
)

var (
	ErrCorrupt     = errors.New("corrupt workbook stream")
	ErrUnsupported = errors.New("unsupported workbook")
	ErrOutOfRange  = errors.New("cell outside the BIFF8 grid")
	ErrTooLong     = errors.New("text exceeds 255 characters")
)

// Record is one raw BIFF record.
type Record struct {
	Type uint16
	Data []byte
}

// ReadRecords splits a workbook stream into records. Trailing zero padding,
// which some writers leave after the last EOF, is ignored.
func ReadRecords(stream []byte) ([]Record, error) {
	var out []Record
	for pos := 0; pos < len(stream); {
		if len(stream)-pos < 4 {
			if allZero(stream[pos:]) {
				break
			}
			return nil, fmt.Errorf("%w: truncated record header at %d", ErrCorrupt, pos)
		}
		typ := binary.LittleEndian.Uint16(stream[pos:])
		size := int(binary.LittleEndian.Uint16(stream[pos+2:]))
		if typ == 0 && size == 0 && allZero(stream[pos:]) {
			break
		}
		if pos+4+size > len(stream) {
			return nil, fmt.Errorf("%w: record 0x%04X at %d overruns the stream", ErrCorrupt, typ, pos)
		}
		out = append(out, Record{Type: typ, Data: stream[pos+4 : pos+4+size]})
		pos += 4 + size
	}
	return out, nil
}

// AppendRecords serializes records after dst.
func AppendRecords(dst []byte, records []Record) []byte {
	for _, r := range records {
		dst = binary.LittleEndian.AppendUint16(dst, r.Type)
		dst = binary.LittleEndian.AppendUint16(dst, uint16(len(r.Data)))
		dst = append(dst, r.Data...)
	}
	return dst
}

func recordsSize(records []Record) int {
	n := 0
	for _, r := range records {
		n += 4 + len(r.Data)
	}
	return n
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// BOF builds the first record of a substream.
func BOF(kind uint16) Record {
	d := make([]byte, 16)
	binary.LittleEndian.PutUint16(d[0:], VersionBIFF8)
	binary.LittleEndian.PutUint16(d[2:], kind)
	binary.LittleEndian.PutUint16(d[4:], 0x0DBB)
	binary.LittleEndian.PutUint16(d[6:], 0x07CC)
	return Record{Type: TypeBOF, Data: d}
}

// EOF builds the last record of a substream.
func EOF() Record {
	return Record{Type: TypeEOF}
}

func u16(b []byte, off int) int {
	return int(binary.LittleEndian.Uint16(b[off:]))
}

func u32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}
