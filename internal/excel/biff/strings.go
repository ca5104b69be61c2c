package biff

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	flagHighByte = 0x01
	flagExt      = 0x04
	flagRich     = 0x08
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// encodeChars returns the character bytes of s and the option flags:
// Latin-1 text is stored compressed, anything else as UTF-16LE.
func encodeChars(s string) ([]byte, byte, int) {
	if b, err := charmap.ISO8859_1.NewEncoder().String(s); err == nil {
		return []byte(b), 0, len(b)
	}
	units := utf16.Encode([]rune(s))
	b := make([]byte, 0, len(units)*2)
	for _, u := range units {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return b, flagHighByte, len(units)
}

func decodeChars(b []byte, high bool) (string, error) {
	if high {
		out, err := utf16le.NewDecoder().Bytes(b)
		return string(out), err
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(out), err
}

// readUnicodeString reads an XLUnicodeString (16-bit count) or, when
// short is set, a ShortXLUnicodeString (8-bit count) from b. It returns
// the text and the number of bytes consumed.
func readUnicodeString(b []byte, short bool) (string, int, error) {
	pos := 0
	var cch int
	if short {
		if len(b) < 2 {
			return "", 0, fmt.Errorf("%w: short string header", ErrCorrupt)
		}
		cch = int(b[0])
		pos = 1
	} else {
		if len(b) < 3 {
			return "", 0, fmt.Errorf("%w: string header", ErrCorrupt)
		}
		cch = u16(b, 0)
		pos = 2
	}
	flags := b[pos]
	pos++

	runs, ext := 0, 0
	if flags&flagRich != 0 {
		if len(b) < pos+2 {
			return "", 0, fmt.Errorf("%w: rich string header", ErrCorrupt)
		}
		runs = u16(b, pos)
		pos += 2
	}
	if flags&flagExt != 0 {
		if len(b) < pos+4 {
			return "", 0, fmt.Errorf("%w: extended string header", ErrCorrupt)
		}
		ext = int(u32(b, pos))
		pos += 4
	}

	size := cch
	if flags&flagHighByte != 0 {
		size *= 2
	}
	if len(b) < pos+size {
		return "", 0, fmt.Errorf("%w: string of %d characters overruns its record", ErrCorrupt, cch)
	}
	s, err := decodeChars(b[pos:pos+size], flags&flagHighByte != 0)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, pos + size + runs*4 + ext, nil
}

// sstReader walks the shared string table across its CONTINUE records.
// Character data split by a CONTINUE boundary restarts with a fresh option
// byte; headers and formatting runs are read as plain bytes.
type sstReader struct {
	segs [][]byte
	seg  int
	pos  int
}

func (r *sstReader) next() bool {
	for r.seg < len(r.segs) && r.pos >= len(r.segs[r.seg]) {
		r.seg++
		r.pos = 0
	}
	return r.seg < len(r.segs)
}

func (r *sstReader) bytes(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		if !r.next() {
			return nil, fmt.Errorf("%w: shared string table truncated", ErrCorrupt)
		}
		take := min(n-len(out), len(r.segs[r.seg])-r.pos)
		out = append(out, r.segs[r.seg][r.pos:r.pos+take]...)
		r.pos += take
	}
	return out, nil
}

func (r *sstReader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

func (r *sstReader) str() (string, error) {
	head, err := r.bytes(3)
	if err != nil {
		return "", err
	}
	cch := u16(head, 0)
	flags := head[2]

	runs, ext := 0, 0
	if flags&flagRich != 0 {
		b, err := r.bytes(2)
		if err != nil {
			return "", err
		}
		runs = u16(b, 0)
	}
	if flags&flagExt != 0 {
		b, err := r.bytes(4)
		if err != nil {
			return "", err
		}
		ext = int(u32(b, 0))
	}

	var text []rune
	high := flags&flagHighByte != 0
	for remaining := cch; remaining > 0; {
		if r.pos >= len(r.segs[r.seg]) {
			r.seg++
			r.pos = 0
			if r.seg >= len(r.segs) || len(r.segs[r.seg]) == 0 {
				return "", fmt.Errorf("%w: shared string table truncated", ErrCorrupt)
			}
			high = r.segs[r.seg][0]&flagHighByte != 0
			r.pos = 1
		}
		width := 1
		if high {
			width = 2
		}
		n := min(remaining, (len(r.segs[r.seg])-r.pos)/width)
		if n == 0 {
			return "", fmt.Errorf("%w: split character in shared string", ErrCorrupt)
		}
		s, err := decodeChars(r.segs[r.seg][r.pos:r.pos+n*width], high)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		text = append(text, []rune(s)...)
		r.pos += n * width
		remaining -= n
	}

	if err := r.skip(runs*4 + ext); err != nil {
		return "", err
	}
	return string(text), nil
}

// parseSST decodes the SST record and its CONTINUE records.
func parseSST(sst Record, continues []Record) ([]string, error) {
	if len(sst.Data) < 8 {
		return nil, fmt.Errorf("%w: SST header", ErrCorrupt)
	}
	unique := int(u32(sst.Data, 4))
	r := &sstReader{segs: [][]byte{sst.Data[8:]}}
	for _, c := range continues {
		r.segs = append(r.segs, c.Data)
	}

	out := make([]string, 0, min(unique, 1<<16))
	for i := 0; i < unique; i++ {
		if !r.next() {
			break
		}
		s, err := r.str()
		if err != nil {
			return nil, fmt.Errorf("shared string %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
