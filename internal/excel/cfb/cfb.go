// Package cfb reads and writes OLE2 compound files, the container of
// legacy .xls workbooks. Reading is delegated to mscfb; writing produces a
// version 3 file with 512-byte sectors.
package cfb

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/richardlehane/mscfb"
)

// Signature is the first eight bytes of every compound file.
var Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

var ErrNotCompound = errors.New("not a compound file")

// Entry is a stream or storage below the root.
type Entry struct {
	Path  []string // names of the parent storages, outermost first
	Name  string
	Dir   bool
	CLSID [16]byte
	Data  []byte
}

// File is a fully loaded compound file.
type File struct {
	RootCLSID [16]byte
	Entries   []*Entry
}

// IsCompound reports whether b starts with the compound file signature.
func IsCompound(b []byte) bool {
	return bytes.HasPrefix(b, Signature)
}

// Open reads the compound file at path into memory.
func Open(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(b))
}

// Read loads every stream of the compound file in r.
func Read(r io.ReaderAt) (*File, error) {
	head := make([]byte, len(Signature))
	if _, err := r.ReadAt(head, 0); err != nil || !IsCompound(head) {
		return nil, ErrNotCompound
	}

	doc, err := mscfb.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCompound, err)
	}

	f := &File{RootCLSID: parseCLSID(doc.ID())}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		e := &Entry{
			Path:  append([]string(nil), entry.Path...),
			Name:  entryName(entry),
			Dir:   entry.FileInfo().IsDir(),
			CLSID: parseCLSID(entry.ID()),
		}
		if !e.Dir && entry.Size > 0 {
			e.Data = make([]byte, entry.Size)
			if _, err := io.ReadFull(entry, e.Data); err != nil {
				return nil, fmt.Errorf("failed to read stream %s: %w", e.Name, err)
			}
		}
		f.Entries = append(f.Entries, e)
	}
	return f, nil
}

// Stream returns the root-level stream with the given name. Compound file
// names compare case-insensitively.
func (f *File) Stream(name string) (*Entry, bool) {
	for _, e := range f.Entries {
		if !e.Dir && len(e.Path) == 0 && strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return nil, false
}

// entryName restores the control-character prefix mscfb strips from names
// such as "\x05SummaryInformation".
func entryName(entry *mscfb.File) string {
	if entry.Initial != 0 && !unicode.IsPrint(rune(entry.Initial)) {
		return string(rune(entry.Initial)) + entry.Name
	}
	return entry.Name
}

// parseCLSID converts mscfb's "{XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX}" form
// back into the on-disk mixed-endian layout.
func parseCLSID(s string) [16]byte {
	var out [16]byte
	raw, err := hex.DecodeString(strings.NewReplacer("{", "", "}", "", "-", "").Replace(s))
	if err != nil || len(raw) != 16 {
		return out
	}
	out[0], out[1], out[2], out[3] = raw[3], raw[2], raw[1], raw[0]
	out[4], out[5] = raw[5], raw[4]
	out[6], out[7] = raw[7], raw[6]
	copy(out[8:], raw[8:])
	return out
}
