package cfb

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, f *File) *File {
	t.Helper()
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.Zero(t, buf.Len()%sectorSize)

	out, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	return out
}

func fill(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251)
	}
	return b
}

func TestRoundTrip_MiniAndRegularStreams(t *testing.T) {
	clsid := [16]byte{0x20, 0x08, 0x02, 0, 0, 0, 0, 0, 0xC0, 0, 0, 0, 0, 0, 0, 0x46}
	in := &File{
		RootCLSID: clsid,
		Entries: []*Entry{
			{Name: "Workbook", Data: fill(9000, 1)},
			{Name: "\x05SummaryInformation", Data: fill(200, 2)},
			{Name: "\x05DocumentSummaryInformation", Data: fill(4095, 3)},
			{Name: "Empty"},
		},
	}

	out := roundTrip(t, in)
	assert.Equal(t, clsid, out.RootCLSID)

	wb, ok := out.Stream("workbook")
	require.True(t, ok)
	assert.Equal(t, in.Entries[0].Data, wb.Data)

	si, ok := out.Stream("\x05SummaryInformation")
	require.True(t, ok)
	assert.Equal(t, in.Entries[1].Data, si.Data)

	dsi, ok := out.Stream("\x05DocumentSummaryInformation")
	require.True(t, ok)
	assert.Equal(t, in.Entries[2].Data, dsi.Data)

	empty, ok := out.Stream("Empty")
	require.True(t, ok)
	assert.Empty(t, empty.Data)
}

func TestRoundTrip_Storages(t *testing.T) {
	in := &File{Entries: []*Entry{
		{Name: "Workbook", Data: fill(700, 9)},
		{Name: "_VBA_PROJECT_CUR", Dir: true},
		{Path: []string{"_VBA_PROJECT_CUR"}, Name: "PROJECT", Data: fill(5000, 4)},
		{Path: []string{"_VBA_PROJECT_CUR", "VBA"}, Name: "dir", Data: fill(30, 5)},
	}}

	out := roundTrip(t, in)

	var found []string
	for _, e := range out.Entries {
		if e.Name == "dir" {
			assert.Equal(t, []string{"_VBA_PROJECT_CUR", "VBA"}, e.Path)
			assert.Equal(t, in.Entries[3].Data, e.Data)
		}
		if e.Name == "PROJECT" {
			assert.Equal(t, in.Entries[2].Data, e.Data)
		}
		found = append(found, e.Name)
	}
	assert.ElementsMatch(t, []string{"Workbook", "_VBA_PROJECT_CUR", "PROJECT", "VBA", "dir"}, found)
}

func TestRoundTrip_ManyEntries(t *testing.T) {
	in := &File{}
	for i := 0; i < 40; i++ {
		in.Entries = append(in.Entries, &Entry{
			Name: string(rune('A'+i%26)) + string(rune('a'+i/26)),
			Data: fill(10+i*97, byte(i)),
		})
	}
	out := roundTrip(t, in)
	require.Len(t, out.Entries, len(in.Entries))
	for _, e := range in.Entries {
		got, ok := out.Stream(e.Name)
		require.True(t, ok, e.Name)
		assert.Equal(t, e.Data, got.Data, e.Name)
	}
}

func TestRoundTrip_NeedsDIFAT(t *testing.T) {
	if testing.Short() {
		t.Skip("large stream")
	}
	big := fill(headerDIFAT*idsPerSector*sectorSize+sectorSize*300, 7)
	out := roundTrip(t, &File{Entries: []*Entry{{Name: "Workbook", Data: big}}})
	wb, ok := out.Stream("Workbook")
	require.True(t, ok)
	assert.True(t, bytes.Equal(big, wb.Data))
}

func TestWriteFile_ReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xls")
	in := &File{Entries: []*Entry{{Name: "Workbook", Data: fill(100, 1)}}}
	require.NoError(t, in.WriteFile(path))

	in.Entries[0].Data = fill(6000, 2)
	require.NoError(t, in.WriteFile(path))

	out, err := Open(path)
	require.NoError(t, err)
	wb, ok := out.Stream("Workbook")
	require.True(t, ok)
	assert.Equal(t, in.Entries[0].Data, wb.Data)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".lademeter-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestWriteFile_KeepsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not kept on windows")
	}
	path := filepath.Join(t.TempDir(), "vorlage.xls")
	in := &File{Entries: []*Entry{{Name: "Workbook", Data: fill(100, 1)}}}
	require.NoError(t, in.WriteFile(path))
	require.NoError(t, os.Chmod(path, 0644))

	in.Entries[0].Data = fill(200, 2)
	require.NoError(t, in.WriteFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestRead_NotCompound(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("PK\x03\x04 definitely a zip")))
	require.ErrorIs(t, err, ErrNotCompound)
}

func TestLess(t *testing.T) {
	assert.True(t, less("VBA", "PROJECT"))
	assert.True(t, less("abc", "ABD"))
	assert.False(t, less("ABC", "abc"))
}
