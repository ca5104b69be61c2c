package excel

import (
	"path/filepath"
	"testing"

	"lademeter/internal/excel/biff"
	"lademeter/internal/excel/cfb"
	"lademeter/internal/excel/xlstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXLS_KeepsOtherStreams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vorlage.xls")
	summary := []byte("\xfe\xff\x00\x00summary property set")
	macro := make([]byte, 5000)
	for i := range macro {
		macro[i] = byte(i)
	}

	f := xlstest.File(xlstest.Stream(nil, xlstest.Sheet{Name: "Rechnung", Cells: []biff.Record{
		xlstest.Label(0, 0, "Kopf"),
	}}))
	f.RootCLSID = [16]byte{0x20, 0x08, 0x02, 0, 0, 0, 0, 0, 0xC0, 0, 0, 0, 0, 0, 0, 0x46}
	f.Entries = append(f.Entries,
		&cfb.Entry{Name: "\x05SummaryInformation", Data: summary},
		&cfb.Entry{Name: "_VBA_PROJECT_CUR", Dir: true},
		&cfb.Entry{Path: []string{"_VBA_PROJECT_CUR"}, Name: "VBA", Data: macro},
	)
	require.NoError(t, f.WriteFile(path))

	_, err := NewInjector(path, "Rechnung").Inject("E14", "Kunde", 1)
	require.NoError(t, err)

	out, err := cfb.Open(path)
	require.NoError(t, err)
	assert.Equal(t, f.RootCLSID, out.RootCLSID)

	si, ok := out.Stream("\x05SummaryInformation")
	require.True(t, ok)
	assert.Equal(t, summary, si.Data)

	var vba *cfb.Entry
	for _, e := range out.Entries {
		if e.Name == "VBA" {
			vba = e
		}
	}
	require.NotNil(t, vba)
	assert.Equal(t, []string{"_VBA_PROJECT_CUR"}, vba.Path)
	assert.Equal(t, macro, vba.Data)

	assert.Equal(t, "Kunde", readCell(t, path, "Rechnung", "E14"))
	assert.Equal(t, "Kopf", readCell(t, path, "Rechnung", "A1"))
}

func TestXLS_UnchangedStreamIsIdentical(t *testing.T) {
	stream := xlstest.Stream([]string{"eins", "zwei"},
		xlstest.Sheet{Name: "Rechnung", Cells: []biff.Record{xlstest.LabelSST(0, 0, 1)}},
		xlstest.Sheet{Name: "Daten", Cells: []biff.Record{xlstest.Number(3, 3, 1.25)}},
	)
	wb, err := biff.Parse(stream)
	require.NoError(t, err)
	assert.Equal(t, stream, wb.Bytes())
}

func TestXLS_MissingWorkbookStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leer.xls")
	f := &cfb.File{Entries: []*cfb.Entry{{Name: "Book", Data: []byte{0x09, 0x08, 0x00, 0x00}}}}
	require.NoError(t, f.WriteFile(path))

	_, err := XLSBackend{}.Open(path)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
