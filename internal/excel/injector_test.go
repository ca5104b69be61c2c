package excel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lademeter/internal/excel/biff"
	"lademeter/internal/excel/xlstest"
	"lademeter/internal/freight"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Both templates hold the same content:
// Rechnung!A1 "Kopf", Rechnung!E15 "alt", Rechnung!K43 a formula,
// Daten!B2 42.
type fixture struct {
	name   string
	create func(t *testing.T) string
}

var templates = []fixture{
	{name: "xlsx", create: newXLSXTemplate},
	{name: "xls", create: newXLSTemplate},
}

func newXLSXTemplate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rechnung.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Rechnung"))
	require.NoError(t, f.SetCellValue("Rechnung", "A1", "Kopf"))
	require.NoError(t, f.SetCellValue("Rechnung", "E15", "alt"))
	require.NoError(t, f.SetCellFormula("Rechnung", "K43", "1+1"))
	_, err := f.NewSheet("Daten")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Daten", "B2", 42))
	require.NoError(t, f.SaveAs(path))
	return path
}

func newXLSTemplate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rechnung.xls")
	require.NoError(t, xlstest.WriteFile(path, []string{"alt"},
		xlstest.Sheet{Name: "Rechnung", Cells: []biff.Record{
			xlstest.Label(0, 0, "Kopf"),
			xlstest.LabelSST(14, 4, 0),
			xlstest.Formula(42, 10, 2),
		}},
		xlstest.Sheet{Name: "Daten", Cells: []biff.Record{
			xlstest.Number(1, 1, 42),
		}},
	))
	return path
}

func readCell(t *testing.T, path, sheet, cell string) string {
	t.Helper()
	addr, err := ParseAddress(cell)
	require.NoError(t, err)
	doc, err := BackendFor(path).Open(path)
	require.NoError(t, err)
	defer doc.Close()
	s, err := doc.Sheet(sheet)
	require.NoError(t, err)
	v, err := s.ReadCell(addr.Row, addr.Col)
	require.NoError(t, err)
	return v
}

func TestBackendFor(t *testing.T) {
	assert.IsType(t, XLSBackend{}, BackendFor("vorlage.xls"))
	assert.IsType(t, XLSBackend{}, BackendFor("VORLAGE.XLS"))
	assert.IsType(t, XLSXBackend{}, BackendFor("vorlage.xlsx"))
	assert.IsType(t, XLSXBackend{}, BackendFor("vorlage.xlsm"))
	assert.IsType(t, XLSXBackend{}, BackendFor("vorlage"))
}

func TestInject_TrailingBlankLines(t *testing.T) {
	for _, tpl := range templates {
		t.Run(tpl.name, func(t *testing.T) {
			path := tpl.create(t)
			n, err := NewInjector(path, "Rechnung").Inject("C1", "L1\nL2\n\n", 0)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assert.Equal(t, "L1", readCell(t, path, "Rechnung", "C1"))
			assert.Equal(t, "L2", readCell(t, path, "Rechnung", "C2"))
			assert.Equal(t, "", readCell(t, path, "Rechnung", "C3"))
		})
	}
}

func TestInject_RoundTripLeavesOtherCells(t *testing.T) {
	for _, tpl := range templates {
		t.Run(tpl.name, func(t *testing.T) {
			path := tpl.create(t)
			n, err := NewInjector(path, "Rechnung").InjectField(FieldPartner, "Spedition Nord GmbH\nHafenstraße 1\n20457 Hamburg")
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			assert.Equal(t, "Spedition Nord GmbH", readCell(t, path, "Rechnung", "E14"))
			assert.Equal(t, "Hafenstraße 1", readCell(t, path, "Rechnung", "E15"))
			assert.Equal(t, "20457 Hamburg", readCell(t, path, "Rechnung", "E16"))
			assert.Equal(t, "", readCell(t, path, "Rechnung", "E17"))
			assert.Equal(t, "", readCell(t, path, "Rechnung", "F14"))
			assert.Equal(t, "Kopf", readCell(t, path, "Rechnung", "A1"))
			assert.Equal(t, "42", readCell(t, path, "Daten", "B2"))
		})
	}
}

func TestInject_StaleRowsAreNotCleared(t *testing.T) {
	for _, tpl := range templates {
		t.Run(tpl.name, func(t *testing.T) {
			path := tpl.create(t)
			in := NewInjector(path, "Rechnung")
			_, err := in.Inject("E14", "eins\nzwei\ndrei", 0)
			require.NoError(t, err)
			n, err := in.Inject("E14", "neu", 0)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			assert.Equal(t, "neu", readCell(t, path, "Rechnung", "E14"))
			assert.Equal(t, "zwei", readCell(t, path, "Rechnung", "E15"))
			assert.Equal(t, "drei", readCell(t, path, "Rechnung", "E16"))
		})
	}
}

func TestInject_MaxRows(t *testing.T) {
	for _, tpl := range templates {
		t.Run(tpl.name, func(t *testing.T) {
			path := tpl.create(t)
			payload := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
			n, err := NewInjector(path, "Rechnung").Inject("E14", payload, 6)
			require.NoError(t, err)
			assert.Equal(t, 6, n)
			assert.Equal(t, "6", readCell(t, path, "Rechnung", "E19"))
			assert.Equal(t, "", readCell(t, path, "Rechnung", "E20"))
		})
	}
}

func TestInject_ReplacesFormula(t *testing.T) {
	for _, tpl := range templates {
		t.Run(tpl.name, func(t *testing.T) {
			path := tpl.create(t)
			_, err := NewInjector(path, "Rechnung").Inject("K43", "Text statt Formel", 1)
			require.NoError(t, err)
			assert.Equal(t, "Text statt Formel", readCell(t, path, "Rechnung", "K43"))
		})
	}

	path := newXLSXTemplate(t)
	_, err := NewInjector(path, "Rechnung").Inject("K43", "Text", 1)
	require.NoError(t, err)
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	formula, err := f.GetCellFormula("Rechnung", "K43")
	require.NoError(t, err)
	assert.Empty(t, formula)
}

func TestInject_EmptyPayloadWritesOneEmptyLine(t *testing.T) {
	for _, tpl := range templates {
		t.Run(tpl.name, func(t *testing.T) {
			path := tpl.create(t)
			n, err := NewInjector(path, "Rechnung").Inject("E15", "\n\n", 0)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			assert.Equal(t, "", readCell(t, path, "Rechnung", "E15"))
		})
	}
}

func TestInject_Payloads(t *testing.T) {
	for _, tpl := range templates {
		t.Run(tpl.name, func(t *testing.T) {
			path := tpl.create(t)
			in := NewInjector(path, "Rechnung")

			_, err := in.Inject("B1", 12.5, 1)
			require.NoError(t, err)
			_, err = in.Inject("B2", 7, 1)
			require.NoError(t, err)
			_, err = in.Inject("B3", freight.Sprinter, 1)
			require.NoError(t, err)

			assert.Equal(t, "12.5", readCell(t, path, "Rechnung", "B1"))
			assert.Equal(t, "7", readCell(t, path, "Rechnung", "B2"))
			assert.Equal(t, "Sprinter", readCell(t, path, "Rechnung", "B3"))

			_, err = in.Inject("B4", struct{}{}, 1)
			require.Error(t, err)
		})
	}
}

func TestInject_Errors(t *testing.T) {
	for _, tpl := range templates {
		t.Run(tpl.name, func(t *testing.T) {
			path := tpl.create(t)
			before, err := os.ReadFile(path)
			require.NoError(t, err)

			_, err = NewInjector(path, "Rechnung").Inject("e14", "x", 0)
			require.ErrorIs(t, err, ErrInvalidAddress)

			_, err = NewInjector(path, "Rechnung").Inject("E14", "x", -1)
			require.Error(t, err)

			_, err = NewInjector(path, "Invoice").Inject("E14", "x", 0)
			require.ErrorIs(t, err, ErrSheetNotFound)

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, before, after, "failed injections must not touch the file")

			missing := filepath.Join(t.TempDir(), "fehlt."+tpl.name)
			_, err = NewInjector(missing, "Rechnung").Inject("E14", "x", 0)
			require.ErrorIs(t, err, ErrFileNotFound)

			garbage := filepath.Join(t.TempDir(), "kaputt."+tpl.name)
			require.NoError(t, os.WriteFile(garbage, []byte("dies ist keine Tabelle"), 0o644))
			_, err = NewInjector(garbage, "Rechnung").Inject("E14", "x", 0)
			require.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestInject_WrongContainerForExtension(t *testing.T) {
	xlsx := newXLSXTemplate(t)
	renamed := filepath.Join(t.TempDir(), "eigentlich.xls")
	data, err := os.ReadFile(xlsx)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(renamed, data, 0o644))

	_, err = NewInjector(renamed, "Rechnung").Inject("E14", "x", 0)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestInject_CarryOverAndDispatch(t *testing.T) {
	q := freight.Quote{
		ID:            "3f2b8c1e-0000-4000-8000-000000000001",
		LoadingMeters: 0.5,
		DistanceKm:    140,
		Price:         100,
		CreatedAt:     time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
	}
	c, err := NewCarryOver(nil)
	require.NoError(t, err)
	summary, err := c.Render(q)
	require.NoError(t, err)

	for _, tpl := range templates {
		t.Run(tpl.name, func(t *testing.T) {
			path := tpl.create(t)
			in := NewInjector(path, "Rechnung")

			n, err := in.InjectField(FieldCarryOver, summary)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			_, err = in.InjectField(FieldDispatch, DispatchBlock(q))
			require.NoError(t, err)

			assert.Equal(t, "Lademeter: 0.50 m", readCell(t, path, "Rechnung", "K42"))
			assert.Equal(t, "Entfernung: 140.0 km", readCell(t, path, "Rechnung", "K43"))
			assert.Equal(t, "Preis: 100.00 €", readCell(t, path, "Rechnung", "K44"))
			assert.Equal(t, "Auftrags-ID: "+q.ID, readCell(t, path, "Rechnung", "K51"))
			assert.Equal(t, "Datum: 09.03.2026", readCell(t, path, "Rechnung", "K52"))
		})
	}
}

func TestInject_ValueTooLongForLegacyCell(t *testing.T) {
	path := newXLSTemplate(t)
	_, err := NewInjector(path, "Rechnung").Inject("E14", strings.Repeat("x", 256), 1)
	require.ErrorIs(t, err, ErrValueTooLong)
	assert.Equal(t, "alt", readCell(t, path, "Rechnung", "E15"))
}
