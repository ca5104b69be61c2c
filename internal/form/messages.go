package form

import (
	"errors"

	"lademeter/internal/excel"
	"lademeter/internal/freight"
	"lademeter/internal/geo"
)

var errorTexts = []struct {
	err  error
	text string
}{
	{freight.ErrFormat, "Palettengröße bitte als LxBxH in cm angeben, z. B. 120x80x150."},
	{freight.ErrParse, "Ungültige Zahl."},
	{freight.ErrMissingDistanceInput, "Bitte Start und Ziel oder manuelle Kilometer angeben."},
	{geo.ErrPlaceNotFound, "Ort nicht gefunden. Bitte Kilometer manuell eingeben."},
	{geo.ErrNetwork, "Geodienst nicht erreichbar. Bitte Kilometer manuell eingeben."},
	{excel.ErrInvalidAddress, "Ungültige Zelladresse."},
	{excel.ErrFileNotFound, "Dokument nicht gefunden."},
	{excel.ErrUnsupportedFormat, "Dateiformat wird nicht unterstützt."},
	{excel.ErrSheetNotFound, "Blatt \"Rechnung\" nicht gefunden."},
	{excel.ErrValueTooLong, "Text ist zu lang für eine Zelle."},
	{excel.ErrIO, "Speichern fehlgeschlagen. Ist das Dokument noch in einem anderen Programm geöffnet?"},
}

// describe returns the user-facing text for err followed by its details.
func describe(err error) string {
	for _, e := range errorTexts {
		if errors.Is(err, e.err) {
			return e.text + " (" + err.Error() + ")"
		}
	}
	return "Fehler: " + err.Error()
}
