package excel

import "fmt"

// Field is a well-known target cell of the invoice template.
type Field struct {
	Label   string
	Anchor  string
	MaxRows int
}

const (
	AnchorLoadSite   = "E31"
	AnchorUnloadSite = "E37"
)

// Anchors of the invoice template.
var (
	FieldPartner    = Field{Label: "Auftraggeber", Anchor: "E14", MaxRows: 6}
	FieldPlate      = Field{Label: "Kennzeichen", Anchor: "D22", MaxRows: 1}
	FieldDriver     = Field{Label: "Fahrer", Anchor: "J22", MaxRows: 1}
	FieldLoadDate   = Field{Label: "Ladedatum", Anchor: "E35", MaxRows: 1}
	FieldUnloadDate = Field{Label: "Entladedatum", Anchor: "E36", MaxRows: 1}
	FieldUnloadLine = Field{Label: "Entladeort", Anchor: AnchorUnloadSite, MaxRows: 1}
	FieldReference  = Field{Label: "Referenz", Anchor: "E40", MaxRows: 1}
	FieldCarryOver  = Field{Label: "Fahrzeug / Ladung", Anchor: "K42", MaxRows: 3}
	FieldDispatch   = Field{Label: "Auftrag", Anchor: "K51", MaxRows: 2}
)

// SiteField returns the address block field at the load or unload site
// anchor. The block stops above the date rows that follow it.
func SiteField(anchor string) (Field, error) {
	switch anchor {
	case AnchorLoadSite:
		return Field{Label: "Ladestelle", Anchor: AnchorLoadSite, MaxRows: 4}, nil
	case AnchorUnloadSite:
		return Field{Label: "Entladestelle", Anchor: AnchorUnloadSite, MaxRows: 3}, nil
	}
	return Field{}, fmt.Errorf("%w: site anchor must be %s or %s, got %q",
		ErrInvalidAddress, AnchorLoadSite, AnchorUnloadSite, anchor)
}

// EntryFields are the fields filled from free text in the form, in display
// order. The site block comes first and uses the configured anchor.
func EntryFields(siteAnchor string) ([]Field, error) {
	site, err := SiteField(siteAnchor)
	if err != nil {
		return nil, err
	}
	return []Field{
		FieldPartner,
		site,
		FieldPlate,
		FieldDriver,
		FieldLoadDate,
		FieldUnloadDate,
		FieldUnloadLine,
		FieldReference,
	}, nil
}
