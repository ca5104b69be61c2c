package form

import (
	"fmt"
	"strings"

	"lademeter/internal/freight"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	var b strings.Builder

	switch m.state {
	case stateQuote:
		b.WriteString(m.titleStyle.Render("Lademeter-Rechner"))
		b.WriteString("\n\n")
		for i, in := range m.quote {
			value := in.value
			if i == inVehicle {
				value = m.vehicleChoice()
			}
			b.WriteString(m.row(i, in.label, value))
		}
		b.WriteString("\n")
		b.WriteString(m.viewResult())
	case stateDocument:
		b.WriteString(m.titleStyle.Render("Rechnung ausfüllen"))
		b.WriteString("\n\n")
		for i, in := range m.doc {
			label := in.label
			if in.field.Anchor != "" {
				label = fmt.Sprintf("%s (%s)", in.label, in.field.Anchor)
			}
			b.WriteString(m.row(i, label, in.value))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.viewMessages())
	b.WriteString("\n")
	b.WriteString(m.helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) row(i int, label, value string) string {
	style := m.labelStyle
	marker := "  "
	if i == m.cursor {
		style = m.focusedStyle
		marker = "> "
	}
	lines := strings.Split(value, "\n")
	indent := strings.Repeat(" ", lipgloss.Width(marker)+style.GetWidth())

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString(style.Render(label))
	b.WriteString(m.valueStyle.Render(lines[0]))
	b.WriteString("\n")
	for _, l := range lines[1:] {
		b.WriteString(indent)
		b.WriteString(m.valueStyle.Render(l))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) vehicleChoice() string {
	var parts []string
	for i, c := range freight.VehicleClasses() {
		if i == m.vehicle {
			parts = append(parts, m.selectedStyle.Render(string(c)))
		} else {
			parts = append(parts, string(c))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) viewResult() string {
	if m.result == nil {
		return m.labelStyle.Render("Ergebnis") + "-\n"
	}
	q := m.result
	var b strings.Builder
	b.WriteString(m.resultStyle.Render(fmt.Sprintf("Lademeter: %.2f m", q.LoadingMeters)))
	b.WriteString("\n")
	source := "manuell"
	if q.DistanceSource == freight.DistanceGeocoded {
		source = q.From + " - " + q.To
	}
	b.WriteString(m.resultStyle.Render(fmt.Sprintf("Entfernung: %.1f km (%s)", q.DistanceKm, source)))
	b.WriteString("\n")
	b.WriteString(m.resultStyle.Render(fmt.Sprintf("Preis: %.2f € (%s)", q.Price, q.Vehicle)))
	b.WriteString("\n")
	for _, n := range q.Notices {
		b.WriteString(m.noticeStyle.Render("! " + n))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewMessages() string {
	var b strings.Builder
	if m.status != "" {
		b.WriteString(m.valueStyle.Render(m.status))
		b.WriteString("\n")
	}
	if m.warning != "" {
		b.WriteString(m.noticeStyle.Render(m.warning))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(m.errorStyle.Render(describe(m.err)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) help() string {
	if m.state == stateQuote {
		return "Tab/↑↓: Feld | ←→: Fahrzeug | Enter: berechnen | F2: Rechnung | Esc: beenden"
	}
	return "Tab/↑↓: Feld | Enter: Zeile/schreiben | Ctrl+S: schreiben | Ctrl+K: Übernahme K42 | Ctrl+O: Auftrag K51 | F2: Rechner | Esc: beenden"
}
