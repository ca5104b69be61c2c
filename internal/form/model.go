package form

import (
	"context"
	"fmt"
	"strings"

	"lademeter/internal/excel"
	"lademeter/internal/freight"
	"lademeter/internal/logger"
	"lademeter/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WarnNoQuote is shown when a quote-derived field is injected before any
// calculation.
const WarnNoQuote = "Bitte zuerst eine Berechnung durchführen."

// UI states
type state int

const (
	stateQuote state = iota
	stateDocument
)

// Quoter computes quotes.
type Quoter interface {
	Quote(ctx context.Context, req freight.Request) (freight.Quote, error)
}

// Injector writes payloads into the invoice document.
type Injector interface {
	Inject(anchor string, payload any, maxRows int) (int, error)
}

// Options wires the form to the engine and the document.
type Options struct {
	Engine    Quoter
	Session   *session.Session
	CarryOver *excel.CarryOver
	// OpenDocument returns the injector for a document path. It is called
	// once per selected path.
	OpenDocument func(path string) Injector
	DocumentPath string
	SiteAnchor   string
	AccentColor  string
}

type input struct {
	label     string
	value     string
	multiline bool
	field     excel.Field
}

type quoteMsg struct {
	quote freight.Quote
	err   error
}

type injectMsg struct {
	field excel.Field
	rows  int
	err   error
}

// Model is the bubbletea model of the quoting form.
type Model struct {
	opts Options

	state   state
	quote   []input
	vehicle int
	doc     []input
	cursor  int

	injector     Injector
	injectorPath string

	busy    bool
	result  *freight.Quote
	status  string
	warning string
	err     error

	width int

	titleStyle    lipgloss.Style
	labelStyle    lipgloss.Style
	focusedStyle  lipgloss.Style
	valueStyle    lipgloss.Style
	resultStyle   lipgloss.Style
	noticeStyle   lipgloss.Style
	errorStyle    lipgloss.Style
	helpStyle     lipgloss.Style
	selectedStyle lipgloss.Style
}

// Quote screen inputs
const (
	inPallet = iota
	inCount
	inStack
	inFrom
	inTo
	inManualKm
	inVehicle
)

// New builds the form. Entry fields follow the configured site anchor.
func New(opts Options) (Model, error) {
	fields, err := excel.EntryFields(opts.SiteAnchor)
	if err != nil {
		return Model{}, err
	}
	accent := opts.AccentColor
	if accent == "" {
		accent = "205"
	}

	doc := []input{{label: "Dokument", value: opts.DocumentPath}}
	for _, f := range fields {
		doc = append(doc, input{label: f.Label, multiline: f.MaxRows > 1, field: f})
	}

	return Model{
		opts: opts,
		quote: []input{
			{label: "Palettengröße (LxBxH cm)"},
			{label: "Anzahl"},
			{label: "Stapelbarkeit"},
			{label: "Start"},
			{label: "Ziel"},
			{label: "Kilometer (manuell)"},
			{label: "Fahrzeug"},
		},
		doc: doc,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(accent)),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Width(26),
		focusedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(26),
		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		resultStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")).
			Bold(true),
		noticeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		selectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
	}, nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case quoteMsg:
		return m.handleQuote(msg), nil
	case injectMsg:
		return m.handleInject(msg), nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "f2":
			m.switchScreen()
			return m, nil
		}
		switch m.state {
		case stateQuote:
			return m.updateQuote(msg)
		case stateDocument:
			return m.updateDocument(msg)
		}
	}
	return m, nil
}

func (m *Model) switchScreen() {
	if m.state == stateQuote {
		m.state = stateDocument
	} else {
		m.state = stateQuote
	}
	m.cursor = 0
}

func (m Model) updateQuote(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.cursor = (m.cursor + 1) % len(m.quote)
	case "shift+tab", "up":
		m.cursor = (m.cursor + len(m.quote) - 1) % len(m.quote)
	case "left":
		if m.cursor == inVehicle {
			classes := freight.VehicleClasses()
			m.vehicle = (m.vehicle + len(classes) - 1) % len(classes)
		}
	case "right":
		if m.cursor == inVehicle {
			m.vehicle = (m.vehicle + 1) % len(freight.VehicleClasses())
		}
	case "enter", "ctrl+s":
		return m.submitQuote()
	default:
		if m.cursor != inVehicle {
			editInput(&m.quote[m.cursor], msg)
		}
	}
	return m, nil
}

func (m Model) updateDocument(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.cursor = (m.cursor + 1) % len(m.doc)
	case "shift+tab", "up":
		m.cursor = (m.cursor + len(m.doc) - 1) % len(m.doc)
	case "enter":
		if m.doc[m.cursor].multiline {
			m.doc[m.cursor].value += "\n"
			return m, nil
		}
		return m.submitField()
	case "ctrl+s":
		return m.submitField()
	case "ctrl+k":
		return m.submitQuoteField(excel.FieldCarryOver)
	case "ctrl+o":
		return m.submitQuoteField(excel.FieldDispatch)
	default:
		editInput(&m.doc[m.cursor], msg)
	}
	return m, nil
}

// editInput applies typing and deletion to a text input.
func editInput(in *input, msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		in.value += string(msg.Runes)
	case tea.KeyBackspace:
		if r := []rune(in.value); len(r) > 0 {
			in.value = string(r[:len(r)-1])
		}
	case tea.KeyCtrlU:
		in.value = ""
	}
}

func (m Model) submitQuote() (tea.Model, tea.Cmd) {
	if m.busy {
		m.warning = "Bitte warten, die letzte Aktion läuft noch."
		return m, nil
	}
	m.clearMessages()
	// A failed calculation shows no stale result.
	m.result = nil

	count, err := freight.ParseCount(m.quote[inCount].value)
	if err != nil {
		return m.fail(fmt.Errorf("anzahl: %w", err)), nil
	}
	// An empty stack field means not stackable.
	stack := 0
	if v := m.quote[inStack].value; strings.TrimSpace(v) != "" {
		if stack, err = freight.ParseCount(v); err != nil {
			return m.fail(fmt.Errorf("stapelbarkeit: %w", err)), nil
		}
	}
	req := freight.Request{
		PalletSize:  m.quote[inPallet].value,
		Count:       count,
		StackFactor: stack,
		From:        m.quote[inFrom].value,
		To:          m.quote[inTo].value,
		ManualKm:    m.quote[inManualKm].value,
		Vehicle:     freight.VehicleClasses()[m.vehicle],
	}

	m.busy = true
	m.status = "Berechnung läuft..."
	engine := m.opts.Engine
	return m, func() tea.Msg {
		q, err := engine.Quote(context.Background(), req)
		return quoteMsg{quote: q, err: err}
	}
}

func (m Model) handleQuote(msg quoteMsg) Model {
	m.busy = false
	m.status = ""
	if msg.err != nil {
		return m.fail(msg.err)
	}
	m.opts.Session.Record(msg.quote)
	q := msg.quote
	m.result = &q
	return m
}

// submitField injects the focused document field.
func (m Model) submitField() (tea.Model, tea.Cmd) {
	in := m.doc[m.cursor]
	if in.field.Anchor == "" {
		return m, nil
	}
	return m.inject(in.field, in.value)
}

// submitQuoteField injects a payload derived from the last quote.
func (m Model) submitQuoteField(f excel.Field) (tea.Model, tea.Cmd) {
	q, ok := m.opts.Session.LastQuote()
	if !ok {
		m.clearMessages()
		m.warning = WarnNoQuote
		logger.Warn("Injection requested without a quote", "anchor", f.Anchor)
		return m, nil
	}
	payload := excel.DispatchBlock(q)
	if f == excel.FieldCarryOver {
		text, err := m.opts.CarryOver.Render(q)
		if err != nil {
			m.clearMessages()
			return m.fail(err), nil
		}
		payload = text
	}
	return m.inject(f, payload)
}

func (m Model) inject(f excel.Field, payload string) (tea.Model, tea.Cmd) {
	if m.busy {
		m.warning = "Bitte warten, die letzte Aktion läuft noch."
		return m, nil
	}
	m.clearMessages()

	path := strings.TrimSpace(m.doc[0].value)
	if path == "" {
		return m.fail(excel.ErrFileNotFound), nil
	}
	if m.injector == nil || m.injectorPath != path {
		m.injector = m.opts.OpenDocument(path)
		m.injectorPath = path
	}

	m.busy = true
	m.status = fmt.Sprintf("Schreibe %s nach %s...", f.Label, f.Anchor)
	injector := m.injector
	return m, func() tea.Msg {
		rows, err := injector.Inject(f.Anchor, payload, f.MaxRows)
		return injectMsg{field: f, rows: rows, err: err}
	}
}

func (m Model) handleInject(msg injectMsg) Model {
	m.busy = false
	m.status = ""
	if msg.err != nil {
		return m.fail(msg.err)
	}
	m.status = fmt.Sprintf("%s: %d Zeile(n) ab %s geschrieben.", msg.field.Label, msg.rows, msg.field.Anchor)
	return m
}

func (m Model) fail(err error) Model {
	m.err = err
	return m
}

func (m *Model) clearMessages() {
	m.status = ""
	m.warning = ""
	m.err = nil
}

// Run starts the form on the terminal.
func Run(opts Options) error {
	m, err := New(opts)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running form: %w", err)
	}
	return nil
}
