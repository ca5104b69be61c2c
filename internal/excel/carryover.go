package excel

import (
	"fmt"
	"strconv"
	"strings"

	"lademeter/internal/freight"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultCarryOver renders loading meters, distance and price.
var DefaultCarryOver = []string{
	"Lademeter: ${fixed(LoadingMeters, 2)} m",
	"Entfernung: ${fixed(DistanceKm, 1)} km",
	"Preis: ${fixed(Price, 2)} €",
}

// segment is literal text or a compiled ${...} expression.
type segment struct {
	text    string
	program *vm.Program
}

// CarryOver turns a quote into the summary block written next to the
// vehicle and pallet cells. Each template line may embed ${expr}
// expressions over the quote's fields.
type CarryOver struct {
	lines [][]segment
}

// NewCarryOver compiles the template lines. An empty template uses
// DefaultCarryOver.
func NewCarryOver(template []string) (*CarryOver, error) {
	if len(template) == 0 {
		template = DefaultCarryOver
	}
	env := quoteEnv(freight.Quote{})
	c := &CarryOver{}
	for _, line := range template {
		var segs []segment
		for _, part := range parseTemplate(line) {
			if !part.expr {
				segs = append(segs, segment{text: part.text})
				continue
			}
			program, err := expr.Compile(part.text, expr.Env(env), expr.AllowUndefinedVariables())
			if err != nil {
				return nil, fmt.Errorf("compile expression %q: %w", part.text, err)
			}
			segs = append(segs, segment{text: part.text, program: program})
		}
		c.lines = append(c.lines, segs)
	}
	return c, nil
}

// Render evaluates the template against q, one output line per template line.
func (c *CarryOver) Render(q freight.Quote) (string, error) {
	env := quoteEnv(q)
	lines := make([]string, 0, len(c.lines))
	for _, segs := range c.lines {
		var b strings.Builder
		for _, s := range segs {
			if s.program == nil {
				b.WriteString(s.text)
				continue
			}
			out, err := expr.Run(s.program, env)
			if err != nil {
				return "", fmt.Errorf("evaluate expression %q: %w", s.text, err)
			}
			if out != nil {
				b.WriteString(fmt.Sprint(out))
			}
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n"), nil
}

// DispatchBlock is the order id and date written into the dispatch cell.
func DispatchBlock(q freight.Quote) string {
	return "Auftrags-ID: " + q.ID + "\nDatum: " + q.CreatedAt.Format("02.01.2006")
}

func quoteEnv(q freight.Quote) map[string]any {
	return map[string]any{
		"ID":            q.ID,
		"PalletSize":    q.PalletSize,
		"Count":         q.Count,
		"StackFactor":   q.StackFactor,
		"LoadingMeters": q.LoadingMeters,
		"DistanceKm":    q.DistanceKm,
		"Price":         q.Price,
		"Vehicle":       string(q.Vehicle),
		"From":          q.From,
		"To":            q.To,
		"Source":        string(q.DistanceSource),
		"Date":          q.CreatedAt.Format("02.01.2006"),
		"fixed":         fixed,
	}
}

// fixed formats a number with prec decimals.
func fixed(v any, prec int) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', prec, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', prec, 32)
	case int:
		return strconv.FormatFloat(float64(n), 'f', prec, 64)
	case int64:
		return strconv.FormatFloat(float64(n), 'f', prec, 64)
	}
	return fmt.Sprint(v)
}

type templatePart struct {
	expr bool
	text string
}

// parseTemplate splits "Preis: ${fixed(Price, 2)} €" into literal and
// expression parts. Nested braces inside an expression are balanced.
func parseTemplate(value string) []templatePart {
	var parts []templatePart
	remaining := value
	for {
		start := strings.Index(remaining, "${")
		if start < 0 {
			break
		}
		end := matchingBrace(remaining[start+2:])
		if end < 0 {
			break
		}
		if start > 0 {
			parts = append(parts, templatePart{text: remaining[:start]})
		}
		parts = append(parts, templatePart{expr: true, text: remaining[start+2 : start+2+end]})
		remaining = remaining[start+2+end+1:]
	}
	if remaining != "" {
		parts = append(parts, templatePart{text: remaining})
	}
	return parts
}

func matchingBrace(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}
