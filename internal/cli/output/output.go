// Package output renders CLI results as styled text or JSON.
//
// Output adapts to the environment: a terminal gets colored, styled text
// while pipes and scripts get plain text. JSON is available for tooling.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

// Supported output modes.
const (
	ModeAuto Mode = "auto"
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("161"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	keyStyle     = lipgloss.NewStyle().Bold(true)
)

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styled bool
}

// NewRenderer creates a renderer. Styling is enabled only when out is a
// terminal that supports color.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}

	styled := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		styled = termenv.NewOutput(f).Profile != termenv.Ascii
	}

	return &Renderer{out: out, errOut: errOut, mode: mode, styled: styled}
}

// EffectiveMode resolves ModeAuto to a concrete mode.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode == ModeAuto {
		return ModeText
	}
	return r.mode
}

// Println writes a line to stdout.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes formatted output to stdout.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Header writes a section header.
func (r *Renderer) Header(s string) {
	r.Println(r.styleIf(headerStyle, s))
}

// Success writes a success line.
func (r *Renderer) Success(s string) {
	r.Println(r.styleIf(successStyle, "✓ ") + s)
}

// Error writes an error line to stderr.
func (r *Renderer) Error(s string) {
	_, _ = fmt.Fprintln(r.errOut, r.styleIf(errorStyle, "✗ ")+s)
}

// Muted writes a de-emphasized line.
func (r *Renderer) Muted(s string) {
	r.Println(r.styleIf(mutedStyle, s))
}

// KeyValue writes a "Key: value" line.
func (r *Renderer) KeyValue(key, value string) {
	r.Println(r.styleIf(keyStyle, key+":") + " " + value)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table writes a table with the given header and rows.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	h := make(table.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	t.AppendHeader(h)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, c := range row {
			tr[i] = c
		}
		t.AppendRow(tr)
	}

	if r.styled {
		t.SetStyle(table.StyleLight)
	}
	t.Render()
}

func (r *Renderer) styleIf(style lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return style.Render(s)
}
