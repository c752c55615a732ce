// Package output renders CLI results for terminals, scripts and agents.
// Terminal output is styled; piped output falls back to markdown so the
// same commands stay machine-readable.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Mode selects the rendering format.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Styles holds the lipgloss styles used for terminal rendering.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultStyles returns the standard style set.
func DefaultStyles() *Styles {
	return &Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Renderer writes formatted output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styles *Styles
}

// NewRenderer creates a renderer for the given writers and mode.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{out: out, errOut: errOut, mode: mode, styles: DefaultStyles()}
}

// EffectiveMode resolves ModeAuto to text on a terminal and markdown
// otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if f, ok := r.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ModeText
	}
	return ModeMarkdown
}

// Writer returns the underlying output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Styles returns the style set for direct use by commands.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a plain line.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes formatted plain output.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Header writes a section heading. Styled on terminals, markdown
// hashes elsewhere.
func (r *Renderer) Header(level int, s string) {
	if r.EffectiveMode() == ModeText {
		_, _ = fmt.Fprintln(r.out, r.styles.Header.Render(s))
		return
	}
	prefix := ""
	for i := 0; i < level; i++ {
		prefix += "#"
	}
	_, _ = fmt.Fprintf(r.out, "%s %s\n", prefix, s)
}

// Success writes a success line.
func (r *Renderer) Success(s string) {
	if r.EffectiveMode() == ModeText {
		s = r.styles.Success.Render(s)
	}
	_, _ = fmt.Fprintln(r.out, s)
}

// Warning writes a warning line to stderr.
func (r *Renderer) Warning(s string) {
	if r.EffectiveMode() == ModeText {
		s = r.styles.Warning.Render(s)
	}
	_, _ = fmt.Fprintln(r.errOut, s)
}

// Error writes an error line to stderr.
func (r *Renderer) Error(s string) {
	if r.EffectiveMode() == ModeText {
		s = r.styles.Error.Render(s)
	}
	_, _ = fmt.Fprintln(r.errOut, s)
}

// KeyValue writes a "key: value" line.
func (r *Renderer) KeyValue(key, value string) {
	if r.EffectiveMode() == ModeMarkdown {
		_, _ = fmt.Fprintf(r.out, "- **%s**: %s\n", key, value)
		return
	}
	_, _ = fmt.Fprintf(r.out, "%s: %s\n", key, value)
}
