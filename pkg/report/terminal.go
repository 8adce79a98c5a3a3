package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/term"
)

var (
	gradientStart, _ = colorful.Hex("#00CED1")
	gradientEnd, _   = colorful.Hex("#9B30FF")

	statusStyles = map[Status]lipgloss.Style{
		StatusImproved:     lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71")).Bold(true),
		StatusDeteriorated: lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C")).Bold(true),
		StatusNotChanged:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		StatusUnknown:      lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true),
	}
)

// Gradient returns n colors blended from teal to purple.
func Gradient(n int) []colorful.Color {
	colors := make([]colorful.Color, n)
	for i := range colors {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		colors[i] = gradientStart.BlendLuv(gradientEnd, t)
	}
	return colors
}

// Headline renders text with a per-character teal to purple gradient.
func Headline(text string) string {
	runes := []rune(text)
	colors := Gradient(len(runes))

	var b strings.Builder
	for i, r := range runes {
		style := lipgloss.NewStyle().
			Foreground(lipgloss.Color(colors[i].Hex())).
			Bold(true)
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}

// StatusLine renders the comparison counts as one styled line.
func StatusLine(counts map[Status]int) string {
	var parts []string
	for _, s := range []Status{StatusImproved, StatusNotChanged, StatusDeteriorated, StatusUnknown} {
		if counts[s] == 0 {
			continue
		}
		parts = append(parts, statusStyles[s].Render(fmt.Sprintf("%d %s", counts[s], s)))
	}
	if len(parts) == 0 {
		return statusStyles[StatusUnknown].Render("no timings")
	}
	return strings.Join(parts, ", ")
}

// TerminalWidth is the width of stdout, or 80 when it is not a terminal.
func TerminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// PrintSummary writes the headline, the status line and the markdown
// summary rendered for a terminal of the given width. When rendering
// fails the raw markdown is written instead.
func (r *Report) PrintSummary(w io.Writer, markdown string, width int) error {
	fmt.Fprintln(w, Headline(r.title()))
	fmt.Fprintln(w, StatusLine(StatusCounts(StatisticsRows(r.Scenarios))))
	fmt.Fprintln(w)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		_, err = fmt.Fprintln(w, markdown)
		return err
	}

	out, err := renderer.Render(markdown)
	if err != nil {
		_, err = fmt.Fprintln(w, markdown)
		return err
	}

	_, err = fmt.Fprint(w, out)
	return err
}
