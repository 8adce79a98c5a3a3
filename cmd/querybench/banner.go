package main

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/term"
)

//go:generate go run ../doc -in README.in.md -out README.md -config-pkg ../../pkg/config
//go:embed README.md
var readmeMarkdown string

var bannerLines = []string{
	`                              __                     __  `,
	`  ____ _ __  __ ___   _____ / /_   ___   ____   _____/ /_ `,
	` / __ '// / / // _ \ / ___// __ \ / _ \ / __ \ / ___/ __ \`,
	`/ /_/ // /_/ //  __// /   / /_/ //  __// / / // /__/ / / /`,
	`\__, / \__,_/ \___//_/   /_.___/ \___//_/ /_/ \___/_/ /_/ `,
	`  /_/                                                      `,
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printBanner(w io.Writer) {
	// Gradient from teal to purple
	teal, _ := colorful.Hex("#00CED1")
	purple, _ := colorful.Hex("#9B30FF")
	bgColor := lipgloss.Color("#1a1a2e")

	maxWidth := len(bannerLines[0])

	var lines []string
	for _, line := range bannerLines {
		var result strings.Builder
		for i, r := range line {
			t := float64(i) / float64(maxWidth-1)
			c := teal.BlendLuv(purple, t)
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(c.Hex())).
				Background(bgColor).
				Bold(true)
			result.WriteString(style.Render(string(r)))
		}
		lines = append(lines, result.String())
	}

	box := lipgloss.NewStyle().
		Background(bgColor).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))

	fmt.Fprintln(w, box)
	fmt.Fprintln(w)
}

// printFullDocs renders the embedded README, or writes it raw when w is
// not a terminal.
func printFullDocs(w io.Writer) {
	if !isTerminal(w) {
		fmt.Fprint(w, readmeMarkdown)
		return
	}

	width := 80
	if ws, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && ws > 0 {
		width = ws
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		fmt.Fprintln(w, readmeMarkdown)
		return
	}

	out, err := renderer.Render(readmeMarkdown)
	if err != nil {
		fmt.Fprintln(w, readmeMarkdown)
		return
	}

	fmt.Fprint(w, out)
}
