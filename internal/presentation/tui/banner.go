package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"   __ _                   _             _    ", "#818cf8"},
	{"  / _| | _____      _____| |_ __ _  ___| | __", "#a78bfa"},
	{" | |_| |/ _ \\ \\ /\\ / / __| __/ _` |/ __| |/ /", "#c084fc"},
	{" |  _| | (_) \\ V  V /\\__ \\ || (_| | (__|   < ", "#e879f9"},
	{" |_| |_|\\___/ \\_/\\_/ |___/\\__\\__,_|\\___|_|\\_\\", "#f472b6"},
}

// PrintBanner writes the ASCII banner to w, coloured for w's terminal profile.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(p.Color(line.color)))
	}
	if version != "" {
		fmt.Fprintln(w, out.String("  "+version).Faint())
	}
	fmt.Fprintln(w)
}

// Prompt renders the input prompt.
func Prompt(w io.Writer) string {
	out := termenv.NewOutput(w)
	return out.String("> ").Bold().Foreground(out.ColorProfile().Color("#a78bfa")).String()
}
