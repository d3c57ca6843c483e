package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the mosaic ASCII banner, one color per line.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  _ __ ___   ___  ___  __ _(_) ___ ", "#34d399"},
		{" | '_ ` _ \\ / _ \\/ __|/ _` | |/ __|", "#22d3ee"},
		{" | | | | | | (_) \\__ \\ (_| | | (__ ", "#60a5fa"},
		{" |_| |_| |_|\\___/|___/\\__,_|_|\\___|", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
