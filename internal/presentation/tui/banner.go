package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the furrow banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.NewOutput(w).Profile
	lines := []struct {
		text  string
		color string
	}{
		{"   __                           ", "#86efac"},
		{"  / _|_   _ _ __ _ __ _____      __", "#4ade80"},
		{" | |_| | | | '__| '__/ _ \\ \\ /\\ / /", "#22c55e"},
		{" |  _| |_| | |  | | | (_) \\ V  V / ", "#16a34a"},
		{" |_|  \\__,_|_|  |_|  \\___/ \\_/\\_/  ", "#15803d"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  "+version).Faint())
	fmt.Fprintln(w)
}
