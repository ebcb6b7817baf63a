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
	{`            _       _                           _   `, "#38bdf8"},
	{`   ___ __ _| |_ ___| |__  _ __ ___   ___ _ __ | |_ `, "#22d3ee"},
	{`  / __/ _' | __/ __| '_ \| '_ ' _ \ / _ \ '_ \| __|`, "#2dd4bf"},
	{` | (_| (_| | || (__| | | | | | | | |  __/ | | | |_ `, "#34d399"},
	{`  \___\__,_|\__\___|_| |_|_| |_| |_|\___|_| |_|\__|`, "#4ade80"},
}

// PrintBanner writes the catchment banner to w, coloured from blue to green
// when the terminal supports it.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  drainage delineation "+version).Faint())
	fmt.Fprintln(w)
}
