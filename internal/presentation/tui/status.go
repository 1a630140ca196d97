package tui

import (
	"fmt"
	"io"

	"github.com/aretw0/furrow"
	"github.com/muesli/termenv"
)

// PrintHealth writes one coloured line per worker followed by a summary.
func PrintHealth(w io.Writer, report furrow.HealthReport) {
	p := termenv.NewOutput(w).Profile
	ok := termenv.String("●").Foreground(p.Color("#22c55e"))
	down := termenv.String("●").Foreground(p.Color("#ef4444"))

	for _, wh := range report.Workers {
		mark := ok
		if !wh.Healthy {
			mark = down
		}
		fmt.Fprintf(w, "%s %-12s %s\n", mark, wh.Name, termenv.String(wh.Summary).Faint())
	}

	status := termenv.String("ready").Foreground(p.Color("#22c55e")).Bold()
	if !report.Ready {
		status = termenv.String("not ready").Foreground(p.Color("#ef4444")).Bold()
	}
	fmt.Fprintf(w, "\n%s: %d/%d workers healthy, %d conversations, oracle %s\n",
		status, report.HealthyCount, report.RegistrySize, report.Conversations, onOff(report.OracleEnabled))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
