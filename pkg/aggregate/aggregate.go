// Package aggregate merges the results of one turn into a single answer.
package aggregate

import (
	"strings"

	"github.com/aretw0/furrow/pkg/domain"
)

const (
	// Apology is returned when no dispatch in the turn produced usable text.
	Apology = "I apologize, but I couldn't get an answer to your request right now. Please try again or rephrase your question."
	// GapNote is appended to a merged answer when some workers failed.
	GapNote = "Some parts of your question could not be answered right now:"
	// UnroutedGap stands in for a part that no worker was available to take.
	UnroutedGap = "No specialist was available"
)

// Aggregator merges dispatch results. It is stateless.
type Aggregator struct {
	apology string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithApology overrides the zero-result answer. Blank values are ignored.
func WithApology(text string) Option {
	return func(a *Aggregator) {
		if strings.TrimSpace(text) != "" {
			a.apology = text
		}
	}
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{apology: Apology}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate produces the final answer for a turn. It is never empty.
//
// A single usable result passes through untouched. Several are rendered as
// titled sections in dispatch order, followed by a note naming the workers
// that failed. With no usable result the apology is returned.
func (a *Aggregator) Aggregate(results []domain.DispatchResult, originalQuery string) string {
	usable := make([]domain.DispatchResult, 0, len(results))
	var gaps []domain.WorkerName
	unrouted := false
	for _, r := range results {
		switch {
		case r.Success && strings.TrimSpace(r.Text) != "":
			usable = append(usable, r)
		case r.Worker == "":
			unrouted = true
		case !containsWorker(gaps, r.Worker) && !answered(results, r.Worker):
			gaps = append(gaps, r.Worker)
		}
	}
	hasGaps := len(gaps) > 0 || unrouted

	switch len(usable) {
	case 0:
		return a.apology
	case 1:
		if !hasGaps {
			return usable[0].Text
		}
	}

	var b strings.Builder
	for i, r := range usable {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("**")
		b.WriteString(r.Worker.Title())
		b.WriteString("**\n")
		b.WriteString(strings.TrimSpace(r.Text))
	}
	if hasGaps {
		b.WriteString("\n\n")
		b.WriteString(GapNote)
		for _, g := range gaps {
			b.WriteString("\n- ")
			b.WriteString(g.Title())
		}
		if unrouted {
			b.WriteString("\n- ")
			b.WriteString(UnroutedGap)
		}
	}
	return b.String()
}

func containsWorker(names []domain.WorkerName, name domain.WorkerName) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// answered reports whether some result from the same worker succeeded, so a
// redirect source that later answered is not listed as a gap.
func answered(results []domain.DispatchResult, name domain.WorkerName) bool {
	for _, r := range results {
		if r.Worker == name && r.Success && strings.TrimSpace(r.Text) != "" {
			return true
		}
	}
	return false
}
