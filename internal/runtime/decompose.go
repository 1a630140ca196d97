package runtime

import (
	"regexp"
	"strings"

	"github.com/aretw0/furrow/pkg/domain"
)

// DefaultMaxSubRequests caps how many sub-requests one message can produce.
const DefaultMaxSubRequests = 4

// Tagger reports which worker a clause clearly belongs to, if any.
type Tagger interface {
	Match(query string) (domain.WorkerName, bool)
}

// clauseSeparator matches "; " or a connective word, swallowing a connective that follows a semicolon.
var clauseSeparator = regexp.MustCompile(`(?i)(?:\s*;\s*|,?\s+)(?:and\s+also|as\s+well\s+as|and\s+then|also|then|and)\s+|\s*;\s*`)

type clause struct {
	text string
	tag  domain.WorkerName
}

// Decompose splits message into ordered sub-requests, one per domain.
//
// Clauses without a domain of their own stick to their neighbour, and adjacent
// clauses of the same domain are merged. A message touching fewer than two
// domains is returned whole. At most max sub-requests are produced; the tail
// is folded into the last one.
func Decompose(message string, tagger Tagger, max int) []string {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	if max <= 0 {
		max = DefaultMaxSubRequests
	}
	if tagger == nil || max == 1 {
		return []string{message}
	}

	var clauses []clause
	for _, part := range clauseSeparator.Split(message, -1) {
		part = strings.Trim(part, " \t\r\n,.")
		if part == "" {
			continue
		}
		tag, _ := tagger.Match(part)
		clauses = append(clauses, clause{text: part, tag: tag})
	}

	groups := groupClauses(clauses)
	if len(groups) < 2 {
		return []string{message}
	}

	if len(groups) > max {
		tail := groups[max-1:]
		texts := make([]string, 0, len(tail))
		for _, g := range tail {
			texts = append(texts, g.text)
		}
		groups = append(groups[:max-1], clause{text: strings.Join(texts, " and "), tag: tail[0].tag})
	}

	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.text)
	}
	return out
}

func groupClauses(clauses []clause) []clause {
	var groups []clause
	var pending []string // untagged clauses seen before the first tagged one

	for _, c := range clauses {
		switch {
		case c.tag == "" && len(groups) == 0:
			pending = append(pending, c.text)
		case c.tag == "":
			last := &groups[len(groups)-1]
			last.text += " and " + c.text
		case len(groups) > 0 && groups[len(groups)-1].tag == c.tag:
			last := &groups[len(groups)-1]
			last.text += " and " + c.text
		default:
			text := c.text
			if len(groups) == 0 && len(pending) > 0 {
				text = strings.Join(append(pending, c.text), " and ")
				pending = nil
			}
			groups = append(groups, clause{text: text, tag: c.tag})
		}
	}
	return groups
}
