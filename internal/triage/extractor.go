package triage

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/drfirst/go-healthassist/internal/lexicon"
)

// SeverityUnknown is the label used when no severity word is present.
const SeverityUnknown = "unknown"

// Context is the structured reading of a symptom description.
type Context struct {
	SeverityLabel string   `json:"severity_label"`
	SeverityScore int      `json:"severity_score"`
	DurationDays  int      `json:"duration_days"`
	RedHits       []string `json:"red_hits"`
}

// Extractor derives severity, duration and red-flag hits from text.
type Extractor struct {
	severity []lexicon.SeverityWord
	redFlags []string
	duration *regexp.Regexp
}

// NewExtractor creates an extractor over the lexicon tables.
func NewExtractor(lx *lexicon.Lexicon) *Extractor {
	return &Extractor{
		severity: lx.Severity(),
		redFlags: lx.RedFlags(),
		duration: lx.Duration(),
	}
}

// Extract reads the context of text. It has no side effects.
func (e *Extractor) Extract(text string) Context {
	lower := strings.ToLower(text)

	ctx := Context{SeverityLabel: SeverityUnknown, RedHits: []string{}}

	// Strictly greater: the first declared word keeps a tied score.
	for _, sw := range e.severity {
		if strings.Contains(lower, sw.Word) && sw.Score > ctx.SeverityScore {
			ctx.SeverityScore = sw.Score
			ctx.SeverityLabel = sw.Word
		}
	}

	ctx.DurationDays = e.durationDays(text)

	for _, rf := range e.redFlags {
		if strings.Contains(lower, rf) {
			ctx.RedHits = append(ctx.RedHits, rf)
		}
	}
	return ctx
}

// durationDays converts the first duration phrase to approximate days.
func (e *Extractor) durationDays(text string) int {
	m := e.duration.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	// The pattern only matches digits, so a parse error means out of range.
	n, err := strconv.Atoi(m[1])
	if err != nil {
		n = math.MaxInt
	}

	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "hour"):
		if n >= 24 {
			return 1
		}
		return 0
	case strings.HasPrefix(unit, "day"):
		return n
	case strings.HasPrefix(unit, "week"):
		if n > math.MaxInt/7 {
			return math.MaxInt
		}
		return n * 7
	}
	return 0
}
