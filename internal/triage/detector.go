// Package triage implements the rule-based symptom triage: keyword detection,
// severity/duration extraction and the red-flag decision policy.
package triage

import (
	"sort"
	"strings"

	"github.com/drfirst/go-healthassist/internal/lexicon"
)

// Detector finds vocabulary symptoms mentioned in free text.
type Detector struct {
	symptoms []string
}

// NewDetector creates a detector over the lexicon's symptom vocabulary.
func NewDetector(lx *lexicon.Lexicon) *Detector {
	return &Detector{symptoms: lx.Symptoms()}
}

// Detect returns each matched symptom once, ordered by where it first appears in
// the text. Symptoms starting at the same position keep vocabulary order.
func (d *Detector) Detect(text string) []string {
	lower := strings.ToLower(text)

	type match struct {
		symptom string
		at      int
	}
	var found []match
	for _, s := range d.symptoms {
		if at := strings.Index(lower, s); at >= 0 {
			found = append(found, match{symptom: s, at: at})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].at < found[j].at })

	out := make([]string, 0, len(found))
	for _, m := range found {
		out = append(out, m.symptom)
	}
	return out
}
