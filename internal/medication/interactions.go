package medication

import (
	"sort"
	"strings"
)

// Severity grades a drug-drug interaction.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
)

// Valid reports whether s is one of the known grades.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeverityMajor:
		return true
	}
	return false
}

// Rule is a recorded interaction between two canonical drug names. The pair is unordered.
type Rule struct {
	DrugA    string   `json:"drug_a"`
	DrugB    string   `json:"drug_b"`
	Severity Severity `json:"severity"`
	Note     string   `json:"note"`
	Source   string   `json:"source"`
}

// Hit is an interaction found in a medication list. A sorts before B.
type Hit struct {
	A        string   `json:"a"`
	B        string   `json:"b"`
	Severity Severity `json:"severity"`
	Note     string   `json:"note"`
	Source   string   `json:"source"`
}

type pairKey struct{ a, b string }

func newPairKey(x, y string) pairKey {
	if y < x {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// Checker finds known interactions among canonical drug names.
type Checker struct {
	index map[pairKey]Rule
}

// NewChecker indexes rules by unordered pair. When a pair is listed more than
// once the first rule in table order is kept. Rules with an unknown severity
// are ignored.
func NewChecker(rules []Rule) *Checker {
	c := &Checker{index: make(map[pairKey]Rule, len(rules))}
	for _, r := range rules {
		a, b := normalizeName(r.DrugA), normalizeName(r.DrugB)
		if a == "" || b == "" || a == b {
			continue
		}
		sev := Severity(strings.ToLower(strings.TrimSpace(string(r.Severity))))
		if !sev.Valid() {
			continue
		}
		key := newPairKey(a, b)
		if _, exists := c.index[key]; exists {
			continue
		}
		r.DrugA, r.DrugB, r.Severity = a, b, sev
		c.index[key] = r
	}
	return c
}

// Len returns the number of indexed pairs.
func (c *Checker) Len() int { return len(c.index) }

// Check returns the interactions among names. Names are deduplicated and sorted
// before pairing so the output order is reproducible.
func (c *Checker) Check(names []string) []Hit {
	uniq := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = normalizeName(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		uniq = append(uniq, n)
	}

	hits := []Hit{}
	if len(uniq) < 2 || len(c.index) == 0 {
		return hits
	}
	sort.Strings(uniq)

	for i := 0; i < len(uniq); i++ {
		for j := i + 1; j < len(uniq); j++ {
			rule, ok := c.index[newPairKey(uniq[i], uniq[j])]
			if !ok {
				continue
			}
			hits = append(hits, Hit{
				A:        uniq[i],
				B:        uniq[j],
				Severity: rule.Severity,
				Note:     rule.Note,
				Source:   rule.Source,
			})
		}
	}
	return hits
}

// CheckMedications runs Check over the canonical names of meds.
func (c *Checker) CheckMedications(meds []Medication) []Hit {
	names := make([]string, 0, len(meds))
	for _, m := range meds {
		names = append(names, m.Canonical)
	}
	return c.Check(names)
}
