// Package medication normalizes free-text drug names and checks the normalized
// list against a table of high-priority drug-drug interactions.
package medication

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/drfirst/go-healthassist/internal/lookup"
)

// Medication is one normalized entry of a user's medication list.
type Medication struct {
	Input     string `json:"input"`
	Canonical string `json:"canonical"`
	RxCUI     string `json:"rxcui,omitempty"`
}

// NameResolver maps a free-text drug name to a nomenclature concept.
type NameResolver interface {
	Resolve(ctx context.Context, name string) lookup.Result[lookup.Concept]
}

// AliasTable maps brand names and synonyms to canonical names. Canonical names
// always map to themselves.
type AliasTable struct {
	aliases map[string]string
}

// NewAliasTable builds a table from alias -> canonical pairs.
func NewAliasTable(pairs map[string]string) *AliasTable {
	t := &AliasTable{aliases: make(map[string]string, len(pairs)*2)}
	for alias, canonical := range pairs {
		alias = normalizeName(alias)
		canonical = normalizeName(canonical)
		if alias == "" || canonical == "" {
			continue
		}
		t.aliases[alias] = canonical
	}
	for _, canonical := range pairs {
		canonical = normalizeName(canonical)
		if canonical == "" {
			continue
		}
		if _, ok := t.aliases[canonical]; !ok {
			t.aliases[canonical] = canonical
		}
	}
	return t
}

// Canonical returns the canonical name for alias and whether it was known.
func (t *AliasTable) Canonical(alias string) (string, bool) {
	c, ok := t.aliases[normalizeName(alias)]
	return c, ok
}

// Len returns the number of known names.
func (t *AliasTable) Len() int { return len(t.aliases) }

// Normalizer turns a comma-separated medication list into canonical entries.
type Normalizer struct {
	aliases  *AliasTable
	resolver NameResolver
	logger   *zap.Logger
}

// NewNormalizer creates a normalizer. resolver may be nil to rely on the alias table only.
func NewNormalizer(aliases *AliasTable, resolver NameResolver, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if aliases == nil {
		aliases = NewAliasTable(nil)
	}
	return &Normalizer{aliases: aliases, resolver: resolver, logger: logger}
}

// Normalize resolves each listed name, preferring the nomenclature service, then
// the alias table, then the name itself. The result is deduplicated by canonical
// name keeping the first occurrence. An empty result means nothing was entered.
func (n *Normalizer) Normalize(ctx context.Context, raw string) []Medication {
	tokens := SplitList(raw)
	out := make([]Medication, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))

	for _, token := range tokens {
		med := n.resolve(ctx, token)
		if _, dup := seen[med.Canonical]; dup {
			continue
		}
		seen[med.Canonical] = struct{}{}
		out = append(out, med)
	}
	return out
}

func (n *Normalizer) resolve(ctx context.Context, token string) Medication {
	alias := strings.ToLower(token)
	med := Medication{Input: token}

	if n.resolver != nil {
		if concept, ok := n.resolver.Resolve(ctx, alias).Get(); ok && strings.TrimSpace(concept.Name) != "" {
			med.Canonical = normalizeName(concept.Name)
			med.RxCUI = concept.RxCUI
			return med
		}
	}

	if canonical, ok := n.aliases.Canonical(alias); ok {
		med.Canonical = canonical
		return med
	}

	n.logger.Debug("unknown medication name kept as entered", zap.String("name", alias))
	med.Canonical = normalizeName(alias)
	return med
}

// SplitList splits a comma-separated list, trimming entries and dropping blanks.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
