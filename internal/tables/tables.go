// Package tables loads the read-only lookup tables: symptom reference links,
// medication synonyms and high-priority interaction rules.
package tables

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/drfirst/go-healthassist/internal/medication"
)

// File names used by CSV sources.
const (
	LinksFile    = "symptom_links.csv"
	SynonymsFile = "meds_synonyms.csv"
	RulesFile    = "onc_high_priority_ddi.csv"
)

var (
	// ErrMissingColumns means a table lacks a required column.
	ErrMissingColumns = errors.New("table is missing required columns")
	// ErrEmptyTable means a table has a header but no usable rows.
	ErrEmptyTable = errors.New("table is empty")
)

//go:embed defaults/*.csv
var defaults embed.FS

// Tables holds the loaded lookup data.
type Tables struct {
	// Links maps lower-cased symptom names to reference URLs.
	Links map[string]string
	// Aliases maps lower-cased alias to canonical drug name.
	Aliases map[string]string
	Rules   []medication.Rule

	// Origins records which source served each table.
	Origins map[string]string
}

// Source provides one or more of the lookup tables.
type Source interface {
	Name() string
	SymptomLinks(ctx context.Context) (map[string]string, error)
	Synonyms(ctx context.Context) (map[string]string, error)
	InteractionRules(ctx context.Context) ([]medication.Rule, error)
}

// Load reads each table from the first source that serves it, falling back to
// the built-in defaults. A failing source is logged and skipped.
func Load(ctx context.Context, logger *zap.Logger, sources ...Source) *Tables {
	if logger == nil {
		logger = zap.NewNop()
	}
	chain := append(append([]Source(nil), sources...), Builtin{})
	t := &Tables{Origins: make(map[string]string, 3)}

	t.Links, t.Origins["symptom_links"] = firstOf(ctx, logger, chain, "symptom_links",
		func(ctx context.Context, s Source) (map[string]string, error) { return s.SymptomLinks(ctx) })
	t.Aliases, t.Origins["meds_synonyms"] = firstOf(ctx, logger, chain, "meds_synonyms",
		func(ctx context.Context, s Source) (map[string]string, error) { return s.Synonyms(ctx) })
	t.Rules, t.Origins["interaction_rules"] = firstOf(ctx, logger, chain, "interaction_rules",
		func(ctx context.Context, s Source) ([]medication.Rule, error) { return s.InteractionRules(ctx) })

	return t
}

func firstOf[T any](ctx context.Context, logger *zap.Logger, chain []Source, table string,
	read func(context.Context, Source) (T, error)) (T, string) {
	var zero T
	for _, src := range chain {
		v, err := read(ctx, src)
		if err != nil {
			logger.Warn("lookup table unavailable, trying next source",
				zap.String("table", table),
				zap.String("source", src.Name()),
				zap.Error(err))
			continue
		}
		return v, src.Name()
	}
	return zero, ""
}

// Builtin serves the tables compiled into the binary.
type Builtin struct{}

func (Builtin) Name() string { return "builtin" }

func (Builtin) SymptomLinks(_ context.Context) (map[string]string, error) {
	return parseEmbedded(LinksFile, ParseLinks)
}

func (Builtin) Synonyms(_ context.Context) (map[string]string, error) {
	return parseEmbedded(SynonymsFile, ParseSynonyms)
}

func (Builtin) InteractionRules(_ context.Context) ([]medication.Rule, error) {
	return parseEmbedded(RulesFile, ParseRules)
}

func parseEmbedded[T any](name string, parse func([]byte) (T, error)) (T, error) {
	data, err := defaults.ReadFile("defaults/" + name)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("read builtin %s: %w", name, err)
	}
	return parse(data)
}
