package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drfirst/go-healthassist/internal/medication"
	"github.com/drfirst/go-healthassist/internal/tables"
)

// TableSource serves the lookup tables from PostgreSQL.
type TableSource struct {
	pool *pgxpool.Pool
}

// NewTableSource creates a table source.
func NewTableSource(pool *pgxpool.Pool) *TableSource {
	return &TableSource{pool: pool}
}

var _ tables.Source = (*TableSource)(nil)

func (s *TableSource) Name() string { return "postgres" }

// SymptomLinks returns symptom -> URL.
func (s *TableSource) SymptomLinks(ctx context.Context) (map[string]string, error) {
	return s.pairs(ctx, `SELECT LOWER(TRIM(symptom)), TRIM(url) FROM symptom_links`)
}

// Synonyms returns alias -> canonical, with every canonical mapped to itself.
func (s *TableSource) Synonyms(ctx context.Context) (map[string]string, error) {
	m, err := s.pairs(ctx, `SELECT LOWER(TRIM(alias)), LOWER(TRIM(canonical)) FROM medication_aliases`)
	if err != nil {
		return nil, err
	}
	canonicals := make([]string, 0, len(m))
	for _, c := range m {
		canonicals = append(canonicals, c)
	}
	for _, c := range canonicals {
		if _, ok := m[c]; !ok {
			m[c] = c
		}
	}
	return m, nil
}

// InteractionRules returns the rules in insertion order, so the first rule for
// a pair keeps precedence.
func (s *TableSource) InteractionRules(ctx context.Context) ([]medication.Rule, error) {
	query := `
		SELECT LOWER(TRIM(drug_a)), LOWER(TRIM(drug_b)), LOWER(severity), note, source
		FROM interaction_rules
		ORDER BY id
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query interaction_rules: %w", err)
	}
	rules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (medication.Rule, error) {
		var r medication.Rule
		var severity string
		err := row.Scan(&r.DrugA, &r.DrugB, &severity, &r.Note, &r.Source)
		r.Severity = medication.Severity(severity)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read interaction_rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, tables.ErrEmptyTable
	}
	return rules, nil
}

func (s *TableSource) pairs(ctx context.Context, query string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookup table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan lookup row: %w", err)
		}
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lookup table: %w", err)
	}
	if len(out) == 0 {
		return nil, tables.ErrEmptyTable
	}
	return out, nil
}
