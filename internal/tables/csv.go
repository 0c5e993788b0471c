package tables

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/drfirst/go-healthassist/internal/medication"
)

// CSVSource reads tables from CSV files in a directory.
type CSVSource struct {
	Dir string
}

func (s CSVSource) Name() string { return "csv:" + s.Dir }

func (s CSVSource) SymptomLinks(_ context.Context) (map[string]string, error) {
	return readFile(filepath.Join(s.Dir, LinksFile), ParseLinks)
}

func (s CSVSource) Synonyms(_ context.Context) (map[string]string, error) {
	return readFile(filepath.Join(s.Dir, SynonymsFile), ParseSynonyms)
}

func (s CSVSource) InteractionRules(_ context.Context) ([]medication.Rule, error) {
	return readFile(filepath.Join(s.Dir, RulesFile), ParseRules)
}

func readFile[T any](path string, parse func([]byte) (T, error)) (T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := parse(data)
	if err != nil {
		return v, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// ParseLinks parses a symptom,url table.
func ParseLinks(data []byte) (map[string]string, error) {
	rows, err := readRows(data, "symptom", "url")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		symptom := strings.ToLower(r["symptom"])
		if symptom == "" || r["url"] == "" {
			continue
		}
		out[symptom] = r["url"]
	}
	if len(out) == 0 {
		return nil, ErrEmptyTable
	}
	return out, nil
}

// ParseSynonyms parses an alias,canonical table. Every canonical name also maps
// to itself.
func ParseSynonyms(data []byte) (map[string]string, error) {
	rows, err := readRows(data, "alias", "canonical")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		alias, canonical := strings.ToLower(r["alias"]), strings.ToLower(r["canonical"])
		if alias == "" || canonical == "" {
			continue
		}
		out[alias] = canonical
	}
	for _, canonical := range out {
		if _, ok := out[canonical]; !ok {
			out[canonical] = canonical
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyTable
	}
	return out, nil
}

// ParseRules parses a drug_a,drug_b,severity,note,source table. note and source
// are optional columns. Rows with a blank drug or a severity other than minor,
// moderate or major are skipped.
func ParseRules(data []byte) ([]medication.Rule, error) {
	rows, err := readRows(data, "drug_a", "drug_b", "severity")
	if err != nil {
		return nil, err
	}
	out := make([]medication.Rule, 0, len(rows))
	for _, r := range rows {
		a, b := strings.ToLower(r["drug_a"]), strings.ToLower(r["drug_b"])
		sev := medication.Severity(strings.ToLower(r["severity"]))
		if a == "" || b == "" || !sev.Valid() {
			continue
		}
		out = append(out, medication.Rule{
			DrugA:    a,
			DrugB:    b,
			Severity: sev,
			Note:     r["note"],
			Source:   r["source"],
		})
	}
	if len(out) == 0 {
		return nil, ErrEmptyTable
	}
	return out, nil
}

// readRows returns each record keyed by lower-cased header, with trimmed values.
func readRows(data []byte, required ...string) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		row := make(map[string]string, len(cols))
		for name, i := range cols {
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
