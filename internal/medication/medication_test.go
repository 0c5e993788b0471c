package medication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drfirst/go-healthassist/internal/lookup"
)

var testAliases = map[string]string{
	"tylenol":     "acetaminophen",
	"paracetamol": "acetaminophen",
	"Advil ":      "ibuprofen",
	"coumadin":    "warfarin",
	"zoloft":      "sertraline",
}

var testRules = []Rule{
	{DrugA: "sertraline", DrugB: "linezolid", Severity: "major", Note: "Risk of serotonin syndrome", Source: "https://www.accessdata.fda.gov/"},
	{DrugA: "warfarin", DrugB: "ibuprofen", Severity: "MAJOR", Note: "Bleeding risk increases", Source: "https://www.accessdata.fda.gov/"},
	{DrugA: "warfarin", DrugB: "aspirin", Severity: "major", Note: "Bleeding risk increases"},
	{DrugA: "ibuprofen", DrugB: "naproxen", Severity: "moderate", Note: "Avoid duplicate NSAIDs"},
	{DrugA: "naproxen", DrugB: "ibuprofen", Severity: "minor", Note: "duplicate row, ignored"},
}

func TestAliasTable(t *testing.T) {
	table := NewAliasTable(testAliases)

	c, ok := table.Canonical("TYLENOL")
	require.True(t, ok)
	assert.Equal(t, "acetaminophen", c)

	c, ok = table.Canonical("acetaminophen")
	require.True(t, ok)
	assert.Equal(t, "acetaminophen", c, "canonical names map to themselves")

	c, ok = table.Canonical("advil")
	require.True(t, ok)
	assert.Equal(t, "ibuprofen", c)

	_, ok = table.Canonical("unknownium")
	assert.False(t, ok)
}

func TestNormalizeDeduplicatesByCanonical(t *testing.T) {
	n := NewNormalizer(NewAliasTable(testAliases), nil, nil)

	meds := n.Normalize(context.Background(), "Tylenol, tylenol, acetaminophen")
	require.Len(t, meds, 1)
	assert.Equal(t, Medication{Input: "Tylenol", Canonical: "acetaminophen"}, meds[0])
}

func TestNormalizeKeepsUnknownNames(t *testing.T) {
	n := NewNormalizer(NewAliasTable(testAliases), nil, nil)

	meds := n.Normalize(context.Background(), " Zoloft ,, Metformin , ")
	assert.Equal(t, []Medication{
		{Input: "Zoloft", Canonical: "sertraline"},
		{Input: "Metformin", Canonical: "metformin"},
	}, meds)
}

func TestNormalizeEmpty(t *testing.T) {
	n := NewNormalizer(nil, nil, nil)
	assert.Empty(t, n.Normalize(context.Background(), ""))
	assert.Empty(t, n.Normalize(context.Background(), " , ,"))
}

type stubResolver map[string]lookup.Concept

func (s stubResolver) Resolve(_ context.Context, name string) lookup.Result[lookup.Concept] {
	if c, ok := s[name]; ok {
		return lookup.Found(c)
	}
	return lookup.Empty[lookup.Concept]()
}

func TestNormalizePrefersResolver(t *testing.T) {
	resolver := stubResolver{
		"tylenol": {RxCUI: "161", Name: "Acetaminophen"},
	}
	n := NewNormalizer(NewAliasTable(testAliases), resolver, nil)

	meds := n.Normalize(context.Background(), "Tylenol, coumadin, paracetamol")
	assert.Equal(t, []Medication{
		{Input: "Tylenol", Canonical: "acetaminophen", RxCUI: "161"},
		{Input: "coumadin", Canonical: "warfarin"},
	}, meds)
}

func TestCheckIsSymmetric(t *testing.T) {
	c := NewChecker(testRules)

	forward := c.Check([]string{"warfarin", "ibuprofen"})
	backward := c.Check([]string{"ibuprofen", "warfarin"})

	require.Len(t, forward, 1)
	assert.Equal(t, forward, backward)
	assert.Equal(t, SeverityMajor, forward[0].Severity)
	assert.Equal(t, "ibuprofen", forward[0].A)
	assert.Equal(t, "warfarin", forward[0].B)
}

func TestCheckOrderAndFirstRuleWins(t *testing.T) {
	c := NewChecker(testRules)
	assert.Equal(t, 4, c.Len())

	hits := c.Check([]string{"warfarin", "naproxen", "aspirin", "ibuprofen", "warfarin"})
	require.Len(t, hits, 3)
	assert.Equal(t, []Hit{
		{A: "aspirin", B: "warfarin", Severity: SeverityMajor, Note: "Bleeding risk increases"},
		{A: "ibuprofen", B: "naproxen", Severity: SeverityModerate, Note: "Avoid duplicate NSAIDs"},
		{A: "ibuprofen", B: "warfarin", Severity: SeverityMajor, Note: "Bleeding risk increases", Source: "https://www.accessdata.fda.gov/"},
	}, hits)
}

func TestCheckerIgnoresUnknownSeverity(t *testing.T) {
	c := NewChecker([]Rule{
		{DrugA: "warfarin", DrugB: "ibuprofen", Severity: "sever"},
		{DrugA: "ibuprofen", DrugB: "warfarin", Severity: " Major "},
	})
	hits := c.Check([]string{"warfarin", "ibuprofen"})
	require.Len(t, hits, 1)
	assert.Equal(t, SeverityMajor, hits[0].Severity)
	assert.False(t, Severity("").Valid())
}

func TestCheckNeedsTwoDistinctNames(t *testing.T) {
	c := NewChecker(testRules)
	assert.Empty(t, c.Check(nil))
	assert.Empty(t, c.Check([]string{"warfarin"}))
	assert.Empty(t, c.Check([]string{"warfarin", "Warfarin"}))
	assert.Empty(t, NewChecker(nil).Check([]string{"warfarin", "ibuprofen"}))
}

func TestCheckMedications(t *testing.T) {
	n := NewNormalizer(NewAliasTable(testAliases), nil, nil)
	c := NewChecker(testRules)

	meds := n.Normalize(context.Background(), "Zoloft, linezolid")
	hits := c.CheckMedications(meds)
	require.Len(t, hits, 1)
	assert.Equal(t, "linezolid", hits[0].A)
	assert.Equal(t, "sertraline", hits[0].B)
}
