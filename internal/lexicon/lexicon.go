// Package lexicon holds the fixed vocabularies the triage rules match against.
package lexicon

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DurationPattern captures "<integer> <unit>" phrases such as "3 days" or "2 weeks".
const DurationPattern = `(?i)(\b\d+\b)\s*(hours?|days?|weeks?)`

// SeverityWord maps an intensity word to a score between 1 and 3.
type SeverityWord struct {
	Word  string `yaml:"word"`
	Score int    `yaml:"score"`
}

// Lexicon is the immutable vocabulary set loaded once at startup.
// Slices are returned as copies so callers cannot mutate the shared tables.
type Lexicon struct {
	symptoms []string
	redFlags []string
	severity []SeverityWord
	duration *regexp.Regexp
}

var (
	defaultSymptoms = []string{
		"headache", "fever", "chest pain", "shortness of breath", "cough", "sore throat",
		"vomiting", "diarrhea", "abdominal pain", "dizziness", "fatigue", "back pain",
		"rash", "ear pain", "runny nose", "loss of smell", "loss of taste",
	}
	defaultRedFlags = []string{
		"chest pain", "shortness of breath", "one-sided weakness", "confusion", "fainting",
		"uncontrolled bleeding", "severe allergic reaction", "blue lips", "worst headache",
		"stiff neck with fever", "vision loss", "severe abdominal pain", "blood in stool", "black tarry stool",
	}
	// Order matters: on equal scores the word declared first wins.
	defaultSeverity = []SeverityWord{
		{Word: "mild", Score: 1},
		{Word: "moderate", Score: 2},
		{Word: "severe", Score: 3},
		{Word: "worst", Score: 3},
	}
)

// ErrEmptyVocabulary is returned when a lexicon file defines no symptoms or red flags.
var ErrEmptyVocabulary = errors.New("lexicon has no symptoms or red flags")

// New builds a lexicon from the given lists. Entries are lower-cased, trimmed and
// deduplicated keeping the first occurrence.
func New(symptoms, redFlags []string, severity []SeverityWord) (*Lexicon, error) {
	lx := &Lexicon{
		symptoms: normalize(symptoms),
		redFlags: normalize(redFlags),
		duration: regexp.MustCompile(DurationPattern),
	}
	if len(lx.symptoms) == 0 || len(lx.redFlags) == 0 {
		return nil, ErrEmptyVocabulary
	}

	seen := make(map[string]struct{}, len(severity))
	for _, sw := range severity {
		word := strings.ToLower(strings.TrimSpace(sw.Word))
		if word == "" {
			continue
		}
		if sw.Score < 1 || sw.Score > 3 {
			return nil, fmt.Errorf("severity word %q: score %d out of range 1..3", word, sw.Score)
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		lx.severity = append(lx.severity, SeverityWord{Word: word, Score: sw.Score})
	}
	if len(lx.severity) == 0 {
		return nil, errors.New("lexicon has no severity words")
	}
	return lx, nil
}

// Default returns the built-in vocabulary.
func Default() *Lexicon {
	lx, err := New(defaultSymptoms, defaultRedFlags, defaultSeverity)
	if err != nil {
		panic(fmt.Sprintf("lexicon: invalid built-in vocabulary: %v", err))
	}
	return lx
}

type fileFormat struct {
	Symptoms []string       `yaml:"symptoms"`
	RedFlags []string       `yaml:"red_flags"`
	Severity []SeverityWord `yaml:"severity"`
}

// Parse decodes a YAML lexicon document.
func Parse(data []byte) (*Lexicon, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}
	return New(f.Symptoms, f.RedFlags, f.Severity)
}

// Load reads a lexicon file. A blank path, a missing file or a malformed document
// yields the built-in vocabulary and a warning.
func Load(path string, logger *zap.Logger) *Lexicon {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("using built-in lexicon, file could not be read",
			zap.String("path", path), zap.Error(err))
		return Default()
	}

	lx, err := Parse(data)
	if err != nil {
		logger.Warn("using built-in lexicon, file is invalid",
			zap.String("path", path), zap.Error(err))
		return Default()
	}

	logger.Info("lexicon loaded",
		zap.String("path", path),
		zap.Int("symptoms", len(lx.symptoms)),
		zap.Int("red_flags", len(lx.redFlags)))
	return lx
}

// Symptoms returns the symptom vocabulary in declaration order.
func (l *Lexicon) Symptoms() []string { return append([]string(nil), l.symptoms...) }

// RedFlags returns the red-flag phrases in declaration order.
func (l *Lexicon) RedFlags() []string { return append([]string(nil), l.redFlags...) }

// Severity returns the severity words in declaration order.
func (l *Lexicon) Severity() []SeverityWord { return append([]SeverityWord(nil), l.severity...) }

// Duration returns the compiled duration pattern.
func (l *Lexicon) Duration() *regexp.Regexp { return l.duration }

// HasSymptom reports whether s is part of the symptom vocabulary.
func (l *Lexicon) HasSymptom(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, v := range l.symptoms {
		if v == s {
			return true
		}
	}
	return false
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
