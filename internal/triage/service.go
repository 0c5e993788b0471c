package triage

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/drfirst/go-healthassist/internal/lexicon"
	"github.com/drfirst/go-healthassist/internal/lookup"
)

const (
	// SuggestionThreshold is the minimum classifier score for an extra symptom.
	SuggestionThreshold = 0.35
	// MaxSuggestions caps how many ranked classifier labels are considered.
	MaxSuggestions = 6
)

// SymptomSuggester proposes symptom labels for text from a set of candidates.
type SymptomSuggester interface {
	Suggest(ctx context.Context, text string, candidates []string) lookup.Result[[]lookup.LabelScore]
}

// Service runs detection, extraction and classification for one description.
type Service struct {
	lexicon   *lexicon.Lexicon
	detector  *Detector
	extractor *Extractor
	suggester SymptomSuggester
	logger    *zap.Logger
}

// NewService creates a triage service. suggester may be nil for rule-only detection.
func NewService(lx *lexicon.Lexicon, suggester SymptomSuggester, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		lexicon:   lx,
		detector:  NewDetector(lx),
		extractor: NewExtractor(lx),
		suggester: suggester,
		logger:    logger,
	}
}

// Triage classifies text. It never fails; an unavailable suggester only means
// fewer detected symptoms.
func (s *Service) Triage(ctx context.Context, text string) Result {
	symptoms := s.detector.Detect(text)
	symptoms = s.augment(ctx, text, symptoms)
	return Classify(symptoms, s.extractor.Extract(text))
}

func (s *Service) augment(ctx context.Context, text string, symptoms []string) []string {
	if s.suggester == nil {
		return symptoms
	}

	scores, ok := s.suggester.Suggest(ctx, text, s.lexicon.Symptoms()).Get()
	if !ok {
		return symptoms
	}

	ranked := append([]lookup.LabelScore(nil), scores...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > MaxSuggestions {
		ranked = ranked[:MaxSuggestions]
	}

	seen := make(map[string]struct{}, len(symptoms))
	for _, sym := range symptoms {
		seen[sym] = struct{}{}
	}
	for _, ls := range ranked {
		label := strings.ToLower(strings.TrimSpace(ls.Label))
		if ls.Score < SuggestionThreshold || !s.lexicon.HasSymptom(label) {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		symptoms = append(symptoms, label)
		s.logger.Debug("classifier added symptom",
			zap.String("symptom", label), zap.Float64("score", ls.Score))
	}
	return symptoms
}
