package lookup

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/drfirst/go-healthassist/pkg/circuitbreaker"
)

// DefaultZeroShotURL is the hosted inference endpoint for facebook/bart-large-mnli.
const DefaultZeroShotURL = "https://api-inference.huggingface.co/models/facebook/bart-large-mnli"

const serviceZeroShot = "zero-shot"

// ZeroShot scores candidate labels against free text. It is disabled without a token.
type ZeroShot struct {
	client  *Client
	breaker *circuitbreaker.CircuitBreaker
	url     string
	token   string
}

// NewZeroShot creates a classifier client. breaker may be nil.
func NewZeroShot(client *Client, breaker *circuitbreaker.CircuitBreaker, endpoint, token string) *ZeroShot {
	if endpoint == "" {
		endpoint = DefaultZeroShotURL
	}
	return &ZeroShot{client: client, breaker: breaker, url: endpoint, token: strings.TrimSpace(token)}
}

// Enabled reports whether a token is configured.
func (z *ZeroShot) Enabled() bool { return z.token != "" }

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Suggest classifies text against candidates with independent (multi-label) scores.
func (z *ZeroShot) Suggest(ctx context.Context, text string, candidates []string) Result[[]LabelScore] {
	if !z.Enabled() || strings.TrimSpace(text) == "" || len(candidates) == 0 {
		return Empty[[]LabelScore]()
	}

	payload := zeroShotRequest{
		Inputs: text,
		Parameters: zeroShotParameters{
			CandidateLabels: candidates,
			MultiLabel:      true,
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + z.token}

	var raw json.RawMessage
	if err := z.client.PostJSON(ctx, z.breaker, serviceZeroShot, z.url, headers, payload, &raw); err != nil {
		return Empty[[]LabelScore]()
	}

	scores, ok := decodeScores(raw)
	if !ok || len(scores) == 0 {
		return Empty[[]LabelScore]()
	}
	return Found(scores)
}

// decodeScores accepts the {labels, scores} shape and the list-of-pairs shape.
func decodeScores(raw json.RawMessage) ([]LabelScore, bool) {
	var zs zeroShotResponse
	if err := json.Unmarshal(raw, &zs); err == nil {
		n := len(zs.Labels)
		if len(zs.Scores) < n {
			n = len(zs.Scores)
		}
		out := make([]LabelScore, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, LabelScore{Label: zs.Labels[i], Score: zs.Scores[i]})
		}
		return out, true
	}

	var pairs []LabelScore
	if err := json.Unmarshal(raw, &pairs); err == nil {
		return pairs, true
	}
	return nil, false
}
