package lookup

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/drfirst/go-healthassist/pkg/circuitbreaker"
)

// DefaultRxNavBaseURL is the public RxNav REST endpoint.
const DefaultRxNavBaseURL = "https://rxnav.nlm.nih.gov/REST"

const serviceRxNav = "rxnav"

// RxNav resolves free-text drug names to RxNorm concepts.
type RxNav struct {
	client  *Client
	breaker *circuitbreaker.CircuitBreaker
	baseURL string
	logger  *zap.Logger
}

// NewRxNav creates an RxNav client. breaker may be nil.
func NewRxNav(client *Client, breaker *circuitbreaker.CircuitBreaker, baseURL string, logger *zap.Logger) *RxNav {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = DefaultRxNavBaseURL
	}
	return &RxNav{
		client:  client,
		breaker: breaker,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type approximateTermResponse struct {
	ApproximateGroup struct {
		Candidate []struct {
			RxCUI string `json:"rxcui"`
		} `json:"candidate"`
	} `json:"approximateGroup"`
}

type propertiesResponse struct {
	Properties *struct {
		Name string `json:"name"`
	} `json:"properties"`
}

// Resolve returns the top approximate match for name. The concept name falls
// back to name when the properties record has none.
func (r *RxNav) Resolve(ctx context.Context, name string) Result[Concept] {
	name = strings.TrimSpace(name)
	if name == "" {
		return Empty[Concept]()
	}

	var approx approximateTermResponse
	err := r.client.GetJSON(ctx, r.breaker, serviceRxNav, r.baseURL+"/approximateTerm.json",
		map[string]string{"term": name, "maxEntries": "1"}, &approx)
	if err != nil || len(approx.ApproximateGroup.Candidate) == 0 {
		return Empty[Concept]()
	}
	rxcui := strings.TrimSpace(approx.ApproximateGroup.Candidate[0].RxCUI)
	if rxcui == "" {
		return Empty[Concept]()
	}

	var props propertiesResponse
	err = r.client.GetJSON(ctx, r.breaker, serviceRxNav,
		r.baseURL+"/rxcui/"+url.PathEscape(rxcui)+"/properties.json", nil, &props)
	if err != nil {
		return Empty[Concept]()
	}

	concept := Concept{RxCUI: rxcui, Name: name}
	if props.Properties != nil && strings.TrimSpace(props.Properties.Name) != "" {
		concept.Name = props.Properties.Name
	}
	r.logger.Debug("resolved medication name",
		zap.String("term", name),
		zap.String("rxcui", concept.RxCUI),
		zap.String("name", concept.Name))
	return Found(concept)
}
