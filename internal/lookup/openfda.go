package lookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/drfirst/go-healthassist/pkg/circuitbreaker"
)

// DefaultOpenFDAURL is the openFDA drug label endpoint.
const DefaultOpenFDAURL = "https://api.fda.gov/drug/label.json"

// MaxSectionLength caps each label section, in characters.
const MaxSectionLength = 4000

const serviceOpenFDA = "openfda"

// OpenFDA fetches official drug label text.
type OpenFDA struct {
	client  *Client
	breaker *circuitbreaker.CircuitBreaker
	url     string
}

// NewOpenFDA creates a label client. breaker may be nil.
func NewOpenFDA(client *Client, breaker *circuitbreaker.CircuitBreaker, endpoint string) *OpenFDA {
	if endpoint == "" {
		endpoint = DefaultOpenFDAURL
	}
	return &OpenFDA{client: client, breaker: breaker, url: endpoint}
}

type labelResponse struct {
	Results []struct {
		ID      string `json:"id"`
		OpenFDA *struct {
			BrandName   []string `json:"brand_name"`
			GenericName []string `json:"generic_name"`
		} `json:"openfda"`
		DrugInteractions  []string `json:"drug_interactions"`
		Warnings          []string `json:"warnings"`
		Contraindications []string `json:"contraindications"`
	} `json:"results"`
}

// Label returns the first label matching drug by brand or generic name.
func (o *OpenFDA) Label(ctx context.Context, drug string) Result[LabelEvidence] {
	drug = strings.TrimSpace(strings.ReplaceAll(drug, `"`, ""))
	if drug == "" {
		return Empty[LabelEvidence]()
	}

	params := map[string]string{
		"search": fmt.Sprintf(`openfda.brand_name:"%s" OR openfda.generic_name:"%s"`, drug, drug),
		"limit":  "1",
	}
	var resp labelResponse
	if err := o.client.GetJSON(ctx, o.breaker, serviceOpenFDA, o.url, params, &resp); err != nil {
		return Empty[LabelEvidence]()
	}
	if len(resp.Results) == 0 {
		return Empty[LabelEvidence]()
	}

	d := resp.Results[0]
	ev := LabelEvidence{
		ID:                d.ID,
		Interactions:      truncate(strings.Join(d.DrugInteractions, " "), MaxSectionLength),
		Warnings:          truncate(strings.Join(d.Warnings, " "), MaxSectionLength),
		Contraindications: truncate(strings.Join(d.Contraindications, " "), MaxSectionLength),
	}
	if d.OpenFDA != nil {
		ev.Brand = first(d.OpenFDA.BrandName)
		ev.Generic = first(d.OpenFDA.GenericName)
	}
	return Found(ev)
}

// Excerpt shortens s to n characters, marking the cut with "...".
func Excerpt(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return truncate(s, n) + "..."
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
