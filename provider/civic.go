package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Keksclan/oncoannot/cache"
	"github.com/Keksclan/oncoannot/internal/httpx"
)

// DefaultCIViCURL is the public CIViC GraphQL endpoint.
const DefaultCIViCURL = "https://civicdb.org/api/graphql"

const civicVariantQuery = `
query VariantEvidence($gene: String!, $variant: String!) {
  evidenceItems(geneNames: [$gene], variantNames: [$variant], page: 0, size: 5) {
    records {
      id
      evidenceType
      significance
      clinicalSignificance
      disease { name }
      drugs { name }
      description
      source { citation journal publicationYear url }
      evidenceLevel
    }
  }
}`

// CIViCItem is one normalized evidence record.
type CIViCItem struct {
	EvidenceLevel string   `json:"evidenceLevel"`
	EvidenceType  string   `json:"evidenceType"`
	DrugNames     []string `json:"drugNames"`
	Disease       string   `json:"disease"`
	Year          int      `json:"year,omitempty"`
	Journal       string   `json:"journal"`
	URL           string   `json:"url"`
	Desc          string   `json:"desc"`
	Significance  string   `json:"significance"`
}

// CIViCEvidence is the normalized query result, most relevant item first.
type CIViCEvidence struct {
	Items []CIViCItem `json:"items"`
}

type civicResponse struct {
	Data struct {
		EvidenceItems struct {
			Records []struct {
				EvidenceType         string `json:"evidenceType"`
				Significance         string `json:"significance"`
				ClinicalSignificance string `json:"clinicalSignificance"`
				Disease              *struct {
					Name string `json:"name"`
				} `json:"disease"`
				Drugs []struct {
					Name string `json:"name"`
				} `json:"drugs"`
				Description string `json:"description"`
				Source      *struct {
					Journal         string `json:"journal"`
					PublicationYear int    `json:"publicationYear"`
					URL             string `json:"url"`
				} `json:"source"`
				EvidenceLevel string `json:"evidenceLevel"`
			} `json:"records"`
		} `json:"evidenceItems"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// CIViC queries the CIViC evidence database.
type CIViC struct {
	*base
}

// NewCIViC returns a CIViC adapter.
func NewCIViC(c Cache, hc *httpx.Client, opts ...Option) *CIViC {
	o := newOptions(DefaultCIViCURL, opts)
	return &CIViC{base: newBase(cache.ProviderCIViC, c, hc, o)}
}

// CIViCKey is the cache key for a gene and protein change.
func CIViCKey(gene, change string) string {
	return "CIVIC::" + gene + "::" + change
}

// QueryVariant returns up to five evidence items for gene and change.
func (p *CIViC) QueryVariant(ctx context.Context, gene, change string) Result[CIViCEvidence] {
	return through(ctx, p.base, CIViCKey(gene, change), func(ctx context.Context) (CIViCEvidence, bool, error) {
		out := CIViCEvidence{Items: []CIViCItem{}}
		body, err := p.post(ctx, map[string]any{
			"query":     civicVariantQuery,
			"variables": map[string]string{"gene": gene, "variant": change},
		})
		if err != nil {
			return out, false, err
		}

		var resp civicResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return out, false, fmt.Errorf("decode civic response: %w", err)
		}
		records := resp.Data.EvidenceItems.Records
		if len(records) == 0 && len(resp.Errors) > 0 {
			return out, false, errors.New("civic: " + resp.Errors[0].Message)
		}

		for _, r := range records {
			item := CIViCItem{
				EvidenceLevel: r.EvidenceLevel,
				EvidenceType:  r.EvidenceType,
				DrugNames:     []string{},
				Desc:          r.Description,
				Significance:  r.ClinicalSignificance,
			}
			if item.Significance == "" {
				item.Significance = r.Significance
			}
			for _, d := range r.Drugs {
				if d.Name != "" {
					item.DrugNames = append(item.DrugNames, d.Name)
				}
			}
			if r.Disease != nil {
				item.Disease = r.Disease.Name
			}
			if r.Source != nil {
				item.Year = r.Source.PublicationYear
				item.Journal = r.Source.Journal
				item.URL = r.Source.URL
			}
			out.Items = append(out.Items, item)
		}
		return out, len(out.Items) > 0, nil
	})
}

// Ping reports whether the GraphQL endpoint answers a trivial query.
func (p *CIViC) Ping(ctx context.Context) bool {
	code, err := p.http.Probe(ctx, p.name, p.request(map[string]any{"query": "{ stats { genes } }"}))
	return err == nil && code == http.StatusOK
}

func (p *CIViC) post(ctx context.Context, payload map[string]any) ([]byte, error) {
	return p.http.Do(ctx, p.name, p.request(payload))
}

func (p *CIViC) request(payload map[string]any) httpx.RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
}
