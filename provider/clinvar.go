package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Keksclan/oncoannot/cache"
	"github.com/Keksclan/oncoannot/internal/httpx"
	"go.uber.org/zap"
)

// NCBI E-utilities endpoints.
const (
	DefaultClinVarSearchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	DefaultClinVarSummaryURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"
)

// NCBIRateLimit returns the request budget NCBI grants per second: 3
// anonymously, 10 with an API key.
func NCBIRateLimit(apiKey string) float64 {
	if apiKey != "" {
		return 10
	}
	return 3
}

// clinVarRetMax is how many records FindVariantSummary asks for.
const clinVarRetMax = 5

// ClinVarSummary is one normalized ClinVar record.
type ClinVarSummary struct {
	UID          string   `json:"uid"`
	Title        string   `json:"title"`
	Significance string   `json:"significance,omitempty"`
	ReviewStatus string   `json:"review_status,omitempty"`
	Genes        []string `json:"genes,omitempty"`
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type classification struct {
	Description  string `json:"description"`
	ReviewStatus string `json:"review_status"`
}

type esummaryDoc struct {
	UID                    string         `json:"uid"`
	Title                  string         `json:"title"`
	ClinicalSignificance   classification `json:"clinical_significance"`
	GermlineClassification classification `json:"germline_classification"`
	Genes                  []struct {
		Symbol string `json:"symbol"`
	} `json:"genes"`
}

// ClinVar queries ClinVar through the two-step esearch/esummary flow.
type ClinVar struct {
	*base
}

// NewClinVar returns a ClinVar adapter.
func NewClinVar(c Cache, hc *httpx.Client, opts ...Option) *ClinVar {
	o := newOptions(DefaultClinVarSearchURL, opts)
	if o.summaryURL == "" {
		o.summaryURL = DefaultClinVarSummaryURL
	}
	return &ClinVar{base: newBase(cache.ProviderClinVar, c, hc, o)}
}

// ClinVarSearchKey is the cache key for a search term.
func ClinVarSearchKey(term string, retmax int) string {
	return "CLINVAR::search::" + term + "::" + strconv.Itoa(retmax)
}

// ClinVarSummaryKey is the cache key for a set of record ids.
func ClinVarSummaryKey(ids []string) string {
	return "CLINVAR::summary::" + strings.Join(ids, ",")
}

// Search returns up to retmax ClinVar ids matching term.
func (p *ClinVar) Search(ctx context.Context, term string, retmax int) Result[[]string] {
	return through(ctx, p.base, ClinVarSearchKey(term, retmax), func(ctx context.Context) ([]string, bool, error) {
		q := url.Values{
			"db":      {"clinvar"},
			"term":    {term},
			"retmode": {"json"},
			"retmax":  {strconv.Itoa(retmax)},
		}
		body, err := p.http.Do(ctx, p.name, p.get(p.opts.baseURL, q))
		if err != nil {
			return []string{}, false, err
		}
		var resp esearchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return []string{}, false, fmt.Errorf("decode esearch response: %w", err)
		}
		ids := resp.Result.IDList
		if ids == nil {
			ids = []string{}
		}
		if retmax > 0 {
			ids = ids[:min(len(ids), retmax)]
		}
		return ids, len(ids) > 0, nil
	})
}

// Summaries returns the records for ids. An empty id list yields an empty
// result without touching the network or the cache.
func (p *ClinVar) Summaries(ctx context.Context, ids []string) Result[[]ClinVarSummary] {
	if len(ids) == 0 {
		return Result[[]ClinVarSummary]{Status: StatusEmpty, FetchedAt: p.opts.now().Unix(), Value: []ClinVarSummary{}}
	}
	return through(ctx, p.base, ClinVarSummaryKey(ids), func(ctx context.Context) ([]ClinVarSummary, bool, error) {
		out := []ClinVarSummary{}
		q := url.Values{
			"db":      {"clinvar"},
			"retmode": {"json"},
			"id":      {strings.Join(ids, ",")},
		}
		body, err := p.http.Do(ctx, p.name, p.get(p.opts.summaryURL, q))
		if err != nil {
			return out, false, err
		}

		var resp struct {
			Result map[string]json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return out, false, fmt.Errorf("decode esummary response: %w", err)
		}
		var uids []string
		if raw, ok := resp.Result["uids"]; ok {
			if err := json.Unmarshal(raw, &uids); err != nil {
				return out, false, fmt.Errorf("decode esummary uids: %w", err)
			}
		}
		for _, uid := range uids {
			raw, ok := resp.Result[uid]
			if !ok {
				continue
			}
			var doc esummaryDoc
			if err := json.Unmarshal(raw, &doc); err != nil {
				p.logger.Debug("skipping malformed esummary record", zap.String("uid", uid), zap.Error(err))
				continue
			}
			out = append(out, doc.normalize(uid))
		}
		return out, len(out) > 0, nil
	})
}

// FindVariantSummary searches "{gene}[gene] AND {change}" and returns the
// summaries of the top five hits.
func (p *ClinVar) FindVariantSummary(ctx context.Context, gene, change string) Result[[]ClinVarSummary] {
	ids := p.Search(ctx, gene+"[gene] AND "+change, clinVarRetMax)
	if !ids.Found() {
		return Result[[]ClinVarSummary]{Status: ids.Status, FetchedAt: ids.FetchedAt, Value: []ClinVarSummary{}}
	}
	return p.Summaries(ctx, ids.Value)
}

// Ping runs a fixed search and reports whether it answered 200.
func (p *ClinVar) Ping(ctx context.Context) bool {
	q := url.Values{"db": {"clinvar"}, "term": {"EGFR"}, "retmode": {"json"}}
	code, err := p.http.Probe(ctx, p.name, p.get(p.opts.baseURL, q))
	return err == nil && code == http.StatusOK
}

func (p *ClinVar) get(endpoint string, q url.Values) httpx.RequestFunc {
	if p.opts.apiKey != "" {
		q.Set("api_key", p.opts.apiKey)
	}
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	}
}

func (d esummaryDoc) normalize(uid string) ClinVarSummary {
	s := ClinVarSummary{UID: d.UID, Title: d.Title}
	if s.UID == "" {
		s.UID = uid
	}
	c := d.GermlineClassification
	if c.Description == "" {
		c = d.ClinicalSignificance
	}
	s.Significance = c.Description
	s.ReviewStatus = c.ReviewStatus
	for _, g := range d.Genes {
		if g.Symbol != "" {
			s.Genes = append(s.Genes, g.Symbol)
		}
	}
	return s
}
