package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Keksclan/oncoannot/cache"
	"github.com/Keksclan/oncoannot/internal/httpx"
)

// DefaultOncoKBURL is the OncoKB public API root.
const DefaultOncoKBURL = "https://www.oncokb.org/api/v1"

// OncoKBTreatment is one therapeutic implication.
type OncoKBTreatment struct {
	Drugs      []string `json:"drugs"`
	Level      string   `json:"level"`
	Indication string   `json:"indication,omitempty"`
}

// OncoKBAnnotation is the normalized OncoKB answer for a protein change.
type OncoKBAnnotation struct {
	GeneExist             bool              `json:"gene_exist"`
	VariantExist          bool              `json:"variant_exist"`
	Oncogenic             string            `json:"oncogenic,omitempty"`
	MutationEffect        string            `json:"mutation_effect,omitempty"`
	HighestSensitiveLevel string            `json:"highest_sensitive_level,omitempty"`
	Treatments            []OncoKBTreatment `json:"treatments"`
}

type oncokbResponse struct {
	GeneExist      bool   `json:"geneExist"`
	VariantExist   bool   `json:"variantExist"`
	Oncogenic      string `json:"oncogenic"`
	MutationEffect *struct {
		KnownEffect string `json:"knownEffect"`
	} `json:"mutationEffect"`
	HighestSensitiveLevel string `json:"highestSensitiveLevel"`
	Treatments            []struct {
		Drugs []struct {
			DrugName string `json:"drugName"`
		} `json:"drugs"`
		Level                     string `json:"level"`
		LevelAssociatedCancerType *struct {
			Name string `json:"name"`
		} `json:"levelAssociatedCancerType"`
	} `json:"treatments"`
}

// OncoKB queries the OncoKB annotation API. Without a token it never
// touches the network.
type OncoKB struct {
	*base
}

// NewOncoKB returns an OncoKB adapter.
func NewOncoKB(c Cache, hc *httpx.Client, opts ...Option) *OncoKB {
	o := newOptions(DefaultOncoKBURL, opts)
	o.baseURL = strings.TrimRight(o.baseURL, "/")
	return &OncoKB{base: newBase(cache.ProviderOncoKB, c, hc, o)}
}

// OncoKBKey is the cache key for a gene and protein change.
func OncoKBKey(gene, change string) string {
	return "ONCOKB::" + gene + "::" + change
}

// Configured reports whether a token is set.
func (p *OncoKB) Configured() bool { return p.opts.token != "" }

// Annotate returns the OncoKB annotation for gene and change.
func (p *OncoKB) Annotate(ctx context.Context, gene, change string) Result[OncoKBAnnotation] {
	key := OncoKBKey(gene, change)
	if !p.Configured() {
		if r, ok := cached[OncoKBAnnotation](ctx, p.base, key); ok {
			return r
		}
		r := Result[OncoKBAnnotation]{
			Status:    StatusSkipped,
			FetchedAt: p.opts.now().Unix(),
			Value:     OncoKBAnnotation{Treatments: []OncoKBTreatment{}},
		}
		store(ctx, p.base, key, r)
		return r
	}

	return through(ctx, p.base, key, func(ctx context.Context) (OncoKBAnnotation, bool, error) {
		out := OncoKBAnnotation{Treatments: []OncoKBTreatment{}}
		q := url.Values{"hugoSymbol": {gene}, "alteration": {change}}
		body, err := p.http.Do(ctx, p.name, p.get("/annotate/mutations/byProteinChange?"+q.Encode()))
		if err != nil {
			return out, false, err
		}
		var resp oncokbResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return out, false, fmt.Errorf("decode oncokb response: %w", err)
		}

		out.GeneExist = resp.GeneExist
		out.VariantExist = resp.VariantExist
		out.Oncogenic = resp.Oncogenic
		out.HighestSensitiveLevel = resp.HighestSensitiveLevel
		if resp.MutationEffect != nil {
			out.MutationEffect = resp.MutationEffect.KnownEffect
		}
		for _, t := range resp.Treatments {
			tr := OncoKBTreatment{Drugs: []string{}, Level: t.Level}
			for _, d := range t.Drugs {
				if d.DrugName != "" {
					tr.Drugs = append(tr.Drugs, d.DrugName)
				}
			}
			if t.LevelAssociatedCancerType != nil {
				tr.Indication = t.LevelAssociatedCancerType.Name
			}
			out.Treatments = append(out.Treatments, tr)
		}
		return out, out.known(), nil
	})
}

// known reports whether OncoKB holds anything beyond "not curated".
func (a OncoKBAnnotation) known() bool {
	if a.VariantExist || len(a.Treatments) > 0 {
		return true
	}
	return a.Oncogenic != "" && !strings.EqualFold(a.Oncogenic, "Unknown")
}

// Ping reports false without a token, otherwise whether /utils/info answers
// 200.
func (p *OncoKB) Ping(ctx context.Context) bool {
	if !p.Configured() {
		return false
	}
	code, err := p.http.Probe(ctx, p.name, p.get("/utils/info"))
	return err == nil && code == http.StatusOK
}

func (p *OncoKB) get(path string) httpx.RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+p.opts.token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
}
