package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Keksclan/oncoannot/cache"
	"github.com/Keksclan/oncoannot/internal/httpx"
	"github.com/Keksclan/oncoannot/variant"
)

// DefaultVEPURL is the Ensembl VEP region endpoint for human.
const DefaultVEPURL = "https://rest.ensembl.org/vep/human/region"

// VEPConsequence is one transcript-level consequence.
type VEPConsequence struct {
	GeneSymbol       string   `json:"gene_symbol,omitempty"`
	ConsequenceTerms []string `json:"consequence_terms,omitempty"`
	Impact           string   `json:"impact,omitempty"`
	AminoAcids       string   `json:"amino_acids,omitempty"`
	SIFT             string   `json:"sift_prediction,omitempty"`
	PolyPhen         string   `json:"polyphen_prediction,omitempty"`
}

// VEPAnnotation is the predicted effect of a single locus.
type VEPAnnotation struct {
	MostSevereConsequence  string           `json:"most_severe_consequence,omitempty"`
	TranscriptConsequences []VEPConsequence `json:"transcript_consequences"`
}

// VEP queries the Ensembl Variant Effect Predictor.
type VEP struct {
	*base
}

// NewVEP returns a VEP adapter.
func NewVEP(c Cache, hc *httpx.Client, opts ...Option) *VEP {
	o := newOptions(DefaultVEPURL, opts)
	return &VEP{base: newBase(cache.ProviderVEP, c, hc, o)}
}

// VEPKey is the cache key for a locus.
func VEPKey(l variant.Locus) string {
	return "VEP::" + l.String()
}

// AnnotateRegion predicts the effect of the substitution at l.
func (p *VEP) AnnotateRegion(ctx context.Context, l variant.Locus) Result[VEPAnnotation] {
	return through(ctx, p.base, VEPKey(l), func(ctx context.Context) (VEPAnnotation, bool, error) {
		out := VEPAnnotation{TranscriptConsequences: []VEPConsequence{}}
		payload := []map[string]string{{
			"variant": fmt.Sprintf("%s:%d-%d:%s/%s", l.Chrom, l.Pos, l.Pos, l.Ref, l.Alt),
		}}
		body, err := p.http.Do(ctx, p.name, func(ctx context.Context) (*http.Request, error) {
			raw, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.baseURL, bytes.NewReader(raw))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
			return req, nil
		})
		if err != nil {
			return out, false, err
		}

		var list []VEPAnnotation
		if err := json.Unmarshal(body, &list); err != nil {
			return out, false, fmt.Errorf("decode vep response: %w", err)
		}
		if len(list) == 0 {
			return out, false, nil
		}
		out = list[0]
		if out.TranscriptConsequences == nil {
			out.TranscriptConsequences = []VEPConsequence{}
		}
		return out, out.MostSevereConsequence != "" || len(out.TranscriptConsequences) > 0, nil
	})
}

// Ping sends a bodiless GET. The endpoint rejects it with 400 or 405 when
// alive, so those count as up.
func (p *VEP) Ping(ctx context.Context) bool {
	code, err := p.http.Probe(ctx, p.name, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return false
	}
	switch code {
	case http.StatusOK, http.StatusBadRequest, http.StatusMethodNotAllowed:
		return true
	}
	return false
}
