package provider

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Keksclan/oncoannot/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const civicFixture = `{
  "data": {
    "evidenceItems": {
      "records": [
        {
          "id": 1,
          "evidenceType": "PREDICTIVE",
          "significance": "SENSITIVITYRESPONSE",
          "clinicalSignificance": null,
          "disease": {"name": "Lung Non-small Cell Carcinoma"},
          "drugs": [{"name": "Osimertinib"}, {"name": ""}],
          "description": "EGFR L858R predicts response.",
          "source": {"citation": "x", "journal": "N Engl J Med", "publicationYear": 2018, "url": "https://pubmed.example/1"},
          "evidenceLevel": "A"
        },
        {
          "id": 2,
          "evidenceType": "PROGNOSTIC",
          "significance": "POOR_OUTCOME",
          "clinicalSignificance": "Better Outcome",
          "disease": null,
          "drugs": [],
          "description": "",
          "source": null,
          "evidenceLevel": "C"
        }
      ]
    }
  }
}`

func TestCIViCQueryVariantNormalizes(t *testing.T) {
	f := newFixture(t)
	var gotBody map[string]any
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(civicFixture))
	})
	p := NewCIViC(f.store, f.http, f.opts(WithBaseURL(srv.URL))...)

	r := p.QueryVariant(t.Context(), "EGFR", "L858R")

	require.Equal(t, StatusOK, r.Status)
	require.Len(t, r.Value.Items, 2)

	top := r.Value.Items[0]
	assert.Equal(t, "A", top.EvidenceLevel)
	assert.Equal(t, "PREDICTIVE", top.EvidenceType)
	assert.Equal(t, []string{"Osimertinib"}, top.DrugNames)
	assert.Equal(t, "Lung Non-small Cell Carcinoma", top.Disease)
	assert.Equal(t, 2018, top.Year)
	assert.Equal(t, "N Engl J Med", top.Journal)
	assert.Equal(t, "https://pubmed.example/1", top.URL)
	assert.Equal(t, "SENSITIVITYRESPONSE", top.Significance, "falls back to significance")

	second := r.Value.Items[1]
	assert.Equal(t, "Better Outcome", second.Significance, "clinicalSignificance wins")
	assert.Empty(t, second.DrugNames)
	assert.Empty(t, second.Disease)
	assert.Zero(t, second.Year)

	vars, _ := gotBody["variables"].(map[string]any)
	assert.Equal(t, "EGFR", vars["gene"])
	assert.Equal(t, "L858R", vars["variant"])

	// Second call is served from cache.
	again := p.QueryVariant(t.Context(), "EGFR", "L858R")
	assert.Equal(t, r, again)
	assert.EqualValues(t, 1, hits.Load())

	stored := cachedResult[CIViCEvidence](t, f.store, cache.ProviderCIViC, "CIVIC::EGFR::L858R")
	assert.Equal(t, StatusOK, stored.Status)
}

func TestCIViCNoRecordsIsEmpty(t *testing.T) {
	f := newFixture(t)
	srv, _ := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"evidenceItems":{"records":[]}}}`))
	})
	p := NewCIViC(f.store, f.http, f.opts(WithBaseURL(srv.URL))...)

	r := p.QueryVariant(t.Context(), "TP53", "R175H")
	assert.Equal(t, StatusEmpty, r.Status)
	assert.NotNil(t, r.Value.Items)
	assert.False(t, r.Found())
}

func TestCIViCFailureDegradesAndIsCached(t *testing.T) {
	f := newFixture(t)
	srv, hits := countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"boom"}]}`))
	})
	p := NewCIViC(f.store, f.http, f.opts(WithBaseURL(srv.URL))...)

	r := p.QueryVariant(t.Context(), "KRAS", "G12D")
	assert.Equal(t, StatusFailed, r.Status)
	assert.Empty(t, r.Value.Items)

	p.QueryVariant(t.Context(), "KRAS", "G12D")
	assert.EqualValues(t, 1, hits.Load())

	stored := cachedResult[CIViCEvidence](t, f.store, cache.ProviderCIViC, "CIVIC::KRAS::G12D")
	assert.Equal(t, StatusFailed, stored.Status)
}

func TestCIViCUnreachableDegrades(t *testing.T) {
	f := newFixture(t)
	p := NewCIViC(f.store, f.http, f.opts(WithBaseURL("http://127.0.0.1:1/graphql"))...)

	r := p.QueryVariant(t.Context(), "KRAS", "G12D")
	assert.Equal(t, StatusFailed, r.Status)
	assert.Empty(t, r.Value.Items)
}

func TestCIViCPing(t *testing.T) {
	f := newFixture(t)
	status := http.StatusOK
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "{ stats { genes } }", body["query"])
		w.WriteHeader(status)
	})
	p := NewCIViC(f.store, f.http, f.opts(WithBaseURL(srv.URL))...)

	assert.True(t, p.Ping(t.Context()))
	status = http.StatusInternalServerError
	assert.False(t, p.Ping(t.Context()))
}
