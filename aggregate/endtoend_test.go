package aggregate_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Keksclan/oncoannot/aggregate"
	"github.com/Keksclan/oncoannot/cache"
	"github.com/Keksclan/oncoannot/evidence"
	"github.com/Keksclan/oncoannot/internal/httpx"
	"github.com/Keksclan/oncoannot/provider"
	"github.com/Keksclan/oncoannot/tumor"
	"github.com/Keksclan/oncoannot/variant"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyUpstream answers every source with "nothing found".
func emptyUpstream(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/civic"):
			_, _ = w.Write([]byte(`{"data":{"evidenceItems":{"records":[]}}}`))
		case strings.HasPrefix(r.URL.Path, "/esearch"):
			_, _ = w.Write([]byte(`{"esearchresult":{"idlist":[]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestAnalyzeKRASG12DEndToEnd(t *testing.T) {
	srv, hits := emptyUpstream(t)

	db, err := cache.NewSQLite(cache.MemoryPath)
	require.NoError(t, err)
	store := cache.NewStore(db)
	require.NoError(t, store.Init(t.Context()))
	t.Cleanup(func() { _ = store.Close() })

	hc := httpx.New(httpx.WithTimeout(2*time.Second), httpx.WithRetries(0))
	agg := aggregate.New(tumor.Vocabulary{},
		aggregate.WithLocalEvidence(evidence.NewLoader(store, "/evidence", evidence.WithFs(afero.NewMemMapFs()))),
		aggregate.WithCIViC(provider.NewCIViC(store, hc, provider.WithBaseURL(srv.URL+"/civic"))),
		aggregate.WithClinVar(provider.NewClinVar(store, hc,
			provider.WithBaseURL(srv.URL+"/esearch"),
			provider.WithSummaryURL(srv.URL+"/esummary"),
		)),
		aggregate.WithOncoKB(provider.NewOncoKB(store, hc, provider.WithBaseURL(srv.URL+"/oncokb"))),
	)

	req := aggregate.Request{
		Pseudonym: "P-100",
		TumorType: "cáncer de colon",
		Variants:  []variant.Variant{{Gene: "KRAS", ProteinChange: "G12D"}},
	}
	rep, err := agg.Analyze(t.Context(), req)
	require.NoError(t, err)

	require.Len(t, rep.Details, 1)
	assert.Equal(t, "Ensayos clínicos", rep.Details[0].Action)
	assert.False(t, rep.Details[0].StrictBadge)
	assert.Empty(t, rep.Degraded)
	// CIViC and ClinVar search only; OncoKB has no token and esummary is
	// skipped without ids.
	assert.EqualValues(t, 2, hits.Load())

	for _, id := range []struct{ provider, key string }{
		{cache.ProviderCIViC, provider.CIViCKey("KRAS", "G12D")},
		{cache.ProviderClinVar, provider.ClinVarSearchKey("KRAS[gene] AND G12D", 5)},
		{cache.ProviderOncoKB, provider.OncoKBKey("KRAS", "G12D")},
		{cache.ProviderEvidenceLocal, evidence.CacheKey},
	} {
		_, ok := store.Get(t.Context(), id.provider, id.key)
		assert.True(t, ok, "%s/%s", id.provider, id.key)
	}

	// A repeat analysis is served entirely from the cache.
	again, err := agg.Analyze(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, rep, again)
	assert.EqualValues(t, 2, hits.Load())
}

func TestInvalidTumorCreatesNoCacheEntries(t *testing.T) {
	srv, hits := emptyUpstream(t)

	db, err := cache.NewSQLite(cache.MemoryPath)
	require.NoError(t, err)
	store := cache.NewStore(db)
	require.NoError(t, store.Init(t.Context()))
	t.Cleanup(func() { _ = store.Close() })

	hc := httpx.New(httpx.WithRetries(0))
	agg := aggregate.New(tumor.Vocabulary{},
		aggregate.WithCIViC(provider.NewCIViC(store, hc, provider.WithBaseURL(srv.URL+"/civic"))),
		aggregate.WithOncoKB(provider.NewOncoKB(store, hc)),
	)

	_, err = agg.Analyze(t.Context(), aggregate.Request{
		TumorType: "pulmon",
		Variants:  []variant.Variant{{Gene: "EGFR", ProteinChange: "L858R"}},
	})
	require.Error(t, err)
	assert.Zero(t, hits.Load())

	_, ok := store.Get(t.Context(), cache.ProviderOncoKB, provider.OncoKBKey("EGFR", "L858R"))
	assert.False(t, ok)
}
