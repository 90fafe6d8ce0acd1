package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Keksclan/oncoannot"
	"github.com/Keksclan/oncoannot/aggregate"
	"github.com/Keksclan/oncoannot/health"
	"github.com/Keksclan/oncoannot/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = New().WithOutput(&out, &errOut).ExecuteWithArgs(t.Context(), args)
	return out.String(), errOut.String(), err
}

// offlineEnv points every source at a local stub and the cache at memory.
func offlineEnv(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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

	t.Setenv("CIVIC_URL", srv.URL+"/civic")
	t.Setenv("VEP_URL", srv.URL+"/vep")
	t.Setenv("CLINVAR_EUTILS", srv.URL+"/esearch")
	t.Setenv("CLINVAR_SUMMARY", srv.URL+"/esummary")
	t.Setenv("ONCOKB_URL", srv.URL+"/oncokb")
	t.Setenv("PGX_CACHE_DB", ":memory:")
	t.Setenv("PGX_EVIDENCE_DIR", t.TempDir())
	t.Setenv("HTTP_RETRIES", "0")
	t.Setenv("ONCOANNOT_LOGGING_LEVEL", "error")
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "oncoannot version dev")
}

func TestTumorsCommands(t *testing.T) {
	out, _, err := run(t, "tumors", "suggest", "mama")
	require.NoError(t, err)
	assert.Contains(t, out, "cáncer de mama her2+")

	out, _, err = run(t, "tumors", "biomarkers", "cáncer", "gástrico")
	require.NoError(t, err)
	assert.Equal(t, "HER2\nMSI-H\nPD-L1\nEBV\n", out)

	out, _, err = run(t, "tumors", "validate", "MELANOMA")
	require.NoError(t, err)
	assert.Equal(t, "melanoma\n", out)

	_, _, err = run(t, "tumors", "validate", "xyz")
	assert.Error(t, err)
}

func TestConfigCheck(t *testing.T) {
	out, _, err := run(t, "config", "check")
	require.NoError(t, err)
	assert.Equal(t, "configuration ok\n", out)

	t.Setenv("ONCOANNOT_CACHE_BACKEND", "memcached")
	_, errOut, err := run(t, "config", "check")
	require.Error(t, err)
	assert.Contains(t, errOut, "cache.backend")
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	t.Setenv("ONCOKB_TOKEN", "super-secret")
	out, _, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, `"OncoKBToken": "***"`)
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    variant.Variant
		wantErr bool
	}{
		{in: "KRAS:G12D", want: variant.Variant{Gene: "KRAS", ProteinChange: "G12D"}},
		{in: " egfr : p.L858R ", want: variant.Variant{Gene: "egfr", ProteinChange: "p.L858R"}},
		{
			in: "BRAF:V600E@7:140453136:A>T",
			want: variant.Variant{Gene: "BRAF", ProteinChange: "V600E",
				Locus: &variant.Locus{Chrom: "7", Pos: 140453136, Ref: "A", Alt: "T"}},
		},
		{in: "KRAS", wantErr: true},
		{in: ":G12D", wantErr: true},
		{in: "BRAF:V600E@7:x:A>T", wantErr: true},
		{in: "BRAF:V600E@7:1:AT", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseVariant(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzeLocal(t *testing.T) {
	offlineEnv(t)

	out, _, err := run(t, "analyze",
		"--pseudonym", "P-1",
		"--tumor", "cáncer de colon",
		"--variant", "KRAS:G12D",
		"--biomarker", "MSI=alto",
	)
	require.NoError(t, err)

	var rep aggregate.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Details, 1)
	assert.Equal(t, "Ensayos clínicos", rep.Details[0].Action)
	assert.Contains(t, rep.Summary, "P-1")
}

func TestAnalyzeInvalidTumorPrintsSuggestions(t *testing.T) {
	offlineEnv(t)

	_, errOut, err := run(t, "analyze", "--tumor", "pulmon", "--variant", "EGFR:L858R")
	require.EqualError(t, err, "invalid tumor type")
	assert.Contains(t, errOut, "Tumor 'pulmon' no válido o no encontrado.")
	assert.Contains(t, errOut, "  - adenocarcinoma de pulmón")
}

type okChecker struct{}

func (okChecker) Check(context.Context) health.Report {
	return health.Report{OK: true, Cache: true, Sources: map[string]bool{"CIVIC": true}}
}

func TestHealthRemote(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := oncoannot.NewServer(oncoannot.WithHealth(okChecker{}))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.GRPC().Stop)

	out, _, err := run(t, "health", "--remote", lis.Addr().String())
	require.NoError(t, err)

	var rep health.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.OK)
	assert.True(t, rep.Sources["CIVIC"])
}
