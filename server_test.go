package oncoannot

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Keksclan/oncoannot/aggregate"
	"github.com/Keksclan/oncoannot/metrics"
	"github.com/Keksclan/oncoannot/rpc"
	"github.com/Keksclan/oncoannot/tumor"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func TestNewServerRegistersSelectedServices(t *testing.T) {
	bare := NewServer().GRPC().GetServiceInfo()
	if len(bare) != 0 {
		t.Fatalf("bare server registered %d services", len(bare))
	}

	info := NewServer(
		WithAnalyzer(aggregate.New(tumor.Vocabulary{})),
		WithHealth(staticChecker{}),
	).GRPC().GetServiceInfo()
	for _, name := range []string{rpc.AnnotatorService, rpc.HealthService} {
		if _, ok := info[name]; !ok {
			t.Errorf("service %s not registered", name)
		}
	}
}

func TestMetricsHandlerExposesCacheCounters(t *testing.T) {
	metrics.CacheReads.WithLabelValues("CIVIC", "hit").Inc()

	rec := httptest.NewRecorder()
	NewServer().MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `oncoannot_cache_reads_total{outcome="hit",provider="CIVIC"}`) {
		t.Fatal("cache read counter missing from scrape")
	}
}

func TestWithGRPCServerOptionReachesServer(t *testing.T) {
	srv := NewServer(
		WithAnalyzer(aggregate.New(tumor.Vocabulary{})),
		WithGRPCServerOption(grpc.MaxRecvMsgSize(16)),
	)
	c := dial(t, srv)

	_, err := c.SuggestTumors(t.Context(), strings.Repeat("pulmón ", 10))
	if err == nil {
		t.Fatal("expected oversized request to be rejected")
	}
}

func TestShutdownStopsServe(t *testing.T) {
	srv := NewServer(WithHealth(staticChecker{}))
	lis := bufconn.Listen(1 << 20)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()
	if _, err := rpc.NewClient(conn).Check(t.Context()); err != nil {
		t.Fatalf("health before shutdown: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
