package oncoannot

import (
	"context"
	"net"
	"net/http"

	"github.com/Keksclan/oncoannot/interceptors"
	"github.com/Keksclan/oncoannot/internal/core"
	"github.com/Keksclan/oncoannot/rpc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Server is a composable wrapper around a [grpc.Server] that layers
// middleware via functional [Option] values passed to [NewServer].
//
// The Annotator and Health services are registered when [WithAnalyzer] and
// [WithHealth] are given; other services can be added through [Server.GRPC].
type Server struct {
	grpcServer *grpc.Server
	logger     *zap.Logger
}

// NewServer creates a new [Server]. Middleware execution order is
// determined by the Order constants, not by the order options are passed.
func NewServer(opts ...Option) *Server {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	cfg.apply()

	unary, stream := cfg.middlewares.Build()
	serverOpts := core.BuildServerOptions(unary, stream, interceptors.ChainUnary, interceptors.ChainStream, cfg.serverOptions...)
	cfg.logger.Debug("middleware chain", zap.Strings("order", cfg.middlewares.Describe()))

	s := &Server{
		grpcServer: grpc.NewServer(serverOpts...),
		logger:     cfg.logger,
	}
	if cfg.analyzer != nil {
		rpc.RegisterAnnotator(s.grpcServer, rpc.NewAnnotator(cfg.analyzer, cfg.logger))
	}
	if cfg.checker != nil {
		rpc.RegisterHealth(s.grpcServer, rpc.NewHealth(cfg.checker))
	}
	return s
}

// GRPC returns the underlying *grpc.Server so callers can register services.
func (s *Server) GRPC() *grpc.Server {
	return s.grpcServer
}

// Serve accepts connections on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

// Shutdown stops accepting RPCs and waits for in-flight ones, forcing a
// stop when ctx ends first.
func (s *Server) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("graceful stop timed out, forcing")
		s.grpcServer.Stop()
		<-done
	}
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.Handler()
}
