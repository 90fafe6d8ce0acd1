package rpc

import (
	"context"

	"github.com/Keksclan/oncoannot/health"
	"google.golang.org/grpc"
)

const (
	HealthService     = "oncoannot.Health"
	HealthCheckMethod = "/oncoannot.Health/Check"
)

// HealthServer is the interface a Health implementation satisfies.
type HealthServer interface {
	Check(ctx context.Context, req *HealthCheckRequest) (*HealthCheckResponse, error)
}

// HealthServiceDesc is the grpc.ServiceDesc for oncoannot.Health.
var HealthServiceDesc = grpc.ServiceDesc{
	ServiceName: HealthService,
	HandlerType: (*HealthServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Check",
			Handler: unary(HealthCheckMethod, func(srv any, ctx context.Context, req *HealthCheckRequest) (any, error) {
				return srv.(HealthServer).Check(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "oncoannot/health.proto",
}

// RegisterHealth registers a Health implementation on s.
func RegisterHealth(s grpc.ServiceRegistrar, srv HealthServer) {
	s.RegisterService(&HealthServiceDesc, srv)
}

// Checker produces health reports.
type Checker interface {
	Check(ctx context.Context) health.Report
}

// NewHealth returns the HealthServer backed by c.
func NewHealth(c Checker) HealthServer { return healthServer{c: c} }

type healthServer struct{ c Checker }

func (h healthServer) Check(ctx context.Context, _ *HealthCheckRequest) (*HealthCheckResponse, error) {
	return &HealthCheckResponse{Report: h.c.Check(ctx)}, nil
}
