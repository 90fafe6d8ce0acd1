package interceptors

import (
	"context"
	"slices"
	"testing"

	"google.golang.org/grpc"
)

func makeUnaryTag(tag string, log *[]string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		*log = append(*log, tag+":before")
		resp, err := handler(ctx, req)
		*log = append(*log, tag+":after")
		return resp, err
	}
}

func makeStreamTag(tag string, log *[]string) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		*log = append(*log, tag+":before")
		err := handler(srv, ss)
		*log = append(*log, tag+":after")
		return err
	}
}

func TestChainUnary(t *testing.T) {
	tests := []struct {
		name string
		tags []string // "" is a nil interceptor
		want []string
	}{
		{"three", []string{"A", "B", "C"}, []string{"A:before", "B:before", "C:before", "handler", "C:after", "B:after", "A:after"}},
		{"nil entries dropped", []string{"", "A", "", "B"}, []string{"A:before", "B:before", "handler", "B:after", "A:after"}},
		{"single", []string{"A"}, []string{"A:before", "handler", "A:after"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log []string
			var ics []grpc.UnaryServerInterceptor
			for _, tag := range tt.tags {
				if tag == "" {
					ics = append(ics, nil)
					continue
				}
				ics = append(ics, makeUnaryTag(tag, &log))
			}

			chained := ChainUnary(ics)
			resp, err := chained(t.Context(), "req", &grpc.UnaryServerInfo{FullMethod: "/oncoannot.Annotator/Analyze"}, func(_ context.Context, _ any) (any, error) {
				log = append(log, "handler")
				return "ok", nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp != "ok" {
				t.Fatalf("unexpected response: %v", resp)
			}
			if !slices.Equal(log, tt.want) {
				t.Fatalf("log = %v, want %v", log, tt.want)
			}
		})
	}
}

func TestChainUnary_ReusableAcrossCalls(t *testing.T) {
	var log []string
	chained := ChainUnary([]grpc.UnaryServerInterceptor{makeUnaryTag("A", &log), makeUnaryTag("B", &log)})
	handler := func(_ context.Context, _ any) (any, error) { return nil, nil }

	for range 2 {
		if _, err := chained(t.Context(), nil, &grpc.UnaryServerInfo{}, handler); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(log) != 8 {
		t.Fatalf("expected 8 log entries over two calls, got %v", log)
	}
}

func TestChainUnary_EmptyOrAllNil(t *testing.T) {
	if ChainUnary(nil) != nil {
		t.Fatal("ChainUnary(nil) should return nil")
	}
	if ChainUnary([]grpc.UnaryServerInterceptor{nil, nil}) != nil {
		t.Fatal("all-nil chain should return nil")
	}
}

func TestChainStream(t *testing.T) {
	var log []string
	chained := ChainStream([]grpc.StreamServerInterceptor{makeStreamTag("A", &log), nil, makeStreamTag("B", &log)})

	err := chained(nil, nil, &grpc.StreamServerInfo{}, func(_ any, _ grpc.ServerStream) error {
		log = append(log, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"A:before", "B:before", "handler", "B:after", "A:after"}
	if !slices.Equal(log, want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
}

func TestChainStream_Empty(t *testing.T) {
	if ChainStream(nil) != nil {
		t.Fatal("ChainStream(nil) should return nil")
	}
}
