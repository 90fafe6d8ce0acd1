package core

import (
	"cmp"
	"fmt"
	"slices"

	"google.golang.org/grpc"
)

// middleware is one named interceptor pair. Lower Order values run first.
type middleware struct {
	Name   string
	Unary  grpc.UnaryServerInterceptor
	Stream grpc.StreamServerInterceptor
	Order  int
}

// MiddlewareBuilder collects middleware entries and produces sorted interceptor
// slices ready for chaining.
type MiddlewareBuilder struct {
	entries []middleware
	sorted  bool
}

// Add registers a middleware entry. Either interceptor may be nil.
func (b *MiddlewareBuilder) Add(name string, order int, unary grpc.UnaryServerInterceptor, stream grpc.StreamServerInterceptor) {
	b.entries = append(b.entries, middleware{
		Name:   name,
		Unary:  unary,
		Stream: stream,
		Order:  order,
	})
	b.sorted = false
}

func (b *MiddlewareBuilder) sort() {
	if b.sorted {
		return
	}
	slices.SortStableFunc(b.entries, func(a, c middleware) int {
		return cmp.Compare(a.Order, c.Order)
	})
	b.sorted = true
}

// Build sorts the collected middleware by Order (stable) and returns the
// separated unary and stream interceptor slices.
func (b *MiddlewareBuilder) Build() ([]grpc.UnaryServerInterceptor, []grpc.StreamServerInterceptor) {
	b.sort()

	var unary []grpc.UnaryServerInterceptor
	var stream []grpc.StreamServerInterceptor
	for _, m := range b.entries {
		if m.Unary != nil {
			unary = append(unary, m.Unary)
		}
		if m.Stream != nil {
			stream = append(stream, m.Stream)
		}
	}
	return unary, stream
}

// Describe lists the entries in execution order as "name(order)".
func (b *MiddlewareBuilder) Describe() []string {
	b.sort()
	out := make([]string, 0, len(b.entries))
	for _, m := range b.entries {
		out = append(out, fmt.Sprintf("%s(%d)", m.Name, m.Order))
	}
	return out
}
