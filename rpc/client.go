package rpc

import (
	"context"

	"github.com/Keksclan/oncoannot/aggregate"
	"github.com/Keksclan/oncoannot/health"
	"google.golang.org/grpc"
)

// Client calls the Annotator and Health services over conn.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Analyze runs an analysis remotely. An invalid tumor type comes back as
// an InvalidArgument status; see [ValidationErrorFromStatus].
func (c *Client) Analyze(ctx context.Context, req aggregate.Request, opts ...grpc.CallOption) (*aggregate.Report, error) {
	resp := new(AnalyzeResponse)
	if err := c.conn.Invoke(ctx, AnalyzeMethod, &AnalyzeRequest{Request: req}, resp, opts...); err != nil {
		return nil, err
	}
	return &resp.Report, nil
}

func (c *Client) SuggestTumors(ctx context.Context, query string, opts ...grpc.CallOption) ([]string, error) {
	resp := new(SuggestTumorsResponse)
	if err := c.conn.Invoke(ctx, SuggestTumorsMethod, &SuggestTumorsRequest{Query: query}, resp, opts...); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

func (c *Client) SuggestBiomarkers(ctx context.Context, tumorType string, opts ...grpc.CallOption) ([]string, error) {
	resp := new(SuggestBiomarkersResponse)
	if err := c.conn.Invoke(ctx, SuggestBiomarkersMethod, &SuggestBiomarkersRequest{TumorType: tumorType}, resp, opts...); err != nil {
		return nil, err
	}
	return resp.Biomarkers, nil
}

// Check asks the server for its health report.
func (c *Client) Check(ctx context.Context, opts ...grpc.CallOption) (health.Report, error) {
	resp := new(HealthCheckResponse)
	if err := c.conn.Invoke(ctx, HealthCheckMethod, &HealthCheckRequest{}, resp, opts...); err != nil {
		return health.Report{}, err
	}
	return resp.Report, nil
}
