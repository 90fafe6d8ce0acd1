package rpc

import (
	"context"
	"errors"

	"github.com/Keksclan/oncoannot/aggregate"
	"github.com/Keksclan/oncoannot/tumor"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Full method names of the Annotator service.
const (
	AnnotatorService        = "oncoannot.Annotator"
	AnalyzeMethod           = "/oncoannot.Annotator/Analyze"
	SuggestTumorsMethod     = "/oncoannot.Annotator/SuggestTumors"
	SuggestBiomarkersMethod = "/oncoannot.Annotator/SuggestBiomarkers"
	tumorTypeField          = "tumor_type"
	tumorSuggestionsField   = "tumor_type.suggestions"
)

// AnnotatorServer is the interface an Annotator implementation satisfies.
type AnnotatorServer interface {
	Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error)
	SuggestTumors(ctx context.Context, req *SuggestTumorsRequest) (*SuggestTumorsResponse, error)
	SuggestBiomarkers(ctx context.Context, req *SuggestBiomarkersRequest) (*SuggestBiomarkersResponse, error)
}

// AnnotatorServiceDesc is the grpc.ServiceDesc for oncoannot.Annotator.
var AnnotatorServiceDesc = grpc.ServiceDesc{
	ServiceName: AnnotatorService,
	HandlerType: (*AnnotatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Analyze",
			Handler: unary(AnalyzeMethod, func(srv any, ctx context.Context, req *AnalyzeRequest) (any, error) {
				return srv.(AnnotatorServer).Analyze(ctx, req)
			}),
		},
		{
			MethodName: "SuggestTumors",
			Handler: unary(SuggestTumorsMethod, func(srv any, ctx context.Context, req *SuggestTumorsRequest) (any, error) {
				return srv.(AnnotatorServer).SuggestTumors(ctx, req)
			}),
		},
		{
			MethodName: "SuggestBiomarkers",
			Handler: unary(SuggestBiomarkersMethod, func(srv any, ctx context.Context, req *SuggestBiomarkersRequest) (any, error) {
				return srv.(AnnotatorServer).SuggestBiomarkers(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "oncoannot/annotator.proto",
}

// RegisterAnnotator registers an Annotator implementation on s.
func RegisterAnnotator(s grpc.ServiceRegistrar, srv AnnotatorServer) {
	s.RegisterService(&AnnotatorServiceDesc, srv)
}

// Analyzer produces reports.
type Analyzer interface {
	Analyze(ctx context.Context, req aggregate.Request) (*aggregate.Report, error)
}

// NewAnnotator returns the AnnotatorServer backed by agg and the tumor
// vocabulary.
func NewAnnotator(agg Analyzer, logger *zap.Logger) AnnotatorServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &annotator{agg: agg, logger: logger}
}

type annotator struct {
	agg    Analyzer
	logger *zap.Logger
}

func (a *annotator) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	rep, err := a.agg.Analyze(ctx, req.Request)
	if err != nil {
		return nil, ToStatus(err)
	}
	return &AnalyzeResponse{Report: *rep}, nil
}

func (a *annotator) SuggestTumors(_ context.Context, req *SuggestTumorsRequest) (*SuggestTumorsResponse, error) {
	return &SuggestTumorsResponse{Suggestions: tumor.Suggest(req.Query)}, nil
}

func (a *annotator) SuggestBiomarkers(_ context.Context, req *SuggestBiomarkersRequest) (*SuggestBiomarkersResponse, error) {
	return &SuggestBiomarkersResponse{Biomarkers: tumor.Biomarkers(req.TumorType)}, nil
}

// ToStatus converts an analysis error into a gRPC status error. A
// *tumor.ValidationError becomes InvalidArgument with a BadRequest detail
// listing the suggestions; anything else is Internal.
func ToStatus(err error) error {
	var ve *tumor.ValidationError
	if !errors.As(err, &ve) {
		return status.Error(codes.Internal, err.Error())
	}

	br := &errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{{
			Field:       tumorTypeField,
			Description: ve.Message,
		}},
	}
	for _, s := range ve.Suggestions {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       tumorSuggestionsField,
			Description: s,
		})
	}
	st, derr := status.New(codes.InvalidArgument, ve.Message).WithDetails(br)
	if derr != nil {
		return status.Error(codes.InvalidArgument, ve.Message)
	}
	return st.Err()
}

// ValidationErrorFromStatus recovers the *tumor.ValidationError carried by
// an InvalidArgument status, or nil.
func ValidationErrorFromStatus(err error) *tumor.ValidationError {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.InvalidArgument {
		return nil
	}
	ve := &tumor.ValidationError{Message: st.Message()}
	for _, d := range st.Details() {
		br, ok := d.(*errdetails.BadRequest)
		if !ok {
			continue
		}
		for _, v := range br.GetFieldViolations() {
			if v.GetField() == tumorSuggestionsField {
				ve.Suggestions = append(ve.Suggestions, v.GetDescription())
			}
		}
	}
	return ve
}
