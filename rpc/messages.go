package rpc

import (
	"github.com/Keksclan/oncoannot/aggregate"
	"github.com/Keksclan/oncoannot/health"
)

// AnalyzeRequest is the input of Annotator/Analyze.
type AnalyzeRequest struct {
	aggregate.Request
}

// AnalyzeResponse carries the report.
type AnalyzeResponse struct {
	aggregate.Report
}

type SuggestTumorsRequest struct {
	Query string `json:"query"`
}

type SuggestTumorsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type SuggestBiomarkersRequest struct {
	TumorType string `json:"tumor_type"`
}

type SuggestBiomarkersResponse struct {
	Biomarkers []string `json:"biomarkers"`
}

type HealthCheckRequest struct{}

// HealthCheckResponse mirrors [health.Report].
type HealthCheckResponse struct {
	health.Report
}

func (*AnalyzeRequest) isMessage()            {}
func (*AnalyzeResponse) isMessage()           {}
func (*SuggestTumorsRequest) isMessage()      {}
func (*SuggestTumorsResponse) isMessage()     {}
func (*SuggestBiomarkersRequest) isMessage()  {}
func (*SuggestBiomarkersResponse) isMessage() {}
func (*HealthCheckRequest) isMessage()        {}
func (*HealthCheckResponse) isMessage()       {}
