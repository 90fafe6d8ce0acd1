package aggregate

import "github.com/Keksclan/oncoannot/evidence"

// Source names tagged on findings.
const (
	SourceLocal   = "LocalEvidence"
	SourceCIViC   = "CIViC"
	SourceClinVar = "ClinVar"
	SourceOncoKB  = "OncoKB"
	SourceVEP     = "VEP"
	SourceRule    = "Rule"
)

type (
	Reference       = evidence.Reference
	StudyMeta       = evidence.StudyMeta
	ClinicalContext = evidence.ClinicalContext
)

// VariantRef identifies the variant a finding is about.
type VariantRef struct {
	Gene          string `json:"gene"`
	ProteinChange string `json:"protein_change"`
}

// Finding is one actionable record of a report.
type Finding struct {
	Action           string          `json:"action"`
	Drug             string          `json:"drug"`
	Variant          VariantRef      `json:"variant"`
	StrictBadge      bool            `json:"strict_badge"`
	MechanisticBadge bool            `json:"mechanistic_badge"`
	References       []Reference     `json:"references"`
	StudyMeta        StudyMeta       `json:"study_meta"`
	Sources          []string        `json:"sources"`
	ClinicalContext  ClinicalContext `json:"clinical_context"`
}

// TimelineStep is one entry of the processing narrative.
type TimelineStep struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Report is the outcome of one analysis.
type Report struct {
	Summary  string         `json:"summary"`
	Details  []Finding      `json:"details"`
	Timeline []TimelineStep `json:"timeline"`
	// Degraded lists the sources whose fetch failed during this analysis.
	Degraded []string `json:"degraded,omitempty"`
}

var nccn = Reference{Label: "NCCN", URL: "https://www.nccn.org/"}

func commonRefs() []Reference { return []Reference{nccn} }

// Timeline is the fixed processing narrative attached to every report.
func Timeline() []TimelineStep {
	return []TimelineStep{
		{Title: "Ingreso de datos", Description: "Se procesaron entradas múltiples", Tags: []string{"VCF", "Manual", "Biomarcadores"}},
		{Title: "Anotación", Description: "Fuentes: Local / CIViC / ClinVar / OncoKB / VEP", Tags: []string{"Fuentes"}},
	}
}
