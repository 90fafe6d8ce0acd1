// Package aggregate turns a validated tumor type and a list of variants
// into a report: ordered findings from the local knowledge base and the
// external sources, a deterministic fallback for the reference oncogenes,
// a summary line and a fixed timeline.
package aggregate

import (
	"context"
	"strings"

	"github.com/Keksclan/oncoannot/contextx"
	"github.com/Keksclan/oncoannot/evidence"
	"github.com/Keksclan/oncoannot/metrics"
	"github.com/Keksclan/oncoannot/provider"
	"github.com/Keksclan/oncoannot/variant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const tracerName = "github.com/Keksclan/oncoannot/aggregate"

// TumorValidator checks a tumor type against the controlled vocabulary and
// returns its canonical name.
type TumorValidator interface {
	Validate(tumor string) (string, error)
}

// LocalEvidence returns curated actions for a variant.
type LocalEvidence interface {
	Actions(ctx context.Context, gene, change, tumor string) []evidence.Action
}

// CIViCSource looks up CIViC evidence for a gene and change.
type CIViCSource interface {
	QueryVariant(ctx context.Context, gene, change string) provider.Result[provider.CIViCEvidence]
}

// ClinVarSource fetches ClinVar summaries for a gene and change.
type ClinVarSource interface {
	FindVariantSummary(ctx context.Context, gene, change string) provider.Result[[]provider.ClinVarSummary]
}

// OncoKBSource annotates a gene and change against OncoKB.
type OncoKBSource interface {
	Annotate(ctx context.Context, gene, change string) provider.Result[provider.OncoKBAnnotation]
}

// VEPSource predicts consequences for a genomic locus.
type VEPSource interface {
	AnnotateRegion(ctx context.Context, l variant.Locus) provider.Result[provider.VEPAnnotation]
}

// Request is the input of one analysis.
type Request struct {
	Pseudonym  string              `json:"pseudonym"`
	Diagnosis  string              `json:"diagnosis,omitempty"`
	TumorType  string              `json:"tumor_type"`
	Variants   []variant.Variant   `json:"variants"`
	Biomarkers []variant.Biomarker `json:"biomarkers,omitempty"`
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLocalEvidence sets the curated evidence consulted for every variant.
func WithLocalEvidence(l LocalEvidence) Option { return func(a *Aggregator) { a.local = l } }

// WithCIViC enables CIViC findings.
func WithCIViC(s CIViCSource) Option { return func(a *Aggregator) { a.civic = s } }

// WithClinVar enables ClinVar findings.
func WithClinVar(s ClinVarSource) Option { return func(a *Aggregator) { a.clinvar = s } }

// WithOncoKB enables OncoKB findings.
func WithOncoKB(s OncoKBSource) Option { return func(a *Aggregator) { a.oncokb = s } }

// WithVEP enables consequence findings for variants that carry a locus.
func WithVEP(s VEPSource) Option { return func(a *Aggregator) { a.vep = s } }

// WithLogger sets the aggregator logger.
func WithLogger(l *zap.Logger) Option { return func(a *Aggregator) { a.logger = l } }

// Aggregator merges the sources into reports. Sources left unset are
// treated as always empty.
type Aggregator struct {
	tumors  TumorValidator
	local   LocalEvidence
	civic   CIViCSource
	clinvar ClinVarSource
	oncokb  OncoKBSource
	vep     VEPSource
	logger  *zap.Logger
}

// New returns an Aggregator validating tumor types with tumors.
func New(tumors TumorValidator, opts ...Option) *Aggregator {
	a := &Aggregator{tumors: tumors, logger: zap.NewNop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze builds the report for req. The only error it returns is the
// tumor validator's, and it does so before any source is queried.
func (a *Aggregator) Analyze(ctx context.Context, req Request) (*Report, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "aggregate.Analyze")
	defer span.End()
	log := contextx.Logger(ctx, a.logger)

	tumor, err := a.tumors.Validate(req.TumorType)
	if err != nil {
		metrics.Analyses.WithLabelValues("invalid_tumor").Inc()
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("tumor", tumor),
		attribute.Int("variants", len(req.Variants)),
	)

	rep := &Report{Details: []Finding{}, Timeline: Timeline()}
	variants := make([]variant.Variant, 0, len(req.Variants))
	degraded := map[string]bool{}
	for _, v := range req.Variants {
		v = v.Normalize()
		if v.Gene == "" || v.ProteinChange == "" {
			log.Debug("skipping incomplete variant", zap.String("gene", v.Gene), zap.String("change", v.ProteinChange))
			continue
		}
		variants = append(variants, v)
		rep.Details = append(rep.Details, a.findings(ctx, v, tumor, degraded)...)
	}
	for _, name := range []string{SourceCIViC, SourceClinVar, SourceOncoKB, SourceVEP} {
		if degraded[name] {
			rep.Degraded = append(rep.Degraded, name)
		}
	}
	rep.Summary = Summary(req.Pseudonym, strings.TrimSpace(req.TumorType), variants, req.Biomarkers)

	for _, f := range rep.Details {
		if len(f.Sources) > 0 {
			metrics.Findings.WithLabelValues(f.Sources[0]).Inc()
		}
	}
	metrics.Analyses.WithLabelValues("ok").Inc()
	log.Info("analysis complete",
		zap.String("tumor", tumor),
		zap.Int("variants", len(variants)),
		zap.Int("findings", len(rep.Details)),
		zap.Strings("degraded", rep.Degraded),
	)
	return rep, nil
}

// findings queries the sources for one normalized variant in order and
// applies the fallback when none of them has anything.
func (a *Aggregator) findings(ctx context.Context, v variant.Variant, tumor string, degraded map[string]bool) []Finding {
	ref := VariantRef{Gene: v.Gene, ProteinChange: v.ProteinChange}
	var out []Finding
	found := false

	if a.local != nil {
		for _, act := range a.local.Actions(ctx, v.Gene, v.ProteinChange, tumor) {
			out = append(out, localFinding(ref, act))
			found = true
		}
	}

	if a.civic != nil {
		r := a.civic.QueryVariant(ctx, v.Gene, v.ProteinChange)
		markDegraded(degraded, SourceCIViC, r.Status)
		if r.Found() && len(r.Value.Items) > 0 {
			out = append(out, civicFinding(ref, r.Value.Items[0]))
			found = true
		}
	}

	if a.clinvar != nil {
		r := a.clinvar.FindVariantSummary(ctx, v.Gene, v.ProteinChange)
		markDegraded(degraded, SourceClinVar, r.Status)
		if r.Found() {
			out = append(out, Finding{
				Action:          "Significado Clínico (ClinVar)",
				Drug:            "—",
				Variant:         ref,
				References:      []Reference{{Label: "ClinVar", URL: "https://www.ncbi.nlm.nih.gov/clinvar/"}},
				StudyMeta:       StudyMeta{Level: "db"},
				Sources:         []string{SourceClinVar},
				ClinicalContext: ClinicalContext{WhyNow: "Resumen de registros"},
			})
			found = true
		}
	}

	if a.oncokb != nil {
		r := a.oncokb.Annotate(ctx, v.Gene, v.ProteinChange)
		markDegraded(degraded, SourceOncoKB, r.Status)
		if r.Found() {
			out = append(out, Finding{
				Action:           "Anotación (OncoKB)",
				Drug:             "—",
				Variant:          ref,
				MechanisticBadge: true,
				References:       []Reference{{Label: "OncoKB", URL: "https://www.oncokb.org/"}},
				StudyMeta:        StudyMeta{Level: "KB"},
				Sources:          []string{SourceOncoKB},
				ClinicalContext:  ClinicalContext{WhyNow: "Anotación estandarizada"},
			})
			found = true
		}
	}

	if a.vep != nil && v.Locus != nil {
		r := a.vep.AnnotateRegion(ctx, *v.Locus)
		markDegraded(degraded, SourceVEP, r.Status)
		if r.Found() {
			out = append(out, vepFinding(ref, r.Value))
		}
	}

	if !found {
		if f, ok := fallback(v.Gene, v.ProteinChange); ok {
			out = append(out, f)
		}
	}
	return out
}

func markDegraded(m map[string]bool, source string, s provider.Status) {
	if s == provider.StatusFailed {
		m[source] = true
	}
}

func localFinding(ref VariantRef, act evidence.Action) Finding {
	f := Finding{
		Action:           act.Action,
		Drug:             act.Drug,
		Variant:          ref,
		StrictBadge:      true,
		MechanisticBadge: true,
		References:       act.References,
		StudyMeta:        StudyMeta{Level: "-"},
		Sources:          act.Sources,
	}
	if act.Strict != nil {
		f.StrictBadge = *act.Strict
	}
	if act.Mechanistic != nil {
		f.MechanisticBadge = *act.Mechanistic
	}
	if len(f.References) == 0 {
		f.References = commonRefs()
	}
	if act.StudyMeta != nil {
		f.StudyMeta = *act.StudyMeta
	}
	if len(f.Sources) == 0 {
		f.Sources = []string{SourceLocal}
	}
	if act.ClinicalContext != nil {
		f.ClinicalContext = *act.ClinicalContext
	}
	return f
}

// strictLevels are the CIViC evidence levels that earn the strict badge.
var strictLevels = map[string]bool{"A": true, "B": true, "1": true, "2": true}

func civicFinding(ref VariantRef, top provider.CIViCItem) Finding {
	drug := "—"
	if len(top.DrugNames) > 0 && top.DrugNames[0] != "" {
		drug = top.DrugNames[0]
	}
	label := top.Journal
	if label == "" {
		label = "CIViC"
	}
	level := top.EvidenceLevel
	if level == "" {
		level = "-"
	}
	return Finding{
		Action:           "Terapia/Asociación (CIViC)",
		Drug:             drug,
		Variant:          ref,
		StrictBadge:      strictLevels[top.EvidenceLevel],
		MechanisticBadge: true,
		References:       []Reference{{Label: label, URL: top.URL}, nccn},
		StudyMeta:        StudyMeta{Level: level, Year: top.Year},
		Sources:          []string{SourceCIViC},
		ClinicalContext:  ClinicalContext{WhyNow: top.Desc, Timing: top.Disease},
	}
}

func vepFinding(ref VariantRef, ann provider.VEPAnnotation) Finding {
	why := ann.MostSevereConsequence
	if why == "" && len(ann.TranscriptConsequences) > 0 {
		why = strings.Join(ann.TranscriptConsequences[0].ConsequenceTerms, ", ")
	}
	f := Finding{
		Action:           "Consecuencia predicha (VEP)",
		Drug:             "—",
		Variant:          ref,
		MechanisticBadge: true,
		References:       []Reference{{Label: "Ensembl VEP", URL: "https://rest.ensembl.org/"}},
		StudyMeta:        StudyMeta{Level: "in silico"},
		Sources:          []string{SourceVEP},
		ClinicalContext:  ClinicalContext{WhyNow: why},
	}
	for _, tc := range ann.TranscriptConsequences {
		if tc.Impact != "" {
			f.ClinicalContext.Timing = "impacto " + strings.ToLower(tc.Impact)
			break
		}
	}
	return f
}

// Summary renders the one-line report header.
func Summary(pseudonym, tumor string, variants []variant.Variant, biomarkers []variant.Biomarker) string {
	vs := make([]string, 0, len(variants))
	for _, v := range variants {
		vs = append(vs, v.Label())
	}
	variantsText := strings.Join(vs, ", ")
	if variantsText == "" {
		variantsText = "ninguna"
	}

	bs := make([]string, 0, len(biomarkers))
	for _, b := range biomarkers {
		bs = append(bs, b.Name)
	}
	bioText := strings.Join(bs, ", ")
	if bioText == "" {
		bioText = "no reportados"
	}

	return "Paciente " + pseudonym + ". Tumor: " + tumor +
		". Variantes detectadas: " + variantsText +
		". Biomarcadores: " + bioText + "."
}
