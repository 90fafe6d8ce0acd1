// Package variant holds the patient-side inputs of an analysis: somatic
// variants, their optional genomic coordinates, and reported biomarkers.
package variant

import (
	"fmt"
	"strings"
)

// Variant is a gene plus protein change, e.g. EGFR L858R.
type Variant struct {
	Gene            string   `json:"gene"`
	ProteinChange   string   `json:"protein_change"`
	Zygosity        string   `json:"zygosity,omitempty"`
	AlleleFrequency *float64 `json:"allele_frequency,omitempty"`

	// Locus is set when the variant came from a VCF record.
	Locus *Locus `json:"locus,omitempty"`
}

// Locus is a genomic coordinate with reference and alternate alleles.
type Locus struct {
	Chrom string `json:"chrom"`
	Pos   int64  `json:"pos"`
	Ref   string `json:"ref"`
	Alt   string `json:"alt"`
}

// String renders the locus as chrom:pos:ref>alt.
func (l Locus) String() string {
	return fmt.Sprintf("%s:%d:%s>%s", l.Chrom, l.Pos, l.Ref, l.Alt)
}

// Biomarker is a reported marker such as PD-L1 or TMB.
type Biomarker struct {
	Name   string `json:"name"`
	Value  string `json:"value,omitempty"`
	Status string `json:"status,omitempty"`
}

// NormalizeGene upper-cases a gene symbol.
func NormalizeGene(gene string) string {
	return strings.ToUpper(strings.TrimSpace(gene))
}

// NormalizeChange upper-cases a protein change and strips a leading "p.".
func NormalizeChange(change string) string {
	c := strings.TrimSpace(change)
	if len(c) >= 2 && (c[:2] == "p." || c[:2] == "P.") {
		c = c[2:]
	}
	return strings.ToUpper(c)
}

// Normalize returns a copy of v with gene and protein change normalized.
func (v Variant) Normalize() Variant {
	v.Gene = NormalizeGene(v.Gene)
	v.ProteinChange = NormalizeChange(v.ProteinChange)
	return v
}

// Label renders "GENE CHANGE".
func (v Variant) Label() string {
	return v.Gene + " " + v.ProteinChange
}
