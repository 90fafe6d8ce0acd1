package variant

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		gene, change         string
		wantGene, wantChange string
	}{
		{"egfr", "p.L858R", "EGFR", "L858R"},
		{"EGFR", "L858R", "EGFR", "L858R"},
		{" kras ", "P.g12d", "KRAS", "G12D"},
		{"braf", "v600e", "BRAF", "V600E"},
		{"egfr", "ex19del", "EGFR", "EX19DEL"},
		{"", "", "", ""},
		{"tp53", "p.", "TP53", ""},
	}
	for _, tt := range tests {
		v := Variant{Gene: tt.gene, ProteinChange: tt.change}.Normalize()
		if v.Gene != tt.wantGene || v.ProteinChange != tt.wantChange {
			t.Fatalf("Normalize(%q, %q) = (%q, %q), want (%q, %q)",
				tt.gene, tt.change, v.Gene, v.ProteinChange, tt.wantGene, tt.wantChange)
		}
	}
}

func TestLocusString(t *testing.T) {
	l := Locus{Chrom: "7", Pos: 140453136, Ref: "A", Alt: "T"}
	if got, want := l.String(), "7:140453136:A>T"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLabel(t *testing.T) {
	v := Variant{Gene: "kras", ProteinChange: "p.G12D"}.Normalize()
	if got := v.Label(); got != "KRAS G12D" {
		t.Fatalf("got %q, want %q", got, "KRAS G12D")
	}
}
