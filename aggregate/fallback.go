package aggregate

import "strings"

// rule synthesizes a finding for a well-known oncogenic variant when no
// source has anything on it.
type rule struct {
	gene    string
	changes []string // substrings of the protein change, any matches
	finding Finding
}

var fallbackRules = []rule{
	{
		gene:    "EGFR",
		changes: []string{"L858R", "EX19DEL", "DEL"},
		finding: Finding{
			Action:           "Terapia dirigida",
			Drug:             "Osimertinib",
			StrictBadge:      true,
			MechanisticBadge: true,
			StudyMeta:        StudyMeta{Level: "1", StudyType: "Phase III", Year: 2018, SampleSize: 682, Disease: "NSCLC"},
			ClinicalContext: ClinicalContext{
				WhyNow:       "Mutación clásica sensible",
				Timing:       "primera línea",
				Alternatives: []string{"Gefitinib", "Erlotinib"},
			},
		},
	},
	{
		gene:    "KRAS",
		changes: []string{"G12D"},
		finding: Finding{
			Action:           "Ensayos clínicos",
			Drug:             "KRASi (en desarrollo)",
			MechanisticBadge: true,
			StudyMeta:        StudyMeta{Level: "Investigacional"},
			ClinicalContext: ClinicalContext{
				WhyNow:       "Mutación KRAS clásica",
				Timing:       "segundas líneas",
				Alternatives: []string{"Quimioterapia"},
			},
		},
	},
	{
		gene:    "BRAF",
		changes: []string{"V600E"},
		finding: Finding{
			Action:           "Terapia combinada",
			Drug:             "Dabrafenib + Trametinib",
			StrictBadge:      true,
			MechanisticBadge: true,
			StudyMeta:        StudyMeta{Level: "2"},
			ClinicalContext: ClinicalContext{
				WhyNow:       "Activación MAPK",
				Timing:       "segundas líneas",
				Alternatives: []string{"Vemurafenib"},
			},
		},
	},
}

// fallback returns the rule finding for a normalized variant, if any.
func fallback(gene, change string) (Finding, bool) {
	for _, r := range fallbackRules {
		if r.gene != gene {
			continue
		}
		for _, sub := range r.changes {
			if strings.Contains(change, sub) {
				f := r.finding
				f.Variant = VariantRef{Gene: gene, ProteinChange: change}
				f.References = commonRefs()
				f.Sources = []string{SourceRule}
				f.ClinicalContext.Alternatives = append([]string(nil), r.finding.ClinicalContext.Alternatives...)
				return f, true
			}
		}
	}
	return Finding{}, false
}
