// Package tumor holds the controlled tumor-type vocabulary used to validate
// analysis requests, with autocomplete suggestions and the biomarkers
// usually tested for each tumor.
package tumor

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Names is the canonical vocabulary, lower case.
var Names = []string{
	"adenocarcinoma de pulmón", "cáncer de pulmón nsclc", "cáncer de pulmón sclc",
	"cáncer de colon", "cáncer colorectal", "cáncer de mama", "cáncer gástrico",
	"melanoma", "cáncer de próstata", "cáncer de ovario", "cáncer de tiroides",
	"cáncer de vejiga", "cáncer de riñón", "cáncer de hígado", "cáncer de páncreas",
	"cáncer de cabeza y cuello", "glioblastoma", "sarcoma", "tumores neuroendocrinos",
	"cáncer de mama hr+", "cáncer de mama her2+", "cáncer de mama triple negativo",
	"melanoma cutáneo", "melanoma uveal", "melanoma mucosal",
	"cáncer colorectal msí-h", "cáncer colorectal mss",
	"leucemia mieloide aguda (lma)", "leucemia linfoide aguda (lla)",
	"leucemia mieloide crónica (lmc)", "linfoma no-hodgkin",
	"linfoma de hodgkin", "mieloma múltiple", "síndromes mielodisplásicos",
	"linfoma difuso de células b grandes", "linfoma folicular",
	"linfoma de células del manto", "linfoma de hodgkin clásico",
}

var biomarkers = map[string][]string{
	"adenocarcinoma de pulmón":      {"EGFR", "ALK", "KRAS", "BRAF", "ROS1", "MET", "RET", "NTRK", "PD-L1"},
	"cáncer de pulmón nsclc":        {"EGFR", "ALK", "KRAS", "BRAF", "ROS1", "MET", "RET", "NTRK", "PD-L1"},
	"cáncer de colon":               {"KRAS", "NRAS", "BRAF", "MSI-H", "dMMR", "HER2", "NTRK"},
	"cáncer colorectal":             {"KRAS", "NRAS", "BRAF", "MSI-H", "dMMR", "HER2", "NTRK"},
	"cáncer de mama":                {"HER2", "HR+", "PIK3CA", "BRCA", "PD-L1", "ESR1"},
	"cáncer de mama hr+":            {"PIK3CA", "ESR1", "BRCA", "PD-L1"},
	"cáncer de mama her2+":          {"HER2", "PIK3CA", "PD-L1"},
	"melanoma":                      {"BRAF", "NRAS", "c-KIT", "PD-L1", "TMB"},
	"cáncer gástrico":               {"HER2", "MSI-H", "PD-L1", "EBV"},
	"leucemia mieloide aguda (lma)": {"FLT3", "IDH1", "IDH2", "NPM1", "TP53"},
	"linfoma no-hodgkin":            {"PD-L1", "CD19", "CD20", "MYC", "BCL2"},
}

var genericTerms = map[string]bool{
	"tumor": true, "cáncer": true, "cancer": true, "neoplasia": true, "maligno": true,
}

var genericSuggestions = []string{
	"adenocarcinoma de pulmón", "cáncer de mama", "cáncer de colon",
	"melanoma", "leucemia mieloide aguda (lma)", "linfoma no-hodgkin",
}

const (
	maxValidationSuggestions = 5
	maxSuggestions           = 8
	minQueryLen              = 2
)

// ValidationError reports a tumor type outside the vocabulary.
type ValidationError struct {
	Input       string
	Message     string
	Suggestions []string
}

func (e *ValidationError) Error() string {
	if len(e.Suggestions) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s suggestions: %s", e.Message, strings.Join(e.Suggestions, ", "))
}

// Vocabulary validates tumor types against Names. The zero value is
// ready to use.
type Vocabulary struct{}

// Validate returns the canonical name for input or a *ValidationError.
func (Vocabulary) Validate(input string) (string, error) { return Validate(input) }

// Validate returns the canonical name for input. Matching ignores case,
// surrounding space and accents. On failure the error is a
// *ValidationError carrying suggestions.
func Validate(input string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(input))
	if t == "" {
		return "", &ValidationError{Input: input, Message: "Debe especificar el tipo de tumor"}
	}
	if genericTerms[t] || genericTerms[fold(t)] {
		return "", &ValidationError{
			Input:       input,
			Message:     "Especifique el tipo de tumor (ej: 'adenocarcinoma de pulmón')",
			Suggestions: append([]string(nil), genericSuggestions...),
		}
	}

	key := fold(t)
	var suggestions []string
	for _, name := range Names {
		fn := fold(name)
		if fn == key {
			return name, nil
		}
		if strings.Contains(fn, key) && len(suggestions) < maxValidationSuggestions {
			suggestions = append(suggestions, name)
		}
	}
	return "", &ValidationError{
		Input:       input,
		Message:     fmt.Sprintf("Tumor '%s' no válido o no encontrado.", input),
		Suggestions: suggestions,
	}
}

// Suggest returns up to eight vocabulary entries for an autocomplete
// query. Queries mentioning "pul" list the lung tumors and those mentioning
// "mama" the breast tumors.
func Suggest(query string) []string {
	q := fold(strings.ToLower(strings.TrimSpace(query)))
	if len([]rune(q)) < minQueryLen {
		return []string{}
	}

	match := func(name string) bool { return strings.Contains(fold(name), q) }
	switch {
	case strings.Contains(q, "mama"):
		match = func(name string) bool { return strings.Contains(name, "mama") }
	case strings.Contains(q, "pul"):
		match = func(name string) bool { return strings.Contains(name, "pulmón") }
	}

	out := []string{}
	for _, name := range Names {
		if match(name) {
			out = append(out, name)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

// Biomarkers returns the biomarkers usually tested for tumor, or an empty
// list.
func Biomarkers(tumor string) []string {
	t := fold(strings.ToLower(strings.TrimSpace(tumor)))
	for name, list := range biomarkers {
		if fold(name) == t {
			return append([]string(nil), list...)
		}
	}
	return []string{}
}

// fold removes combining marks so "pulmon" matches "pulmón".
func fold(s string) string {
	out, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		return s
	}
	return out
}
