package cache

import "time"

// Provider names used as the first half of a cache identity.
const (
	ProviderVEP           = "VEP"
	ProviderCIViC         = "CIVIC"
	ProviderClinVar       = "CLINVAR"
	ProviderClinicalTrial = "CTGOV"
	ProviderOncoKB        = "ONCOKB"
	ProviderGlossary      = "GLOSS"
	ProviderEvidenceLocal = "EVIDENCE_LOCAL"
)

// DefaultTTL applies to providers without an explicit entry.
const DefaultTTL = 7 * 24 * time.Hour

const day = 24 * time.Hour

// TTLs maps a provider name to the maximum age of a fresh entry.
type TTLs map[string]time.Duration

// DefaultTTLs returns the built-in TTL table.
func DefaultTTLs() TTLs {
	return TTLs{
		ProviderVEP:           30 * day,
		ProviderCIViC:         14 * day,
		ProviderClinVar:       30 * day,
		ProviderClinicalTrial: 2 * day,
		ProviderOncoKB:        14 * day,
		ProviderGlossary:      120 * day,
		ProviderEvidenceLocal: 365 * day,
	}
}

// For returns the TTL for provider, falling back to [DefaultTTL].
func (t TTLs) For(provider string) time.Duration {
	if d, ok := t[provider]; ok {
		return d
	}
	return DefaultTTL
}

// Merge returns a copy of t with the entries of override applied on top.
// Non-positive overrides are ignored.
func (t TTLs) Merge(override map[string]time.Duration) TTLs {
	out := make(TTLs, len(t)+len(override))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range override {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}
