// Package evidence loads the curated local knowledge base: an oncology
// action index keyed tumor → gene → protein change, and an opaque
// pharmacogenomics document. The combined payload is cached in the cache
// store like any remote source and reloaded only after its TTL expires.
package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/Keksclan/oncoannot/cache"
	"github.com/Keksclan/oncoannot/variant"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// File names inside the evidence directory.
const (
	CancerFile  = "cancer_evidence.json"
	PharmGxFile = "pharmgx_evidence.json"
)

// CacheKey is the fixed key the combined payload is stored under.
const CacheKey = "EVIDENCE_LOCAL::v1"

// Reference is a labelled link backing an action.
type Reference struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// StudyMeta describes the study behind an action.
type StudyMeta struct {
	Level      string `json:"level,omitempty"`
	StudyType  string `json:"study_type,omitempty"`
	Year       int    `json:"year,omitempty"`
	SampleSize int    `json:"sample_size,omitempty"`
	Disease    string `json:"disease,omitempty"`
}

// ClinicalContext explains when an action applies.
type ClinicalContext struct {
	WhyNow       string   `json:"why_now,omitempty"`
	Timing       string   `json:"timing,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// Action is one curated recommendation. Unset optional fields take the
// aggregator's defaults.
type Action struct {
	Action          string           `json:"action"`
	Drug            string           `json:"drug"`
	Strict          *bool            `json:"strict,omitempty"`
	Mechanistic     *bool            `json:"mechanistic,omitempty"`
	References      []Reference      `json:"references,omitempty"`
	StudyMeta       *StudyMeta       `json:"study_meta,omitempty"`
	Sources         []string         `json:"sources,omitempty"`
	ClinicalContext *ClinicalContext `json:"clinical_context,omitempty"`
}

// Node is the leaf of the index.
type Node struct {
	Actions []Action `json:"actions"`
}

// Index maps tumor (lower case) → gene (upper case) → protein change
// (upper case, no "p.") → Node.
type Index map[string]map[string]map[string]Node

// Lookup returns the actions for the normalized triple, or nil when any
// level is missing.
func (ix Index) Lookup(tumor, gene, change string) []Action {
	return ix[normalizeTumor(tumor)][variant.NormalizeGene(gene)][variant.NormalizeChange(change)].Actions
}

// Evidence is the loaded knowledge base.
type Evidence struct {
	Cancer  Index           `json:"cancer"`
	PharmGx json.RawMessage `json:"pharmgx"`
}

// Store is the subset of [cache.Store] the loader needs.
type Store interface {
	GetOrSet(ctx context.Context, provider, key string, loader func(context.Context) []byte) []byte
}

// Option configures a Loader.
type Option func(*Loader)

// WithFs replaces the filesystem, mainly for tests.
func WithFs(fsys afero.Fs) Option { return func(l *Loader) { l.fs = fsys } }

// WithLogger sets the loader logger.
func WithLogger(log *zap.Logger) Option { return func(l *Loader) { l.logger = log } }

// Loader reads the evidence directory through the cache store.
type Loader struct {
	store  Store
	dir    string
	fs     afero.Fs
	logger *zap.Logger
}

// NewLoader returns a loader for the files under dir.
func NewLoader(store Store, dir string, opts ...Option) *Loader {
	l := &Loader{
		store:  store,
		dir:    dir,
		fs:     afero.NewOsFs(),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load returns the knowledge base, reading the files only when the cached
// copy is missing or stale. Missing or unreadable files yield empty
// sections.
func (l *Loader) Load(ctx context.Context) Evidence {
	raw := l.store.GetOrSet(ctx, cache.ProviderEvidenceLocal, CacheKey, func(context.Context) []byte {
		payload, err := json.Marshal(l.read())
		if err != nil {
			l.logger.Warn("cannot encode local evidence", zap.Error(err))
			return []byte(`{"cancer":{},"pharmgx":{}}`)
		}
		return payload
	})

	var ev Evidence
	if err := json.Unmarshal(raw, &ev); err != nil {
		l.logger.Warn("cached local evidence unreadable, using files directly", zap.Error(err))
		return l.read()
	}
	if ev.Cancer == nil {
		ev.Cancer = Index{}
	}
	if len(ev.PharmGx) == 0 {
		ev.PharmGx = json.RawMessage(`{}`)
	}
	return ev
}

// Actions returns the curated actions for a variant in a tumor type.
func (l *Loader) Actions(ctx context.Context, gene, change, tumor string) []Action {
	return l.Load(ctx).Cancer.Lookup(tumor, gene, change)
}

func (l *Loader) read() Evidence {
	ev := Evidence{Cancer: Index{}, PharmGx: json.RawMessage(`{}`)}
	if raw, ok := l.readFile(CancerFile); ok {
		ev.Cancer = ParseIndex(raw, l.logger)
	}
	if raw, ok := l.readFile(PharmGxFile); ok {
		if json.Valid(raw) {
			ev.PharmGx = raw
		} else {
			l.logger.Warn("pharmgx evidence is not valid JSON, ignoring", zap.String("file", PharmGxFile))
		}
	}
	return ev
}

func (l *Loader) readFile(name string) ([]byte, bool) {
	path := filepath.Join(l.dir, name)
	raw, err := afero.ReadFile(l.fs, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.logger.Debug("local evidence file not found", zap.String("path", path))
		return nil, false
	case err != nil:
		l.logger.Warn("cannot read local evidence file", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	return raw, true
}

// ParseIndex decodes the oncology document. Branches that do not have the
// tumor → gene → change → {actions} shape are skipped and logged; keys are
// normalized so lookups are case-insensitive.
func ParseIndex(raw []byte, log *zap.Logger) Index {
	if log == nil {
		log = zap.NewNop()
	}
	ix := Index{}
	var tumors map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tumors); err != nil {
		log.Warn("cancer evidence is not an object, ignoring", zap.Error(err))
		return ix
	}
	for tumor, tumorRaw := range tumors {
		var genes map[string]json.RawMessage
		if err := json.Unmarshal(tumorRaw, &genes); err != nil {
			log.Warn("skipping malformed tumor entry", zap.String("tumor", tumor), zap.Error(err))
			continue
		}
		for gene, geneRaw := range genes {
			var changes map[string]json.RawMessage
			if err := json.Unmarshal(geneRaw, &changes); err != nil {
				log.Warn("skipping malformed gene entry",
					zap.String("tumor", tumor), zap.String("gene", gene), zap.Error(err))
				continue
			}
			for change, nodeRaw := range changes {
				var node Node
				if err := json.Unmarshal(nodeRaw, &node); err != nil {
					log.Warn("skipping malformed variant entry",
						zap.String("tumor", tumor), zap.String("gene", gene),
						zap.String("change", change), zap.Error(err))
					continue
				}
				ix.add(tumor, gene, change, node)
			}
		}
	}
	return ix
}

func (ix Index) add(tumor, gene, change string, node Node) {
	t, g, c := normalizeTumor(tumor), variant.NormalizeGene(gene), variant.NormalizeChange(change)
	if ix[t] == nil {
		ix[t] = map[string]map[string]Node{}
	}
	if ix[t][g] == nil {
		ix[t][g] = map[string]Node{}
	}
	prev := ix[t][g][c]
	prev.Actions = append(prev.Actions, node.Actions...)
	ix[t][g][c] = prev
}

func normalizeTumor(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
