// Package assist is the evaluation surface over the decision engine: one
// call runs the finding extractor, then fans its output out to the
// differential ranking engine and the red-flag detector concurrently. The
// service persists nothing; alert registration and acknowledgment live in
// the alerts domain.
package assist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/clindx/clindx/internal/engine/extract"
	"github.com/clindx/clindx/internal/engine/lexicon"
	"github.com/clindx/clindx/internal/engine/patient"
	"github.com/clindx/clindx/internal/engine/rank"
	"github.com/clindx/clindx/internal/engine/redflag"
	"github.com/clindx/clindx/internal/platform/telemetry"
)

// DefaultCacheSize is the extraction memo capacity when the configuration
// does not set one.
const DefaultCacheSize = 512

// EvaluationRequest carries one note through the full pipeline.
type EvaluationRequest struct {
	Text    string          `json:"text"`
	Vitals  *extract.Vitals `json:"vitals,omitempty"`
	Patient patient.Context `json:"context"`
	TopN    int             `json:"top_n,omitempty"`
}

// Evaluation is the combined result handed back to the caller. Alerts are
// always freshly detected instances in created state; findings and
// candidates may come from the memo cache.
type Evaluation struct {
	LexiconVersion string            `json:"lexicon_version"`
	Findings       []extract.Finding `json:"findings"`
	Candidates     []rank.Candidate  `json:"candidates"`
	Alerts         []redflag.Alert   `json:"alerts"`
	ElapsedMS      float64           `json:"elapsed_ms"`
}

// LexiconInfo describes the active snapshot for the admin surface.
type LexiconInfo struct {
	Version    string `json:"version"`
	Keys       int    `json:"keys"`
	Expansions int    `json:"expansions"`
	Symptoms   int    `json:"symptoms"`
	Composites int    `json:"composites"`
	Diseases   int    `json:"diseases"`
	RedFlags   int    `json:"red_flags"`
}

// Service runs evaluations against the current lexicon snapshot.
type Service struct {
	store   *lexicon.Store
	metrics *telemetry.Provider
	cache   *lru.Cache[string, extract.Set]
}

// NewService creates a Service. The metrics provider may be nil; cacheSize
// values below 1 fall back to DefaultCacheSize.
func NewService(store *lexicon.Store, cacheSize int, metrics *telemetry.Provider) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("assist: lexicon store is required")
	}
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, extract.Set](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("assist: create extraction cache: %w", err)
	}
	return &Service{store: store, metrics: metrics, cache: cache}, nil
}

// Evaluate extracts findings once and runs ranking and red-flag detection
// over them in parallel. The two consumers share no mutable state, so the
// fan-out needs no locking. Empty input produces empty result sets, never
// an error.
func (s *Service) Evaluate(ctx context.Context, req EvaluationRequest) (*Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lex := s.store.Current()
	if lex == nil {
		return nil, fmt.Errorf("assist: no lexicon snapshot loaded")
	}

	start := time.Now()
	if s.metrics != nil {
		s.metrics.EvaluationStarted()
	}

	set := s.extractMemo(lex, req.Text, req.Vitals)

	var (
		wg         sync.WaitGroup
		candidates []rank.Candidate
		alerts     []redflag.Alert
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		candidates = rank.Rank(lex, set, req.Patient, req.TopN)
	}()
	go func() {
		defer wg.Done()
		alerts = redflag.Detect(lex, set, req.Patient)
	}()
	wg.Wait()

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveEvaluation(elapsed)
		for _, a := range alerts {
			s.metrics.AlertFired(a.Urgency)
		}
	}

	return &Evaluation{
		LexiconVersion: lex.Version,
		Findings:       set.Findings,
		Candidates:     candidates,
		Alerts:         alerts,
		ElapsedMS:      float64(elapsed.Microseconds()) / 1000,
	}, nil
}

// extractMemo returns the memoized finding set for (snapshot, text, vitals),
// running the extractor on a miss. Extraction is deterministic, so a cached
// set is byte-identical to a fresh one.
func (s *Service) extractMemo(lex *lexicon.Lexicon, text string, vitals *extract.Vitals) extract.Set {
	key := memoKey(lex.Version, text, vitals)
	if set, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.CacheHit()
		}
		return set
	}
	if s.metrics != nil {
		s.metrics.CacheMiss()
	}
	set := extract.Extract(lex, text, vitals)
	s.cache.Add(key, set)
	return set
}

func memoKey(version, text string, vitals *extract.Vitals) string {
	h := sha256.New()
	h.Write([]byte(version))
	h.Write([]byte{0})
	h.Write([]byte(text))
	h.Write([]byte{0})
	if vitals != nil {
		// Field order in the struct is fixed, so the encoding is stable.
		enc, _ := json.Marshal(vitals)
		h.Write(enc)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Lexicon reports the active snapshot.
func (s *Service) Lexicon() LexiconInfo {
	lex := s.store.Current()
	if lex == nil {
		return LexiconInfo{}
	}
	return LexiconInfo{
		Version:    lex.Version,
		Keys:       lex.KeyCount(),
		Expansions: len(lex.Expansions),
		Symptoms:   len(lex.Symptoms),
		Composites: len(lex.Composites),
		Diseases:   len(lex.Diseases),
		RedFlags:   len(lex.RedFlags),
	}
}

// ReloadLexicon loads, validates and atomically swaps in the ruleset from
// dir. On failure the previous snapshot stays active. A successful reload
// drops the extraction memo, since cached sets are keyed to the old version
// and would only go stale in the cache.
func (s *Service) ReloadLexicon(dir string) (LexiconInfo, error) {
	if dir == "" {
		return LexiconInfo{}, fmt.Errorf("assist: no lexicon directory configured")
	}
	if err := s.store.ReloadDir(dir); err != nil {
		return LexiconInfo{}, err
	}
	s.cache.Purge()
	if s.metrics != nil {
		s.metrics.LexiconReload()
	}
	return s.Lexicon(), nil
}
