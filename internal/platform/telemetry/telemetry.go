// Package telemetry records service metrics in memory and exports them in
// Prometheus text format. The instruments are plain atomics so the hot path
// (one increment per evaluation) never takes a lock on the counter itself.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// histogram accumulates observations into fixed buckets.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64 // one per boundary, non-cumulative
	count        int64
	sum          uint64     // stored as math.Float64bits for atomic add
	mu           sync.Mutex // protects bucketCounts
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries:   boundaries,
		bucketCounts: make([]int64, len(boundaries)),
	}
}

// Observe records a single value.
func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			h.mu.Unlock()
			return
		}
	}
	// Value exceeds all boundaries — counted in +Inf at export.
	h.mu.Unlock()
}

// Count returns the total number of observations.
func (h *histogram) Count() int64 {
	return atomic.LoadInt64(&h.count)
}

// Sum returns the total sum of all observations.
func (h *histogram) Sum() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.sum))
}

// cumulativeBuckets returns cumulative bucket counts for Prometheus export.
func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	raw := make([]int64, len(h.bucketCounts))
	copy(raw, h.bucketCounts)
	h.mu.Unlock()

	cum := make([]int64, len(raw))
	var running int64
	for i, c := range raw {
		running += c
		cum[i] = running
	}
	return cum
}

// atomicAddFloat64 performs an atomic add on a uint64 that stores a float64
// using CAS.
func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		newVal := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(newVal)) {
			return
		}
	}
}

// counterStore holds named monotonic counters.
type counterStore struct {
	mu       sync.RWMutex
	counters map[string]*int64
}

func newCounterStore() *counterStore {
	return &counterStore{counters: make(map[string]*int64)}
}

func (s *counterStore) inc(key string) {
	s.mu.RLock()
	ctr, ok := s.counters[key]
	s.mu.RUnlock()
	if !ok {
		s.mu.Lock()
		if ctr, ok = s.counters[key]; !ok {
			ctr = new(int64)
			s.counters[key] = ctr
		}
		s.mu.Unlock()
	}
	atomic.AddInt64(ctr, 1)
}

func (s *counterStore) get(key string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ctr, ok := s.counters[key]; ok {
		return atomic.LoadInt64(ctr)
	}
	return 0
}

func (s *counterStore) snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.counters))
	for k, ctr := range s.counters {
		out[k] = atomic.LoadInt64(ctr)
	}
	return out
}

// defaultDurationBuckets covers sub-millisecond evaluations up to slow
// multi-second requests.
var defaultDurationBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// Provider owns every instrument the service records into.
type Provider struct {
	counters *counterStore

	httpDuration *histogram
	evalDuration *histogram
}

// NewProvider creates a provider with empty instruments.
func NewProvider() *Provider {
	return &Provider{
		counters:     newCounterStore(),
		httpDuration: newHistogram(defaultDurationBuckets),
		evalDuration: newHistogram(defaultDurationBuckets),
	}
}

// EvaluationStarted counts one assist evaluation.
func (p *Provider) EvaluationStarted() {
	p.counters.inc("evaluations_total")
}

// ObserveEvaluation records how long one evaluation took.
func (p *Provider) ObserveEvaluation(d time.Duration) {
	p.evalDuration.Observe(d.Seconds())
}

// AlertFired counts one fired red-flag alert by urgency tier.
func (p *Provider) AlertFired(urgency string) {
	p.counters.inc("alerts_fired_total|" + urgency)
}

// AlertRegistered counts one alert accepted for tracking by urgency tier.
// Firing is counted separately at detection; a registered alert has already
// been counted as fired exactly once.
func (p *Provider) AlertRegistered(urgency string) {
	p.counters.inc("alerts_registered_total|" + urgency)
}

// CacheHit counts one extraction memo cache hit.
func (p *Provider) CacheHit() {
	p.counters.inc("eval_cache_hits_total")
}

// CacheMiss counts one extraction memo cache miss.
func (p *Provider) CacheMiss() {
	p.counters.inc("eval_cache_misses_total")
}

// LexiconReload counts one successful ruleset reload.
func (p *Provider) LexiconReload() {
	p.counters.inc("lexicon_reloads_total")
}

// Counter returns the current value of a named counter. Labeled counters
// are addressed as "name|label".
func (p *Provider) Counter(key string) int64 {
	return p.counters.get(key)
}

// EvaluationCount returns how many evaluations have been recorded.
func (p *Provider) EvaluationCount() int64 {
	return p.counters.get("evaluations_total")
}

// Middleware counts requests by method/status and times them.
func (p *Provider) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if httpErr, ok := err.(*echo.HTTPError); ok {
					status = httpErr.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			p.counters.inc("http_requests_total|" + c.Request().Method + "|" + strconv.Itoa(status))
			p.httpDuration.Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the metrics in Prometheus text format.
func (p *Provider) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder
		counters := p.counters.snapshot()

		writeLabeledCounter(&b, counters, "http_requests_total",
			"Total HTTP requests by method and status.", []string{"method", "status"})
		writeHistogram(&b, "http_request_duration_seconds",
			"Duration of HTTP requests in seconds.", p.httpDuration)

		writeCounter(&b, counters, "evaluations_total",
			"Total assist evaluations run.")
		writeHistogram(&b, "evaluation_duration_seconds",
			"Duration of assist evaluations in seconds.", p.evalDuration)

		writeLabeledCounter(&b, counters, "alerts_fired_total",
			"Total red-flag alerts fired by urgency tier.", []string{"urgency"})
		writeLabeledCounter(&b, counters, "alerts_registered_total",
			"Total red-flag alerts registered for tracking by urgency tier.", []string{"urgency"})
		writeCounter(&b, counters, "eval_cache_hits_total",
			"Extraction memo cache hits.")
		writeCounter(&b, counters, "eval_cache_misses_total",
			"Extraction memo cache misses.")
		writeCounter(&b, counters, "lexicon_reloads_total",
			"Successful lexicon ruleset reloads.")

		return c.String(http.StatusOK, b.String())
	}
}

func writeCounter(b *strings.Builder, counters map[string]int64, name, help string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s counter\n", name, help, name)
	fmt.Fprintf(b, "%s %d\n\n", name, counters[name])
}

func writeLabeledCounter(b *strings.Builder, counters map[string]int64, name, help string, labels []string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s counter\n", name, help, name)

	keys := make([]string, 0)
	for k := range counters {
		if strings.HasPrefix(k, name+"|") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts := strings.Split(k, "|")[1:]
		pairs := make([]string, 0, len(labels))
		for i, l := range labels {
			if i < len(parts) {
				pairs = append(pairs, fmt.Sprintf("%s=%q", l, parts[i]))
			}
		}
		fmt.Fprintf(b, "%s{%s} %d\n", name, strings.Join(pairs, ","), counters[k])
	}
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, h *histogram) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s histogram\n", name, help, name)
	cum := h.cumulativeBuckets()
	for i, bound := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{le=%q} %d\n", name, strconv.FormatFloat(bound, 'g', -1, 64), cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"} %d\n", name, h.Count())
	fmt.Fprintf(b, "%s_sum %g\n", name, h.Sum())
	fmt.Fprintf(b, "%s_count %d\n\n", name, h.Count())
}
