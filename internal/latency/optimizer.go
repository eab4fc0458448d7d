// Package latency tracks per-venue execution performance and feeds it back
// into routing and retry decisions.
package latency

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/crossvenue/smartroute/pkg/types"
	"go.uber.org/zap"
)

// minRetrySamples is the smallest window for which a success rate is
// considered meaningful when deciding whether to retry.
const minRetrySamples = 10

// VenueMetrics is a summary of recent outcomes for one venue.
type VenueMetrics struct {
	Venue       string        `json:"venue"`
	Samples     int           `json:"samples"`
	AvgLatency  time.Duration `json:"avg_latency"`
	MinLatency  time.Duration `json:"min_latency"`
	MaxLatency  time.Duration `json:"max_latency"`
	P50Latency  time.Duration `json:"p50_latency"`
	P95Latency  time.Duration `json:"p95_latency"`
	P99Latency  time.Duration `json:"p99_latency"`
	SuccessRate float64       `json:"success_rate"`
	Failures    int           `json:"failures"`
	LastUpdated time.Time     `json:"last_updated"`
}

// ExecParams are the tunable execution parameters for one adapter call.
type ExecParams struct {
	Timeout   time.Duration `json:"timeout"`
	BatchSize int           `json:"batch_size"`
	ReusePool bool          `json:"reuse_pool"`
}

type outcome struct {
	latency time.Duration
	success bool
	at      time.Time
}

// Optimizer maintains a bounded ring buffer of recent outcomes per venue and
// derives rolling summaries from them. Safe for concurrent use from multiple
// in-flight orders.
type Optimizer struct {
	windowSize    int
	summaryWindow time.Duration
	target        time.Duration
	p95Ceiling    time.Duration
	logger        *zap.Logger

	mu     sync.RWMutex
	venues map[string]*ring
}

type ring struct {
	buf  []outcome
	next int
	full bool
}

func (r *ring) add(o outcome) {
	r.buf[r.next] = o
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) snapshot() []outcome {
	n := r.next
	if r.full {
		n = len(r.buf)
	}
	out := make([]outcome, n)
	copy(out, r.buf[:n])
	if r.full {
		copy(out, r.buf[r.next:])
		copy(out[len(r.buf)-r.next:], r.buf[:r.next])
	}
	return out
}

// Config holds optimizer configuration.
type Config struct {
	WindowSize    int           // Ring buffer capacity per venue
	SummaryWindow time.Duration // Trailing time window for summaries
	Target        time.Duration // Desired average latency
	P95Ceiling    time.Duration // Above this p95, retries are refused
	Logger        *zap.Logger
}

// New creates a new latency optimizer.
func New(cfg *Config) (*Optimizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if cfg.SummaryWindow <= 0 {
		return nil, fmt.Errorf("summary window must be positive")
	}
	if cfg.P95Ceiling <= 0 {
		return nil, fmt.Errorf("p95 ceiling must be positive")
	}

	return &Optimizer{
		windowSize:    cfg.WindowSize,
		summaryWindow: cfg.SummaryWindow,
		target:        cfg.Target,
		p95Ceiling:    cfg.P95Ceiling,
		logger:        cfg.Logger,
		venues:        make(map[string]*ring),
	}, nil
}

// RecordOutcome records one completed adapter call. Venue rings are created
// lazily on first observation and never deleted.
func (o *Optimizer) RecordOutcome(venue string, latency time.Duration, success bool) {
	o.mu.Lock()
	r, ok := o.venues[venue]
	if !ok {
		r = &ring{buf: make([]outcome, o.windowSize)}
		o.venues[venue] = r
	}
	r.add(outcome{latency: latency, success: success, at: time.Now()})
	o.mu.Unlock()

	OutcomesTotal.WithLabelValues(venue, successLabel(success)).Inc()
	CallLatencySeconds.WithLabelValues(venue).Observe(latency.Seconds())
}

// Metrics returns the rolling summary for a venue. Venues with no recorded
// data return a conservative default (moderate latency, perfect success rate)
// so that new venues are not starved by routing.
func (o *Optimizer) Metrics(venue string) VenueMetrics {
	o.mu.RLock()
	r, ok := o.venues[venue]
	var window []outcome
	if ok {
		window = o.activeWindow(r)
	}
	o.mu.RUnlock()

	if len(window) == 0 {
		return VenueMetrics{
			Venue:       venue,
			AvgLatency:  100 * time.Millisecond,
			P50Latency:  100 * time.Millisecond,
			P95Latency:  100 * time.Millisecond,
			P99Latency:  100 * time.Millisecond,
			SuccessRate: 1.0,
		}
	}

	return summarize(venue, window)
}

// activeWindow filters a ring snapshot down to the trailing summary window.
// Caller must hold at least a read lock.
func (o *Optimizer) activeWindow(r *ring) []outcome {
	all := r.snapshot()
	cutoff := time.Now().Add(-o.summaryWindow)
	start := 0
	for start < len(all) && all[start].at.Before(cutoff) {
		start++
	}
	return all[start:]
}

func summarize(venue string, window []outcome) VenueMetrics {
	latencies := make([]time.Duration, 0, len(window))
	successes := 0
	last := time.Time{}
	var total, min, max time.Duration

	for i, oc := range window {
		latencies = append(latencies, oc.latency)
		total += oc.latency
		if i == 0 || oc.latency < min {
			min = oc.latency
		}
		if oc.latency > max {
			max = oc.latency
		}
		if oc.success {
			successes++
		}
		if oc.at.After(last) {
			last = oc.at
		}
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	return VenueMetrics{
		Venue:       venue,
		Samples:     len(window),
		AvgLatency:  total / time.Duration(len(window)),
		MinLatency:  min,
		MaxLatency:  max,
		P50Latency:  percentile(latencies, 0.50),
		P95Latency:  percentile(latencies, 0.95),
		P99Latency:  percentile(latencies, 0.99),
		SuccessRate: float64(successes) / float64(len(window)),
		Failures:    len(window) - successes,
		LastUpdated: last,
	}
}

// percentile returns the nearest-rank percentile of a sorted slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Fastest returns the venue with the lowest average latency among the given
// candidates. Venues without data use the conservative default and therefore
// compete at 100ms.
func (o *Optimizer) Fastest(venues []string) string {
	best := ""
	var bestLatency time.Duration
	for _, v := range venues {
		m := o.Metrics(v)
		if best == "" || m.AvgLatency < bestLatency {
			best = v
			bestLatency = m.AvgLatency
		}
	}
	return best
}

// ShouldRetry reports whether it is worth retrying against a venue. Retry is
// refused when the success rate has dropped below 50% or p95 latency exceeds
// the configured ceiling, to avoid hammering a degraded venue.
func (o *Optimizer) ShouldRetry(venue string) bool {
	m := o.Metrics(venue)

	// Too few samples for the rate to mean anything; let the retry budget
	// bound the attempts instead.
	if m.Samples < minRetrySamples {
		return true
	}

	if m.SuccessRate < 0.5 {
		o.logger.Warn("retry-refused-low-success-rate",
			zap.String("venue", venue),
			zap.Float64("success_rate", m.SuccessRate))
		RetriesRefusedTotal.WithLabelValues(venue, "success_rate").Inc()
		return false
	}

	if m.P95Latency > o.p95Ceiling {
		o.logger.Warn("retry-refused-high-latency",
			zap.String("venue", venue),
			zap.Duration("p95", m.P95Latency),
			zap.Duration("ceiling", o.p95Ceiling))
		RetriesRefusedTotal.WithLabelValues(venue, "latency").Inc()
		return false
	}

	return true
}

// OptimizeParams adjusts execution parameters for a venue based on its current
// performance: widens the timeout and halves the batch size when average
// latency exceeds the target, and tags the request for connection-pool reuse.
// Market orders get a tighter widening than resting kinds, keeping them close
// to the configured budget while the price moves.
func (o *Optimizer) OptimizeParams(venue string, kind types.OrderKind, params ExecParams) ExecParams {
	m := o.Metrics(venue)

	out := params
	out.ReusePool = true

	if m.AvgLatency > o.target {
		out.Timeout = params.Timeout * 2
		if kind == types.KindMarket {
			out.Timeout = params.Timeout * 3 / 2
		}
		if params.BatchSize > 1 {
			out.BatchSize = params.BatchSize / 2
		}

		o.logger.Debug("params-widened",
			zap.String("venue", venue),
			zap.Duration("avg_latency", m.AvgLatency),
			zap.Duration("target", o.target),
			zap.Duration("timeout", out.Timeout),
			zap.Int("batch_size", out.BatchSize))
	}

	return out
}

// AllMetrics returns summaries for every venue with recorded data.
func (o *Optimizer) AllMetrics() []VenueMetrics {
	o.mu.RLock()
	names := make([]string, 0, len(o.venues))
	for v := range o.venues {
		names = append(names, v)
	}
	o.mu.RUnlock()

	sort.Strings(names)
	out := make([]VenueMetrics, 0, len(names))
	for _, v := range names {
		out = append(out, o.Metrics(v))
	}
	return out
}

func successLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
