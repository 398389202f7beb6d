// Package metrics keeps rolling latency statistics for external calls
// (embedding requests, answer generation, rasterization).
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Operation names used across the service.
const (
	OpEmbed  = "embed"
	OpAnswer = "answer"
	OpBuild  = "build"
	OpCrop   = "crop"
)

type sample struct {
	at     time.Time
	millis int64
	failed bool
}

// Snapshot aggregates the samples of one operation inside the window.
type Snapshot struct {
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Latency tracks per-operation call durations within a rolling window.
// The zero value is not usable; call NewLatency.
type Latency struct {
	mu     sync.Mutex
	ops    map[string][]sample
	window time.Duration
	now    func() time.Time
}

func NewLatency(window time.Duration) *Latency {
	if window <= 0 {
		window = time.Hour
	}
	return &Latency{ops: make(map[string][]sample), window: window, now: time.Now}
}

// Record adds one sample for op.
func (l *Latency) Record(op string, d time.Duration, err error) {
	if l == nil {
		return
	}
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops[op] = append(prune(l.ops[op], now.Add(-l.window)), sample{at: now, millis: ms, failed: err != nil})
}

// Since records the time elapsed since start. It is meant for defer:
//
//	defer func(start time.Time) { lat.Since(metrics.OpEmbed, start, err) }(time.Now())
func (l *Latency) Since(op string, start time.Time, err error) {
	l.Record(op, time.Since(start), err)
}

// Snapshot returns the aggregate for every operation with samples.
func (l *Latency) Snapshot() map[string]Snapshot {
	out := make(map[string]Snapshot)
	if l == nil {
		return out
	}
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for op, samples := range l.ops {
		samples = prune(samples, cutoff)
		l.ops[op] = samples
		if len(samples) == 0 {
			continue
		}
		out[op] = aggregate(samples)
	}
	return out
}

func prune(samples []sample, cutoff time.Time) []sample {
	keep := samples[:0]
	for _, s := range samples {
		if !s.at.Before(cutoff) {
			keep = append(keep, s)
		}
	}
	return keep
}

func aggregate(samples []sample) Snapshot {
	values := make([]int64, 0, len(samples))
	var sum int64
	snap := Snapshot{Count: len(samples)}
	for _, s := range samples {
		values = append(values, s.millis)
		sum += s.millis
		if s.failed {
			snap.Errors++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	idx := float64(len(sorted)-1) * pct / 100
	lo := int(idx)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	w := idx - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*w
}
