// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.

// Package telemetry tracks per-transport resolver health so the health
// endpoint can report when a DoH outage is silently degrading lookups
// into "record absent" diagnoses.
package telemetry

import (
	"math"
	"sort"
	"sync"
	"time"
)

type HealthState string

const (
	Healthy   HealthState = "healthy"
	Degraded  HealthState = "degraded"
	Unhealthy HealthState = "unhealthy"

	degradedThreshold  = 3
	unhealthyThreshold = 5
	latencyWindowSize  = 100
)

type TransportStats struct {
	Name            string      `json:"name"`
	State           HealthState `json:"state"`
	TotalRequests   int64       `json:"total_requests"`
	SuccessCount    int64       `json:"success_count"`
	FailureCount    int64       `json:"failure_count"`
	ConsecFailures  int         `json:"consecutive_failures"`
	LastError       string      `json:"last_error,omitempty"`
	LastErrorTime   *time.Time  `json:"last_error_time,omitempty"`
	LastSuccessTime *time.Time  `json:"last_success_time,omitempty"`
	AvgLatencyMs    float64     `json:"avg_latency_ms"`
	P95LatencyMs    float64     `json:"p95_latency_ms"`
}

type transport struct {
	mu             sync.RWMutex
	name           string
	totalRequests  int64
	successCount   int64
	failureCount   int64
	consecFailures int
	lastError      string
	lastErrorTime  time.Time
	lastSuccess    time.Time
	latencies      []float64
	latencyIdx     int
	latencyFull    bool
}

type Registry struct {
	mu         sync.RWMutex
	transports map[string]*transport
}

func NewRegistry() *Registry {
	return &Registry{
		transports: make(map[string]*transport),
	}
}

func (r *Registry) getOrCreate(name string) *transport {
	r.mu.RLock()
	t, ok := r.transports[name]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok = r.transports[name]; ok {
		return t
	}
	t = &transport{
		name:      name,
		latencies: make([]float64, latencyWindowSize),
	}
	r.transports[name] = t
	return t
}

func (r *Registry) RecordSuccess(name string, latency time.Duration) {
	t := r.getOrCreate(name)
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalRequests++
	t.successCount++
	t.consecFailures = 0
	t.lastSuccess = time.Now()

	t.latencies[t.latencyIdx] = float64(latency.Milliseconds())
	t.latencyIdx = (t.latencyIdx + 1) % latencyWindowSize
	if t.latencyIdx == 0 {
		t.latencyFull = true
	}
}

func (r *Registry) RecordFailure(name string, err error) {
	t := r.getOrCreate(name)
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalRequests++
	t.failureCount++
	t.consecFailures++
	if err != nil {
		t.lastError = err.Error()
	}
	t.lastErrorTime = time.Now()
}

func (t *transport) state() HealthState {
	switch {
	case t.consecFailures >= unhealthyThreshold:
		return Unhealthy
	case t.consecFailures >= degradedThreshold:
		return Degraded
	default:
		return Healthy
	}
}

func (t *transport) latencyStats() (avg, p95 float64) {
	n := t.latencyIdx
	if t.latencyFull {
		n = latencyWindowSize
	}
	if n == 0 {
		return 0, 0
	}

	window := make([]float64, n)
	copy(window, t.latencies[:n])
	sort.Float64s(window)

	var sum float64
	for _, v := range window {
		sum += v
	}
	avg = sum / float64(n)

	idx := int(math.Ceil(0.95*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	p95 = window[idx]
	return avg, p95
}

func (r *Registry) Snapshot() []TransportStats {
	r.mu.RLock()
	names := make([]string, 0, len(r.transports))
	for name := range r.transports {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	stats := make([]TransportStats, 0, len(names))
	for _, name := range names {
		t := r.getOrCreate(name)
		t.mu.RLock()
		s := TransportStats{
			Name:           t.name,
			State:          t.state(),
			TotalRequests:  t.totalRequests,
			SuccessCount:   t.successCount,
			FailureCount:   t.failureCount,
			ConsecFailures: t.consecFailures,
			LastError:      t.lastError,
		}
		if !t.lastErrorTime.IsZero() {
			errTime := t.lastErrorTime
			s.LastErrorTime = &errTime
		}
		if !t.lastSuccess.IsZero() {
			okTime := t.lastSuccess
			s.LastSuccessTime = &okTime
		}
		s.AvgLatencyMs, s.P95LatencyMs = t.latencyStats()
		t.mu.RUnlock()
		stats = append(stats, s)
	}
	return stats
}

// Healthy reports whether every transport seen so far is below the
// degraded threshold. An empty registry is healthy.
func (r *Registry) Healthy() bool {
	for _, s := range r.Snapshot() {
		if s.State != Healthy {
			return false
		}
	}
	return true
}
