// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"sync"
	"time"
)

const LatencyBuckets = 101
const LatencyBucketSize = 25 * time.Millisecond

// Histogram counts extraction latencies in fixed buckets. The last bucket
// holds everything slower.
type Histogram struct {
	Buckets [LatencyBuckets]uint64 `json:"b"`
	Count   uint64                 `json:"c"`
	Sum     float64                `json:"s"` // milliseconds
}

func (h *Histogram) Add(d time.Duration) {
	idx := int(d / LatencyBucketSize)
	if idx < 0 {
		idx = 0
	}
	if idx >= LatencyBuckets {
		idx = LatencyBuckets - 1
	}
	h.Buckets[idx]++
	h.Count++
	h.Sum += float64(d.Microseconds()) / 1000
}

func (h *Histogram) Merge(other *Histogram) {
	if other == nil {
		return
	}
	for i := range LatencyBuckets {
		h.Buckets[i] += other.Buckets[i]
	}
	h.Count += other.Count
	h.Sum += other.Sum
}

// Quantile returns the upper bound in milliseconds of the bucket holding
// quantile q.
func (h *Histogram) Quantile(q float64) float64 {
	if h.Count == 0 {
		return 0
	}
	rank := uint64(q * float64(h.Count))
	if rank >= h.Count {
		rank = h.Count - 1
	}
	var seen uint64
	for i, n := range h.Buckets {
		seen += n
		if seen > rank {
			return float64((time.Duration(i+1) * LatencyBucketSize).Milliseconds())
		}
	}
	return float64((LatencyBuckets * LatencyBucketSize).Milliseconds())
}

// ResolutionConfig defines the policy of one ring buffer.
type ResolutionConfig struct {
	Name       string        `json:"name"`
	Resolution time.Duration `json:"resolution"`
	Buckets    int           `json:"buckets"`
}

var DefaultResolutions = []ResolutionConfig{
	{"1m", time.Minute, 120},
	{"1h", time.Hour, 168},
	{"1d", 24 * time.Hour, 183},
}

// Point is a single data point in a time series.
type Point[T any] struct {
	Timestamp int64 `json:"t"`
	Value     T     `json:"v"`
}

// RingBuffer is a fixed-size circular buffer of time series data.
type RingBuffer[T any] struct {
	Config ResolutionConfig `json:"config"`
	Data   []Point[T]       `json:"data"`
	Head   int              `json:"head"` // next write position
}

func NewRingBuffer[T any](cfg ResolutionConfig) *RingBuffer[T] {
	return &RingBuffer[T]{
		Config: cfg,
		Data:   make([]Point[T], cfg.Buckets),
	}
}

func (rb *RingBuffer[T]) align(timestamp int64) int64 {
	res := int64(rb.Config.Resolution.Seconds())
	return (timestamp / res) * res
}

// last returns the most recent point when it falls in the same bucket as
// timestamp.
func (rb *RingBuffer[T]) last(timestamp int64) *Point[T] {
	p := &rb.Data[(rb.Head-1+len(rb.Data))%len(rb.Data)]
	if p.Timestamp != rb.align(timestamp) {
		return nil
	}
	return p
}

// Add stores value at timestamp, replacing the point of the same bucket.
func (rb *RingBuffer[T]) Add(timestamp int64, value T) {
	if p := rb.last(timestamp); p != nil {
		p.Value = value
		return
	}
	rb.Data[rb.Head] = Point[T]{Timestamp: rb.align(timestamp), Value: value}
	rb.Head = (rb.Head + 1) % len(rb.Data)
}

// GetPoints returns the stored points, oldest first.
func (rb *RingBuffer[T]) GetPoints() []Point[T] {
	points := make([]Point[T], 0, len(rb.Data))
	for i := range rb.Data {
		p := rb.Data[(rb.Head+i)%len(rb.Data)]
		if p.Timestamp > 0 {
			points = append(points, p)
		}
	}
	return points
}

// CounterSeries sums a counter per bucket at every resolution.
type CounterSeries struct {
	Buffers map[string]*RingBuffer[float64] `json:"buffers"`
}

func NewCounterSeries() *CounterSeries {
	s := &CounterSeries{Buffers: make(map[string]*RingBuffer[float64])}
	for _, cfg := range DefaultResolutions {
		s.Buffers[cfg.Name] = NewRingBuffer[float64](cfg)
	}
	return s
}

func (s *CounterSeries) Ingest(timestamp int64, value float64) {
	for _, buf := range s.Buffers {
		if p := buf.last(timestamp); p != nil {
			p.Value += value
			continue
		}
		buf.Add(timestamp, value)
	}
}

// HistogramSeries merges histograms per bucket at every resolution.
type HistogramSeries struct {
	Buffers map[string]*RingBuffer[Histogram] `json:"buffers"`
}

func NewHistogramSeries() *HistogramSeries {
	s := &HistogramSeries{Buffers: make(map[string]*RingBuffer[Histogram])}
	for _, cfg := range DefaultResolutions {
		s.Buffers[cfg.Name] = NewRingBuffer[Histogram](cfg)
	}
	return s
}

func (s *HistogramSeries) Ingest(timestamp int64, h *Histogram) {
	if h == nil {
		return
	}
	for _, buf := range s.Buffers {
		if p := buf.last(timestamp); p != nil {
			p.Value.Merge(h)
			continue
		}
		buf.Add(timestamp, *h)
	}
}

// Metrics records import activity.
type Metrics struct {
	mu      sync.Mutex
	now     func() time.Time
	started time.Time

	imports   uint64
	failures  uint64
	cacheHits uint64
	warnings  uint64
	latency   Histogram

	importSeries  *CounterSeries
	failureSeries *CounterSeries
	latencySeries *HistogramSeries
}

func NewMetrics() *Metrics {
	return newMetricsAt(time.Now)
}

func newMetricsAt(now func() time.Time) *Metrics {
	return &Metrics{
		now:           now,
		started:       now(),
		importSeries:  NewCounterSeries(),
		failureSeries: NewCounterSeries(),
		latencySeries: NewHistogramSeries(),
	}
}

// ObserveImport records a successful import. Cached extractions are
// counted but do not feed the latency histogram.
func (m *Metrics) ObserveImport(d time.Duration, warnings int, cached bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.now().Unix()
	m.imports++
	m.warnings += uint64(warnings)
	m.importSeries.Ingest(ts, 1)
	if cached {
		m.cacheHits++
		return
	}
	m.latency.Add(d)
	var h Histogram
	h.Add(d)
	m.latencySeries.Ingest(ts, &h)
}

// ObserveFailure records a failed import.
func (m *Metrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
	m.failureSeries.Ingest(m.now().Unix(), 1)
}

// MetricsSnapshot is the JSON form of Metrics.
type MetricsSnapshot struct {
	UptimeSeconds int64                       `json:"uptimeSeconds"`
	Imports       uint64                      `json:"imports"`
	Failures      uint64                      `json:"failures"`
	CacheHits     uint64                      `json:"cacheHits"`
	Warnings      uint64                      `json:"warnings"`
	LatencyP50    float64                     `json:"latencyP50Ms"`
	LatencyP95    float64                     `json:"latencyP95Ms"`
	Latency       Histogram                   `json:"latency"`
	ImportsPer    map[string][]Point[float64] `json:"importsPer"`
	FailuresPer   map[string][]Point[float64] `json:"failuresPer"`
	Cache         CacheStats                  `json:"cache"`
	Matches       int                         `json:"matches"`
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := MetricsSnapshot{
		UptimeSeconds: int64(m.now().Sub(m.started).Seconds()),
		Imports:       m.imports,
		Failures:      m.failures,
		CacheHits:     m.cacheHits,
		Warnings:      m.warnings,
		LatencyP50:    m.latency.Quantile(0.5),
		LatencyP95:    m.latency.Quantile(0.95),
		Latency:       m.latency,
		ImportsPer:    make(map[string][]Point[float64]),
		FailuresPer:   make(map[string][]Point[float64]),
	}
	for name, buf := range m.importSeries.Buffers {
		s.ImportsPer[name] = buf.GetPoints()
	}
	for name, buf := range m.failureSeries.Buffers {
		s.FailuresPer[name] = buf.GetPoints()
	}
	return s
}

// LatencySeries returns the per bucket latency histograms at resolution
// name ("1m", "1h" or "1d").
func (m *Metrics) LatencySeries(name string) []Point[Histogram] {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.latencySeries.Buffers[name]
	if !ok {
		return nil
	}
	return buf.GetPoints()
}
