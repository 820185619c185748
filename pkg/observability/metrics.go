package observability

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Metric names.
const (
	MetricSyncOperations  = "taskcal.sync.operations"
	MetricSyncDuration    = "taskcal.sync.duration"
	MetricSyncStale       = "taskcal.sync.stale"
	MetricSyncLoads       = "taskcal.sync.loads"
	MetricSyncLoadSkipped = "taskcal.sync.load_skipped"

	MetricGatewayCalls    = "taskcal.gateway.calls"
	MetricGatewayDuration = "taskcal.gateway.duration"
	MetricBreakerState    = "taskcal.gateway.breaker_state"

	MetricHTTPRequests = "taskcal.http.requests"
	MetricHTTPDuration = "taskcal.http.duration"

	MetricEventsPublished = "taskcal.events.published"
	MetricEventsConsumed  = "taskcal.events.consumed"
)

// Metrics records counters, gauges and timings. Tags label a series; their
// order does not matter.
type Metrics interface {
	Counter(name string, value int64, tags ...Tag)
	Gauge(name string, value float64, tags ...Tag)
	Timing(name string, d time.Duration, tags ...Tag)
}

type Tag struct {
	Key   string
	Value string
}

func T(key, value string) Tag {
	return Tag{Key: key, Value: value}
}

type NoopMetrics struct{}

func (NoopMetrics) Counter(string, int64, ...Tag)        {}
func (NoopMetrics) Gauge(string, float64, ...Tag)        {}
func (NoopMetrics) Timing(string, time.Duration, ...Tag) {}

type series struct {
	count   int64
	gauge   float64
	timings []time.Duration
}

// InMemoryMetrics keeps every series in memory. It backs tests and the
// single-process CLI.
type InMemoryMetrics struct {
	mu     sync.RWMutex
	series map[string]*series
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{series: map[string]*series{}}
}

func (m *InMemoryMetrics) at(name string, tags []Tag) *series {
	key := seriesKey(name, tags)
	s, ok := m.series[key]
	if !ok {
		s = &series{}
		m.series[key] = s
	}
	return s
}

func (m *InMemoryMetrics) Counter(name string, value int64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.at(name, tags).count += value
}

func (m *InMemoryMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.at(name, tags).gauge = value
}

func (m *InMemoryMetrics) Timing(name string, d time.Duration, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.at(name, tags)
	s.timings = append(s.timings, d)
}

func (m *InMemoryMetrics) lookup(name string, tags []Tag) series {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.series[seriesKey(name, tags)]; ok {
		return series{count: s.count, gauge: s.gauge, timings: slices.Clone(s.timings)}
	}
	return series{}
}

func (m *InMemoryMetrics) GetCounter(name string, tags ...Tag) int64 {
	return m.lookup(name, tags).count
}

func (m *InMemoryMetrics) GetGauge(name string, tags ...Tag) float64 {
	return m.lookup(name, tags).gauge
}

func (m *InMemoryMetrics) GetTimings(name string, tags ...Tag) []time.Duration {
	return m.lookup(name, tags).timings
}

// seriesKey renders name{k=v,...} with tags sorted by key.
func seriesKey(name string, tags []Tag) string {
	if len(tags) == 0 {
		return name
	}
	sorted := slices.Clone(tags)
	slices.SortStableFunc(sorted, func(a, b Tag) int { return strings.Compare(a.Key, b.Key) })

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, t := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.Key)
		b.WriteByte('=')
		b.WriteString(t.Value)
	}
	b.WriteByte('}')
	return b.String()
}
