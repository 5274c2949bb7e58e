package observability

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemoryMetricsClient is a MetricsClient that aggregates metrics in
// process memory. It is suitable for single-process deployments and for
// tests; a real metrics backend can be swapped in behind the same interface.
type InMemoryMetricsClient struct {
	mu         sync.Mutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewMetricsClient creates a new in-memory metrics client
func NewMetricsClient() *InMemoryMetricsClient {
	return &InMemoryMetricsClient{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// RecordCounter increments the named counter
func (c *InMemoryMetricsClient) RecordCounter(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[metricKey(name, labels)] += value
}

// RecordGauge sets the named gauge
func (c *InMemoryMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[metricKey(name, labels)] = value
}

// RecordHistogram appends an observation to the named histogram
func (c *InMemoryMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := metricKey(name, labels)
	c.histograms[key] = append(c.histograms[key], value)
}

// StartTimer returns a function that records the elapsed duration in
// milliseconds as a histogram observation
func (c *InMemoryMetricsClient) StartTimer(name string, labels map[string]string) func() {
	start := time.Now()
	return func() {
		c.RecordHistogram(name, float64(time.Since(start).Milliseconds()), labels)
	}
}

// CounterValue returns the current value of a counter. Intended for tests.
func (c *InMemoryMetricsClient) CounterValue(name string, labels map[string]string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[metricKey(name, labels)]
}

// Close implements MetricsClient.Close
func (c *InMemoryMetricsClient) Close() error {
	return nil
}

// metricKey builds a stable identity for a metric name plus label set
func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(labels[k])
	}
	return b.String()
}

// NoopMetricsClient is a MetricsClient that discards all observations
type NoopMetricsClient struct{}

// NewNoopMetricsClient creates a new NoopMetricsClient
func NewNoopMetricsClient() MetricsClient {
	return &NoopMetricsClient{}
}

// RecordCounter implements MetricsClient.RecordCounter
func (c *NoopMetricsClient) RecordCounter(name string, value float64, labels map[string]string) {}

// RecordGauge implements MetricsClient.RecordGauge
func (c *NoopMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {}

// RecordHistogram implements MetricsClient.RecordHistogram
func (c *NoopMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {}

// StartTimer implements MetricsClient.StartTimer
func (c *NoopMetricsClient) StartTimer(name string, labels map[string]string) func() {
	return func() {}
}

// Close implements MetricsClient.Close
func (c *NoopMetricsClient) Close() error { return nil }
