package core

import (
	"context"
	"sync"
	"time"
)

// MockMetricsCollector implements MetricsCollector for tests. It records
// every call for assertion.
type MockMetricsCollector struct {
	mu    sync.Mutex
	Calls []RequestMetricCall
}

// RequestMetricCall records the arguments of a single RecordRequest call.
type RequestMetricCall struct {
	Method   string
	Endpoint string
	Status   string
	Duration time.Duration
}

// RecordRequest implements MetricsCollector.
func (m *MockMetricsCollector) RecordRequest(_ context.Context, method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, RequestMetricCall{
		Method:   method,
		Endpoint: endpoint,
		Status:   status,
		Duration: duration,
	})
}

// Recorded returns a copy of the recorded calls.
func (m *MockMetricsCollector) Recorded() []RequestMetricCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RequestMetricCall(nil), m.Calls...)
}

// MockHealthProbe implements HealthProbe for tests.
//
// Usage:
//
//	probe := &MockHealthProbe{ProbeName: "database", Err: errors.New("down")}
//
// When Block is true, Check waits for the context to expire.
type MockHealthProbe struct {
	ProbeName string
	Err       error
	Block     bool
	Panic     bool
}

// Name implements HealthProbe.
func (m *MockHealthProbe) Name() string { return m.ProbeName }

// Check implements HealthProbe.
func (m *MockHealthProbe) Check(ctx context.Context) error {
	if m.Panic {
		panic("probe exploded")
	}
	if m.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.Err
}

var (
	_ MetricsCollector = (*MockMetricsCollector)(nil)
	_ HealthProbe      = (*MockHealthProbe)(nil)
)
