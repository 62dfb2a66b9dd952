package clima

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"clima/internal/types"
)

type mockStationRepo struct {
	mock.Mock
}

func (m *mockStationRepo) GetByID(ctx context.Context, id int64) (*types.Station, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*types.Station), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProvider struct {
	mock.Mock
	name    types.ProviderName
	enabled bool
}

func newMockProvider(name types.ProviderName) *mockProvider {
	return &mockProvider{name: name, enabled: true}
}

func (m *mockProvider) Name() types.ProviderName { return m.name }

func (m *mockProvider) Enabled() bool { return m.enabled }

func (m *mockProvider) Current(ctx context.Context, lat, lon float64) (*types.Reading, error) {
	args := m.Called(ctx, lat, lon)
	if r := args.Get(0); r != nil {
		return r.(*types.Reading), args.Error(1)
	}
	return nil, args.Error(1)
}

type recordedCall struct {
	provider types.ProviderName
	failed   bool
}

type fakeMetrics struct {
	mu        sync.Mutex
	calls     []recordedCall
	allFailed int
}

func (f *fakeMetrics) RecordProviderCall(_ context.Context, provider types.ProviderName, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{provider: provider, failed: err != nil})
}

func (f *fakeMetrics) RecordAllSourcesFailed(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allFailed++
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// captureLogger returns a JSON logger writing into buf.
func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// providerFailureLines decodes the "weather provider failed" records in buf.
func providerFailureLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var line map[string]any
		if err := json.Unmarshal(raw, &line); err != nil {
			t.Fatalf("decoding log line %q: %v", raw, err)
		}
		if line["msg"] == "weather provider failed" {
			lines = append(lines, line)
		}
	}
	return lines
}

func bogota() *types.Station {
	return &types.Station{ID: 5, Name: "Bogotá", Latitude: 4.6, Longitude: -74.1}
}

func readingWithTemp(t float64, units map[string]string) *types.Reading {
	return &types.Reading{Temperature: types.Ptr(t), Units: units}
}
