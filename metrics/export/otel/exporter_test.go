package otel

import (
	"context"
	"sync"
	"testing"

	goContacts "github.com/MrEthical07/goContacts"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goContacts.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goContacts.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goContacts.MetricsSnapshot{
		Counters:   make(map[goContacts.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goContacts.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("contacts-test")

	src := &fakeSource{
		snapshot: goContacts.MetricsSnapshot{
			Counters: map[goContacts.MetricID]uint64{
				goContacts.MetricLoginSuccess: 3,
			},
			Histograms: map[goContacts.MetricID][]uint64{
				goContacts.MetricAuthorizeLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}

	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					got[m.Name] = dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					name := m.Name
					if le, ok := dp.Attributes.Value(attribute.Key("le")); ok {
						name += "{le=" + le.AsString() + "}"
					}
					got[name] = dp.Value
				}
			}
		}
	}
	if got["contacts_login_success_total"] != 3 {
		t.Fatalf("expected login success 3, got %d", got["contacts_login_success_total"])
	}
	if got["contacts_authorize_latency_seconds_bucket{le=0.005}"] != 1 {
		t.Fatalf("expected first bucket 1, got %d", got["contacts_authorize_latency_seconds_bucket{le=0.005}"])
	}
	if got["contacts_authorize_latency_seconds_bucket{le=+Inf}"] != 8 {
		t.Fatalf("expected cumulative +Inf bucket 8, got %d", got["contacts_authorize_latency_seconds_bucket{le=+Inf}"])
	}
	if got["contacts_authorize_latency_seconds_count"] != 8 {
		t.Fatalf("expected count 8, got %d", got["contacts_authorize_latency_seconds_count"])
	}
	if got["contacts_audit_dropped_total"] != 1 {
		t.Fatalf("expected audit dropped 1, got %d", got["contacts_audit_dropped_total"])
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("contacts-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewOTelExporter(meter, nil); err == nil {
		t.Fatal("expected error for nil engine")
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err == nil {
		t.Fatal("expected error for nil meter")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("contacts-test")

	src := &fakeSource{
		snapshot: goContacts.MetricsSnapshot{
			Counters: map[goContacts.MetricID]uint64{
				goContacts.MetricLoginSuccess: 1,
			},
			Histograms: map[goContacts.MetricID][]uint64{
				goContacts.MetricAuthorizeLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goContacts.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
