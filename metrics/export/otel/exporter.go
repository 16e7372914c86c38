package otel

import (
	"context"
	"errors"
	"fmt"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter reads on every collection.
// *goContacts.Engine implements it.
type Source interface {
	MetricsSnapshot() goContacts.MetricsSnapshot
	AuditDropped() uint64
}

type histogramInstruments struct {
	id      goContacts.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter keeps the instruments registered on a Meter until Close.
type OTelExporter struct {
	source       Source
	registration metric.Registration

	counters     map[goContacts.MetricID]metric.Int64ObservableCounter
	histograms   []histogramInstruments
	auditDropped metric.Int64ObservableCounter
	bounds       []metric.ObserveOption
}

// NewOTelExporter registers instruments for every engine metric on meter.
func NewOTelExporter(meter metric.Meter, engine *goContacts.Engine) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter for any Source.
func NewOTelExporterFromSource(meter metric.Meter, source Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:   source,
		counters: make(map[goContacts.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	for _, le := range internaldefs.HistogramBounds {
		e.bounds = append(e.bounds, metric.WithAttributes(attribute.String("le", le)))
	}

	var observables []metric.Observable
	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = c
		observables = append(observables, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		h, err := newHistogramInstruments(meter, def)
		if err != nil {
			return nil, err
		}
		e.histograms = append(e.histograms, h)
		observables = append(observables, h.buckets, h.count)
	}

	dropped, err := meter.Int64ObservableCounter(
		"contacts_audit_dropped_total",
		metric.WithDescription("Audit events dropped because the sink buffer was full."),
	)
	if err != nil {
		return nil, fmt.Errorf("counter contacts_audit_dropped_total: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func newHistogramInstruments(meter metric.Meter, def internaldefs.HistogramDef) (histogramInstruments, error) {
	buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound."))
	if err != nil {
		return histogramInstruments{}, fmt.Errorf("gauge %s_bucket: %w", def.Name, err)
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count",
		metric.WithDescription(def.Help+" Total samples."))
	if err != nil {
		return histogramInstruments{}, fmt.Errorf("gauge %s_count: %w", def.Name, err)
	}
	return histogramInstruments{id: def.ID, buckets: buckets, count: count}, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for id, c := range e.counters {
		o.ObserveInt64(c, int64(snap.Counters[id]))
	}
	for _, h := range e.histograms {
		cum := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[h.id]))
		for i, opt := range e.bounds {
			o.ObserveInt64(h.buckets, int64(cum[i]), opt)
		}
		o.ObserveInt64(h.count, int64(cum[len(cum)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
