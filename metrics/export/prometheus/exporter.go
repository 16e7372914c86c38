package prometheus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/metrics/export/internaldefs"
)

// Source is what the exporter reads on every scrape.
// *goContacts.Engine implements it.
type Source interface {
	MetricsSnapshot() goContacts.MetricsSnapshot
	AuditDropped() uint64
}

// HealthSource is optionally implemented by a Source. When present the
// handler adds store and identity cache up gauges to each scrape.
type HealthSource interface {
	Health(ctx context.Context) goContacts.HealthStatus
}

// PrometheusExporter renders Engine metrics as Prometheus text.
type PrometheusExporter struct {
	source Source
}

// NewPrometheusExporter reads from engine.
func NewPrometheusExporter(engine *goContacts.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from any snapshot source.
func NewPrometheusExporterFromSource(source Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves the metrics at whatever path it is mounted on.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		bw := bufio.NewWriter(w)
		_ = p.write(bw)
		if hs, ok := p.healthSource(); ok {
			writeHealth(bw, hs.Health(r.Context()))
		}
		_ = bw.Flush()
	})
}

// Render returns the current metrics. It is empty while metrics are
// disabled and nothing was dropped.
func (p *PrometheusExporter) Render() string {
	var b strings.Builder
	_ = p.write(&b)
	return b.String()
}

func (p *PrometheusExporter) write(w io.Writer) error {
	if p == nil || p.source == nil {
		return nil
	}
	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return nil
	}

	for _, def := range internaldefs.CounterDefs {
		writeHeader(w, def.Name, def.Help, "counter")
		fmt.Fprintf(w, "%s %d\n", def.Name, snap.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		cum := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID]))
		writeHeader(w, def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", def.Name, le, cum[i])
		}
		fmt.Fprintf(w, "%s_count %d\n", def.Name, cum[len(cum)-1])
		// sums are not tracked
		fmt.Fprintf(w, "%s_sum 0\n", def.Name)
	}

	const droppedName = "contacts_audit_dropped_total"
	writeHeader(w, droppedName, "Audit events dropped because the sink buffer was full.", "counter")
	_, err := fmt.Fprintf(w, "%s %d\n", droppedName, dropped)
	return err
}

func (p *PrometheusExporter) healthSource() (HealthSource, bool) {
	if p == nil || p.source == nil {
		return nil, false
	}
	hs, ok := p.source.(HealthSource)
	return hs, ok
}

func writeHealth(w io.Writer, h goContacts.HealthStatus) {
	writeHeader(w, "contacts_store_up", "Whether the credential store answered the last ping.", "gauge")
	fmt.Fprintf(w, "contacts_store_up %d\n", up(h.Store))
	writeHeader(w, "contacts_identity_cache_up", "Whether the identity cache answered the last ping.", "gauge")
	fmt.Fprintf(w, "contacts_identity_cache_up %d\n", up(h.Cache))
}

func writeHeader(w io.Writer, name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, escapeHelp(help), name, kind)
}

func up(err error) int {
	if err != nil {
		return 0
	}
	return 1
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
