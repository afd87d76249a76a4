package observability

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const treeKindKey = attribute.Key("index.tree.kind")

var (
	once        sync.Once
	globalStats *IndexStats
)

// IndexStats groups the instruments recorded while the trees are built
// and measured. A nil *IndexStats records nothing.
type IndexStats struct {
	inserts       metric.Int64Counter
	buildDuration metric.Float64Histogram
	expectedCost  metric.Float64Histogram
	realizedCost  metric.Float64Histogram
	treeHeight    metric.Int64Histogram
	goroutines    metric.Int64ObservableUpDownCounter
}

func NewIndexStats(meter metric.Meter) *IndexStats {
	return &IndexStats{
		inserts: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"index.tree.inserts",
			metric.WithDescription(`The number of keys inserted into the trees.`),
		)),
		buildDuration: lo.Must[metric.Float64Histogram](meter.Float64Histogram(
			"index.tree.build.duration",
			metric.WithDescription(`The time spent on building a tree.`),
			metric.WithUnit("ms"),
		)),
		expectedCost: lo.Must[metric.Float64Histogram](meter.Float64Histogram(
			"index.tree.cost.expected",
			metric.WithDescription(`The expected search cost including the failed searches.`),
		)),
		realizedCost: lo.Must[metric.Float64Histogram](meter.Float64Histogram(
			"index.tree.cost.realized",
			metric.WithDescription(`The weighted depth of the successful searches.`),
		)),
		treeHeight: lo.Must[metric.Int64Histogram](meter.Int64Histogram(
			"index.tree.height",
			metric.WithDescription(`The height of the built tree.`),
		)),
		goroutines: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"index.core.goroutines",
			metric.WithDescription(`The application goroutines' info.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				ob.Observe(int64(runtime.NumGoroutine()))
				return nil
			}),
		)),
	}
}

func (stats *IndexStats) RecordInserts(ctx context.Context, kind string, n int64) {
	if stats == nil {
		return
	}
	stats.inserts.Add(ctx, n, metric.WithAttributes(treeKindKey.String(kind)))
}

func (stats *IndexStats) RecordBuild(ctx context.Context, kind string, elapsed time.Duration, height int) {
	if stats == nil {
		return
	}
	attrs := metric.WithAttributes(treeKindKey.String(kind))
	stats.buildDuration.Record(ctx, float64(elapsed.Microseconds())/1e3, attrs)
	stats.treeHeight.Record(ctx, int64(height), attrs)
}

func (stats *IndexStats) RecordCost(ctx context.Context, kind string, expected, realized float64) {
	if stats == nil {
		return
	}
	attrs := metric.WithAttributes(treeKindKey.String(kind))
	stats.expectedCost.Record(ctx, expected, attrs)
	stats.realizedCost.Record(ctx, realized, attrs)
}

// InitIndexStats registers the instruments on the global meter provider
// once, and starts the go runtime metrics.
func InitIndexStats(ctx context.Context, name string) *IndexStats {
	once.Do(func() {
		builder := &strings.Builder{}
		builder.WriteString("xindex/tree")
		builder.WriteString("/")
		if len(strings.TrimSpace(name)) > 0 {
			builder.WriteString(name)
		} else {
			builder.WriteString("default")
		}
		globalStats = NewIndexStats(otel.Meter(
			builder.String(),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		))
		_ = otelruntime.Start()
	})
	return globalStats
}
