package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Content semantic attributes.
const (
	ContentKeyKey  = attribute.Key("content.key")
	CacheClassKey  = attribute.Key("cache.class")
	AdPlacementKey = attribute.Key("ad.placement")
	AdVerdictKey   = attribute.Key("ad.verdict") // approved | <rejection reason>
	OperatorKey    = attribute.Key("operator.name")
)

// ContentMetrics records cache and ad-validation activity. A nil *ContentMetrics is valid
// and records nothing.
type ContentMetrics struct {
	CacheHits         metric.Int64Counter
	CacheMisses       metric.Int64Counter
	CacheLoads        metric.Int64Counter
	CacheLoadFailures metric.Int64Counter
	CacheStaleServed  metric.Int64Counter
	CacheLoadDuration metric.Float64Histogram
	AdVerdicts        metric.Int64Counter
}

// NewContentMetrics registers the content instruments on meter.
func NewContentMetrics(meter metric.Meter) (*ContentMetrics, error) {
	var err error
	m := &ContentMetrics{}

	m.CacheHits, err = meter.Int64Counter("playhub.cache.hits",
		metric.WithDescription("Content cache lookups served from memory"),
		metric.WithUnit("{lookups}"),
	)
	if err != nil {
		return nil, err
	}
	m.CacheMisses, err = meter.Int64Counter("playhub.cache.misses",
		metric.WithDescription("Content cache lookups that required a load"),
		metric.WithUnit("{lookups}"),
	)
	if err != nil {
		return nil, err
	}
	m.CacheLoads, err = meter.Int64Counter("playhub.cache.loads",
		metric.WithDescription("Backing store reads issued by the content cache"),
		metric.WithUnit("{loads}"),
	)
	if err != nil {
		return nil, err
	}
	m.CacheLoadFailures, err = meter.Int64Counter("playhub.cache.load_failures",
		metric.WithDescription("Backing store reads that failed or timed out"),
		metric.WithUnit("{loads}"),
	)
	if err != nil {
		return nil, err
	}
	m.CacheStaleServed, err = meter.Int64Counter("playhub.cache.stale_served",
		metric.WithDescription("Lookups answered with an expired value"),
		metric.WithUnit("{lookups}"),
	)
	if err != nil {
		return nil, err
	}
	m.CacheLoadDuration, err = meter.Float64Histogram("playhub.cache.load_duration",
		metric.WithDescription("Backing store read latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	m.AdVerdicts, err = meter.Int64Counter("playhub.ads.verdicts",
		metric.WithDescription("Ad snippet validation outcomes"),
		metric.WithUnit("{snippets}"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ContentMetrics) CacheHit(ctx context.Context, class string) {
	if m == nil {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(CacheClassKey.String(class)))
}

func (m *ContentMetrics) CacheMiss(ctx context.Context, class string) {
	if m == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(CacheClassKey.String(class)))
}

func (m *ContentMetrics) CacheLoad(ctx context.Context, class string, ms float64, failed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(CacheClassKey.String(class))
	m.CacheLoads.Add(ctx, 1, attrs)
	m.CacheLoadDuration.Record(ctx, ms, attrs)
	if failed {
		m.CacheLoadFailures.Add(ctx, 1, attrs)
	}
}

func (m *ContentMetrics) CacheStale(ctx context.Context, class string) {
	if m == nil {
		return
	}
	m.CacheStaleServed.Add(ctx, 1, metric.WithAttributes(CacheClassKey.String(class)))
}

func (m *ContentMetrics) AdVerdict(ctx context.Context, placement, verdict string) {
	if m == nil {
		return
	}
	m.AdVerdicts.Add(ctx, 1, metric.WithAttributes(
		AdPlacementKey.String(placement),
		AdVerdictKey.String(verdict),
	))
}
