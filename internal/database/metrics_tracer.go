package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pscheid92/votepulse/internal/metrics"
)

// MetricsTracer implements pgx.QueryTracer to collect per-query metrics.
// Repositories annotate their contexts with WithQueryName so labels stay
// low cardinality; unannotated queries fall back to the SQL verb.
type MetricsTracer struct{}

var _ pgx.QueryTracer = (*MetricsTracer)(nil)

type queryNameKey struct{}

type queryTraceKey struct{}

type queryTrace struct {
	startTime time.Time
	queryName string
}

// WithQueryName labels the next query issued under ctx for metrics.
func WithQueryName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, queryNameKey{}, name)
}

func (t *MetricsTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	name, ok := ctx.Value(queryNameKey{}).(string)
	if !ok {
		name = sqlVerb(data.SQL)
	}
	return context.WithValue(ctx, queryTraceKey{}, queryTrace{
		startTime: time.Now(),
		queryName: name,
	})
}

func (t *MetricsTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	trace, ok := ctx.Value(queryTraceKey{}).(queryTrace)
	if !ok {
		return
	}

	metrics.DBQueryDuration.WithLabelValues(trace.queryName).Observe(time.Since(trace.startTime).Seconds())
	if data.Err != nil {
		metrics.DBErrorsTotal.WithLabelValues(trace.queryName).Inc()
	}
}

// sqlVerb reduces raw SQL to its leading keyword so unnamed queries do
// not explode label cardinality.
func sqlVerb(sql string) string {
	sql = strings.TrimSpace(sql)
	if i := strings.IndexAny(sql, " \n\t"); i > 0 {
		return strings.ToLower(sql[:i])
	}
	if sql == "" {
		return "unknown"
	}
	return strings.ToLower(sql)
}
