package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestInstrumented_RecordsCalls(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := newMetrics(mp.Meter(embeddingsInstrumentationName), zap.NewNop())

	hash, err := NewHashProvider(64)
	require.NoError(t, err)
	p := Instrument(hash, m)
	assert.Equal(t, 64, p.Dimension())

	ctx := context.Background()
	_, err = p.EmbedDocuments(ctx, []string{"diabetes", "cancer", "hernia"})
	require.NoError(t, err)
	_, err = p.EmbedQuery(ctx, "diabetes coverage")
	require.NoError(t, err)
	_, err = p.EmbedQuery(ctx, "")
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			found[md.Name] = true
			switch md.Name {
			case "claimd.embedding.generation_duration_seconds":
				hist, ok := md.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				var total uint64
				for _, dp := range hist.DataPoints {
					total += dp.Count
				}
				assert.Equal(t, uint64(3), total)
			case "claimd.embedding.errors_total":
				sum, ok := md.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				assert.Equal(t, int64(1), total)
			}
		}
	}
	assert.True(t, found["claimd.embedding.generation_duration_seconds"])
	assert.True(t, found["claimd.embedding.batch_size"])
	assert.True(t, found["claimd.embedding.errors_total"])
}

func TestInstrument_NilMetrics(t *testing.T) {
	hash, err := NewHashProvider(32)
	require.NoError(t, err)
	assert.Same(t, hash, Instrument(hash, nil))
}
