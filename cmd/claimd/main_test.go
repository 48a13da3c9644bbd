package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/claimd/internal/config"
	"github.com/fyrsmithlabs/claimd/internal/logging"
	"github.com/fyrsmithlabs/claimd/internal/telemetry"
)

func TestLoggingConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "CONSOLE"
	cfg.Logging.OTEL = true

	lc, err := loggingConfig(cfg, true)
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lc.Level)
	assert.Equal(t, logging.FormatConsole, lc.Format)
	assert.True(t, lc.Output.OTEL)
	assert.True(t, lc.Output.Stderr, "stdio mode keeps stdout for the protocol")

	lc, err = loggingConfig(cfg, false)
	require.NoError(t, err)
	assert.False(t, lc.Output.Stderr)

	cfg.Logging.Level = "loud"
	_, err = loggingConfig(cfg, false)
	assert.Error(t, err)
}

func TestTelemetryConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = "collector:4317"
	cfg.Telemetry.SampleRate = 0.25
	cfg.Telemetry.Insecure = false

	tc := telemetryConfig(cfg)
	assert.True(t, tc.Enabled)
	assert.True(t, tc.Metrics.Enabled)
	assert.Equal(t, "collector:4317", tc.Endpoint)
	assert.Equal(t, "grpc", tc.Protocol)
	assert.InDelta(t, 0.25, tc.Sampling.Rate, 1e-9)
	assert.Equal(t, version, tc.ServiceVersion)
	assert.False(t, tc.Logs.Enabled)
	require.NoError(t, tc.Validate())

	cfg.Logging.OTEL = true
	assert.True(t, telemetryConfig(cfg).Logs.Enabled)

	cfg.Telemetry.Enabled = false
	assert.False(t, telemetryConfig(cfg).Logs.Enabled)
}

type logSink struct {
	mu     sync.Mutex
	bodies []string
}

func (s *logSink) Export(_ context.Context, records []sdklog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.bodies = append(s.bodies, r.Body().AsString())
	}
	return nil
}

func (s *logSink) Shutdown(context.Context) error   { return nil }
func (s *logSink) ForceFlush(context.Context) error { return nil }

func TestOTELLogOutput(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.Enabled = true
	cfg.Logging.OTEL = true

	telCfg := telemetryConfig(cfg)
	telCfg.Metrics.Enabled = false
	sink := &logSink{}
	tel, err := telemetry.New(context.Background(), telCfg,
		telemetry.WithTraceExporter(tracetest.NewInMemoryExporter()),
		telemetry.WithLogExporter(sink),
	)
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	logCfg, err := loggingConfig(cfg, false)
	require.NoError(t, err)
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	require.NoError(t, err)

	logger.Info(context.Background(), "claim evaluated")
	require.NoError(t, tel.ForceFlush(context.Background()))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Contains(t, sink.bodies, "claim evaluated")
}

func TestLoadEngine(t *testing.T) {
	engine, err := loadEngine(config.VocabularyConfig{})
	require.NoError(t, err)
	assert.NotNil(t, engine)

	_, err = loadEngine(config.VocabularyConfig{Path: t.TempDir() + "/missing.yaml"})
	assert.Error(t, err)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// TestRun_HTTP starts the full server with the hash embedder and an
// embedded NATS server, then checks health and shutdown.
func TestRun_HTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	port := freePort(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLAIMD_SERVER_PORT", fmt.Sprint(port))
	t.Setenv("CLAIMD_VECTORSTORE_PATH", t.TempDir())
	t.Setenv("CLAIMD_AUDIT_ENABLED", "true")
	t.Setenv("CLAIMD_AUDIT_EMBEDDED", "true")
	t.Setenv("CLAIMD_LOGGING_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, options{})
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	client := &http.Client{Timeout: time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	resp, err := client.Get(base + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
