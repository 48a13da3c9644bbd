package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// InstrumentationName identifies claimd log records in OpenTelemetry.
const InstrumentationName = "github.com/fyrsmithlabs/claimd"

// newCore tees the enabled outputs and applies sampling on top.
// Redaction only wraps the stdout encoder; the OTEL bridge carries fields
// as attributes and relies on the collector's processors.
func newCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	cores := make([]zapcore.Core, 0, 2)

	if cfg.Output.Stdout {
		encoder, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return nil, err
		}
		sink := zapcore.Lock(os.Stdout)
		if cfg.Output.Stderr {
			sink = zapcore.Lock(os.Stderr)
		}
		cores = append(cores, zapcore.NewCore(encoder, sink, cfg.Level))
	}

	if cfg.Output.OTEL && otelProvider != nil {
		cores = append(cores, &levelFilterCore{
			Core:  otelzap.NewCore(InstrumentationName, otelzap.WithLoggerProvider(otelProvider)),
			allow: func(l zapcore.Level) bool { return l >= cfg.Level },
		})
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("no log output available: stdout disabled and no otel provider")
	}
	return newSampledCore(zapcore.NewTee(cores...), cfg.Sampling), nil
}
