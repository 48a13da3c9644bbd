package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ErrNoConnection is returned when the publisher was built without a connection.
var ErrNoConnection = errors.New("audit: no NATS connection")

// Headers set on every published message.
const (
	HeaderEventType    = "Claimd-Event-Type"
	HeaderEvaluationID = "Claimd-Evaluation-Id"
)

// NATSPublisher publishes events as JSON on core NATS subjects.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *zap.Logger
	owned  bool
}

// NewNATSPublisher wraps an existing connection. Close does not close it.
func NewNATSPublisher(nc *nats.Conn, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{nc: nc, logger: logger}
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("claimd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	p := NewNATSPublisher(nc, logger)
	p.owned = true
	return p, nil
}

// Publish sends e to Subject(e). Type and Timestamp are filled when empty.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if p.nc == nil {
		return ErrNoConnection
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Type == "" {
		e.Type = EventTypeDecided
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(Subject(e))
	msg.Data = data
	msg.Header.Set(HeaderEventType, e.Type)
	msg.Header.Set(HeaderEvaluationID, e.EvaluationID)

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}

	p.logger.Debug("published audit event",
		zap.String("subject", msg.Subject),
		zap.String("decision", e.Decision),
	)
	return nil
}

// Close drains the connection if the publisher opened it.
func (p *NATSPublisher) Close() error {
	if p.nc == nil || !p.owned {
		return nil
	}
	return p.nc.Drain()
}

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = NopPublisher{}
)
