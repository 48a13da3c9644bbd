package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	server, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name string
		e    Event
		want string
	}{
		{"with policy", Event{PolicyID: "HX-2024", EvaluationID: "abc"}, "claims.HX-2024.abc.decided"},
		{"unassigned", Event{EvaluationID: "abc"}, "claims.unassigned.abc.decided"},
		{"unsafe tokens", Event{PolicyID: "gold.plan *", EvaluationID: "a>b"}, "claims.gold_plan__.a_b.decided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Subject(tt.e))
		})
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	server := startTestNATSServer(t)

	sub, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	s, err := sub.SubscribeSync("claims.>")
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	pub, err := Connect(server.ClientURL(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer pub.Close()

	err = pub.Publish(context.Background(), Event{
		EvaluationID: "eval-1",
		PolicyID:     "gold",
		Disease:      "Diabetes Type 2",
		Decision:     "REJECTED",
		Reason:       "Waiting period not met: 151/730 days",
		Confidence:   0.8,
	})
	require.NoError(t, err)

	msg, err := s.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "claims.gold.eval-1.decided", msg.Subject)
	assert.Equal(t, EventTypeDecided, msg.Header.Get(HeaderEventType))
	assert.Equal(t, "eval-1", msg.Header.Get(HeaderEvaluationID))

	var got Event
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, EventTypeDecided, got.Type)
	assert.Equal(t, "REJECTED", got.Decision)
	assert.False(t, got.Timestamp.IsZero())
}

func TestNATSPublisher_Errors(t *testing.T) {
	var p NATSPublisher
	assert.ErrorIs(t, p.Publish(context.Background(), Event{}), ErrNoConnection)
	assert.NoError(t, p.Close())

	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	pub := NewNATSPublisher(nc, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.Publish(ctx, Event{EvaluationID: "x"}), context.Canceled)

	// Borrowed connections stay open.
	require.NoError(t, pub.Close())
	assert.True(t, nc.IsConnected())
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), Event{}))
}
