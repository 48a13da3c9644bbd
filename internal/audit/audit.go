// Package audit publishes claim decisions to NATS so downstream systems can
// record and react to them.
//
// Events carry the verdict and the scores only. Patient data never leaves
// the evaluation service.
package audit

import (
	"context"
	"strings"
	"time"
)

// EventTypeDecided is the type of every event published after an evaluation.
const EventTypeDecided = "claim.decided"

// UnassignedPolicy is the subject token used when a claim has no policy ID.
const UnassignedPolicy = "unassigned"

// Event describes one evaluated claim.
type Event struct {
	Type                   string    `json:"type"`
	EvaluationID           string    `json:"evaluation_id"`
	PolicyID               string    `json:"policy_id,omitempty"`
	Disease                string    `json:"disease"`
	Decision               string    `json:"decision"`
	Reason                 string    `json:"reason"`
	Confidence             float64   `json:"confidence"`
	CriticalContradictions int       `json:"critical_contradictions"`
	TotalConstraints       int       `json:"total_constraints"`
	CDS                    float64   `json:"cds_score"`
	ERG                    float64   `json:"erg_score"`
	PAI                    float64   `json:"pai_score"`
	Timestamp              time.Time `json:"timestamp"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Subject returns claims.{policy}.{evaluation}.decided with both tokens
// made safe for NATS.
func Subject(e Event) string {
	policy := subjectToken(e.PolicyID)
	if policy == "" {
		policy = UnassignedPolicy
	}
	return "claims." + policy + "." + subjectToken(e.EvaluationID) + ".decided"
}

// subjectToken replaces characters NATS treats as separators or wildcards.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}
