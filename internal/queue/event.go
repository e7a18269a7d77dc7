// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/apartment-management/internal/model"
)

// VisitorQueueName is the durable queue carrying visitor events.
const VisitorQueueName = "visitor.events"

// Visitor event kinds.
const (
	VisitorRegistered = "visitor.registered"
	VisitorRemoved    = "visitor.removed"
)

// VisitorEvent is published when a visitor is logged or removed.  It carries
// enough for the gate log without a database round trip.
type VisitorEvent struct {
	Type        string    `json:"type"`
	VisitorID   uint64    `json:"visitor_id"`
	ApartmentID uint64    `json:"apartment_id"`
	Name        string    `json:"name"`
	Purpose     string    `json:"purpose"`
	Status      string    `json:"status"`
	ExpectedAt  string    `json:"expected_at"`
	ActorID     uint64    `json:"actor_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewVisitorEvent builds an event of the given kind for v.
func NewVisitorEvent(kind string, v *model.Visitor, actorID uint64, at time.Time) VisitorEvent {
	return VisitorEvent{
		Type:        kind,
		VisitorID:   v.ID,
		ApartmentID: v.ApartmentID,
		Name:        v.Name,
		Purpose:     v.Purpose,
		Status:      string(v.Status),
		ExpectedAt:  v.ExpectedAt.UTC().Format(time.RFC3339),
		ActorID:     actorID,
		OccurredAt:  at.UTC(),
	}
}
