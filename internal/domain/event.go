package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DerogationEventType names a derogation lifecycle transition
type DerogationEventType string

const (
	DerogationCreated  DerogationEventType = "derogation.created"
	DerogationUpdated  DerogationEventType = "derogation.updated"
	DerogationDeleted  DerogationEventType = "derogation.deleted"
	DerogationRestored DerogationEventType = "derogation.restored"
)

// DerogationEvent is emitted after a derogation transition has been committed
type DerogationEvent struct {
	Type         DerogationEventType `json:"type"`
	DerogationID uuid.UUID           `json:"derogationId"`
	NumRef       string              `json:"numRef"`
	Actor        string              `json:"actor"`
	IsActive     bool                `json:"isActive"`
	Lines        []TransferLine      `json:"lines,omitempty"`
	OccurredAt   time.Time           `json:"occurredAt"`
}

// EventPublisher delivers committed derogation events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event DerogationEvent) error
}
