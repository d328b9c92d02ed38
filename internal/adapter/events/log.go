package events

import (
	"context"

	"github.com/simaogato/budgetline-backend/internal/domain"
	applog "github.com/simaogato/budgetline-backend/internal/log"
)

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	Logger *applog.Logger
}

var _ domain.EventPublisher = LogPublisher{}

func (p LogPublisher) Publish(ctx context.Context, event domain.DerogationEvent) error {
	p.Logger.InfoContext(ctx, "derogation event",
		applog.FieldEvent, string(event.Type),
		applog.FieldID, event.DerogationID,
		applog.FieldNumRef, event.NumRef,
		applog.FieldActor, event.Actor)
	return nil
}
