package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/carebook/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/carebook/internal/shared/domain"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

var (
	ErrPhysicianRequired = errors.New("physician id is required")
	ErrPolicyRequired    = errors.New("policy is required")
	ErrDateTimeRequired  = errors.New("appointment date and time is required")
)

// CacheInvalidator drops a physician's cached snapshot. *cache.Cache implements it.
type CacheInvalidator interface {
	Invalidate(physicianID uuid.UUID)
}

// publishChange sends event after its write has committed. A failed publish
// is logged and reported in the result, never returned.
func publishChange(ctx context.Context, publisher eventbus.Publisher, logger *slog.Logger, actorID uuid.UUID, event sharedDomain.DomainEvent) bool {
	if publisher == nil {
		return false
	}
	application.ApplyEventMetadata([]sharedDomain.DomainEvent{event}, sharedDomain.NewEventMetadata(actorID))
	if err := eventbus.PublishEvent(ctx, publisher, event); err != nil {
		logger.Warn("failed to publish change event",
			"routing_key", event.RoutingKey(),
			"aggregate_id", event.AggregateID(),
			"error", err,
		)
		return false
	}
	return true
}
