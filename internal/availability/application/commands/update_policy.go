package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/felixgeelhaar/carebook/internal/shared/application"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// UpdatePolicyCommand replaces a physician's booking policy.
type UpdatePolicyCommand struct {
	PhysicianID uuid.UUID
	ActorID     uuid.UUID
	Policy      *domain.Policy
}

// UpdatePolicyResult contains the result of a policy update.
type UpdatePolicyResult struct {
	PhysicianID uuid.UUID
	EventID     uuid.UUID
	Published   bool
}

// UpdatePolicyHandler handles the UpdatePolicyCommand.
type UpdatePolicyHandler struct {
	policyRepo domain.PolicyRepository
	publisher  eventbus.Publisher
	uow        application.UnitOfWork
	cache      CacheInvalidator
	clock      domain.Clock
	logger     *slog.Logger
}

// NewUpdatePolicyHandler creates a new UpdatePolicyHandler. publisher, uow
// and cache may be nil.
func NewUpdatePolicyHandler(
	policyRepo domain.PolicyRepository,
	publisher eventbus.Publisher,
	uow application.UnitOfWork,
	cache CacheInvalidator,
	clock domain.Clock,
	logger *slog.Logger,
) *UpdatePolicyHandler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdatePolicyHandler{
		policyRepo: policyRepo,
		publisher:  publisher,
		uow:        uow,
		cache:      cache,
		clock:      clock,
		logger:     logger,
	}
}

// Handle executes the UpdatePolicyCommand.
func (h *UpdatePolicyHandler) Handle(ctx context.Context, cmd UpdatePolicyCommand) (*UpdatePolicyResult, error) {
	if cmd.PhysicianID == uuid.Nil {
		return nil, ErrPhysicianRequired
	}
	if cmd.Policy == nil {
		return nil, ErrPolicyRequired
	}
	if err := cmd.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	policy := cmd.Policy.Clone()
	err := application.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		return h.policyRepo.Save(txCtx, cmd.PhysicianID, policy)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	if h.cache != nil {
		h.cache.Invalidate(cmd.PhysicianID)
	}

	event := domain.NewPolicyUpdated(cmd.PhysicianID, h.clock.Now())
	published := publishChange(ctx, h.publisher, h.logger, cmd.ActorID, &event)

	h.logger.Info("policy updated",
		"physician_id", cmd.PhysicianID,
		"working_days", len(policy.WorkingDays),
		"published", published,
	)

	return &UpdatePolicyResult{
		PhysicianID: cmd.PhysicianID,
		EventID:     event.EventID(),
		Published:   published,
	}, nil
}
