package queries

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/carebook/internal/availability/application/cache"
	"github.com/google/uuid"
)

var (
	ErrPhysicianRequired = errors.New("physician id is required")
	ErrInvalidRange      = errors.New("range end must not be before its start")
	ErrRangeTooLarge     = errors.New("date range exceeds the maximum span")
)

// SnapshotSource supplies availability snapshots. *cache.Cache implements it.
type SnapshotSource interface {
	Get(ctx context.Context, physicianID uuid.UUID) *cache.Snapshot
}
