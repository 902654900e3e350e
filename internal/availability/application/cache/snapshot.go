package cache

import (
	"context"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/google/uuid"
)

// Source tells where a snapshot's data came from.
type Source int

const (
	// SourceFresh data was read from the stores within the TTL.
	SourceFresh Source = iota
	// SourceStale data is the last known-good copy served after a failed fetch.
	SourceStale
	// SourceDefault means nothing was known; the snapshot has no policy.
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceFresh:
		return "fresh"
	case SourceStale:
		return "stale"
	case SourceDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable pairing of a physician's policy and booking
// index. Callers must not modify it.
type Snapshot struct {
	PhysicianID uuid.UUID
	Policy      *domain.Policy
	Index       *domain.BookingIndex
	FetchedAt   time.Time
	Source      Source
	// Err is the fetch failure behind a stale or default snapshot.
	Err error
}

// Evaluator returns an evaluator over the snapshot.
func (s *Snapshot) Evaluator(clock domain.Clock) *domain.Evaluator {
	return domain.NewEvaluator(s.Policy, s.Index, clock, s.Index.Location())
}

// Degraded reports whether the snapshot was served after a fetch failure.
func (s *Snapshot) Degraded() bool {
	return s.Err != nil
}

func (s *Snapshot) withFailure(source Source, err error) *Snapshot {
	out := *s
	out.Source = source
	out.Err = err
	return &out
}

// Record is the shape of a snapshot kept in a SnapshotStore. The index is
// rebuilt from the appointments on load.
type Record struct {
	Policy       *domain.Policy             `json:"policy,omitempty"`
	Appointments []domain.BookedAppointment `json:"appointments"`
	FetchedAt    time.Time                  `json:"fetched_at"`
}

// SnapshotStore keeps last known-good records outside the process.
type SnapshotStore interface {
	// Load returns the stored record, or nil without error when none exists.
	Load(ctx context.Context, physicianID uuid.UUID) (*Record, error)
	Save(ctx context.Context, physicianID uuid.UUID, record Record) error
}

// ChangeNotice is delivered to OnChange listeners when a refresh changed
// what is known about a physician.
type ChangeNotice struct {
	PhysicianID         uuid.UUID
	PolicyChanged       bool
	AppointmentsChanged bool
}

// Changed reports whether either part changed.
func (n ChangeNotice) Changed() bool {
	return n.PolicyChanged || n.AppointmentsChanged
}

func diff(physicianID uuid.UUID, old, cur *Snapshot) ChangeNotice {
	return ChangeNotice{
		PhysicianID:         physicianID,
		PolicyChanged:       !old.Policy.Equal(cur.Policy),
		AppointmentsChanged: !old.Index.Equal(cur.Index),
	}
}
