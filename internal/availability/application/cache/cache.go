package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL          = 5 * time.Minute
	DefaultSize         = 1024
	DefaultFetchTimeout = 5 * time.Second
)

// ErrClosed is carried by snapshots served after Close.
var ErrClosed = errors.New("availability cache closed")

// Config configures the availability cache.
type Config struct {
	TTL            time.Duration
	Size           int
	FetchTimeout   time.Duration
	IndexBatchSize int
	Location       *time.Location
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		TTL:            DefaultTTL,
		Size:           DefaultSize,
		FetchTimeout:   DefaultFetchTimeout,
		IndexBatchSize: domain.DefaultIndexBatchSize,
		Location:       time.Local,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.Size <= 0 {
		c.Size = d.Size
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.IndexBatchSize <= 0 {
		c.IndexBatchSize = d.IndexBatchSize
	}
	if c.Location == nil {
		c.Location = d.Location
	}
	return c
}

// Option configures optional cache collaborators.
type Option func(*Cache)

// WithClock sets the clock used for expiry.
func WithClock(clock domain.Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithSnapshotStore adds a shared last known-good tier.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(c *Cache) { c.snapshots = store }
}

type entry struct {
	snap      *Snapshot
	seq       uint64
	expiresAt time.Time
	policySub domain.Subscription
}

// Cache memoizes per-physician snapshots for a TTL and refreshes them when
// change notifications arrive. It is safe for concurrent use.
type Cache struct {
	policies     domain.PolicyRepository
	appointments domain.AppointmentFeed
	snapshots    SnapshotStore
	builder      domain.IndexBuilder
	clock        domain.Clock
	logger       *slog.Logger
	cfg          Config

	group singleflight.Group

	// mu guards every field below up to closed. It is never held across I/O.
	mu             sync.Mutex
	entries        *lru.Cache[uuid.UUID, *entry]
	notifier       domain.ChangeNotifier
	appointmentSub domain.Subscription
	seq            uint64
	fetching       map[uuid.UUID]int
	invalidated    map[uuid.UUID]uint64
	closed         bool

	listenersMu sync.Mutex
	nextID      uint64
	listeners   map[uint64]func(ChangeNotice)
}

// New creates a cache over the policy and appointment stores.
func New(policies domain.PolicyRepository, appointments domain.AppointmentFeed, cfg Config, opts ...Option) (*Cache, error) {
	cfg = cfg.withDefaults()

	c := &Cache{
		policies:     policies,
		appointments: appointments,
		cfg:          cfg,
		builder:      domain.IndexBuilder{BatchSize: cfg.IndexBatchSize, Location: cfg.Location},
		fetching:     make(map[uuid.UUID]int),
		invalidated:  make(map[uuid.UUID]uint64),
		listeners:    make(map[uint64]func(ChangeNotice)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = domain.SystemClock{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	// The callback runs inside lru calls made with mu held; it must not take mu.
	entries, err := lru.NewWithEvict(cfg.Size, func(physicianID uuid.UUID, e *entry) {
		if e.policySub != nil {
			e.policySub.Unsubscribe()
		}
		c.logger.Debug("availability entry evicted", "physician_id", physicianID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create availability cache: %w", err)
	}
	c.entries = entries

	return c, nil
}

// Get returns the physician's snapshot. A hit within the TTL returns the
// stored snapshot without touching the stores. Failures never surface as
// errors: the last known-good data, or an empty default, is returned with
// Err set.
func (c *Cache) Get(ctx context.Context, physicianID uuid.UUID) *Snapshot {
	if snap := c.cached(physicianID); snap != nil {
		return snap
	}
	return c.load(ctx, physicianID)
}

func (c *Cache) cached(physicianID uuid.UUID) *Snapshot {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(physicianID)
	if !ok || !now.Before(e.expiresAt) {
		return nil
	}
	return e.snap
}

func (c *Cache) load(ctx context.Context, physicianID uuid.UUID) *Snapshot {
	v, _, _ := c.group.Do(physicianID.String(), func() (any, error) {
		return c.fetch(ctx, physicianID), nil
	})
	return v.(*Snapshot)
}

func (c *Cache) fetch(ctx context.Context, physicianID uuid.UUID) *Snapshot {
	if c.isClosed() {
		return c.fallback(ctx, physicianID, ErrClosed)
	}

	seq := c.beginFetch(physicianID)
	defer c.endFetch(physicianID)

	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	fetchedAt := c.clock.Now()
	start := time.Now()

	var (
		policy *domain.Policy
		appts  []domain.BookedAppointment
	)
	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() error {
		p, err := c.policies.FindByPhysician(gctx, physicianID)
		if err != nil {
			return fmt.Errorf("read policy: %w", err)
		}
		policy = p
		return nil
	})
	g.Go(func() error {
		list, err := c.appointments.ListByPhysician(gctx, physicianID)
		if err != nil {
			return fmt.Errorf("read appointments: %w", err)
		}
		appts = list
		return nil
	})
	err := g.Wait()

	var index *domain.BookingIndex
	if err == nil {
		index, err = c.builder.Build(fetchCtx, appts)
	}
	if err != nil {
		c.logger.Warn("availability fetch failed",
			"physician_id", physicianID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return c.fallback(ctx, physicianID, err)
	}

	snap := &Snapshot{
		PhysicianID: physicianID,
		Policy:      policy,
		Index:       index,
		FetchedAt:   fetchedAt,
		Source:      SourceFresh,
	}

	c.logger.Debug("availability fetched",
		"physician_id", physicianID,
		"configured", policy != nil,
		"bookings", index.Total(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	notice, current := c.store(physicianID, snap, seq)
	if !current {
		c.logger.Debug("availability fetch superseded", "physician_id", physicianID)
		return snap
	}
	if notice.Changed() {
		c.emit(notice)
	}
	c.saveRecord(ctx, physicianID, Record{Policy: policy, Appointments: appts, FetchedAt: fetchedAt})

	return snap
}

// beginFetch numbers a fetch in start order.
func (c *Cache) beginFetch(physicianID uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.fetching[physicianID]++
	return c.seq
}

func (c *Cache) endFetch(physicianID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetching[physicianID]--
	if c.fetching[physicianID] <= 0 {
		delete(c.fetching, physicianID)
		delete(c.invalidated, physicianID)
	}
}

// store swaps in the snapshot of fetch seq. It reports false when the fetch
// is outdated: a later fetch is already cached, or the entry was invalidated
// after the fetch started. An outdated result is kept only as an expired
// entry when nothing is cached, so it can serve as the stale fallback.
func (c *Cache) store(physicianID uuid.UUID, snap *Snapshot, seq uint64) (ChangeNotice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ChangeNotice{}, false
	}

	old, had := c.entries.Peek(physicianID)
	if had && old.seq > seq {
		return ChangeNotice{}, false
	}

	e := &entry{snap: snap, seq: seq, expiresAt: snap.FetchedAt.Add(c.cfg.TTL)}
	if c.invalidated[physicianID] > seq {
		if had {
			return ChangeNotice{}, false
		}
		e.expiresAt = time.Time{}
		if c.notifier != nil {
			e.policySub = c.notifier.SubscribePolicyChanges(physicianID, c.onPolicyChanged)
		}
		c.entries.Add(physicianID, e)
		return ChangeNotice{}, false
	}

	var notice ChangeNotice
	if had {
		e.policySub = old.policySub
		notice = diff(physicianID, old.snap, snap)
	} else if c.notifier != nil {
		e.policySub = c.notifier.SubscribePolicyChanges(physicianID, c.onPolicyChanged)
	}
	c.entries.Add(physicianID, e)
	return notice, true
}

func (c *Cache) fallback(ctx context.Context, physicianID uuid.UUID, cause error) *Snapshot {
	c.mu.Lock()
	e, ok := c.entries.Peek(physicianID)
	c.mu.Unlock()
	if ok {
		return e.snap.withFailure(SourceStale, cause)
	}

	if record := c.loadRecord(ctx, physicianID); record != nil {
		index := domain.BuildIndex(record.Appointments, c.cfg.Location)
		return &Snapshot{
			PhysicianID: physicianID,
			Policy:      record.Policy,
			Index:       index,
			FetchedAt:   record.FetchedAt,
			Source:      SourceStale,
			Err:         cause,
		}
	}

	return &Snapshot{
		PhysicianID: physicianID,
		Index:       domain.BuildIndex(nil, c.cfg.Location),
		FetchedAt:   c.clock.Now(),
		Source:      SourceDefault,
		Err:         cause,
	}
}

func (c *Cache) loadRecord(ctx context.Context, physicianID uuid.UUID) *Record {
	if c.snapshots == nil {
		return nil
	}
	// The caller's context may be what failed the fetch.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FetchTimeout)
	defer cancel()

	record, err := c.snapshots.Load(ctx, physicianID)
	if err != nil {
		c.logger.Warn("failed to load availability snapshot",
			"physician_id", physicianID,
			"error", err,
		)
		return nil
	}
	return record
}

func (c *Cache) saveRecord(ctx context.Context, physicianID uuid.UUID, record Record) {
	if c.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FetchTimeout)
	defer cancel()

	if err := c.snapshots.Save(ctx, physicianID, record); err != nil {
		c.logger.Warn("failed to save availability snapshot",
			"physician_id", physicianID,
			"error", err,
		)
	}
}

// Invalidate marks the physician's entry expired. The data is kept as the
// stale fallback for the next failed fetch. Fetches already in flight
// cannot store their result as fresh, and the next Get does not join them.
func (c *Cache) Invalidate(physicianID uuid.UUID) {
	c.mu.Lock()
	c.seq++
	if e, ok := c.entries.Peek(physicianID); ok {
		e.expiresAt = time.Time{}
	}
	if c.fetching[physicianID] > 0 {
		c.invalidated[physicianID] = c.seq
	}
	c.mu.Unlock()

	c.group.Forget(physicianID.String())
}

// Refresh invalidates and refetches a cached physician. Physicians that are
// not cached are left alone. A failed refresh leaves the entry expired.
func (c *Cache) Refresh(ctx context.Context, physicianID uuid.UUID) {
	c.mu.Lock()
	cached := c.entries.Contains(physicianID)
	c.mu.Unlock()
	if !cached {
		return
	}

	c.Invalidate(physicianID)

	snap := c.load(ctx, physicianID)
	if snap.Err != nil {
		c.logger.Warn("availability refresh failed",
			"physician_id", physicianID,
			"error", snap.Err,
		)
		return
	}
	c.logger.Debug("availability refreshed", "physician_id", physicianID)
}

func (c *Cache) onPolicyChanged(physicianID uuid.UUID) {
	c.Refresh(context.Background(), physicianID)
}

func (c *Cache) onAppointmentsChanged(physicianID uuid.UUID) {
	c.Refresh(context.Background(), physicianID)
}

// Watch subscribes the cache to change notifications. Every cached and
// future entry gets a policy subscription, and one appointment subscription
// covers all physicians. Calling Watch again has no effect.
func (c *Cache) Watch(notifier domain.ChangeNotifier) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.notifier != nil || notifier == nil {
		return
	}
	c.notifier = notifier
	c.appointmentSub = notifier.SubscribeAppointmentChanges(c.onAppointmentsChanged)

	for _, physicianID := range c.entries.Keys() {
		if e, ok := c.entries.Peek(physicianID); ok && e.policySub == nil {
			e.policySub = notifier.SubscribePolicyChanges(physicianID, c.onPolicyChanged)
		}
	}
}

// OnChange registers fn for change notices and returns its unsubscribe func.
func (c *Cache) OnChange(fn func(ChangeNotice)) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners[id] = fn

	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Cache) emit(notice ChangeNotice) {
	c.listenersMu.Lock()
	fns := make([]func(ChangeNotice), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	c.logger.Info("availability changed",
		"physician_id", notice.PhysicianID,
		"policy_changed", notice.PolicyChanged,
		"appointments_changed", notice.AppointmentsChanged,
	)
	for _, fn := range fns {
		fn(notice)
	}
}

// Len returns the number of cached physicians.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func (c *Cache) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close releases every subscription and drops all entries.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.appointmentSub != nil {
		c.appointmentSub.Unsubscribe()
		c.appointmentSub = nil
	}
	c.entries.Purge()
	return nil
}
