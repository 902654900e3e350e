package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/application/cache"
	"github.com/felixgeelhaar/carebook/internal/availability/application/commands"
	"github.com/felixgeelhaar/carebook/internal/availability/application/queries"
	"github.com/felixgeelhaar/carebook/internal/availability/application/subscribers"
	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/felixgeelhaar/carebook/internal/availability/infrastructure/resilient"
	"github.com/felixgeelhaar/carebook/internal/availability/infrastructure/snapshot"
	sharedApplication "github.com/felixgeelhaar/carebook/internal/shared/application"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/carebook/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/carebook/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/carebook/pkg/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	Location *time.Location
	Clock    domain.Clock
	ActorID  uuid.UUID

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis
	RedisClient *redis.Client

	// Repositories
	PolicyRepo      *resilient.PolicyRepository
	AppointmentRepo domain.AppointmentRepository
	AppointmentFeed *resilient.AppointmentFeed
	SnapshotStore   cache.SnapshotStore

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Events
	EventPublisher eventbus.Publisher
	EventConsumer  *eventbus.RabbitMQConsumer
	InProcessBus   *eventbus.InProcessEventBus
	ChangeNotifier *subscribers.ChangeNotifier

	// Availability
	Cache *cache.Cache

	// Command Handlers
	UpdatePolicyHandler      *commands.UpdatePolicyHandler
	RecordAppointmentHandler *commands.RecordAppointmentHandler

	// Query Handlers
	GetDayAvailabilityHandler *queries.GetDayAvailabilityHandler
	ListBookableDatesHandler  *queries.ListBookableDatesHandler
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	actorID, err := uuid.Parse(cfg.ActorID)
	if err != nil {
		return nil, fmt.Errorf("invalid CAREBOOK_ACTOR_ID: %w", err)
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Location: loc,
		Clock:    domain.SystemClock{},
		ActorID:  actorID,
	}

	if err := c.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := c.initRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initEvents(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initAvailability(); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	cfg := c.Config
	conn, err := database.Open(ctx, database.Config{
		Driver:     database.Driver(cfg.DatabaseDriver),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	c.Logger.Info("connected to database", "driver", c.DBDriver)

	// Local mode owns its schema; shared databases are migrated explicitly.
	if cfg.LocalMode {
		if _, err := migrations.Run(ctx, conn, c.Logger); err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	factory := NewRepositoryFactory(conn, resilient.BreakerConfig{
		FailureThreshold: uint32(max(cfg.StoreBreakerFailures, 1)),
		Timeout:          cfg.StoreBreakerTimeout,
		MaxRequests:      1,
	}, c.Logger)

	if c.PolicyRepo, err = factory.PolicyRepository(); err != nil {
		_ = conn.Close()
		return err
	}
	if c.AppointmentRepo, err = factory.AppointmentRepository(); err != nil {
		_ = conn.Close()
		return err
	}
	c.AppointmentFeed = factory.AppointmentFeed(c.AppointmentRepo)
	c.UnitOfWork = database.NewUnitOfWork(conn)
	return nil
}

// initRedis connects the snapshot tier. It is optional in development.
func (c *Container) initRedis(ctx context.Context) error {
	cfg := c.Config
	if cfg.RedisURL == "" {
		return nil
	}

	client, err := snapshot.Connect(ctx, cfg.RedisURL)
	if err != nil {
		if !cfg.IsDevelopment() {
			return err
		}
		c.Logger.Warn("Redis not available, snapshot tier disabled", "error", err)
		return nil
	}

	c.RedisClient = client
	c.SnapshotStore = snapshot.NewRedisStore(client, cfg.SnapshotTTL)
	c.Logger.Info("connected to Redis")
	return nil
}

// initEvents picks the RabbitMQ bus when configured and the in-process bus otherwise.
func (c *Container) initEvents() error {
	cfg := c.Config
	c.ChangeNotifier = subscribers.NewChangeNotifier(c.Logger)

	if cfg.RabbitMQURL != "" {
		err := c.initRabbitMQ()
		if err == nil {
			return nil
		}
		if !cfg.IsDevelopment() {
			return err
		}
		c.Logger.Warn("RabbitMQ not available, using in-process event bus", "error", err)
	}

	c.InProcessBus = eventbus.NewInProcessEventBus(c.Logger)
	c.InProcessBus.RegisterConsumer(c.ChangeNotifier)
	c.EventPublisher = c.InProcessBus
	return nil
}

func (c *Container) initRabbitMQ() error {
	cfg := c.Config

	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	registry := eventbus.NewConsumerRegistry(c.Logger)
	registry.Register(c.ChangeNotifier)

	consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
		URL:       cfg.RabbitMQURL,
		QueueName: cfg.RabbitMQQueue,
		Logger:    c.Logger,
	}, registry)
	if err != nil {
		_ = publisher.Close()
		return fmt.Errorf("failed to start RabbitMQ consumer: %w", err)
	}

	c.EventPublisher = publisher
	c.EventConsumer = consumer
	return nil
}

func (c *Container) initAvailability() error {
	cfg := c.Config

	opts := []cache.Option{cache.WithLogger(c.Logger), cache.WithClock(c.Clock)}
	if c.SnapshotStore != nil {
		opts = append(opts, cache.WithSnapshotStore(c.SnapshotStore))
	}

	availability, err := cache.New(c.PolicyRepo, c.AppointmentFeed, cache.Config{
		TTL:            cfg.CacheTTL,
		Size:           cfg.CacheSize,
		FetchTimeout:   cfg.FetchTimeout,
		IndexBatchSize: cfg.IndexBatchSize,
		Location:       c.Location,
	}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create availability cache: %w", err)
	}
	availability.Watch(c.ChangeNotifier)
	c.Cache = availability

	c.UpdatePolicyHandler = commands.NewUpdatePolicyHandler(c.PolicyRepo, c.EventPublisher, c.UnitOfWork, c.Cache, c.Clock, c.Logger)
	c.RecordAppointmentHandler = commands.NewRecordAppointmentHandler(c.AppointmentRepo, c.EventPublisher, c.UnitOfWork, c.Cache, c.Clock, c.Logger)

	c.GetDayAvailabilityHandler = queries.NewGetDayAvailabilityHandler(c.Cache, c.Clock)
	c.ListBookableDatesHandler = queries.NewListBookableDatesHandler(c.Cache, c.Clock, cfg.MaxRangeDays)
	return nil
}

// StartConsumers consumes bus events until ctx ends. The in-process bus
// delivers synchronously, so it only waits.
func (c *Container) StartConsumers(ctx context.Context) error {
	if c.EventConsumer != nil {
		return c.EventConsumer.Start(ctx)
	}
	return c.InProcessBus.Start(ctx)
}

// Migrate applies pending schema migrations.
func (c *Container) Migrate(ctx context.Context) ([]string, error) {
	return migrations.Run(ctx, c.DBConn, c.Logger)
}

// Ping checks the database connection.
func (c *Container) Ping(ctx context.Context) error {
	return c.DBConn.Ping(ctx)
}

// StoreStates reports the circuit breaker state of each store.
func (c *Container) StoreStates() map[string]string {
	return map[string]string{
		"policy":      c.PolicyRepo.State(),
		"appointment": c.AppointmentFeed.State(),
	}
}

// Close releases all resources.
func (c *Container) Close() {
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Warn("error closing availability cache", "error", err)
		}
	}

	if c.EventConsumer != nil {
		if err := c.EventConsumer.Close(); err != nil {
			c.Logger.Warn("error closing event consumer", "error", err)
		}
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}
