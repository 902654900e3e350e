package cli

import (
	"context"
	"time"

	internalApp "github.com/felixgeelhaar/carebook/internal/app"
	"github.com/felixgeelhaar/carebook/internal/availability/application/cache"
	"github.com/felixgeelhaar/carebook/internal/availability/application/commands"
	"github.com/felixgeelhaar/carebook/internal/availability/application/queries"
	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/google/uuid"
)

// App holds the CLI application dependencies.
type App struct {
	// Command Handlers
	UpdatePolicyHandler      *commands.UpdatePolicyHandler
	RecordAppointmentHandler *commands.RecordAppointmentHandler

	// Query Handlers
	GetDayAvailabilityHandler *queries.GetDayAvailabilityHandler
	ListBookableDatesHandler  *queries.ListBookableDatesHandler

	// Stored policies, read directly by "policy show"
	Policies domain.PolicyRepository

	// Availability cache, observed by "watch"
	Cache *cache.Cache

	// Operations
	Migrate        func(ctx context.Context) ([]string, error)
	StartConsumers func(ctx context.Context) error
	Ping           func(ctx context.Context) error
	StoreStates    func() map[string]string

	// Clinic time zone for parsing and printing appointment times
	Location *time.Location

	// Actor recorded on published events
	ActorID uuid.UUID
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	updatePolicyHandler *commands.UpdatePolicyHandler,
	recordAppointmentHandler *commands.RecordAppointmentHandler,
	getDayAvailabilityHandler *queries.GetDayAvailabilityHandler,
	listBookableDatesHandler *queries.ListBookableDatesHandler,
) *App {
	return &App{
		UpdatePolicyHandler:       updatePolicyHandler,
		RecordAppointmentHandler:  recordAppointmentHandler,
		GetDayAvailabilityHandler: getDayAvailabilityHandler,
		ListBookableDatesHandler:  listBookableDatesHandler,
		Location:                  time.UTC,
		ActorID:                   uuid.Nil,
	}
}

// NewAppFromContainer wires a CLI application to a container.
func NewAppFromContainer(c *internalApp.Container) *App {
	a := NewApp(
		c.UpdatePolicyHandler,
		c.RecordAppointmentHandler,
		c.GetDayAvailabilityHandler,
		c.ListBookableDatesHandler,
	)
	a.Policies = c.PolicyRepo
	a.Cache = c.Cache
	a.Migrate = c.Migrate
	a.StartConsumers = c.StartConsumers
	a.Ping = c.Ping
	a.StoreStates = c.StoreStates
	a.SetLocation(c.Location)
	a.SetActorID(c.ActorID)
	return a
}

// SetActorID updates the actor recorded on published events.
func (a *App) SetActorID(id uuid.UUID) {
	a.ActorID = id
}

// SetLocation updates the clinic time zone.
func (a *App) SetLocation(loc *time.Location) {
	if loc != nil {
		a.Location = loc
	}
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
