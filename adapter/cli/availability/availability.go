package availability

import (
	"fmt"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Cmd is the availability command group
var Cmd = &cobra.Command{
	Use:     "availability",
	Aliases: []string{"avail"},
	Short:   "Show bookable dates and times",
	Long:    `Show the dates a physician can be booked on and the open times on a date.`,
}

func init() {
	Cmd.AddCommand(datesCmd)
	Cmd.AddCommand(slotsCmd)
}

func parsePhysician(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--physician is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid physician id %q: %w", raw, err)
	}
	return id, nil
}

func parseOptionalDate(raw string) (domain.Date, error) {
	if raw == "" {
		return domain.Date{}, nil
	}
	return domain.ParseDate(raw)
}
