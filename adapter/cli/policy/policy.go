package policy

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Cmd is the policy command group
var Cmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage physician booking policies",
	Long:  `Show and replace the booking rules that decide a physician's availability.`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(setCmd)
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
