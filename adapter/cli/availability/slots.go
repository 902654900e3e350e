package availability

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/carebook/adapter/cli"
	"github.com/felixgeelhaar/carebook/internal/availability/application/queries"
	"github.com/spf13/cobra"
)

var (
	slotsPhysician string
	slotsDate      string
)

var slotsCmd = &cobra.Command{
	Use:     "slots",
	Aliases: []string{"times"},
	Short:   "Show open times on a date",
	Long: `Show the open appointment times for a physician on one date.

Examples:
  carebook availability slots --physician 5f0c...
  carebook availability slots --physician 5f0c... --date 2026-10-19`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetDayAvailabilityHandler == nil {
			return fmt.Errorf("availability lookup requires a database connection")
		}

		physicianID, err := parsePhysician(slotsPhysician)
		if err != nil {
			return err
		}
		date, err := parseOptionalDate(slotsDate)
		if err != nil {
			return err
		}

		day, err := app.GetDayAvailabilityHandler.Handle(cmd.Context(), queries.GetDayAvailabilityQuery{
			PhysicianID: physicianID,
			Date:        date,
		})
		if err != nil {
			return fmt.Errorf("failed to get availability: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s: %s\n", day.Date, day.Date.Weekday(), day.Status)
		fmt.Fprintln(out, strings.Repeat("=", 40))
		fmt.Fprintf(out, "Booked: %d of %d\n", day.Booked, day.Capacity)
		if day.Degraded {
			fmt.Fprintf(out, "(serving %s data, stores unavailable)\n", day.Source)
		}
		for _, block := range day.Blocked {
			fmt.Fprintf(out, "Blocked: %s-%s %s\n", block.StartTime, block.EndTime, block.Reason)
		}

		if len(day.AvailableTimes) == 0 {
			fmt.Fprintln(out, "\n  No open times.")
			return nil
		}

		fmt.Fprintln(out)
		for _, slot := range day.AvailableTimes {
			fmt.Fprintf(out, "  %s\n", slot)
		}
		if !day.Bookable {
			fmt.Fprintln(out, "\n  Times are open but the date cannot be booked.")
		}
		return nil
	},
}

func init() {
	slotsCmd.Flags().StringVarP(&slotsPhysician, "physician", "p", "", "physician id (required)")
	slotsCmd.Flags().StringVarP(&slotsDate, "date", "d", "", "date, YYYY-MM-DD (default today)")
}
