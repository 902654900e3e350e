package availability

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/carebook/adapter/cli"
	"github.com/felixgeelhaar/carebook/internal/availability/application/queries"
	"github.com/spf13/cobra"
)

var (
	datesPhysician string
	datesFrom      string
	datesTo        string
	datesAll       bool
)

var datesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List bookable dates",
	Long: `List the dates a physician can be booked on. Defaults to the next 30 days.

Examples:
  carebook availability dates --physician 5f0c...
  carebook availability dates --physician 5f0c... --from 2026-11-01 --to 2026-11-30 --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ListBookableDatesHandler == nil {
			return fmt.Errorf("availability lookup requires a database connection")
		}

		physicianID, err := parsePhysician(datesPhysician)
		if err != nil {
			return err
		}
		from, err := parseOptionalDate(datesFrom)
		if err != nil {
			return err
		}
		to, err := parseOptionalDate(datesTo)
		if err != nil {
			return err
		}

		result, err := app.ListBookableDatesHandler.Handle(cmd.Context(), queries.ListBookableDatesQuery{
			PhysicianID: physicianID,
			From:        from,
			To:          to,
		})
		if err != nil {
			return fmt.Errorf("failed to list dates: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Bookable dates %s to %s\n", result.From, result.To)
		fmt.Fprintln(out, strings.Repeat("=", 40))
		if result.Degraded {
			fmt.Fprintf(out, "  (serving %s data, stores unavailable)\n", result.Source)
		}

		if datesAll {
			for _, day := range result.Days {
				mark := "  "
				if day.Bookable {
					mark = "* "
				}
				fmt.Fprintf(out, "%s%s %s  %s\n", mark, day.Date, day.Date.Weekday().String()[:3], day.Status)
			}
			return nil
		}

		if len(result.Dates) == 0 {
			fmt.Fprintln(out, "\n  No bookable dates in range.")
			return nil
		}
		for _, d := range result.Dates {
			fmt.Fprintf(out, "  %s %s\n", d, d.Weekday().String()[:3])
		}
		fmt.Fprintf(out, "\n%d bookable\n", len(result.Dates))
		return nil
	},
}

func init() {
	datesCmd.Flags().StringVarP(&datesPhysician, "physician", "p", "", "physician id (required)")
	datesCmd.Flags().StringVar(&datesFrom, "from", "", "first date, YYYY-MM-DD (default today)")
	datesCmd.Flags().StringVar(&datesTo, "to", "", "last date, YYYY-MM-DD (default from + 30 days)")
	datesCmd.Flags().BoolVarP(&datesAll, "all", "a", false, "show every date with its status")
}
