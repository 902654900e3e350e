package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/carebook/internal/availability/application/cache"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var watchPhysicians []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Consume change events and report cache refreshes",
	Long: `Consume policy and appointment change events from the event bus and
print each availability change the cache observes, until interrupted.

Only cached physicians are refreshed; --physician loads them up front.

Examples:
  carebook watch --physician 5f0c... --physician 9a1b...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.StartConsumers == nil || app.Cache == nil {
			return fmt.Errorf("watch requires the availability cache and event bus")
		}

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		for _, raw := range watchPhysicians {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid physician id %q: %w", raw, err)
			}
			snap := app.Cache.Get(ctx, id)
			fmt.Fprintf(out, "loaded %s (%s)\n", id, snap.Source)
		}

		stop := app.Cache.OnChange(func(n cache.ChangeNotice) {
			fmt.Fprintf(out, "%s policy_changed=%t appointments_changed=%t\n",
				n.PhysicianID, n.PolicyChanged, n.AppointmentsChanged)
		})
		defer stop()

		fmt.Fprintln(out, "Watching for availability changes (Ctrl+C to stop)...")
		err := app.StartConsumers(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringSliceVarP(&watchPhysicians, "physician", "p", nil, "physician id to keep cached (repeatable)")
	rootCmd.AddCommand(watchCmd)
}
