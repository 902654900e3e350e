package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database and store breaker health",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}

		out := cmd.OutOrStdout()
		if app.Ping != nil {
			if err := app.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("database unreachable: %w", err)
			}
			fmt.Fprintln(out, "database: ok")
		}

		if app.StoreStates != nil {
			states := app.StoreStates()
			names := make([]string, 0, len(states))
			for name := range states {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "%s breaker: %s\n", name, states[name])
			}
		}

		fmt.Fprintln(out, "ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
