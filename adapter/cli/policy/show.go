package policy

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/carebook/adapter/cli"
	"github.com/spf13/cobra"
)

var showPhysician string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a physician's stored policy as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Policies == nil {
			return fmt.Errorf("policy lookup requires a database connection")
		}

		physicianID, err := parsePhysician(showPhysician)
		if err != nil {
			return err
		}

		policy, err := app.Policies.FindByPhysician(cmd.Context(), physicianID)
		if err != nil {
			return fmt.Errorf("failed to load policy: %w", err)
		}

		out := cmd.OutOrStdout()
		if policy == nil {
			fmt.Fprintln(out, "No policy configured; the physician cannot be booked.")
			return nil
		}

		data, err := json.MarshalIndent(policy, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	},
}

func init() {
	showCmd.Flags().StringVarP(&showPhysician, "physician", "p", "", "physician id (required)")
}
