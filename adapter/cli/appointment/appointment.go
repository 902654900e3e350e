package appointment

import (
	"github.com/spf13/cobra"
)

// Cmd is the appointment command group
var Cmd = &cobra.Command{
	Use:   "appointment",
	Short: "Record appointments from the booking system",
}

func init() {
	Cmd.AddCommand(recordCmd)
}
