package appointment

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/carebook/adapter/cli"
	"github.com/felixgeelhaar/carebook/internal/availability/application/commands"
	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const dateTimeLayout = "2006-01-02 15:04"

var (
	recordID        string
	recordPhysician string
	recordPatient   string
	recordAt        string
	recordStatus    string
	recordArchived  bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Create or update an appointment record",
	Long: `Record an appointment so it counts against the physician's availability.
Pass --id to update an existing record, e.g. to cancel it.

No conflict check is made against other appointments. A new record at a time
that is not an open slot is stored anyway, with a warning.

Examples:
  carebook appointment record -p 5f0c... --patient 77aa... --at "2026-10-19 09:30"
  carebook appointment record --id 1c2d... -p 5f0c... --at "2026-10-19 09:30" --status cancelled`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.RecordAppointmentHandler == nil {
			return fmt.Errorf("recording appointments requires a database connection")
		}

		ids := map[string]uuid.UUID{}
		for flag, raw := range map[string]string{"id": recordID, "physician": recordPhysician, "patient": recordPatient} {
			if raw == "" {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid --%s %q: %w", flag, raw, err)
			}
			ids[flag] = id
		}

		if recordAt == "" {
			return fmt.Errorf("--at is required")
		}
		at, err := time.ParseInLocation(dateTimeLayout, recordAt, app.Location)
		if err != nil {
			return fmt.Errorf("invalid --at, use \"YYYY-MM-DD HH:MM\": %w", err)
		}

		status := domain.AppointmentStatus(recordStatus)
		openSlot := true
		if ids["id"] == uuid.Nil && ids["physician"] != uuid.Nil && !recordArchived && status.OccupiesSlot() && app.Cache != nil {
			snap := app.Cache.Get(cmd.Context(), ids["physician"])
			openSlot = snap.Evaluator(domain.SystemClock{}).CanBook(at)
		}

		result, err := app.RecordAppointmentHandler.Handle(cmd.Context(), commands.RecordAppointmentCommand{
			AppointmentID: ids["id"],
			PhysicianID:   ids["physician"],
			PatientID:     ids["patient"],
			ActorID:       app.ActorID,
			DateTime:      at,
			Status:        status,
			Archived:      recordArchived,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Recorded appointment %s at %s\n", result.AppointmentID, at.Format(dateTimeLayout))
		if !openSlot {
			fmt.Fprintln(out, "  warning: not an open slot for this physician")
		}
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordID, "id", "", "existing appointment id to update")
	recordCmd.Flags().StringVarP(&recordPhysician, "physician", "p", "", "physician id (required)")
	recordCmd.Flags().StringVar(&recordPatient, "patient", "", "patient id")
	recordCmd.Flags().StringVar(&recordAt, "at", "", "start time in the clinic time zone, \"YYYY-MM-DD HH:MM\"")
	recordCmd.Flags().StringVar(&recordStatus, "status", string(domain.AppointmentStatusScheduled), "appointment status")
	recordCmd.Flags().BoolVar(&recordArchived, "archived", false, "mark the record archived")
}
