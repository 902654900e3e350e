package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/felixgeelhaar/carebook/adapter/cli"
	"github.com/felixgeelhaar/carebook/internal/availability/application/commands"
	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/spf13/cobra"
)

var (
	setPhysician   string
	setFile        string
	setDays        []string
	setStartHour   int
	setEndHour     int
	setMax         int
	setHolidays    []string
	setWindowStart string
	setWindowEnd   string
	setBlocks      []string
)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace a physician's policy",
	Long: `Replace a physician's booking policy, from a JSON file or from flags.

Blocked slots use "YYYY-MM-DD HH:MM-HH:MM [reason]".

Examples:
  carebook policy set -p 5f0c... --days mon,tue,wed,thu,fri --start 8 --end 17 --max 10
  carebook policy set -p 5f0c... --days mon --holiday 2026-12-25 --block "2026-10-19 09:00-10:00 rounds"
  carebook policy set -p 5f0c... --file policy.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.UpdatePolicyHandler == nil {
			return fmt.Errorf("policy updates require a database connection")
		}

		physicianID, err := parsePhysician(setPhysician)
		if err != nil {
			return err
		}

		var policy *domain.Policy
		if setFile != "" {
			policy, err = readPolicyFile(setFile)
		} else {
			policy, err = policyFromFlags()
		}
		if err != nil {
			return err
		}

		result, err := app.UpdatePolicyHandler.Handle(cmd.Context(), commands.UpdatePolicyCommand{
			PhysicianID: physicianID,
			ActorID:     app.ActorID,
			Policy:      policy,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Policy updated for %s\n", result.PhysicianID)
		if !result.Published {
			fmt.Fprintln(out, "  warning: change event not published; other processes refresh on expiry")
		}
		return nil
	},
}

func readPolicyFile(path string) (*domain.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	var policy domain.Policy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	return &policy, nil
}

func policyFromFlags() (*domain.Policy, error) {
	policy := &domain.Policy{
		DailyWindow:           &domain.DailyWindow{StartHour: setStartHour, EndHour: setEndHour},
		MaxAppointmentsPerDay: setMax,
	}

	for _, raw := range setDays {
		day, err := parseWeekday(raw)
		if err != nil {
			return nil, err
		}
		policy.WorkingDays = append(policy.WorkingDays, day)
	}

	for _, raw := range setHolidays {
		d, err := domain.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		policy.Holidays = append(policy.Holidays, d)
	}

	if setWindowStart != "" || setWindowEnd != "" {
		start, err := domain.ParseDate(setWindowStart)
		if err != nil {
			return nil, fmt.Errorf("--window-start: %w", err)
		}
		end, err := domain.ParseDate(setWindowEnd)
		if err != nil {
			return nil, fmt.Errorf("--window-end: %w", err)
		}
		policy.BookingWindow = &domain.DateRange{Start: start, End: end}
	}

	for _, raw := range setBlocks {
		block, err := parseBlock(raw)
		if err != nil {
			return nil, err
		}
		policy.BlockedTimeSlots = append(policy.BlockedTimeSlots, block)
	}

	return policy, nil
}

// parseWeekday accepts full or three-letter English day names.
func parseWeekday(raw string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if len(name) >= 3 {
		if day, ok := weekdays[name[:3]]; ok {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// parseBlock reads "YYYY-MM-DD HH:MM-HH:MM [reason]".
func parseBlock(raw string) (domain.BlockedTimeSlot, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return domain.BlockedTimeSlot{}, fmt.Errorf("invalid block %q, use \"YYYY-MM-DD HH:MM-HH:MM [reason]\"", raw)
	}

	date, err := domain.ParseDate(fields[0])
	if err != nil {
		return domain.BlockedTimeSlot{}, err
	}

	startRaw, endRaw, ok := strings.Cut(fields[1], "-")
	if !ok {
		return domain.BlockedTimeSlot{}, fmt.Errorf("invalid block range %q, use HH:MM-HH:MM", fields[1])
	}
	start, err := domain.ParseTimeOfDay(startRaw)
	if err != nil {
		return domain.BlockedTimeSlot{}, err
	}
	end, err := domain.ParseTimeOfDay(endRaw)
	if err != nil {
		return domain.BlockedTimeSlot{}, err
	}

	return domain.BlockedTimeSlot{
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Reason:    strings.Join(fields[2:], " "),
	}, nil
}

func init() {
	setCmd.Flags().StringVarP(&setPhysician, "physician", "p", "", "physician id (required)")
	setCmd.Flags().StringVarP(&setFile, "file", "f", "", "read the policy from a JSON file")
	setCmd.Flags().StringSliceVar(&setDays, "days", nil, "working days, e.g. mon,tue,wed")
	setCmd.Flags().IntVar(&setStartHour, "start", 8, "first working hour")
	setCmd.Flags().IntVar(&setEndHour, "end", 17, "hour work ends")
	setCmd.Flags().IntVar(&setMax, "max", 0, "max appointments per day (0 uses the default of 10)")
	setCmd.Flags().StringSliceVar(&setHolidays, "holiday", nil, "holiday date, YYYY-MM-DD (repeatable)")
	setCmd.Flags().StringVar(&setWindowStart, "window-start", "", "first bookable date")
	setCmd.Flags().StringVar(&setWindowEnd, "window-end", "", "last bookable date")
	setCmd.Flags().StringArrayVar(&setBlocks, "block", nil, "blocked slot, \"YYYY-MM-DD HH:MM-HH:MM [reason]\" (repeatable)")
}
