// Package persistence provides SQLite and PostgreSQL implementations of the
// availability repositories.
package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
)

// sqliteTimeLayout is fixed width so stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// policyColumns is a policy split into its table columns. Optional parts are
// nil when unset.
type policyColumns struct {
	workingDays   []int64
	dailyWindow   []byte
	holidays      []byte
	bookingWindow []byte
	maxPerDay     int
	blockedSlots  []byte
}

func splitPolicy(p *domain.Policy) (policyColumns, error) {
	cols := policyColumns{
		workingDays: make([]int64, 0, len(p.WorkingDays)),
		maxPerDay:   p.MaxAppointmentsPerDay,
	}
	for _, d := range p.WorkingDays {
		cols.workingDays = append(cols.workingDays, int64(d))
	}

	var err error
	if p.DailyWindow != nil {
		if cols.dailyWindow, err = json.Marshal(p.DailyWindow); err != nil {
			return cols, fmt.Errorf("encode daily window: %w", err)
		}
	}
	if p.BookingWindow != nil {
		if cols.bookingWindow, err = json.Marshal(p.BookingWindow); err != nil {
			return cols, fmt.Errorf("encode booking window: %w", err)
		}
	}
	if cols.holidays, err = json.Marshal(nonNil(p.Holidays)); err != nil {
		return cols, fmt.Errorf("encode holidays: %w", err)
	}
	if cols.blockedSlots, err = json.Marshal(nonNil(p.BlockedTimeSlots)); err != nil {
		return cols, fmt.Errorf("encode blocked slots: %w", err)
	}
	return cols, nil
}

func (c policyColumns) policy() (*domain.Policy, error) {
	p := &domain.Policy{MaxAppointmentsPerDay: c.maxPerDay}
	for _, d := range c.workingDays {
		p.WorkingDays = append(p.WorkingDays, time.Weekday(d))
	}
	if len(c.dailyWindow) > 0 {
		p.DailyWindow = &domain.DailyWindow{}
		if err := json.Unmarshal(c.dailyWindow, p.DailyWindow); err != nil {
			return nil, fmt.Errorf("decode daily window: %w", err)
		}
	}
	if len(c.bookingWindow) > 0 {
		p.BookingWindow = &domain.DateRange{}
		if err := json.Unmarshal(c.bookingWindow, p.BookingWindow); err != nil {
			return nil, fmt.Errorf("decode booking window: %w", err)
		}
	}
	if len(c.holidays) > 0 {
		if err := json.Unmarshal(c.holidays, &p.Holidays); err != nil {
			return nil, fmt.Errorf("decode holidays: %w", err)
		}
	}
	if len(c.blockedSlots) > 0 {
		if err := json.Unmarshal(c.blockedSlots, &p.BlockedTimeSlots); err != nil {
			return nil, fmt.Errorf("decode blocked slots: %w", err)
		}
	}
	return p, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
