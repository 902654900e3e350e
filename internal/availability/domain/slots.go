package domain

import "time"

const (
	// SlotInterval is the booking granularity.
	SlotInterval = 30 * time.Minute

	// LunchHour is never offered, whatever the policy says.
	LunchHour = 12
)

// GenerateSlots lists every slot boundary in [StartHour, EndHour), skipping
// the lunch hour. A missing or invalid window yields no slots.
func GenerateSlots(window *DailyWindow) []TimeOfDay {
	if window == nil || !window.Valid() {
		return []TimeOfDay{}
	}

	step := int(SlotInterval / time.Minute)
	slots := make([]TimeOfDay, 0, (window.EndHour-window.StartHour)*minutesPerHour/step)
	for hour := window.StartHour; hour < window.EndHour; hour++ {
		if hour == LunchHour {
			continue
		}
		for minute := 0; minute < minutesPerHour; minute += step {
			slots = append(slots, TimeOfDay{Hour: hour, Minute: minute})
		}
	}
	return slots
}
