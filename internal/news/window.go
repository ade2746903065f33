// Package news holds the pure text and calendar logic used to qualify articles:
// the recent-month window and the field extractors applied to article text.
package news

import (
	"time"
)

// daysPerMonth is the coarse month length used to find the window start.
// Calendar-exact arithmetic would change which months qualify near month edges.
const daysPerMonth = 30

// MonthWindow is an ordered set of month names, oldest first
type MonthWindow struct {
	months []time.Month
}

// ComputeWindow returns the months considered recent on now's local calendar date.
// A monthCount of 0 yields only now's month; 12 or more yields the whole year.
func ComputeWindow(now time.Time, monthCount int) MonthWindow {
	if monthCount < 0 {
		monthCount = 0
	}

	current := now.Month()
	if monthCount >= 12 {
		months := make([]time.Month, 0, 12)
		for i := 1; i <= 12; i++ {
			months = append(months, time.Month((int(current)+i-1)%12+1))
		}
		return MonthWindow{months: months}
	}

	start := now.AddDate(0, 0, -daysPerMonth*monthCount).Month()

	var months []time.Month
	if start <= current {
		for m := start; m <= current; m++ {
			months = append(months, m)
		}
	} else {
		for m := start; m <= time.December; m++ {
			months = append(months, m)
		}
		for m := time.January; m <= current; m++ {
			months = append(months, m)
		}
	}
	return MonthWindow{months: months}
}

// Contains reports whether m is inside the window
func (w MonthWindow) Contains(m time.Month) bool {
	for _, month := range w.months {
		if month == m {
			return true
		}
	}
	return false
}

// Names returns the full month names, oldest first
func (w MonthWindow) Names() []string {
	names := make([]string, len(w.months))
	for i, m := range w.months {
		names[i] = m.String()
	}
	return names
}
