package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/chime/internal/store"
)

const (
	// alarmGrace is how late a wall-clock alarm may be observed and
	// still fire normally.
	alarmGrace = 90 * time.Second

	// missGrace is the late threshold for timers, reminders and
	// pomodoro phases.
	missGrace = 60 * time.Second

	// refireGuard suppresses a second fire of the same alarm within
	// this window of the previous one.
	refireGuard = 120 * time.Second
)

// NextTrigger returns the next instant the alarm should fire, or false
// if it is disabled.
//
// Snooze wins unconditionally, even when the snooze instant is already
// past — that signals "fire immediately". Otherwise the candidate is
// today at hour:minute; a fire within the last two minutes or a
// candidate more than the grace window in the past pushes it a day
// forward, and recurrence filters then walk forward (at most 7 days)
// to the first matching weekday. The grace check runs before the
// weekday walk so the two compose.
func NextTrigger(a store.Alarm, now time.Time) (time.Time, bool) {
	if !a.Enabled {
		return time.Time{}, false
	}

	if a.SnoozedUntil != nil {
		return time.Unix(*a.SnoozedUntil, 0), true
	}

	target := time.Date(now.Year(), now.Month(), now.Day(), a.Hour, a.Minute, 0, 0, now.Location())

	if a.LastTriggered != nil && now.Sub(time.Unix(*a.LastTriggered, 0)) < refireGuard {
		target = target.AddDate(0, 0, 1)
	} else if !target.After(now) && now.Sub(target) >= alarmGrace {
		target = target.AddDate(0, 0, 1)
	}

	switch a.Recurring {
	case "once", "daily":
		return target, true

	case "weekdays":
		for isWeekend(target.Weekday()) {
			target = target.AddDate(0, 0, 1)
		}
		return target, true

	case "weekends":
		for !isWeekend(target.Weekday()) {
			target = target.AddDate(0, 0, 1)
		}
		return target, true

	default:
		days, err := parseDaySet(a.Recurring)
		if err != nil {
			// Malformed custom filter: recover with the raw candidate.
			return target, true
		}
		for i := 0; i < 7; i++ {
			if days[mondayIndex(target.Weekday())] {
				return target, true
			}
			target = target.AddDate(0, 0, 1)
		}
		return target, true
	}
}

// matchesRecurrence reports whether the alarm's recurrence admits the
// given weekday. "once" and "daily" admit every day; a malformed custom
// filter admits every day as well, mirroring NextTrigger's fallback.
func matchesRecurrence(recurring string, weekday time.Weekday) bool {
	switch recurring {
	case "once", "daily":
		return true
	case "weekdays":
		return !isWeekend(weekday)
	case "weekends":
		return isWeekend(weekday)
	default:
		days, err := parseDaySet(recurring)
		if err != nil {
			return true
		}
		return days[mondayIndex(weekday)]
	}
}

// parseDaySet parses a comma-separated weekday-index set with 0=Monday,
// e.g. "0,2,4" for Monday/Wednesday/Friday.
func parseDaySet(s string) ([7]bool, error) {
	var days [7]bool
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return days, err
		}
		if n < 0 || n > 6 {
			return days, strconv.ErrRange
		}
		days[n] = true
	}
	return days, nil
}

// mondayIndex converts Go's Sunday-based weekday to the 0=Monday
// convention used by the recurrence filter.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

func isWeekend(w time.Weekday) bool {
	return w == time.Saturday || w == time.Sunday
}
