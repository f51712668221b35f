package engine

import (
	"slices"
	"strings"
	"time"
)

// recomputeInhibitionLocked re-derives the aggregate sleep-inhibition
// decision from every entity that can request it. The awake handle is a
// single shared resource: it is held while at least one contributor is
// active and released when the last one goes away. Callers must hold
// e.mu.
func (e *Engine) recomputeInhibitionLocked(now time.Time) {
	items := e.inhibitContributors(now)
	want := len(items) > 0

	if want == e.inhibitActive && slices.Equal(items, e.inhibitItems) {
		return
	}

	reason := strings.Join(items, ", ")
	if want && !e.inhibitActive {
		if err := e.wake.Acquire(reason); err != nil {
			// Inhibition is best effort. Scheduling continues without
			// the handle; the next recompute retries.
			e.log.Error("sleep inhibitor: acquire failed", "error", err)
			return
		}
		e.inhibitActive = true
		e.log.Info("sleep inhibitor acquired", "reason", reason)
	} else if !want && e.inhibitActive {
		e.wake.Release()
		e.inhibitActive = false
		e.log.Info("sleep inhibitor released")
	}

	e.inhibitItems = items
	e.emit.Emit(EventSleepInhibitorUpdated, InhibitPayload{
		Active: e.inhibitActive,
		Reason: reason,
		Items:  items,
	})
}

// inhibitContributors lists the labels of everything currently asking
// the system to stay awake, in a stable order.
func (e *Engine) inhibitContributors(now time.Time) []string {
	var items []string

	timers, err := e.store.Timers()
	if err == nil {
		for _, t := range timerList(timers) {
			if t.PreventSleep && !t.Paused {
				items = append(items, "timer: "+t.Label)
			}
		}
	} else {
		e.log.Error("inhibit: load timers failed", "error", err)
	}

	alarms, err := e.store.Alarms()
	if err == nil {
		for _, a := range alarmList(alarms, now) {
			if a.PreventSleepWindow <= 0 {
				continue
			}
			next, ok := NextTrigger(a, now)
			if !ok {
				continue
			}
			window := time.Duration(a.PreventSleepWindow) * time.Minute
			if next.Sub(now) <= window {
				items = append(items, "alarm: "+a.Label)
			}
		}
	} else {
		e.log.Error("inhibit: load alarms failed", "error", err)
	}

	reminders, err := e.store.Reminders()
	if err == nil {
		for _, r := range reminderList(reminders) {
			if !r.Enabled || !r.PreventSleep {
				continue
			}
			if r.OnlyWhileGaming && !e.gaming {
				continue
			}
			items = append(items, "reminder: "+r.Label)
		}
	} else {
		e.log.Error("inhibit: load reminders failed", "error", err)
	}

	state, err := e.store.PomodoroState()
	if err == nil && state.Active {
		settings, serr := e.store.UserSettings()
		if serr == nil && settings.PomodoroPreventSleep {
			items = append(items, "pomodoro session")
		}
	} else if err != nil {
		e.log.Error("inhibit: load pomodoro failed", "error", err)
	}

	return items
}
