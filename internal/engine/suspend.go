package engine

import (
	"context"
	"time"

	"github.com/sadopc/chime/internal/store"
)

// runSuspendDetector samples the wall clock at the poll interval. A
// jump larger than the gap threshold between consecutive samples means
// the process was not running (system suspend, SIGSTOP, heavy stall);
// the missed span is reconciled before lastTick is refreshed, so the
// scheduler loops stay deferred until the store is consistent again.
func (e *Engine) runSuspendDetector(ctx context.Context) {
	e.log.Info("suspend detector started", "threshold", e.opts.GapThreshold)
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	prev := e.opts.Now()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("suspend detector stopped")
			return
		case <-ticker.C:
			now := e.opts.Now()
			if gap := now.Sub(prev); gap > e.opts.GapThreshold {
				e.log.Warn("suspend gap detected", "gap", gap, "from", prev, "to", now)
				e.Reconcile(prev, now)
			}
			e.mu.Lock()
			e.lastTick = now
			e.mu.Unlock()
			prev = now
		}
	}
}

// Reconcile replays the span (gapStart, gapEnd] against every entity
// kind under its configured policy. Alarms are always report-missed:
// shifting a wall-clock alarm would fire it at a meaningless hour.
func (e *Engine) Reconcile(gapStart, gapEnd time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := 0
	total += e.reconcileTimers(gapStart, gapEnd)
	total += e.reconcileAlarms(gapStart, gapEnd)
	total += e.reconcileReminders(gapStart, gapEnd)
	total += e.reconcilePomodoro(gapStart, gapEnd)

	if total > 0 {
		e.emit.Emit(EventMissedItemsToast, ToastPayload{Count: total})
	}
	e.recomputeInhibitionLocked(gapEnd)
	e.log.Info("suspend gap reconciled", "missed", total)
}

// pauseShift returns the instant shifted as if the clock had stopped
// for the gap: an instant inside the gap lands exactly at the gap end,
// one beyond it moves by the full gap duration, and one before the gap
// is left alone.
func pauseShift(at, gapStart, gapEnd time.Time) time.Time {
	if !at.After(gapStart) {
		return at
	}
	if !at.After(gapEnd) {
		return gapEnd
	}
	return at.Add(gapEnd.Sub(gapStart))
}

func (e *Engine) reconcileTimers(gapStart, gapEnd time.Time) int {
	timers, err := e.store.Timers()
	if err != nil {
		e.log.Error("reconcile timers: load failed", "error", err)
		return 0
	}

	var missed []store.MissedItem
	changed := false
	for id, timer := range timers {
		if timer.Paused {
			continue
		}
		end := time.Unix(timer.EndTime, 0)

		if e.opts.TimerPolicy == PolicyPauseShift {
			shifted := pauseShift(end, gapStart, gapEnd)
			if !shifted.Equal(end) {
				timer.EndTime = shifted.Unix()
				timers[id] = timer
				changed = true
			}
			continue
		}

		if end.After(gapEnd) || gapEnd.Sub(end) <= missGrace {
			// Due after resume, or close enough that the scheduler loop
			// still fires it inside the grace window.
			continue
		}
		delete(timers, id)
		changed = true
		missed = append(missed, store.MissedItem{
			ID:       id,
			Type:     "timer",
			Label:    timer.Label,
			DueTime:  timer.EndTime,
			MissedAt: gapEnd.Unix(),
		})
	}

	if !changed {
		return 0
	}
	if err := e.store.SaveTimers(timers); err != nil {
		e.log.Error("reconcile timers: save failed", "error", err)
		return 0
	}
	added := 0
	if len(missed) > 0 {
		added = e.logMissedLocked(missed, gapEnd)
	}
	e.emit.Emit(EventTimersUpdated, timerList(timers))
	return added
}

func (e *Engine) reconcileAlarms(gapStart, gapEnd time.Time) int {
	alarms, err := e.store.Alarms()
	if err != nil {
		e.log.Error("reconcile alarms: load failed", "error", err)
		return 0
	}

	var missed []store.MissedItem
	changed := false
	for id, alarm := range alarms {
		if !alarm.Enabled || alarm.SnoozedUntil != nil {
			// A snoozed instant in the gap still fires immediately on
			// resume; the alarm loop handles it.
			continue
		}

		var lastMissed time.Time
		for day := gapStart; !day.After(gapEnd.AddDate(0, 0, 1)); day = day.AddDate(0, 0, 1) {
			due := time.Date(day.Year(), day.Month(), day.Day(), alarm.Hour, alarm.Minute, 0, 0, day.Location())
			if !due.After(gapStart) || due.After(gapEnd) {
				continue
			}
			// Occurrences close to the gap end still fire normally.
			if gapEnd.Sub(due) < alarmGrace {
				continue
			}
			if !matchesRecurrence(alarm.Recurring, due.Weekday()) {
				continue
			}
			if due.Unix() < alarm.CreatedAt {
				continue
			}
			if alarm.LastTriggered != nil && *alarm.LastTriggered >= due.Unix() {
				continue
			}
			missed = append(missed, store.MissedItem{
				ID:       id,
				Type:     "alarm",
				Label:    alarm.Label,
				DueTime:  due.Unix(),
				MissedAt: gapEnd.Unix(),
			})
			lastMissed = due
			if alarm.Recurring == "once" {
				break
			}
		}

		if !lastMissed.IsZero() {
			ts := lastMissed.Unix()
			alarm.LastTriggered = &ts
			if alarm.Recurring == "once" {
				alarm.Enabled = false
			}
			alarms[id] = alarm
			changed = true
		}
	}

	if !changed {
		return 0
	}
	if err := e.store.SaveAlarms(alarms); err != nil {
		e.log.Error("reconcile alarms: save failed", "error", err)
		return 0
	}
	added := e.logMissedLocked(missed, gapEnd)
	e.emit.Emit(EventAlarmsUpdated, alarmList(alarms, gapEnd))
	return added
}

func (e *Engine) reconcileReminders(gapStart, gapEnd time.Time) int {
	reminders, err := e.store.Reminders()
	if err != nil {
		e.log.Error("reconcile reminders: load failed", "error", err)
		return 0
	}

	var missed []store.MissedItem
	changed := false
	for id, reminder := range reminders {
		if !reminder.Enabled {
			continue
		}
		if reminder.OnlyWhileGaming {
			// Gaming-only reminders were not owed during the gap.
			continue
		}
		due := time.Unix(reminder.NextTrigger, 0)
		interval := time.Duration(reminder.FrequencyMinutes) * time.Minute

		if e.opts.ReminderPolicy == PolicyPauseShift {
			shifted := pauseShift(due, gapStart, gapEnd)
			if !shifted.Equal(due) {
				reminder.NextTrigger = shifted.Unix()
				reminders[id] = reminder
				changed = true
			}
			continue
		}

		if due.After(gapEnd) {
			continue
		}
		// Walk to the last occurrence inside the gap; everything before
		// it was irrecoverably missed, and it becomes the post-resume
		// due instant for the scheduler loop to judge.
		last := due
		for !last.Add(interval).After(gapEnd) {
			missed = append(missed, store.MissedItem{
				ID:       id,
				Type:     "reminder",
				Label:    reminder.Label,
				DueTime:  last.Unix(),
				MissedAt: gapEnd.Unix(),
			})
			last = last.Add(interval)
		}
		if !last.Equal(due) {
			reminder.NextTrigger = last.Unix()
			reminders[id] = reminder
			changed = true
		}
	}

	if !changed && len(missed) == 0 {
		return 0
	}
	if changed {
		if err := e.store.SaveReminders(reminders); err != nil {
			e.log.Error("reconcile reminders: save failed", "error", err)
			return 0
		}
		e.emit.Emit(EventRemindersUpdated, reminderList(reminders))
	}
	return e.logMissedLocked(missed, gapEnd)
}

func (e *Engine) reconcilePomodoro(gapStart, gapEnd time.Time) int {
	state, err := e.store.PomodoroState()
	if err != nil {
		e.log.Error("reconcile pomodoro: load failed", "error", err)
		return 0
	}
	if !state.Active {
		return 0
	}

	end := time.Unix(state.EndTime, 0)
	if e.opts.PomodoroPolicy == PolicyPauseShift {
		shifted := pauseShift(end, gapStart, gapEnd)
		if shifted.Equal(end) {
			return 0
		}
		delta := shifted.Sub(end)
		state.EndTime = shifted.Unix()
		state.StartTime = time.Unix(state.StartTime, 0).Add(delta).Unix()
		if err := e.store.SavePomodoroState(state); err != nil {
			e.log.Error("reconcile pomodoro: save failed", "error", err)
		}
		return 0
	}

	if end.After(gapEnd) || gapEnd.Sub(end) <= missGrace {
		return 0
	}

	phase := "focus"
	if state.IsBreak {
		phase = "break"
	}
	if err := e.creditPhase(state, state.Duration, !state.IsBreak, gapEnd); err != nil {
		e.log.Error("reconcile pomodoro: stats update failed", "error", err)
		return 0
	}
	if err := e.store.SavePomodoroState(store.PomodoroState{}); err != nil {
		e.log.Error("reconcile pomodoro: save failed", "error", err)
		return 0
	}
	e.emit.Emit(EventPomodoroStopped, nil)
	return e.logMissedLocked([]store.MissedItem{{
		ID:       "pomodoro",
		Type:     "pomodoro",
		Label:    "Pomodoro " + phase + " phase",
		DueTime:  state.EndTime,
		MissedAt: gapEnd.Unix(),
	}}, gapEnd)
}

// logMissedLocked appends to the missed-item log and notifies the UI.
// Returns the count actually added after deduplication.
func (e *Engine) logMissedLocked(items []store.MissedItem, now time.Time) int {
	if len(items) == 0 {
		return 0
	}
	added, err := e.store.AppendMissedItems(items)
	if err != nil {
		e.log.Error("missed items: append failed", "error", err)
		return 0
	}
	if added > 0 {
		all, err := e.store.MissedItems()
		if err == nil {
			e.emit.Emit(EventMissedItemsUpdated, all)
		}
		for _, item := range items {
			e.log.Info("missed item logged",
				"type", item.Type, "id", item.ID,
				"due", time.Unix(item.DueTime, 0), "observed", now)
		}
	}
	return added
}
