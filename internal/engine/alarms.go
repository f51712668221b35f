package engine

import (
	"sort"
	"time"

	"github.com/sadopc/chime/internal/store"
)

// AlarmParams carries the caller-controlled alarm fields for create and
// update.
type AlarmParams struct {
	Label              string
	Hour               int
	Minute             int
	Recurring          string
	Sound              string
	Volume             int
	SnoozeDuration     int // minutes; 0 falls back to the global setting
	SubtleMode         bool
	AutoSuspend        bool
	PreventSleepWindow int // minutes
}

// CreateAlarm adds an enabled alarm.
func (e *Engine) CreateAlarm(p AlarmParams) (store.Alarm, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.opts.Now()
	alarm := store.Alarm{
		ID:                 newID(),
		Label:              p.Label,
		Enabled:            true,
		Hour:               p.Hour,
		Minute:             p.Minute,
		Recurring:          p.Recurring,
		Sound:              p.Sound,
		Volume:             p.Volume,
		SnoozeDuration:     p.SnoozeDuration,
		SubtleMode:         p.SubtleMode,
		AutoSuspend:        p.AutoSuspend,
		PreventSleepWindow: p.PreventSleepWindow,
		CreatedAt:          now.Unix(),
	}
	if alarm.Recurring == "" {
		alarm.Recurring = "once"
	}

	alarms, err := e.store.Alarms()
	if err != nil {
		return store.Alarm{}, err
	}
	alarms[alarm.ID] = alarm
	if err := e.store.SaveAlarms(alarms); err != nil {
		return store.Alarm{}, err
	}

	e.emit.Emit(EventAlarmCreated, alarm)
	e.emit.Emit(EventAlarmsUpdated, alarmList(alarms, now))
	e.recomputeInhibitionLocked(now)
	return alarm, nil
}

// UpdateAlarm rewrites an alarm's caller-controlled fields. The alarm
// is re-enabled and any pending snooze or trigger guard is cleared, so
// the edited schedule takes effect cleanly.
func (e *Engine) UpdateAlarm(id string, p AlarmParams) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	alarms, err := e.store.Alarms()
	if err != nil {
		return false, err
	}
	alarm, ok := alarms[id]
	if !ok {
		return false, nil
	}

	alarm.Label = p.Label
	alarm.Hour = p.Hour
	alarm.Minute = p.Minute
	alarm.Recurring = p.Recurring
	if alarm.Recurring == "" {
		alarm.Recurring = "once"
	}
	alarm.Sound = p.Sound
	alarm.Volume = p.Volume
	alarm.SnoozeDuration = p.SnoozeDuration
	alarm.SubtleMode = p.SubtleMode
	alarm.AutoSuspend = p.AutoSuspend
	alarm.PreventSleepWindow = p.PreventSleepWindow
	alarm.Enabled = true
	alarm.SnoozedUntil = nil
	alarm.LastTriggered = nil
	alarms[id] = alarm
	if err := e.store.SaveAlarms(alarms); err != nil {
		return false, err
	}

	now := e.opts.Now()
	e.emit.Emit(EventAlarmUpdated, alarm)
	e.emit.Emit(EventAlarmsUpdated, alarmList(alarms, now))
	e.recomputeInhibitionLocked(now)
	return true, nil
}

// DeleteAlarm removes an alarm by id.
func (e *Engine) DeleteAlarm(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	alarms, err := e.store.Alarms()
	if err != nil {
		return false, err
	}
	if _, ok := alarms[id]; !ok {
		return false, nil
	}
	delete(alarms, id)
	if err := e.store.SaveAlarms(alarms); err != nil {
		return false, err
	}

	now := e.opts.Now()
	e.emit.Emit(EventAlarmDeleted, map[string]string{"id": id})
	e.emit.Emit(EventAlarmsUpdated, alarmList(alarms, now))
	e.recomputeInhibitionLocked(now)
	return true, nil
}

// ToggleAlarm flips enabled. Disabling clears a pending snooze so a
// later re-enable computes a fresh schedule instead of firing a stale
// snooze.
func (e *Engine) ToggleAlarm(id string, enabled bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	alarms, err := e.store.Alarms()
	if err != nil {
		return false, err
	}
	alarm, ok := alarms[id]
	if !ok {
		return false, nil
	}
	alarm.Enabled = enabled
	alarm.SnoozedUntil = nil
	if enabled {
		alarm.LastTriggered = nil
	}
	alarms[id] = alarm
	if err := e.store.SaveAlarms(alarms); err != nil {
		return false, err
	}

	now := e.opts.Now()
	e.emit.Emit(EventAlarmUpdated, alarm)
	e.emit.Emit(EventAlarmsUpdated, alarmList(alarms, now))
	e.recomputeInhibitionLocked(now)
	return true, nil
}

// SnoozeAlarm pushes the alarm's next fire out by its per-alarm snooze
// duration, falling back to the global setting when unset. The alarm is
// re-enabled, so snoozing a just-fired once-alarm works.
func (e *Engine) SnoozeAlarm(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	alarms, err := e.store.Alarms()
	if err != nil {
		return false, err
	}
	alarm, ok := alarms[id]
	if !ok {
		return false, nil
	}

	minutes := alarm.SnoozeDuration
	if minutes <= 0 {
		settings, err := e.store.UserSettings()
		if err != nil {
			return false, err
		}
		minutes = settings.SnoozeDuration
	}

	now := e.opts.Now()
	until := now.Add(time.Duration(minutes) * time.Minute).Unix()
	alarm.SnoozedUntil = &until
	alarm.Enabled = true
	alarms[id] = alarm
	if err := e.store.SaveAlarms(alarms); err != nil {
		return false, err
	}

	e.emit.Emit(EventAlarmSnoozed, alarm)
	e.emit.Emit(EventAlarmsUpdated, alarmList(alarms, now))
	e.recomputeInhibitionLocked(now)
	e.log.Info("alarm snoozed", "id", id, "minutes", minutes)
	return true, nil
}

// Alarms returns all alarms, enabled ones first ordered by next
// trigger, disabled ones after ordered by hour:minute.
func (e *Engine) Alarms() ([]store.Alarm, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	alarms, err := e.store.Alarms()
	if err != nil {
		return nil, err
	}
	return alarmList(alarms, e.opts.Now()), nil
}

func alarmList(alarms map[string]store.Alarm, now time.Time) []store.Alarm {
	list := make([]store.Alarm, 0, len(alarms))
	for _, a := range alarms {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		ni, iok := NextTrigger(list[i], now)
		nj, jok := NextTrigger(list[j], now)
		if iok != jok {
			return iok
		}
		if iok && !ni.Equal(nj) {
			return ni.Before(nj)
		}
		if list[i].Hour != list[j].Hour {
			return list[i].Hour < list[j].Hour
		}
		if list[i].Minute != list[j].Minute {
			return list[i].Minute < list[j].Minute
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// checkAlarms is one scheduler pass over the alarms: fire any whose
// next trigger is within the grace window, and log occurrences that
// slipped past it while the process was running.
func (e *Engine) checkAlarms(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	alarms, err := e.store.Alarms()
	if err != nil {
		e.log.Error("alarm check: load failed", "error", err)
		return
	}

	var missed []store.MissedItem
	changed := false
	for id, alarm := range alarms {
		next, ok := NextTrigger(alarm, now)
		if !ok {
			continue
		}

		if !next.After(now) {
			// Due. Within grace this fires; a snoozed instant fires no
			// matter how late, since snooze expresses explicit intent.
			wasSnoozed := alarm.SnoozedUntil != nil
			if !wasSnoozed && now.Sub(next) >= alarmGrace {
				continue // NextTrigger advances these; nothing to fire
			}

			alarm.SnoozedUntil = nil
			if !wasSnoozed {
				ts := next.Unix()
				alarm.LastTriggered = &ts
			}
			if alarm.Recurring == "once" {
				alarm.Enabled = false
			}
			alarms[id] = alarm
			changed = true

			e.emit.Emit(EventAlarmTriggered, TriggerPayload{
				ID:          id,
				Label:       alarm.Label,
				Sound:       alarm.Sound,
				Volume:      alarm.Volume,
				Subtle:      alarm.SubtleMode,
				AutoSuspend: alarm.AutoSuspend,
			})
			e.log.Info("alarm triggered", "id", id, "label", alarm.Label, "snoozed", wasSnoozed)
			continue
		}

		// Not due now, but today's occurrence may have slipped past the
		// grace window unobserved (e.g. the loop stalled). Log it once.
		if due, isMissed := e.missedOccurrence(alarm, now); isMissed {
			ts := due.Unix()
			alarm.LastTriggered = &ts
			if alarm.Recurring == "once" {
				alarm.Enabled = false
			}
			alarms[id] = alarm
			changed = true
			missed = append(missed, store.MissedItem{
				ID:       id,
				Type:     "alarm",
				Label:    alarm.Label,
				DueTime:  due.Unix(),
				MissedAt: now.Unix(),
			})
		}
	}

	if changed {
		if err := e.store.SaveAlarms(alarms); err != nil {
			e.log.Error("alarm check: save failed", "error", err)
			return
		}
		if len(missed) > 0 {
			e.logMissedLocked(missed, now)
		}
		e.emit.Emit(EventAlarmsUpdated, alarmList(alarms, now))
	}
	// Look-ahead windows open and close with the clock, so the
	// inhibition decision is re-derived even on quiet passes.
	e.recomputeInhibitionLocked(now)
}

// missedOccurrence reports whether today's raw occurrence of the alarm
// passed more than the grace window ago without firing.
func (e *Engine) missedOccurrence(alarm store.Alarm, now time.Time) (time.Time, bool) {
	if !alarm.Enabled || alarm.SnoozedUntil != nil {
		return time.Time{}, false
	}
	due := time.Date(now.Year(), now.Month(), now.Day(), alarm.Hour, alarm.Minute, 0, 0, now.Location())
	if due.After(now) || now.Sub(due) < alarmGrace {
		return time.Time{}, false
	}
	if !matchesRecurrence(alarm.Recurring, due.Weekday()) {
		return time.Time{}, false
	}
	if due.Unix() < alarm.CreatedAt {
		return time.Time{}, false
	}
	if alarm.LastTriggered != nil && *alarm.LastTriggered >= due.Unix() {
		return time.Time{}, false
	}
	return due, true
}
