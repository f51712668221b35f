package engine

import (
	"sort"
	"time"

	"github.com/sadopc/chime/internal/store"
)

// ReminderParams carries the caller-controlled reminder fields.
type ReminderParams struct {
	Label            string
	FrequencyMinutes int
	Recurrences      int // -1 for infinite
	OnlyWhileGaming  bool
	ResetOnGameStart bool
	Sound            string
	Volume           int
	SubtleMode       bool
	PreventSleep     bool
}

// CreateReminder adds an enabled interval reminder, first due one full
// interval from now.
func (e *Engine) CreateReminder(p ReminderParams) (store.Reminder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.opts.Now()
	reminder := store.Reminder{
		ID:                newID(),
		Label:             p.Label,
		Enabled:           true,
		FrequencyMinutes:  p.FrequencyMinutes,
		NextTrigger:       now.Add(time.Duration(p.FrequencyMinutes) * time.Minute).Unix(),
		Recurrences:       p.Recurrences,
		TriggersRemaining: p.Recurrences,
		OnlyWhileGaming:   p.OnlyWhileGaming,
		ResetOnGameStart:  p.ResetOnGameStart,
		Sound:             p.Sound,
		Volume:            p.Volume,
		SubtleMode:        p.SubtleMode,
		PreventSleep:      p.PreventSleep,
		CreatedAt:         now.Unix(),
	}

	reminders, err := e.store.Reminders()
	if err != nil {
		return store.Reminder{}, err
	}
	reminders[reminder.ID] = reminder
	if err := e.store.SaveReminders(reminders); err != nil {
		return store.Reminder{}, err
	}

	e.emit.Emit(EventReminderCreated, reminder)
	e.emit.Emit(EventRemindersUpdated, reminderList(reminders))
	e.recomputeInhibitionLocked(now)
	return reminder, nil
}

// UpdateReminder rewrites a reminder's fields and restarts its
// schedule: the next trigger moves one new interval out and the
// remaining-trigger counter is reset.
func (e *Engine) UpdateReminder(id string, p ReminderParams) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reminders, err := e.store.Reminders()
	if err != nil {
		return false, err
	}
	reminder, ok := reminders[id]
	if !ok {
		return false, nil
	}

	now := e.opts.Now()
	reminder.Label = p.Label
	reminder.FrequencyMinutes = p.FrequencyMinutes
	reminder.Recurrences = p.Recurrences
	reminder.TriggersRemaining = p.Recurrences
	reminder.OnlyWhileGaming = p.OnlyWhileGaming
	reminder.ResetOnGameStart = p.ResetOnGameStart
	reminder.Sound = p.Sound
	reminder.Volume = p.Volume
	reminder.SubtleMode = p.SubtleMode
	reminder.PreventSleep = p.PreventSleep
	reminder.Enabled = true
	reminder.NextTrigger = now.Add(time.Duration(p.FrequencyMinutes) * time.Minute).Unix()
	reminders[id] = reminder
	if err := e.store.SaveReminders(reminders); err != nil {
		return false, err
	}

	e.emit.Emit(EventReminderUpdated, reminder)
	e.emit.Emit(EventRemindersUpdated, reminderList(reminders))
	e.recomputeInhibitionLocked(now)
	return true, nil
}

// DeleteReminder removes a reminder by id.
func (e *Engine) DeleteReminder(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reminders, err := e.store.Reminders()
	if err != nil {
		return false, err
	}
	if _, ok := reminders[id]; !ok {
		return false, nil
	}
	delete(reminders, id)
	if err := e.store.SaveReminders(reminders); err != nil {
		return false, err
	}

	e.emit.Emit(EventReminderDeleted, map[string]string{"id": id})
	e.emit.Emit(EventRemindersUpdated, reminderList(reminders))
	e.recomputeInhibitionLocked(e.opts.Now())
	return true, nil
}

// ToggleReminder flips enabled. Re-enabling reschedules a full interval
// out and restores the remaining-trigger counter if it was spent.
func (e *Engine) ToggleReminder(id string, enabled bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reminders, err := e.store.Reminders()
	if err != nil {
		return false, err
	}
	reminder, ok := reminders[id]
	if !ok {
		return false, nil
	}

	now := e.opts.Now()
	reminder.Enabled = enabled
	if enabled {
		reminder.NextTrigger = now.Add(time.Duration(reminder.FrequencyMinutes) * time.Minute).Unix()
		if reminder.Recurrences > 0 && reminder.TriggersRemaining <= 0 {
			reminder.TriggersRemaining = reminder.Recurrences
		}
	}
	reminders[id] = reminder
	if err := e.store.SaveReminders(reminders); err != nil {
		return false, err
	}

	e.emit.Emit(EventReminderUpdated, reminder)
	e.emit.Emit(EventRemindersUpdated, reminderList(reminders))
	e.recomputeInhibitionLocked(now)
	return true, nil
}

// Reminders returns all reminders, enabled first by next trigger.
func (e *Engine) Reminders() ([]store.Reminder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reminders, err := e.store.Reminders()
	if err != nil {
		return nil, err
	}
	return reminderList(reminders), nil
}

func reminderList(reminders map[string]store.Reminder) []store.Reminder {
	list := make([]store.Reminder, 0, len(reminders))
	for _, r := range reminders {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Enabled != list[j].Enabled {
			return list[i].Enabled
		}
		if list[i].NextTrigger != list[j].NextTrigger {
			return list[i].NextTrigger < list[j].NextTrigger
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// checkReminders is one scheduler pass: fire due reminders, advancing
// the schedule by exactly one interval per fire. A due instant observed
// more than the grace window late is logged as missed and the schedule
// advanced past now instead.
func (e *Engine) checkReminders(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reminders, err := e.store.Reminders()
	if err != nil {
		e.log.Error("reminder check: load failed", "error", err)
		return
	}

	var missed []store.MissedItem
	changed := false
	for id, reminder := range reminders {
		if !reminder.Enabled {
			continue
		}
		if reminder.OnlyWhileGaming && !e.gaming {
			continue
		}
		due := time.Unix(reminder.NextTrigger, 0)
		if due.After(now) {
			continue
		}

		interval := time.Duration(reminder.FrequencyMinutes) * time.Minute
		if now.Sub(due) > missGrace {
			missed = append(missed, store.MissedItem{
				ID:       id,
				Type:     "reminder",
				Label:    reminder.Label,
				DueTime:  reminder.NextTrigger,
				MissedAt: now.Unix(),
			})
			next := due
			for !next.After(now) {
				next = next.Add(interval)
			}
			reminder.NextTrigger = next.Unix()
			reminders[id] = reminder
			changed = true
			continue
		}

		reminder.NextTrigger = due.Add(interval).Unix()
		if reminder.Recurrences > 0 {
			reminder.TriggersRemaining--
			if reminder.TriggersRemaining <= 0 {
				reminder.Enabled = false
			}
		}
		reminders[id] = reminder
		changed = true

		e.emit.Emit(EventReminderTriggered, TriggerPayload{
			ID:     id,
			Label:  reminder.Label,
			Sound:  reminder.Sound,
			Volume: reminder.Volume,
			Subtle: reminder.SubtleMode,
		})
		e.log.Info("reminder triggered", "id", id, "label", reminder.Label)
	}

	if !changed {
		return
	}
	if err := e.store.SaveReminders(reminders); err != nil {
		e.log.Error("reminder check: save failed", "error", err)
		return
	}
	if len(missed) > 0 {
		e.logMissedLocked(missed, now)
	}
	e.emit.Emit(EventRemindersUpdated, reminderList(reminders))
	e.recomputeInhibitionLocked(now)
}
