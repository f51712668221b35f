package engine

import (
	"sort"
	"time"

	"github.com/sadopc/chime/internal/store"
)

// CreateTimer starts a one-shot countdown. Sound, volume and subtle
// mode are snapshotted from the current settings so a later settings
// change does not retroactively alter a running timer.
func (e *Engine) CreateTimer(seconds int, label string, preventSleep, autoSuspend bool) (store.Timer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings, err := e.store.UserSettings()
	if err != nil {
		return store.Timer{}, err
	}
	now := e.opts.Now()
	timer := store.Timer{
		ID:           newID(),
		Label:        label,
		Enabled:      true,
		Seconds:      seconds,
		EndTime:      now.Add(time.Duration(seconds) * time.Second).Unix(),
		Sound:        settings.TimerSound,
		Volume:       settings.TimerVolume,
		SubtleMode:   settings.TimerSubtleMode,
		AutoSuspend:  autoSuspend || settings.TimerAutoSuspend,
		PreventSleep: preventSleep,
		CreatedAt:    now.Unix(),
	}

	timers, err := e.store.Timers()
	if err != nil {
		return store.Timer{}, err
	}
	timers[timer.ID] = timer
	if err := e.store.SaveTimers(timers); err != nil {
		return store.Timer{}, err
	}

	e.emit.Emit(EventTimerCreated, timer)
	e.emit.Emit(EventTimersUpdated, timerList(timers))
	e.recomputeInhibitionLocked(now)
	return timer, nil
}

// CancelTimer destroys a timer without firing it. Returns false when
// the id is unknown.
func (e *Engine) CancelTimer(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	timers, err := e.store.Timers()
	if err != nil {
		return false, err
	}
	if _, ok := timers[id]; !ok {
		return false, nil
	}
	delete(timers, id)
	if err := e.store.SaveTimers(timers); err != nil {
		return false, err
	}

	e.emit.Emit(EventTimerCancelled, map[string]string{"id": id})
	e.emit.Emit(EventTimersUpdated, timerList(timers))
	e.recomputeInhibitionLocked(e.opts.Now())
	return true, nil
}

// PauseTimer freezes the remaining time. Pausing a paused timer is a
// no-op that still reports success.
func (e *Engine) PauseTimer(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	timers, err := e.store.Timers()
	if err != nil {
		return false, err
	}
	timer, ok := timers[id]
	if !ok {
		return false, nil
	}
	if timer.Paused {
		return true, nil
	}

	now := e.opts.Now()
	remaining := timer.EndTime - now.Unix()
	if remaining < 0 {
		remaining = 0
	}
	timer.Paused = true
	timer.PausedRemaining = remaining
	timers[id] = timer
	if err := e.store.SaveTimers(timers); err != nil {
		return false, err
	}

	e.emit.Emit(EventTimerPaused, timer)
	e.emit.Emit(EventTimersUpdated, timerList(timers))
	e.recomputeInhibitionLocked(now)
	return true, nil
}

// ResumeTimer restarts a paused timer with its frozen remaining time.
func (e *Engine) ResumeTimer(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	timers, err := e.store.Timers()
	if err != nil {
		return false, err
	}
	timer, ok := timers[id]
	if !ok {
		return false, nil
	}
	if !timer.Paused {
		return true, nil
	}

	now := e.opts.Now()
	timer.Paused = false
	timer.EndTime = now.Unix() + timer.PausedRemaining
	timer.PausedRemaining = 0
	timers[id] = timer
	if err := e.store.SaveTimers(timers); err != nil {
		return false, err
	}

	e.emit.Emit(EventTimerResumed, timer)
	e.emit.Emit(EventTimersUpdated, timerList(timers))
	e.recomputeInhibitionLocked(now)
	return true, nil
}

// ActiveTimers returns all timers, soonest to expire first, paused
// timers last.
func (e *Engine) ActiveTimers() ([]store.Timer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	timers, err := e.store.Timers()
	if err != nil {
		return nil, err
	}
	list := timerList(timers)
	return list, nil
}

func timerList(timers map[string]store.Timer) []store.Timer {
	list := make([]store.Timer, 0, len(timers))
	for _, t := range timers {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Paused != list[j].Paused {
			return !list[i].Paused
		}
		if list[i].EndTime != list[j].EndTime {
			return list[i].EndTime < list[j].EndTime
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// checkTimers is one scheduler pass: emit ticks for running timers and
// fire or log expired ones. An expiry observed more than the grace
// window late (suspend, process downtime) is logged as missed instead
// of firing.
func (e *Engine) checkTimers(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	timers, err := e.store.Timers()
	if err != nil {
		e.log.Error("timer check: load failed", "error", err)
		return
	}

	var missed []store.MissedItem
	changed := false
	for id, timer := range timers {
		if timer.Paused {
			continue
		}
		end := time.Unix(timer.EndTime, 0)
		if end.After(now) {
			e.emit.Emit(EventTimerTick, TimerTickPayload{ID: id, Remaining: timer.EndTime - now.Unix()})
			continue
		}

		delete(timers, id)
		changed = true
		if now.Sub(end) > missGrace {
			missed = append(missed, store.MissedItem{
				ID:       id,
				Type:     "timer",
				Label:    timer.Label,
				DueTime:  timer.EndTime,
				MissedAt: now.Unix(),
			})
			continue
		}
		e.emit.Emit(EventTimerCompleted, TriggerPayload{
			ID:          id,
			Label:       timer.Label,
			Sound:       timer.Sound,
			Volume:      timer.Volume,
			Subtle:      timer.SubtleMode,
			AutoSuspend: timer.AutoSuspend,
		})
		e.log.Info("timer completed", "id", id, "label", timer.Label)
	}

	if !changed {
		return
	}
	if err := e.store.SaveTimers(timers); err != nil {
		e.log.Error("timer check: save failed", "error", err)
		return
	}
	if len(missed) > 0 {
		e.logMissedLocked(missed, now)
	}
	e.emit.Emit(EventTimersUpdated, timerList(timers))
	e.recomputeInhibitionLocked(now)
}
