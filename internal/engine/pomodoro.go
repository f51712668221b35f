package engine

import (
	"time"

	"github.com/sadopc/chime/internal/store"
)

// StartPomodoro begins a fresh cycle at session 1, work phase. Starting
// over an active session restarts from scratch.
func (e *Engine) StartPomodoro() (store.PomodoroState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings, err := e.store.UserSettings()
	if err != nil {
		return store.PomodoroState{}, err
	}

	now := e.opts.Now()
	duration := int64(settings.PomodoroWorkMinutes) * 60
	state := store.PomodoroState{
		Active:         true,
		IsBreak:        false,
		CurrentSession: 1,
		CurrentCycle:   1,
		StartTime:      now.Unix(),
		EndTime:        now.Unix() + duration,
		Duration:       duration,
	}
	if err := e.store.SavePomodoroState(state); err != nil {
		return store.PomodoroState{}, err
	}

	e.emit.Emit(EventPomodoroStarted, state)
	e.recomputeInhibitionLocked(now)
	e.log.Info("pomodoro started", "work_minutes", settings.PomodoroWorkMinutes)
	return state, nil
}

// StopPomodoro ends the session early, crediting the elapsed portion of
// the current phase to the stats. Stopping an inactive session reports
// false.
func (e *Engine) StopPomodoro() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.store.PomodoroState()
	if err != nil {
		return false, err
	}
	if !state.Active {
		return false, nil
	}

	now := e.opts.Now()
	if err := e.creditPhase(state, elapsedSeconds(state, now), false, now); err != nil {
		return false, err
	}
	if err := e.store.SavePomodoroState(store.PomodoroState{}); err != nil {
		return false, err
	}

	e.emit.Emit(EventPomodoroStopped, nil)
	e.recomputeInhibitionLocked(now)
	e.log.Info("pomodoro stopped")
	return true, nil
}

// SkipPomodoroPhase ends the current phase immediately, crediting the
// elapsed portion, and advances to the next phase.
func (e *Engine) SkipPomodoroPhase() (store.PomodoroState, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.store.PomodoroState()
	if err != nil {
		return store.PomodoroState{}, false, err
	}
	if !state.Active {
		return store.PomodoroState{}, false, nil
	}

	now := e.opts.Now()
	next, err := e.advancePhaseLocked(state, elapsedSeconds(state, now), now)
	if err != nil {
		return store.PomodoroState{}, false, err
	}
	return next, true, nil
}

// PomodoroStatus returns the current session state.
func (e *Engine) PomodoroStatus() (store.PomodoroState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.PomodoroState()
}

// PomodoroSummary returns the accumulated stats record.
func (e *Engine) PomodoroSummary() (store.PomodoroStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.PomodoroStats()
}

// checkPomodoro is one scheduler pass: tick the running phase, advance
// it when its end time passes, or terminate the session entirely when
// the end was observed more than the grace window late.
func (e *Engine) checkPomodoro(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.store.PomodoroState()
	if err != nil {
		e.log.Error("pomodoro check: load failed", "error", err)
		return
	}
	if !state.Active {
		return
	}

	end := time.Unix(state.EndTime, 0)
	if end.After(now) {
		e.emit.Emit(EventPomodoroTick, PomodoroTickPayload{
			Remaining: state.EndTime - now.Unix(),
			IsBreak:   state.IsBreak,
			Session:   state.CurrentSession,
			Cycle:     state.CurrentCycle,
		})
		return
	}

	if now.Sub(end) > missGrace {
		// The phase end slipped by unobserved. The session cannot
		// meaningfully continue, so credit the full intended phase and
		// terminate.
		phase := "focus"
		if state.IsBreak {
			phase = "break"
		}
		if err := e.creditPhase(state, state.Duration, !state.IsBreak, now); err != nil {
			e.log.Error("pomodoro check: stats update failed", "error", err)
			return
		}
		if err := e.store.SavePomodoroState(store.PomodoroState{}); err != nil {
			e.log.Error("pomodoro check: save failed", "error", err)
			return
		}
		e.logMissedLocked([]store.MissedItem{{
			ID:       "pomodoro",
			Type:     "pomodoro",
			Label:    "Pomodoro " + phase + " phase",
			DueTime:  state.EndTime,
			MissedAt: now.Unix(),
		}}, now)
		e.emit.Emit(EventPomodoroStopped, nil)
		e.recomputeInhibitionLocked(now)
		e.log.Info("pomodoro terminated, phase end missed", "phase", phase)
		return
	}

	if _, err := e.advancePhaseLocked(state, state.Duration, now); err != nil {
		e.log.Error("pomodoro check: advance failed", "error", err)
	}
}

// advancePhaseLocked credits the finishing phase and writes the next
// one. After a work phase comes a short break, or a long break when the
// session count has reached the configured threshold; after a short
// break the next session starts, and after a long break a new cycle
// starts at session 1.
func (e *Engine) advancePhaseLocked(state store.PomodoroState, creditSeconds int64, now time.Time) (store.PomodoroState, error) {
	settings, err := e.store.UserSettings()
	if err != nil {
		return store.PomodoroState{}, err
	}

	completedWork := !state.IsBreak
	if err := e.creditPhase(state, creditSeconds, completedWork, now); err != nil {
		return store.PomodoroState{}, err
	}

	next := state
	if completedWork {
		// The store floors this on save, but a hand-edited database
		// could still carry a zero; never divide by it.
		sessionsUntilLong := settings.PomodoroSessionsUntilLongBreak
		if sessionsUntilLong < 1 {
			sessionsUntilLong = 1
		}
		next.IsBreak = true
		if state.CurrentSession%sessionsUntilLong == 0 {
			next.BreakType = "long"
			next.Duration = int64(settings.PomodoroLongBreakMinutes) * 60
		} else {
			next.BreakType = "short"
			next.Duration = int64(settings.PomodoroBreakMinutes) * 60
		}
		e.emit.Emit(EventPomodoroWorkEnded, TriggerPayload{
			ID:     "pomodoro",
			Label:  "Focus session complete",
			Sound:  settings.PomodoroSound,
			Volume: settings.PomodoroVolume,
			Subtle: settings.PomodoroSubtleMode,
		})
	} else {
		finishedLong := state.BreakType == "long"
		next.IsBreak = false
		next.BreakType = ""
		next.Duration = int64(settings.PomodoroWorkMinutes) * 60
		if finishedLong {
			next.CurrentSession = 1
			next.CurrentCycle = state.CurrentCycle + 1
			e.bumpCyclesCompleted()
		} else {
			next.CurrentSession = state.CurrentSession + 1
		}
		e.emit.Emit(EventPomodoroBreakEnded, TriggerPayload{
			ID:     "pomodoro",
			Label:  "Break over",
			Sound:  settings.PomodoroSound,
			Volume: settings.PomodoroVolume,
			Subtle: settings.PomodoroSubtleMode,
		})
	}
	next.StartTime = now.Unix()
	next.EndTime = now.Unix() + next.Duration

	if err := e.store.SavePomodoroState(next); err != nil {
		return store.PomodoroState{}, err
	}
	e.emit.Emit(EventPomodoroPhaseChanged, next)
	e.recomputeInhibitionLocked(now)
	return next, nil
}

// creditPhase accumulates the given seconds of the finishing phase into
// the stats record and maintains the daily history and streak.
// countSession marks a completed work session.
func (e *Engine) creditPhase(state store.PomodoroState, seconds int64, countSession bool, now time.Time) error {
	if seconds < 0 {
		seconds = 0
	}
	stats, err := e.store.PomodoroStats()
	if err != nil {
		return err
	}

	day := now.Format("2006-01-02")
	dayStats := stats.History[day]
	if state.IsBreak {
		stats.TotalBreakSeconds += seconds
		dayStats.BreakSeconds += seconds
	} else {
		stats.TotalFocusSeconds += seconds
		dayStats.FocusSeconds += seconds
	}
	if countSession {
		stats.SessionsCompleted++
		dayStats.Sessions++
	}
	stats.History[day] = dayStats

	if stats.LastActiveDay != day {
		yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
		if stats.LastActiveDay == yesterday {
			stats.Streak++
		} else {
			stats.Streak = 1
		}
		stats.LastActiveDay = day
	}

	return e.store.SavePomodoroStats(stats)
}

func (e *Engine) bumpCyclesCompleted() {
	stats, err := e.store.PomodoroStats()
	if err != nil {
		e.log.Error("pomodoro stats: load failed", "error", err)
		return
	}
	stats.CyclesCompleted++
	if err := e.store.SavePomodoroStats(stats); err != nil {
		e.log.Error("pomodoro stats: save failed", "error", err)
	}
}

func elapsedSeconds(state store.PomodoroState, now time.Time) int64 {
	elapsed := now.Unix() - state.StartTime
	if elapsed > state.Duration {
		elapsed = state.Duration
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}
