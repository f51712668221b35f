package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/chime/internal/store"
	"github.com/sadopc/chime/internal/wake"
)

// Policy selects how a detected suspend gap is reconciled for an
// entity kind.
type Policy string

const (
	// PolicyReportMissed walks every due instant in the gap, logs each
	// as a missed item, and advances the schedule past the gap.
	PolicyReportMissed Policy = "report_missed"

	// PolicyPauseShift shifts pending schedules forward by the gap
	// duration without logging, as if time had stood still.
	PolicyPauseShift Policy = "pause_shift"
)

// Options tune the engine. Zero values fall back to defaults.
type Options struct {
	PollInterval time.Duration // scheduler cadence, default 1s
	GapThreshold time.Duration // suspend detection threshold, default 5s

	// Per-kind reconciliation policies. Alarms are always
	// report-missed and have no knob.
	TimerPolicy    Policy
	ReminderPolicy Policy
	PomodoroPolicy Policy

	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.GapThreshold <= 0 {
		o.GapThreshold = 5 * time.Second
	}
	if o.TimerPolicy == "" {
		o.TimerPolicy = PolicyReportMissed
	}
	if o.ReminderPolicy == "" {
		o.ReminderPolicy = PolicyReportMissed
	}
	if o.PomodoroPolicy == "" {
		o.PomodoroPolicy = PolicyReportMissed
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Engine owns the scheduler loops, the suspend detector and the
// sleep-inhibition aggregator. All entity operations go through it.
//
// One mutex serializes every read-modify-write against the store, so a
// loop cycle, an operation, or a reconciliation pass is atomic with
// respect to the others. The shared lastTick timestamp is the
// cross-loop ordering signal: polling loops defer when it is staler
// than the gap threshold, which is exactly the condition under which
// the suspend detector may still be rewriting entities.
type Engine struct {
	store *store.Store
	emit  Emitter
	wake  wake.Locker
	log   *slog.Logger
	opts  Options

	mu       sync.Mutex
	lastTick time.Time
	gaming   bool

	inhibitActive bool
	inhibitItems  []string
}

// New builds an engine. Run must be called to start the loops;
// operations work without Run for callers that drive the engine
// manually.
func New(s *store.Store, emitter Emitter, locker wake.Locker, logger *slog.Logger, opts Options) *Engine {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if locker == nil {
		locker = &wake.NopLocker{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store: s,
		emit:  emitter,
		wake:  locker,
		log:   logger,
		opts:  opts.withDefaults(),
	}
}

// Run sweeps stale state left from the previous process, then runs the
// four scheduler loops and the suspend detector until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	e.sweepOnStart()

	var wg sync.WaitGroup
	loops := []struct {
		name string
		step func(time.Time)
	}{
		{"timers", e.checkTimers},
		{"alarms", e.checkAlarms},
		{"reminders", e.checkReminders},
		{"pomodoro", e.checkPomodoro},
	}
	for _, loop := range loops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.runLoop(ctx, loop.name, loop.step)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.runSuspendDetector(ctx)
	}()

	wg.Wait()
}

// runLoop is one scheduler cycle: check tick freshness, run the step,
// sleep until the next poll. A stale tick means the suspend detector
// has not yet reconciled a gap, so the loop backs off briefly instead
// of acting on pre-gap assumptions.
func (e *Engine) runLoop(ctx context.Context, name string, step func(time.Time)) {
	e.log.Info("scheduler loop started", "loop", name)
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("scheduler loop stopped", "loop", name)
			return
		case <-ticker.C:
			if !e.tickFresh() {
				time.Sleep(200 * time.Millisecond)
				continue
			}
			step(e.opts.Now())
		}
	}
}

func (e *Engine) tickFresh() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastTick.IsZero() {
		return true
	}
	return e.opts.Now().Sub(e.lastTick) <= e.opts.GapThreshold
}

// sweepOnStart mirrors a suspend reconciliation for state persisted by
// a previous process: expired timers are logged missed and removed,
// and an expired pomodoro phase is terminated.
func (e *Engine) sweepOnStart() {
	now := e.opts.Now()
	e.checkTimers(now)
	e.checkPomodoro(now)
	e.mu.Lock()
	e.recomputeInhibitionLocked(now)
	e.lastTick = now
	e.mu.Unlock()
}

// SetGamingActive flips the externally-pushed foreground-activity
// signal. On a false→true edge, reminders flagged reset_on_game_start
// are rescheduled a full interval out.
func (e *Engine) SetGamingActive(active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := active && !e.gaming
	e.gaming = active
	if !started {
		return nil
	}

	reminders, err := e.store.Reminders()
	if err != nil {
		return err
	}
	now := e.opts.Now()
	changed := false
	for id, r := range reminders {
		if r.Enabled && r.ResetOnGameStart {
			r.NextTrigger = now.Add(time.Duration(r.FrequencyMinutes) * time.Minute).Unix()
			reminders[id] = r
			changed = true
		}
	}
	if changed {
		if err := e.store.SaveReminders(reminders); err != nil {
			return err
		}
		e.emit.Emit(EventRemindersUpdated, reminderList(reminders))
	}
	return nil
}

// GamingActive returns the current foreground-activity signal.
func (e *Engine) GamingActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gaming
}

// Settings returns the fully-populated user settings.
func (e *Engine) Settings() (store.Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.UserSettings()
}

// UpdateSettings persists new settings and re-derives the
// sleep-inhibition decision, since global flags contribute to it.
func (e *Engine) UpdateSettings(settings store.Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.SaveUserSettings(settings); err != nil {
		return err
	}
	e.emit.Emit(EventSettingsUpdated, settings)
	e.recomputeInhibitionLocked(e.opts.Now())
	return nil
}

// Presets returns the stored timer presets.
func (e *Engine) Presets() ([]store.Preset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Presets()
}

// SavePreset appends a new timer preset.
func (e *Engine) SavePreset(seconds int, label string) (store.Preset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	preset := store.Preset{ID: newID(), Seconds: seconds, Label: label}
	presets, err := e.store.Presets()
	if err != nil {
		return store.Preset{}, err
	}
	presets = append(presets, preset)
	if err := e.store.SavePresets(presets); err != nil {
		return store.Preset{}, err
	}
	e.emit.Emit(EventPresetsUpdated, presets)
	return preset, nil
}

// RemovePreset deletes a preset by id; false when it does not exist.
func (e *Engine) RemovePreset(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	presets, err := e.store.Presets()
	if err != nil {
		return false, err
	}
	kept := presets[:0]
	found := false
	for _, p := range presets {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return false, nil
	}
	if err := e.store.SavePresets(kept); err != nil {
		return false, err
	}
	e.emit.Emit(EventPresetsUpdated, kept)
	return true, nil
}

// MissedItems returns the missed-item log, newest first.
func (e *Engine) MissedItems() ([]store.MissedItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.MissedItems()
}

// ClearMissedItems empties the missed-item log.
func (e *Engine) ClearMissedItems() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.ClearMissedItems(); err != nil {
		return err
	}
	e.emit.Emit(EventMissedItemsUpdated, []store.MissedItem{})
	return nil
}

// InhibitStatus reports whether a sleep inhibitor is currently held and
// which entities contribute to it.
func (e *Engine) InhibitStatus() (bool, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := make([]string, len(e.inhibitItems))
	copy(items, e.inhibitItems)
	return e.inhibitActive, items
}

// OverlayItem is one upcoming alert in the aggregated overlay view.
type OverlayItem struct {
	Type  string `json:"type"` // "timer", "alarm", "reminder", "pomodoro"
	ID    string `json:"id"`
	Label string `json:"label"`
	At    int64  `json:"at"` // Unix seconds
}

// Overlay assembles the upcoming alerts across all entity kinds,
// soonest first, capped by the configured count and time window.
func (e *Engine) Overlay() ([]OverlayItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings, err := e.store.UserSettings()
	if err != nil {
		return nil, err
	}
	now := e.opts.Now()
	horizon := now.Add(time.Duration(settings.OverlayWindowMinutes) * time.Minute)

	var items []OverlayItem

	timers, err := e.store.Timers()
	if err != nil {
		return nil, err
	}
	for id, t := range timers {
		if t.Paused {
			continue
		}
		items = append(items, OverlayItem{Type: "timer", ID: id, Label: t.Label, At: t.EndTime})
	}

	alarms, err := e.store.Alarms()
	if err != nil {
		return nil, err
	}
	for id, a := range alarms {
		if next, ok := NextTrigger(a, now); ok {
			items = append(items, OverlayItem{Type: "alarm", ID: id, Label: a.Label, At: next.Unix()})
		}
	}

	reminders, err := e.store.Reminders()
	if err != nil {
		return nil, err
	}
	for id, r := range reminders {
		if !r.Enabled {
			continue
		}
		if r.OnlyWhileGaming && !e.gaming {
			continue
		}
		items = append(items, OverlayItem{Type: "reminder", ID: id, Label: r.Label, At: r.NextTrigger})
	}

	pomo, err := e.store.PomodoroState()
	if err != nil {
		return nil, err
	}
	if pomo.Active {
		label := "Pomodoro: focus ends"
		if pomo.IsBreak {
			label = "Pomodoro: break ends"
		}
		items = append(items, OverlayItem{Type: "pomodoro", ID: "pomodoro", Label: label, At: pomo.EndTime})
	}

	kept := items[:0]
	for _, item := range items {
		at := time.Unix(item.At, 0)
		if at.After(horizon) {
			continue
		}
		kept = append(kept, item)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].At < kept[j].At })

	if settings.OverlayMaxItems > 0 && len(kept) > settings.OverlayMaxItems {
		kept = kept[:settings.OverlayMaxItems]
	}
	return kept, nil
}

// newID returns a short entity id, the first 8 hex chars of a UUID.
func newID() string {
	return uuid.NewString()[:8]
}
