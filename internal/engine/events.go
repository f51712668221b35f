package engine

// Emitter is the one-way event channel to the UI layer. Emit never
// blocks and the engine never awaits acknowledgment; implementations
// drop events they cannot deliver.
type Emitter interface {
	Emit(event string, data any)
}

// NopEmitter discards all events.
type NopEmitter struct{}

func (NopEmitter) Emit(string, any) {}

// Event names.
const (
	EventTimerCreated   = "timer_created"
	EventTimerCancelled = "timer_cancelled"
	EventTimerPaused    = "timer_paused"
	EventTimerResumed   = "timer_resumed"
	EventTimerTick      = "timer_tick"
	EventTimerCompleted = "timer_completed"
	EventTimersUpdated  = "timers_updated"

	EventAlarmCreated   = "alarm_created"
	EventAlarmUpdated   = "alarm_updated"
	EventAlarmDeleted   = "alarm_deleted"
	EventAlarmSnoozed   = "alarm_snoozed"
	EventAlarmTriggered = "alarm_triggered"
	EventAlarmsUpdated  = "alarms_updated"

	EventReminderCreated   = "reminder_created"
	EventReminderUpdated   = "reminder_updated"
	EventReminderDeleted   = "reminder_deleted"
	EventReminderTriggered = "reminder_triggered"
	EventRemindersUpdated  = "reminders_updated"

	EventPomodoroStarted      = "pomodoro_started"
	EventPomodoroStopped      = "pomodoro_stopped"
	EventPomodoroPhaseChanged = "pomodoro_phase_changed"
	EventPomodoroWorkEnded    = "pomodoro_work_ended"
	EventPomodoroBreakEnded   = "pomodoro_break_ended"
	EventPomodoroTick         = "pomodoro_tick"

	EventMissedItemsToast   = "missed_items_toast"
	EventMissedItemsUpdated = "missed_items_updated"

	EventSleepInhibitorUpdated = "sleep_inhibitor_updated"
	EventSettingsUpdated       = "settings_updated"
	EventPresetsUpdated        = "presets_updated"
)

// TriggerPayload accompanies timer_completed, alarm_triggered and
// reminder_triggered.
type TriggerPayload struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Sound       string `json:"sound"`
	Volume      int    `json:"volume"`
	Subtle      bool   `json:"subtle"`
	AutoSuspend bool   `json:"auto_suspend,omitempty"`
}

// TimerTickPayload accompanies timer_tick.
type TimerTickPayload struct {
	ID        string `json:"id"`
	Remaining int64  `json:"remaining"` // seconds
}

// PomodoroTickPayload accompanies pomodoro_tick.
type PomodoroTickPayload struct {
	Remaining int64 `json:"remaining"` // seconds
	IsBreak   bool  `json:"is_break"`
	Session   int   `json:"session"`
	Cycle     int   `json:"cycle"`
}

// ToastPayload accompanies missed_items_toast.
type ToastPayload struct {
	Count int `json:"count"`
}

// InhibitPayload accompanies sleep_inhibitor_updated.
type InhibitPayload struct {
	Active bool     `json:"active"`
	Reason string   `json:"reason"`
	Items  []string `json:"items"`
}
