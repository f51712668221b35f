package store

import "time"

// All absolute instants are stored as Unix seconds so the JSON documents
// stay compact and comparable. Nullable instants are pointers.

// Timer is a one-shot countdown. It is destroyed on completion or cancel;
// pausing freezes the remaining time and removes it from active scheduling.
type Timer struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	Enabled         bool   `json:"enabled"`
	Seconds         int    `json:"seconds"`
	EndTime         int64  `json:"end_time"`
	Paused          bool   `json:"paused,omitempty"`
	PausedRemaining int64  `json:"paused_remaining,omitempty"`
	Sound           string `json:"sound,omitempty"`
	Volume          int    `json:"volume,omitempty"`
	SubtleMode      bool   `json:"subtle_mode,omitempty"`
	AutoSuspend     bool   `json:"auto_suspend,omitempty"`
	PreventSleep    bool   `json:"prevent_sleep,omitempty"`
	CreatedAt       int64  `json:"created_at"`
}

// Alarm is a recurring wall-clock trigger.
//
// Recurring is one of "once", "daily", "weekdays", "weekends" or a
// comma-separated weekday-index set with 0=Monday.
type Alarm struct {
	ID                 string `json:"id"`
	Label              string `json:"label"`
	Enabled            bool   `json:"enabled"`
	Hour               int    `json:"hour"`
	Minute             int    `json:"minute"`
	Recurring          string `json:"recurring"`
	SnoozedUntil       *int64 `json:"snoozed_until"`
	LastTriggered      *int64 `json:"last_triggered,omitempty"`
	Sound              string `json:"sound,omitempty"`
	Volume             int    `json:"volume,omitempty"`
	SnoozeDuration     int    `json:"snooze_duration,omitempty"` // minutes; 0 falls back to the global setting
	SubtleMode         bool   `json:"subtle_mode,omitempty"`
	AutoSuspend        bool   `json:"auto_suspend,omitempty"`
	PreventSleepWindow int    `json:"prevent_sleep_window,omitempty"` // minutes of look-ahead
	CreatedAt          int64  `json:"created_at"`
}

// Reminder is a fixed-interval recurring trigger, independent of
// wall-clock hour. Recurrences of -1 means infinite; otherwise
// TriggersRemaining counts down and the reminder is disabled at zero.
type Reminder struct {
	ID                string `json:"id"`
	Label             string `json:"label"`
	Enabled           bool   `json:"enabled"`
	FrequencyMinutes  int    `json:"frequency_minutes"`
	NextTrigger       int64  `json:"next_trigger"`
	Recurrences       int    `json:"recurrences"`
	TriggersRemaining int    `json:"triggers_remaining"`
	OnlyWhileGaming   bool   `json:"only_while_gaming,omitempty"`
	ResetOnGameStart  bool   `json:"reset_on_game_start,omitempty"`
	Sound             string `json:"sound,omitempty"`
	Volume            int    `json:"volume,omitempty"`
	SubtleMode        bool   `json:"subtle_mode,omitempty"`
	PreventSleep      bool   `json:"prevent_sleep,omitempty"`
	CreatedAt         int64  `json:"created_at"`
}

// PomodoroState is the single mutable session record.
type PomodoroState struct {
	Active         bool   `json:"active"`
	IsBreak        bool   `json:"is_break"`
	CurrentSession int    `json:"current_session"`
	CurrentCycle   int    `json:"current_cycle"`
	StartTime      int64  `json:"start_time,omitempty"`
	EndTime        int64  `json:"end_time,omitempty"`
	Duration       int64  `json:"duration"`             // seconds
	BreakType      string `json:"break_type,omitempty"` // "short" or "long"
}

// DayStats is one day's accumulators in the pomodoro history.
type DayStats struct {
	FocusSeconds int64 `json:"focus_seconds"`
	BreakSeconds int64 `json:"break_seconds"`
	Sessions     int   `json:"sessions"`
}

// PomodoroStats is the derived stats record, updated transactionally
// whenever a phase ends, is skipped, or is stopped early.
type PomodoroStats struct {
	TotalFocusSeconds int64               `json:"total_focus_seconds"`
	TotalBreakSeconds int64               `json:"total_break_seconds"`
	SessionsCompleted int                 `json:"sessions_completed"`
	CyclesCompleted   int                 `json:"cycles_completed"`
	History           map[string]DayStats `json:"history,omitempty"` // keyed by "2006-01-02"
	Streak            int                 `json:"streak"`
	LastActiveDay     string              `json:"last_active_day,omitempty"`
}

// MissedItem is an immutable log record for a trigger that should have
// fired while the system was suspended, or that was observed past its
// grace window.
type MissedItem struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // "timer", "alarm", "reminder", "pomodoro"
	Label    string `json:"label"`
	DueTime  int64  `json:"due_time"`
	MissedAt int64  `json:"missed_at"`
	Details  string `json:"details,omitempty"`
}

// Preset is a stored timer duration shortcut.
type Preset struct {
	ID      string `json:"id"`
	Seconds int    `json:"seconds"`
	Label   string `json:"label"`
}

// Settings are the user-facing runtime settings, persisted in the
// user_settings collection. Missing fields are filled from defaults at
// load time by a versioned migration; the rest of the code always sees
// a fully-populated struct.
type Settings struct {
	Version int `json:"version"`

	SnoozeDuration int  `json:"snooze_duration"` // minutes
	TimeFormat24H  bool `json:"time_format_24h"`

	TimerSound       string `json:"timer_sound"`
	TimerVolume      int    `json:"timer_volume"`
	TimerSubtleMode  bool   `json:"timer_subtle_mode"`
	TimerAutoSuspend bool   `json:"timer_auto_suspend"`

	PomodoroSound                  string `json:"pomodoro_sound"`
	PomodoroVolume                 int    `json:"pomodoro_volume"`
	PomodoroSubtleMode             bool   `json:"pomodoro_subtle_mode"`
	PomodoroWorkMinutes            int    `json:"pomodoro_work_duration"`
	PomodoroBreakMinutes           int    `json:"pomodoro_break_duration"`
	PomodoroLongBreakMinutes       int    `json:"pomodoro_long_break_duration"`
	PomodoroSessionsUntilLongBreak int    `json:"pomodoro_sessions_until_long_break"`
	PomodoroPreventSleep           bool   `json:"pomodoro_prevent_sleep"`

	OverlayMaxItems      int `json:"overlay_max_items"`
	OverlayWindowMinutes int `json:"overlay_window_minutes"`
}

// UnixOrZero converts a nullable Unix-seconds pointer to a time.Time,
// returning the zero time for nil.
func UnixOrZero(ts *int64) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return time.Unix(*ts, 0)
}
