package engine

import (
	"testing"
	"time"
)

func TestPauseShift(t *testing.T) {
	gapStart := monday
	gapEnd := monday.Add(10 * time.Minute)

	// Before the gap: untouched.
	before := monday.Add(-time.Hour)
	if got := pauseShift(before, gapStart, gapEnd); !got.Equal(before) {
		t.Fatalf("pre-gap instant moved: %v", got)
	}
	// Inside the gap: lands at the gap end.
	inside := monday.Add(3 * time.Minute)
	if got := pauseShift(inside, gapStart, gapEnd); !got.Equal(gapEnd) {
		t.Fatalf("in-gap instant should land at the gap end: %v", got)
	}
	// Beyond the gap: shifted by the full duration.
	after := monday.Add(time.Hour)
	if got := pauseShift(after, gapStart, gapEnd); !got.Equal(after.Add(10 * time.Minute)) {
		t.Fatalf("post-gap instant should shift by the gap: %v", got)
	}
}

func TestReconcileReminderReportMissed(t *testing.T) {
	e, clock, emitter, _ := newTestEngine(t, monday, Options{})
	reminder, _ := e.CreateReminder(ReminderParams{Label: "Water", FrequencyMinutes: 60, Recurrences: -1})
	due := time.Unix(reminder.NextTrigger, 0)

	// Suspend from 10 minutes before the first due instant until three
	// intervals later: the first three occurrences are unrecoverable,
	// the fourth becomes the live schedule.
	gapStart := due.Add(-10 * time.Minute)
	gapEnd := due.Add(180 * time.Minute)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	missed, _ := e.MissedItems()
	if len(missed) != 3 {
		t.Fatalf("expected 3 missed occurrences, got %d: %+v", len(missed), missed)
	}
	got := mustReminder(t, e, reminder.ID)
	if got.NextTrigger != due.Add(180*time.Minute).Unix() {
		t.Fatalf("next trigger: got %d want %d", got.NextTrigger, due.Add(180*time.Minute).Unix())
	}

	data, ok := emitter.last(EventMissedItemsToast)
	if !ok {
		t.Fatal("expected a missed-items toast")
	}
	if payload := data.(ToastPayload); payload.Count != 3 {
		t.Fatalf("toast count: %d", payload.Count)
	}
}

func TestReconcileReminderPauseShift(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, monday, Options{ReminderPolicy: PolicyPauseShift})
	reminder, _ := e.CreateReminder(ReminderParams{Label: "Water", FrequencyMinutes: 60, Recurrences: -1})
	due := time.Unix(reminder.NextTrigger, 0)

	gapStart := due.Add(-10 * time.Second)
	gapEnd := due.Add(185 * time.Minute)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	got := mustReminder(t, e, reminder.ID)
	if got.NextTrigger != gapEnd.Unix() {
		t.Fatalf("in-gap schedule should land at the gap end: got %d want %d", got.NextTrigger, gapEnd.Unix())
	}
	missed, _ := e.MissedItems()
	if len(missed) != 0 {
		t.Fatal("pause-shift must not log missed items")
	}
}

func TestReconcileTimers(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, monday, Options{})
	expired, _ := e.CreateTimer(600, "Expired", false, false)
	survivor, _ := e.CreateTimer(7200, "Survivor", false, false)

	gapStart := monday.Add(5 * time.Minute)
	gapEnd := monday.Add(time.Hour)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	timers, _ := e.ActiveTimers()
	if len(timers) != 1 || timers[0].ID != survivor.ID {
		t.Fatalf("only the survivor should remain: %+v", timers)
	}
	missed, _ := e.MissedItems()
	if len(missed) != 1 || missed[0].ID != expired.ID || missed[0].Type != "timer" {
		t.Fatalf("expected the expired timer logged: %+v", missed)
	}
}

func TestReconcileTimersPauseShift(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, monday, Options{TimerPolicy: PolicyPauseShift})
	inGap, _ := e.CreateTimer(600, "InGap", false, false)
	beyond, _ := e.CreateTimer(7200, "Beyond", false, false)

	gapStart := monday.Add(5 * time.Minute)
	gapEnd := monday.Add(time.Hour)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	timers, _ := e.ActiveTimers()
	byID := map[string]int64{}
	for _, tm := range timers {
		byID[tm.ID] = tm.EndTime
	}
	if byID[inGap.ID] != gapEnd.Unix() {
		t.Fatalf("in-gap end should land at the gap end: %d", byID[inGap.ID])
	}
	if byID[beyond.ID] != beyond.EndTime+int64(gapEnd.Sub(gapStart).Seconds()) {
		t.Fatalf("beyond-gap end should shift by the gap: %d", byID[beyond.ID])
	}
	missed, _ := e.MissedItems()
	if len(missed) != 0 {
		t.Fatal("pause-shift must not log missed items")
	}
}

func TestReconcileAlarmsMultiDay(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, monday, Options{})
	alarm, _ := e.CreateAlarm(AlarmParams{Label: "Standup", Hour: 9, Minute: 0, Recurring: "daily"})

	// Suspended Monday 08:30 through Wednesday 11:00: Monday, Tuesday
	// and Wednesday occurrences are all missed.
	gapStart := monday.Add(30 * time.Minute)
	gapEnd := time.Date(2025, 3, 12, 11, 0, 0, 0, time.UTC)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	missed, _ := e.MissedItems()
	if len(missed) != 3 {
		t.Fatalf("expected 3 missed occurrences, got %d: %+v", len(missed), missed)
	}
	got := mustAlarm(t, e, alarm.ID)
	if got.LastTriggered == nil || *got.LastTriggered != time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC).Unix() {
		t.Fatalf("last_triggered should be the final missed occurrence: %+v", got)
	}
	if !got.Enabled {
		t.Fatal("a daily alarm stays enabled")
	}

	// Replaying the same gap adds nothing.
	e.Reconcile(gapStart, gapEnd)
	missed, _ = e.MissedItems()
	if len(missed) != 3 {
		t.Fatalf("replay should be idempotent: %d items", len(missed))
	}
}

func TestReconcileOnceAlarmDisables(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, monday, Options{})
	alarm, _ := e.CreateAlarm(AlarmParams{Label: "Dentist", Hour: 9, Minute: 0, Recurring: "once"})

	gapStart := monday.Add(30 * time.Minute)
	gapEnd := monday.Add(3 * time.Hour)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	got := mustAlarm(t, e, alarm.ID)
	if got.Enabled {
		t.Fatal("a missed once alarm should disable")
	}
	missed, _ := e.MissedItems()
	if len(missed) != 1 {
		t.Fatalf("expected one missed item: %+v", missed)
	}
}

func TestReconcileAlarmNearGapEndStillFires(t *testing.T) {
	e, clock, emitter, _ := newTestEngine(t, monday, Options{})
	e.CreateAlarm(AlarmParams{Label: "Standup", Hour: 9, Minute: 0, Recurring: "daily"})

	// Resume 30 seconds after the occurrence: inside grace, so it is
	// left for the scheduler loop rather than logged.
	gapStart := monday.Add(30 * time.Minute)
	gapEnd := time.Date(2025, 3, 10, 9, 0, 30, 0, time.UTC)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	missed, _ := e.MissedItems()
	if len(missed) != 0 {
		t.Fatalf("in-grace occurrence must not be logged: %+v", missed)
	}
	e.checkAlarms(clock.Now())
	if emitter.count(EventAlarmTriggered) != 1 {
		t.Fatal("the occurrence should fire on the next loop pass")
	}
}

func TestReconcileSnoozedAlarmUntouched(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, monday, Options{})
	alarm, _ := e.CreateAlarm(AlarmParams{Label: "Wake", Hour: 9, Minute: 0, Recurring: "daily"})
	e.SnoozeAlarm(alarm.ID) // snoozed until 08:05

	gapStart := monday.Add(2 * time.Minute)
	gapEnd := monday.Add(4 * time.Hour)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	got := mustAlarm(t, e, alarm.ID)
	if got.SnoozedUntil == nil {
		t.Fatal("reconciliation must not clear a snooze")
	}
	missed, _ := e.MissedItems()
	if len(missed) != 0 {
		t.Fatalf("a snoozed alarm is not missed, it fires on resume: %+v", missed)
	}
}

func TestReconcilePomodoroReportMissed(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, monday, Options{})
	e.StartPomodoro()

	gapStart := monday.Add(5 * time.Minute)
	gapEnd := monday.Add(2 * time.Hour)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	state, _ := e.PomodoroStatus()
	if state.Active {
		t.Fatal("session should terminate")
	}
	missed, _ := e.MissedItems()
	if len(missed) != 1 || missed[0].Type != "pomodoro" {
		t.Fatalf("expected one missed pomodoro item: %+v", missed)
	}
	stats, _ := e.PomodoroSummary()
	if stats.TotalFocusSeconds != 25*60 {
		t.Fatalf("intended duration should be credited: %d", stats.TotalFocusSeconds)
	}
}

func TestReconcilePomodoroPauseShift(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, monday, Options{PomodoroPolicy: PolicyPauseShift})
	start, _ := e.StartPomodoro()

	gapStart := monday.Add(5 * time.Minute)
	gapEnd := monday.Add(2 * time.Hour)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	state, _ := e.PomodoroStatus()
	if !state.Active {
		t.Fatal("session should survive a pause-shift gap")
	}
	if state.EndTime != gapEnd.Unix() {
		t.Fatalf("in-gap phase end should land at the gap end: %d", state.EndTime)
	}
	if state.EndTime-state.StartTime != start.EndTime-start.StartTime {
		t.Fatal("phase length must be preserved")
	}
}

func TestReconcileGamingOnlyReminderSkipped(t *testing.T) {
	e, clock, _, _ := newTestEngine(t, monday, Options{})
	reminder, _ := e.CreateReminder(ReminderParams{Label: "Stretch", FrequencyMinutes: 10, Recurrences: -1, OnlyWhileGaming: true})

	gapStart := monday.Add(time.Minute)
	gapEnd := monday.Add(2 * time.Hour)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	missed, _ := e.MissedItems()
	if len(missed) != 0 {
		t.Fatalf("gaming-only reminders were not owed during the gap: %+v", missed)
	}
	got := mustReminder(t, e, reminder.ID)
	if got.NextTrigger != reminder.NextTrigger {
		t.Fatal("schedule should be untouched")
	}
}

func TestReconcileToastAggregatesAcrossKinds(t *testing.T) {
	e, clock, emitter, _ := newTestEngine(t, monday, Options{})
	e.CreateTimer(600, "Tea", false, false)
	e.CreateAlarm(AlarmParams{Label: "Nine", Hour: 9, Minute: 0, Recurring: "daily"})
	e.CreateReminder(ReminderParams{Label: "Water", FrequencyMinutes: 30, Recurrences: -1})

	gapStart := monday.Add(time.Minute)
	gapEnd := monday.Add(3 * time.Hour)
	clock.Set(gapEnd)
	e.Reconcile(gapStart, gapEnd)

	if emitter.count(EventMissedItemsToast) != 1 {
		t.Fatalf("expected exactly one toast, got %d", emitter.count(EventMissedItemsToast))
	}
	data, _ := emitter.last(EventMissedItemsToast)
	// timer at +10m, alarm at 09:00, reminder occurrences every 30m with
	// the final one (+180m) left live: 1 + 1 + 5 missed.
	if payload := data.(ToastPayload); payload.Count != 7 {
		t.Fatalf("toast count: got %d", payload.Count)
	}
}
