package tui

import (
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/sadopc/chime/internal/engine"
	"github.com/sadopc/chime/internal/store"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return engine.New(s, nil, nil, slog.New(slog.DiscardHandler), engine.Options{})
}

// ============================================================
// Helper functions
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{time.Second, "00:00:01"},
		{time.Minute, "00:01:00"},
		{time.Hour, "01:00:00"},
		{time.Hour + time.Minute + time.Second, "01:01:01"},
		{25 * time.Hour, "25:00:00"},
		{-time.Second, "00:00:00"}, // negative clamps to 0
	}
	for _, tt := range tests {
		got := formatDuration(tt.d)
		if got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{61, "00:01:01"},
		{3600, "01:00:00"},
		{86400, "24:00:00"},
	}
	for _, tt := range tests {
		got := formatSeconds(tt.secs)
		if got != tt.want {
			t.Errorf("formatSeconds(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "0.0h"},
		{3600, "1.0h"},
		{5400, "1.5h"},
		{7200, "2.0h"},
	}
	for _, tt := range tests {
		got := formatHours(tt.secs)
		if got != tt.want {
			t.Errorf("formatHours(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		hour, minute int
		use24h       bool
		want         string
	}{
		{7, 5, true, "07:05"},
		{19, 30, true, "19:30"},
		{0, 0, true, "00:00"},
		{0, 0, false, "12:00 AM"},
		{7, 5, false, "7:05 AM"},
		{12, 0, false, "12:00 PM"},
		{19, 30, false, "7:30 PM"},
	}
	for _, tt := range tests {
		got := formatClock(tt.hour, tt.minute, tt.use24h)
		if got != tt.want {
			t.Errorf("formatClock(%d, %d, %v) = %q, want %q", tt.hour, tt.minute, tt.use24h, got, tt.want)
		}
	}
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-time.Minute), "now"},
		{now, "now"},
		{now.Add(30 * time.Second), "in 30s"},
		{now.Add(12 * time.Minute), "in 12m"},
		{now.Add(3*time.Hour + 5*time.Minute), "in 3h05m"},
	}
	for _, tt := range tests {
		got := formatRelative(tt.at.Unix(), now)
		if got != tt.want {
			t.Errorf("formatRelative(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestFormatPomodoroTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{time.Second, "00:01"},
		{time.Minute, "01:00"},
		{25 * time.Minute, "25:00"},
		{5*time.Minute + 30*time.Second, "05:30"},
		{-time.Second, "00:00"}, // negative should clamp to 0
	}
	for _, tt := range tests {
		got := formatPomodoroTime(tt.d)
		if got != tt.want {
			t.Errorf("formatPomodoroTime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in           string
		hour, minute int
		wantErr      bool
	}{
		{"07:30", 7, 30, false},
		{"0:00", 0, 0, false},
		{"23:59", 23, 59, false},
		{" 9:15 ", 9, 15, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"noon", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		hour, minute, err := parseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseClock(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseClock(%q): %v", tt.in, err)
			continue
		}
		if hour != tt.hour || minute != tt.minute {
			t.Errorf("parseClock(%q) = %d:%d, want %d:%d", tt.in, hour, minute, tt.hour, tt.minute)
		}
	}
}

func TestAtoiOr(t *testing.T) {
	if atoiOr("42", 0) != 42 {
		t.Fatal("atoiOr should parse valid numbers")
	}
	if atoiOr(" 7 ", 0) != 7 {
		t.Fatal("atoiOr should trim whitespace")
	}
	if atoiOr("", 9) != 9 {
		t.Fatal("atoiOr should fall back for empty input")
	}
	if atoiOr("x", -1) != -1 {
		t.Fatal("atoiOr should fall back for garbage")
	}
}

func TestRecurrenceLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"once", "once"},
		{"daily", "daily"},
		{"weekdays", "weekdays"},
		{"weekends", "weekends"},
		{"0,2,4", "custom"},
		{"5,6", "custom"},
	}
	for _, tt := range tests {
		got := recurrenceLabel(tt.in)
		if got != tt.want {
			t.Errorf("recurrenceLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClampVolume(t *testing.T) {
	if clampVolume(-5) != 0 {
		t.Fatal("negative volume should clamp to 0")
	}
	if clampVolume(150) != 100 {
		t.Fatal("volume above 100 should clamp")
	}
	if clampVolume(60) != 60 {
		t.Fatal("in-range volume should pass through")
	}
}

func TestMinMax(t *testing.T) {
	if min(3, 5) != 3 || min(5, 3) != 3 || min(3, 3) != 3 {
		t.Fatal("min misbehaves")
	}
	if max(3, 5) != 5 || max(5, 3) != 5 || max(3, 3) != 3 {
		t.Fatal("max misbehaves")
	}
}

// ============================================================
// View state
// ============================================================

func TestViewNames(t *testing.T) {
	if len(viewNames) != 7 {
		t.Fatalf("expected 7 view names, got %d", len(viewNames))
	}
	expected := []string{"Dashboard", "Alarms", "Reminders", "Pomodoro", "Stats", "Missed", "Settings"}
	for i, name := range expected {
		if viewNames[i] != name {
			t.Fatalf("viewNames[%d] = %q, want %q", i, viewNames[i], name)
		}
	}
}

func TestViewStateConstants(t *testing.T) {
	if viewDashboard != 0 || viewAlarms != 1 || viewReminders != 2 ||
		viewPomodoro != 3 || viewStats != 4 || viewMissed != 5 || viewSettings != 6 {
		t.Fatal("view state constants out of order")
	}
}

// ============================================================
// Dashboard model
// ============================================================

func TestDashboardLoadData(t *testing.T) {
	e := newTestEngine(t)
	e.CreateTimer(600, "tea", false, false)

	d := newDashboardModel(e)
	msg := d.loadData()()
	d, _ = d.update(msg)

	if len(d.timers) != 1 {
		t.Fatalf("expected 1 timer, got %d", len(d.timers))
	}
	if d.timers[0].Label != "tea" {
		t.Fatalf("unexpected timer: %+v", d.timers[0])
	}
	if len(d.presets) == 0 {
		t.Fatal("default presets should be loaded")
	}
	if len(d.overlay) != 1 {
		t.Fatalf("timer should appear in overlay, got %d items", len(d.overlay))
	}
	if d.inhibited {
		t.Fatal("no prevent-sleep entities, nothing should be inhibited")
	}
}

func TestDashboardCursorClamped(t *testing.T) {
	e := newTestEngine(t)
	timer, _ := e.CreateTimer(600, "tea", false, false)

	d := newDashboardModel(e)
	d, _ = d.update(d.loadData()())
	d.cursor = 0

	e.CancelTimer(timer.ID)
	d, _ = d.update(d.loadData()())
	if d.cursor != 0 || len(d.timers) != 0 {
		t.Fatalf("cursor not clamped after timer went away: cursor=%d timers=%d", d.cursor, len(d.timers))
	}
}

func TestDashboardMissedCount(t *testing.T) {
	e := newTestEngine(t)
	// A gap long past a short timer logs a missed item.
	e.CreateTimer(60, "boil", false, false)
	e.Reconcile(time.Now(), time.Now().Add(time.Hour))

	d := newDashboardModel(e)
	d, _ = d.update(d.loadData()())
	if d.missedCount != 1 {
		t.Fatalf("expected 1 missed item, got %d", d.missedCount)
	}
}

// ============================================================
// Alarms model
// ============================================================

func TestAlarmsSubmitFormCreates(t *testing.T) {
	e := newTestEngine(t)
	a := newAlarmsModel(e)

	*a.formLabel = "Standup"
	*a.formTime = "09:30"
	*a.formRecurrence = "weekdays"
	a.submitForm()

	alarms, _ := e.Alarms()
	if len(alarms) != 1 {
		t.Fatalf("expected 1 alarm, got %d", len(alarms))
	}
	alarm := alarms[0]
	if alarm.Hour != 9 || alarm.Minute != 30 || alarm.Recurring != "weekdays" {
		t.Fatalf("unexpected alarm: %+v", alarm)
	}
}

func TestAlarmsSubmitFormCustomDays(t *testing.T) {
	e := newTestEngine(t)
	a := newAlarmsModel(e)

	*a.formLabel = "Gym"
	*a.formTime = "18:00"
	*a.formRecurrence = "custom"
	*a.formDays = "0,2,4"
	a.submitForm()

	alarms, _ := e.Alarms()
	if len(alarms) != 1 || alarms[0].Recurring != "0,2,4" {
		t.Fatalf("custom day set not stored: %+v", alarms)
	}
}

func TestAlarmsSubmitFormBadTimeIsDropped(t *testing.T) {
	e := newTestEngine(t)
	a := newAlarmsModel(e)

	*a.formTime = "25:00"
	a.submitForm()

	alarms, _ := e.Alarms()
	if len(alarms) != 0 {
		t.Fatal("invalid time should not create an alarm")
	}
}

func TestAlarmsSubmitFormEdits(t *testing.T) {
	e := newTestEngine(t)
	created, _ := e.CreateAlarm(engine.AlarmParams{Label: "Old", Hour: 7, Minute: 0, Recurring: "daily"})

	a := newAlarmsModel(e)
	a.editingID = created.ID
	*a.formLabel = "New"
	*a.formTime = "08:15"
	*a.formRecurrence = "daily"
	a.submitForm()

	alarms, _ := e.Alarms()
	if len(alarms) != 1 {
		t.Fatalf("edit should not add alarms, got %d", len(alarms))
	}
	if alarms[0].Label != "New" || alarms[0].Hour != 8 || alarms[0].Minute != 15 {
		t.Fatalf("edit not applied: %+v", alarms[0])
	}
}

func TestAlarmsShowFormPrefillsForEdit(t *testing.T) {
	e := newTestEngine(t)
	a := newAlarmsModel(e)

	alarm := store.Alarm{ID: "x", Label: "Wake", Hour: 6, Minute: 45, Recurring: "5,6", SnoozeDuration: 10}
	a, _ = a.showForm(&alarm)

	if *a.formTime != "06:45" {
		t.Fatalf("time not prefilled: %q", *a.formTime)
	}
	if *a.formRecurrence != "custom" || *a.formDays != "5,6" {
		t.Fatalf("custom recurrence not prefilled: %q %q", *a.formRecurrence, *a.formDays)
	}
	if *a.formSnooze != "10" {
		t.Fatalf("snooze not prefilled: %q", *a.formSnooze)
	}
	if !a.formActive {
		t.Fatal("form should be active")
	}
}

// ============================================================
// Reminders model
// ============================================================

func TestRemindersSubmitFormCreates(t *testing.T) {
	e := newTestEngine(t)
	r := newRemindersModel(e)

	*r.formLabel = "Hydrate"
	*r.formFrequency = "45"
	*r.formRepeats = "" // forever
	*r.formNoSleep = true
	r.submitForm()

	reminders, _ := e.Reminders()
	if len(reminders) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(reminders))
	}
	rem := reminders[0]
	if rem.FrequencyMinutes != 45 || rem.Recurrences != -1 || !rem.PreventSleep {
		t.Fatalf("unexpected reminder: %+v", rem)
	}
}

func TestRemindersSubmitFormWithCount(t *testing.T) {
	e := newTestEngine(t)
	r := newRemindersModel(e)

	*r.formLabel = "Stretch"
	*r.formFrequency = "60"
	*r.formRepeats = "8"
	r.submitForm()

	reminders, _ := e.Reminders()
	if len(reminders) != 1 || reminders[0].Recurrences != 8 || reminders[0].TriggersRemaining != 8 {
		t.Fatalf("repeat count not applied: %+v", reminders)
	}
}

func TestRemindersSubmitFormBadFrequencyIsDropped(t *testing.T) {
	e := newTestEngine(t)
	r := newRemindersModel(e)

	*r.formFrequency = "0"
	r.submitForm()

	reminders, _ := e.Reminders()
	if len(reminders) != 0 {
		t.Fatal("zero frequency should not create a reminder")
	}
}

// ============================================================
// Pomodoro model
// ============================================================

func TestPomodoroRefreshShowsActiveSession(t *testing.T) {
	e := newTestEngine(t)
	e.StartPomodoro()

	p := newPomodoroModel(e)
	p, _ = p.update(p.refresh()().(pomodoroDataMsg))

	if !p.state.Active || p.state.IsBreak {
		t.Fatalf("expected an active work phase: %+v", p.state)
	}
	if p.sessionsGoal != 4 {
		t.Fatalf("sessions goal should come from settings, got %d", p.sessionsGoal)
	}
}

func TestPomodoroSessionDots(t *testing.T) {
	e := newTestEngine(t)
	p := newPomodoroModel(e)
	p.sessionsGoal = 4

	// Idle: all hollow.
	dots := p.renderSessionDots()
	if countRune(dots, '●') != 0 || countRune(dots, '○') != 4 {
		t.Fatalf("idle dots wrong: %q", dots)
	}

	// Second work session running: one filled.
	p.state = store.PomodoroState{Active: true, CurrentSession: 2}
	dots = p.renderSessionDots()
	if countRune(dots, '●') != 1 {
		t.Fatalf("expected 1 filled dot, got %q", dots)
	}

	// On break after the second session: two filled.
	p.state = store.PomodoroState{Active: true, IsBreak: true, CurrentSession: 2}
	dots = p.renderSessionDots()
	if countRune(dots, '●') != 2 {
		t.Fatalf("expected 2 filled dots, got %q", dots)
	}
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}

// ============================================================
// Missed model
// ============================================================

func TestMissedRefreshAndClear(t *testing.T) {
	e := newTestEngine(t)
	e.CreateTimer(60, "boil", false, false)
	e.Reconcile(time.Now(), time.Now().Add(time.Hour))

	m := newMissedModel(e)
	m, _ = m.update(m.refresh()())
	if len(m.items) != 1 {
		t.Fatalf("expected 1 missed item, got %d", len(m.items))
	}

	e.ClearMissedItems()
	m, _ = m.update(m.refresh()())
	if len(m.items) != 0 {
		t.Fatal("clear should empty the list")
	}
}

// ============================================================
// Stats model
// ============================================================

func TestStatsBuildChart(t *testing.T) {
	e := newTestEngine(t)
	s := newStatsModel(e)
	s.setSize(100, 40)

	s.stats = store.PomodoroStats{
		TotalFocusSeconds: 3000,
		History: map[string]store.DayStats{
			time.Now().Format("2006-01-02"): {FocusSeconds: 3000, BreakSeconds: 600, Sessions: 2},
		},
	}
	s.buildChart()

	if s.chart.View() == "" {
		t.Fatal("chart should render")
	}
	if s.view() == "" {
		t.Fatal("stats view should render")
	}
}

func TestStatsViewBeforeResize(t *testing.T) {
	e := newTestEngine(t)
	s := newStatsModel(e)

	// No WindowSizeMsg has arrived yet, so the width is still zero.
	if s.view() == "" {
		t.Fatal("stats view should render before the first resize")
	}
}

func TestStatsDateRangeOffset(t *testing.T) {
	e := newTestEngine(t)
	s := newStatsModel(e)

	from0, to0 := s.dateRange()
	if !to0.Equal(from0.AddDate(0, 0, 7)) {
		t.Fatalf("range should span 7 days: %v — %v", from0, to0)
	}

	s.offset = 1
	from1, to1 := s.dateRange()
	if !to1.Equal(from0) {
		t.Fatalf("previous block should end where the current begins: %v vs %v", to1, from0)
	}
	if !to1.Equal(from1.AddDate(0, 0, 7)) {
		t.Fatalf("offset range should still span 7 days: %v — %v", from1, to1)
	}
}

// ============================================================
// Settings model
// ============================================================

func TestSettingsSave(t *testing.T) {
	e := newTestEngine(t)
	s := newSettingsModel(e)
	s, _ = s.update(s.refresh()())

	*s.snooze = "9"
	*s.use24h = false
	*s.timerVolume = "250" // clamps to 100
	*s.pomoWork = "50"
	*s.pomoBreak = strconv.Itoa(s.settings.PomodoroBreakMinutes)
	*s.pomoLongBreak = strconv.Itoa(s.settings.PomodoroLongBreakMinutes)
	*s.pomoSessions = strconv.Itoa(s.settings.PomodoroSessionsUntilLongBreak)
	*s.overlayMax = strconv.Itoa(s.settings.OverlayMaxItems)
	*s.overlayWindow = strconv.Itoa(s.settings.OverlayWindowMinutes)
	*s.timerSound = "bell.mp3"
	s.saveSettings()

	saved, _ := e.Settings()
	if saved.SnoozeDuration != 9 {
		t.Fatalf("snooze not saved: %d", saved.SnoozeDuration)
	}
	if saved.TimeFormat24H {
		t.Fatal("clock format not saved")
	}
	if saved.TimerVolume != 100 {
		t.Fatalf("volume should clamp to 100, got %d", saved.TimerVolume)
	}
	if saved.PomodoroWorkMinutes != 50 {
		t.Fatalf("work minutes not saved: %d", saved.PomodoroWorkMinutes)
	}
	if saved.TimerSound != "bell.mp3" {
		t.Fatalf("sound not saved: %q", saved.TimerSound)
	}
}

// ============================================================
// App model
// ============================================================

func TestNewApp(t *testing.T) {
	e := newTestEngine(t)
	app := NewApp(e)

	if app.activeView != viewDashboard {
		t.Fatal("default view should be dashboard")
	}
	if app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if app.exportPicking {
		t.Fatal("export picker should be hidden by default")
	}
}

func TestAppIsFormActiveDefault(t *testing.T) {
	e := newTestEngine(t)
	app := NewApp(e)

	if app.isFormActive() {
		t.Fatal("no forms should be active initially")
	}
}

func TestAppViewStates(t *testing.T) {
	e := newTestEngine(t)
	app := NewApp(e)
	app.width = 120
	app.height = 40

	// All views should render without panicking.
	for v := viewDashboard; v <= viewSettings; v++ {
		app.activeView = v
		output := app.View()
		if output == "" {
			t.Fatalf("view %d rendered empty", v)
		}
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	e := newTestEngine(t)
	app := NewApp(e)
	app.width = 160
	app.height = 40

	header := app.renderHeader()
	for _, name := range viewNames {
		if !stringContains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppRenderFooter(t *testing.T) {
	e := newTestEngine(t)
	app := NewApp(e)
	app.width = 120
	app.height = 40

	footer := app.renderFooter()
	if footer == "" {
		t.Fatal("footer should not be empty")
	}
}

func TestAppLoadingState(t *testing.T) {
	e := newTestEngine(t)
	app := NewApp(e)
	// Width 0 means not yet sized
	output := app.View()
	if output != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", output)
	}
}

func TestAppStatusMessage(t *testing.T) {
	e := newTestEngine(t)
	app := NewApp(e)
	app.width = 120
	app.height = 40
	app.status = "test status"

	footer := app.renderFooter()
	if !stringContains(footer, "test status") {
		t.Fatal("footer should contain status message")
	}
}

func stringContains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	bindings := keys.ShortHelp()
	if len(bindings) == 0 {
		t.Fatal("short help should have bindings")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test — just verify they don't panic)
// ============================================================

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"timer", func() string { return timerStyle.Render("test") }},
		{"timerRunning", func() string { return timerRunningStyle.Render("test") }},
		{"timerPaused", func() string { return timerPausedStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"subtitle", func() string { return subtitleStyle.Render("test") }},
		{"accent", func() string { return accentStyle.Render("test") }},
		{"success", func() string { return successStyle.Render("test") }},
		{"warning", func() string { return warningStyle.Render("test") }},
		{"error", func() string { return errorStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"highlight", func() string { return highlightStyle.Render("test") }},
		{"header", func() string { return headerStyle.Render("test") }},
		{"footer", func() string { return footerStyle.Render("test") }},
		{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
		{"normalItem", func() string { return normalItemStyle.Render("test") }},
	}

	for _, s := range styles {
		result := s.fn()
		if result == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}
}
