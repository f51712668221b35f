package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/chime/internal/engine"
	"github.com/sadopc/chime/internal/store"
)

var soundOptions = []huh.Option[string]{
	huh.NewOption("alarm.mp3", "alarm.mp3"),
	huh.NewOption("bell.mp3", "bell.mp3"),
	huh.NewOption("chime.mp3", "chime.mp3"),
	huh.NewOption("silent", ""),
}

type settingsModel struct {
	engine *engine.Engine
	width  int
	height int

	settings   store.Settings
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	snooze        *string
	use24h        *bool
	timerSound    *string
	timerVolume   *string
	timerSubtle   *bool
	timerSuspend  *bool
	pomoWork      *string
	pomoBreak     *string
	pomoLongBreak *string
	pomoSessions  *string
	pomoNoSleep   *bool
	overlayMax    *string
	overlayWindow *string
}

func newSettingsModel(e *engine.Engine) settingsModel {
	snooze, tSound, tVol := "", "", ""
	pw, pb, plb, pc := "", "", "", ""
	oMax, oWin := "", ""
	use24h, tSub, tSus, pNoSleep := false, false, false, false
	return settingsModel{
		engine:        e,
		snooze:        &snooze,
		use24h:        &use24h,
		timerSound:    &tSound,
		timerVolume:   &tVol,
		timerSubtle:   &tSub,
		timerSuspend:  &tSus,
		pomoWork:      &pw,
		pomoBreak:     &pb,
		pomoLongBreak: &plb,
		pomoSessions:  &pc,
		pomoNoSleep:   &pNoSleep,
		overlayMax:    &oMax,
		overlayWindow: &oWin,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings store.Settings
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.engine.Settings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.snooze = strconv.Itoa(s.settings.SnoozeDuration)
	*s.use24h = s.settings.TimeFormat24H
	*s.timerSound = s.settings.TimerSound
	*s.timerVolume = strconv.Itoa(s.settings.TimerVolume)
	*s.timerSubtle = s.settings.TimerSubtleMode
	*s.timerSuspend = s.settings.TimerAutoSuspend
	*s.pomoWork = strconv.Itoa(s.settings.PomodoroWorkMinutes)
	*s.pomoBreak = strconv.Itoa(s.settings.PomodoroBreakMinutes)
	*s.pomoLongBreak = strconv.Itoa(s.settings.PomodoroLongBreakMinutes)
	*s.pomoSessions = strconv.Itoa(s.settings.PomodoroSessionsUntilLongBreak)
	*s.pomoNoSleep = s.settings.PomodoroPreventSleep
	*s.overlayMax = strconv.Itoa(s.settings.OverlayMaxItems)
	*s.overlayWindow = strconv.Itoa(s.settings.OverlayWindowMinutes)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Snooze duration (min)").Value(s.snooze).Validate(validatePositiveInt),
			huh.NewConfirm().Title("24-hour clock?").Value(s.use24h),
		).Title("General"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Timer sound").Options(soundOptions...).Value(s.timerSound),
			huh.NewInput().Title("Timer volume (0-100)").Value(s.timerVolume),
			huh.NewConfirm().Title("Subtle notifications?").Value(s.timerSubtle),
			huh.NewConfirm().Title("Suspend the system when a timer ends?").Value(s.timerSuspend),
		).Title("Timers"),
		huh.NewGroup(
			huh.NewInput().Title("Work (min)").Value(s.pomoWork).Validate(validatePositiveInt),
			huh.NewInput().Title("Short break (min)").Value(s.pomoBreak).Validate(validatePositiveInt),
			huh.NewInput().Title("Long break (min)").Value(s.pomoLongBreak).Validate(validatePositiveInt),
			huh.NewInput().Title("Sessions until long break").Value(s.pomoSessions).Validate(validatePositiveInt),
			huh.NewConfirm().Title("Keep the system awake during sessions?").Value(s.pomoNoSleep),
		).Title("Pomodoro"),
		huh.NewGroup(
			huh.NewInput().Title("Overlay max items").Value(s.overlayMax),
			huh.NewInput().Title("Overlay window (min)").Value(s.overlayWindow),
		).Title("Overlay"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.saveSettings()
		return s, s.refresh()
	}

	return s, cmd
}

func (s settingsModel) saveSettings() {
	updated := s.settings
	updated.SnoozeDuration = atoiOr(*s.snooze, updated.SnoozeDuration)
	updated.TimeFormat24H = *s.use24h
	updated.TimerSound = *s.timerSound
	updated.TimerVolume = clampVolume(atoiOr(*s.timerVolume, updated.TimerVolume))
	updated.TimerSubtleMode = *s.timerSubtle
	updated.TimerAutoSuspend = *s.timerSuspend
	updated.PomodoroWorkMinutes = atoiOr(*s.pomoWork, updated.PomodoroWorkMinutes)
	updated.PomodoroBreakMinutes = atoiOr(*s.pomoBreak, updated.PomodoroBreakMinutes)
	updated.PomodoroLongBreakMinutes = atoiOr(*s.pomoLongBreak, updated.PomodoroLongBreakMinutes)
	updated.PomodoroSessionsUntilLongBreak = atoiOr(*s.pomoSessions, updated.PomodoroSessionsUntilLongBreak)
	updated.PomodoroPreventSleep = *s.pomoNoSleep
	updated.OverlayMaxItems = atoiOr(*s.overlayMax, updated.OverlayMaxItems)
	updated.OverlayWindowMinutes = atoiOr(*s.overlayWindow, updated.OverlayWindowMinutes)
	s.engine.UpdateSettings(updated)
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	clock := "12h"
	if s.settings.TimeFormat24H {
		clock = "24h"
	}
	sound := s.settings.TimerSound
	if sound == "" {
		sound = "silent"
	}

	rows := []string{
		title,
		"",
		settingRow("Snooze duration", fmt.Sprintf("%d min", s.settings.SnoozeDuration)),
		settingRow("Clock format", clock),
		settingRow("Timer sound", sound),
		settingRow("Timer volume", strconv.Itoa(s.settings.TimerVolume)),
		settingRow("Subtle mode", onOff(s.settings.TimerSubtleMode)),
		settingRow("Auto-suspend", onOff(s.settings.TimerAutoSuspend)),
		settingRow("Pomodoro work", fmt.Sprintf("%d min", s.settings.PomodoroWorkMinutes)),
		settingRow("Pomodoro break", fmt.Sprintf("%d min", s.settings.PomodoroBreakMinutes)),
		settingRow("Pomodoro long break", fmt.Sprintf("%d min", s.settings.PomodoroLongBreakMinutes)),
		settingRow("Sessions until long break", strconv.Itoa(s.settings.PomodoroSessionsUntilLongBreak)),
		settingRow("Pomodoro keeps awake", onOff(s.settings.PomodoroPreventSleep)),
		settingRow("Overlay max items", strconv.Itoa(s.settings.OverlayMaxItems)),
		settingRow("Overlay window", fmt.Sprintf("%d min", s.settings.OverlayWindowMinutes)),
		"",
		hint,
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func settingRow(label, value string) string {
	return fmt.Sprintf("  %s %s",
		lipgloss.NewStyle().Width(28).Render(label),
		highlightStyle.Render(value))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
