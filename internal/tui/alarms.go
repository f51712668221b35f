package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/chime/internal/engine"
	"github.com/sadopc/chime/internal/store"
)

var recurrenceOptions = []huh.Option[string]{
	huh.NewOption("Once", "once"),
	huh.NewOption("Daily", "daily"),
	huh.NewOption("Weekdays", "weekdays"),
	huh.NewOption("Weekends", "weekends"),
	huh.NewOption("Custom days", "custom"),
}

type alarmsModel struct {
	engine *engine.Engine
	width  int
	height int

	alarms []store.Alarm
	cursor int
	use24h bool

	formActive bool
	form       *huh.Form
	editingID  string // empty means creating

	// Form field pointers (survive value copies)
	formLabel      *string
	formTime       *string // "HH:MM"
	formRecurrence *string
	formDays       *string // comma-separated indices, 0=Monday
	formSnooze     *string // minutes, empty for the global default
	formWindow     *string // prevent-sleep look-ahead minutes
}

func newAlarmsModel(e *engine.Engine) alarmsModel {
	label, tm, rec, days, snooze, window := "", "", "daily", "", "", ""
	return alarmsModel{
		engine:         e,
		use24h:         true,
		formLabel:      &label,
		formTime:       &tm,
		formRecurrence: &rec,
		formDays:       &days,
		formSnooze:     &snooze,
		formWindow:     &window,
	}
}

func (a *alarmsModel) setSize(w, h int) {
	a.width = w
	a.height = h
}

type alarmsDataMsg struct {
	alarms []store.Alarm
	use24h bool
}

func (a alarmsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		alarms, _ := a.engine.Alarms()
		settings, _ := a.engine.Settings()
		return alarmsDataMsg{alarms: alarms, use24h: settings.TimeFormat24H}
	}
}

func (a alarmsModel) update(msg tea.Msg) (alarmsModel, tea.Cmd) {
	if a.formActive && a.form != nil {
		return a.updateForm(msg)
	}

	switch msg := msg.(type) {
	case alarmsDataMsg:
		a.alarms = msg.alarms
		a.use24h = msg.use24h
		if a.cursor >= len(a.alarms) {
			a.cursor = max(0, len(a.alarms)-1)
		}
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if a.cursor > 0 {
				a.cursor--
			}
		case key.Matches(msg, keys.Down):
			if a.cursor < len(a.alarms)-1 {
				a.cursor++
			}
		case key.Matches(msg, keys.New):
			return a.showForm(nil)
		case key.Matches(msg, keys.Edit):
			if len(a.alarms) > 0 {
				alarm := a.alarms[a.cursor]
				return a.showForm(&alarm)
			}
		case key.Matches(msg, keys.Delete):
			if len(a.alarms) > 0 {
				a.engine.DeleteAlarm(a.alarms[a.cursor].ID)
				return a, a.refresh()
			}
		case key.Matches(msg, keys.Toggle):
			if len(a.alarms) > 0 {
				alarm := a.alarms[a.cursor]
				a.engine.ToggleAlarm(alarm.ID, !alarm.Enabled)
				return a, a.refresh()
			}
		case key.Matches(msg, keys.Snooze):
			if len(a.alarms) > 0 {
				a.engine.SnoozeAlarm(a.alarms[a.cursor].ID)
				return a, tea.Batch(a.refresh(), func() tea.Msg {
					return statusMsg{text: "Alarm snoozed"}
				})
			}
		}
	}
	return a, nil
}

func (a alarmsModel) showForm(alarm *store.Alarm) (alarmsModel, tea.Cmd) {
	if alarm != nil {
		a.editingID = alarm.ID
		*a.formLabel = alarm.Label
		*a.formTime = fmt.Sprintf("%02d:%02d", alarm.Hour, alarm.Minute)
		*a.formRecurrence = alarm.Recurring
		*a.formDays = ""
		if isCustomDaySet(alarm.Recurring) {
			*a.formRecurrence = "custom"
			*a.formDays = alarm.Recurring
		}
		*a.formSnooze = ""
		if alarm.SnoozeDuration > 0 {
			*a.formSnooze = strconv.Itoa(alarm.SnoozeDuration)
		}
		*a.formWindow = ""
		if alarm.PreventSleepWindow > 0 {
			*a.formWindow = strconv.Itoa(alarm.PreventSleepWindow)
		}
	} else {
		a.editingID = ""
		*a.formLabel = ""
		*a.formTime = ""
		*a.formRecurrence = "daily"
		*a.formDays = ""
		*a.formSnooze = ""
		*a.formWindow = ""
	}

	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Label").Value(a.formLabel),
			huh.NewInput().Title("Time (HH:MM)").Value(a.formTime).Validate(validateClock),
			huh.NewSelect[string]().Title("Repeats").Options(recurrenceOptions...).Value(a.formRecurrence),
			huh.NewInput().Title("Custom days (0=Mon, e.g. 0,2,4)").Value(a.formDays),
			huh.NewInput().Title("Snooze minutes (blank = default)").Value(a.formSnooze),
			huh.NewInput().Title("Keep awake minutes before (blank = off)").Value(a.formWindow),
		),
	).WithShowHelp(true).WithShowErrors(true)

	a.formActive = true
	return a, a.form.Init()
}

func (a alarmsModel) updateForm(msg tea.Msg) (alarmsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			a.formActive = false
			a.form = nil
			return a, nil
		}
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	if a.form.State == huh.StateCompleted {
		a.formActive = false
		a.submitForm()
		return a, a.refresh()
	}

	return a, cmd
}

func (a alarmsModel) submitForm() {
	hour, minute, err := parseClock(*a.formTime)
	if err != nil {
		return
	}
	recurring := *a.formRecurrence
	if recurring == "custom" {
		recurring = strings.TrimSpace(*a.formDays)
	}
	params := engine.AlarmParams{
		Label:              *a.formLabel,
		Hour:               hour,
		Minute:             minute,
		Recurring:          recurring,
		SnoozeDuration:     atoiOr(*a.formSnooze, 0),
		PreventSleepWindow: atoiOr(*a.formWindow, 0),
	}
	if a.editingID != "" {
		a.engine.UpdateAlarm(a.editingID, params)
	} else {
		a.engine.CreateAlarm(params)
	}
}

func (a alarmsModel) view() string {
	w := a.width - 4

	if a.formActive && a.form != nil {
		title := titleStyle.Render("New Alarm")
		if a.editingID != "" {
			title = titleStyle.Render("Edit Alarm")
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", a.form.View()),
		)
	}

	title := titleStyle.Render("Alarms")

	if len(a.alarms) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No alarms yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	now := time.Now()
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-3s %-8s %-24s %-12s %s", "", "Time", "Label", "Repeats", "Next")))

	for i, alarm := range a.alarms {
		cursor := "  "
		style := normalItemStyle
		if i == a.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		state := successStyle.Render("●")
		if !alarm.Enabled {
			state = mutedStyle.Render("○")
		}

		next := mutedStyle.Render("off")
		if at, ok := engine.NextTrigger(alarm, now); ok {
			next = highlightStyle.Render(formatRelative(at.Unix(), now))
			if alarm.SnoozedUntil != nil {
				next = warningStyle.Render("snoozed " + formatRelative(at.Unix(), now))
			}
		}

		row := style.Render(fmt.Sprintf("%s%s %-8s %-24s %-12s", cursor, state,
			formatClock(alarm.Hour, alarm.Minute, a.use24h), alarm.Label, recurrenceLabel(alarm.Recurring)))
		rows = append(rows, row+" "+next)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  t: toggle  z: snooze  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func recurrenceLabel(recurring string) string {
	switch recurring {
	case "once", "daily", "weekdays", "weekends":
		return recurring
	}
	return "custom"
}

func isCustomDaySet(recurring string) bool {
	return recurrenceLabel(recurring) == "custom"
}

// parseClock parses "HH:MM" in 24-hour notation.
func parseClock(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time must be HH:MM")
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour out of range")
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute out of range")
	}
	return hour, minute, nil
}

func validateClock(s string) error {
	_, _, err := parseClock(s)
	return err
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}
