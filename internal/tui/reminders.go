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

type remindersModel struct {
	engine *engine.Engine
	width  int
	height int

	reminders []store.Reminder
	cursor    int

	formActive bool
	form       *huh.Form
	editingID  string

	// Form field pointers (survive value copies)
	formLabel     *string
	formFrequency *string // minutes
	formRepeats   *string // count, blank for infinite
	formGaming    *bool
	formGameReset *bool
	formNoSleep   *bool
}

func newRemindersModel(e *engine.Engine) remindersModel {
	label, freq, repeats := "", "", ""
	gaming, gameReset, noSleep := false, false, false
	return remindersModel{
		engine:        e,
		formLabel:     &label,
		formFrequency: &freq,
		formRepeats:   &repeats,
		formGaming:    &gaming,
		formGameReset: &gameReset,
		formNoSleep:   &noSleep,
	}
}

func (r *remindersModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type remindersDataMsg struct {
	reminders []store.Reminder
}

func (r remindersModel) refresh() tea.Cmd {
	return func() tea.Msg {
		reminders, _ := r.engine.Reminders()
		return remindersDataMsg{reminders: reminders}
	}
}

func (r remindersModel) update(msg tea.Msg) (remindersModel, tea.Cmd) {
	if r.formActive && r.form != nil {
		return r.updateForm(msg)
	}

	switch msg := msg.(type) {
	case remindersDataMsg:
		r.reminders = msg.reminders
		if r.cursor >= len(r.reminders) {
			r.cursor = max(0, len(r.reminders)-1)
		}
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if r.cursor > 0 {
				r.cursor--
			}
		case key.Matches(msg, keys.Down):
			if r.cursor < len(r.reminders)-1 {
				r.cursor++
			}
		case key.Matches(msg, keys.New):
			return r.showForm(nil)
		case key.Matches(msg, keys.Edit):
			if len(r.reminders) > 0 {
				reminder := r.reminders[r.cursor]
				return r.showForm(&reminder)
			}
		case key.Matches(msg, keys.Delete):
			if len(r.reminders) > 0 {
				r.engine.DeleteReminder(r.reminders[r.cursor].ID)
				return r, r.refresh()
			}
		case key.Matches(msg, keys.Toggle):
			if len(r.reminders) > 0 {
				reminder := r.reminders[r.cursor]
				r.engine.ToggleReminder(reminder.ID, !reminder.Enabled)
				return r, r.refresh()
			}
		}
	}
	return r, nil
}

func (r remindersModel) showForm(reminder *store.Reminder) (remindersModel, tea.Cmd) {
	if reminder != nil {
		r.editingID = reminder.ID
		*r.formLabel = reminder.Label
		*r.formFrequency = strconv.Itoa(reminder.FrequencyMinutes)
		*r.formRepeats = ""
		if reminder.Recurrences > 0 {
			*r.formRepeats = strconv.Itoa(reminder.Recurrences)
		}
		*r.formGaming = reminder.OnlyWhileGaming
		*r.formGameReset = reminder.ResetOnGameStart
		*r.formNoSleep = reminder.PreventSleep
	} else {
		r.editingID = ""
		*r.formLabel = ""
		*r.formFrequency = "30"
		*r.formRepeats = ""
		*r.formGaming = false
		*r.formGameReset = false
		*r.formNoSleep = false
	}

	r.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Label").Value(r.formLabel),
			huh.NewInput().Title("Every N minutes").Value(r.formFrequency).Validate(validatePositiveInt),
			huh.NewInput().Title("Repeat count (blank = forever)").Value(r.formRepeats),
			huh.NewConfirm().Title("Only while gaming?").Value(r.formGaming),
			huh.NewConfirm().Title("Restart schedule when a game starts?").Value(r.formGameReset),
			huh.NewConfirm().Title("Keep the system awake?").Value(r.formNoSleep),
		),
	).WithShowHelp(true).WithShowErrors(true)

	r.formActive = true
	return r, r.form.Init()
}

func (r remindersModel) updateForm(msg tea.Msg) (remindersModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			r.formActive = false
			r.form = nil
			return r, nil
		}
	}

	form, cmd := r.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		r.form = f
	}

	if r.form.State == huh.StateCompleted {
		r.formActive = false
		r.submitForm()
		return r, r.refresh()
	}

	return r, cmd
}

func (r remindersModel) submitForm() {
	freq := atoiOr(*r.formFrequency, 0)
	if freq <= 0 {
		return
	}
	params := engine.ReminderParams{
		Label:            *r.formLabel,
		FrequencyMinutes: freq,
		Recurrences:      atoiOr(*r.formRepeats, -1),
		OnlyWhileGaming:  *r.formGaming,
		ResetOnGameStart: *r.formGameReset,
		PreventSleep:     *r.formNoSleep,
	}
	if r.editingID != "" {
		r.engine.UpdateReminder(r.editingID, params)
	} else {
		r.engine.CreateReminder(params)
	}
}

func (r remindersModel) view() string {
	w := r.width - 4

	if r.formActive && r.form != nil {
		title := titleStyle.Render("New Reminder")
		if r.editingID != "" {
			title = titleStyle.Render("Edit Reminder")
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", r.form.View()),
		)
	}

	title := titleStyle.Render("Reminders")

	if len(r.reminders) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No reminders yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	now := time.Now()
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-3s %-24s %-10s %-10s %s", "", "Label", "Every", "Left", "Next")))

	for i, reminder := range r.reminders {
		cursor := "  "
		style := normalItemStyle
		if i == r.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		state := successStyle.Render("●")
		if !reminder.Enabled {
			state = mutedStyle.Render("○")
		}

		left := "∞"
		if reminder.Recurrences > 0 {
			left = strconv.Itoa(reminder.TriggersRemaining)
		}

		next := mutedStyle.Render("off")
		if reminder.Enabled {
			next = highlightStyle.Render(formatRelative(reminder.NextTrigger, now))
		}

		flags := ""
		if reminder.OnlyWhileGaming {
			flags += mutedStyle.Render(" [gaming]")
		}
		if reminder.PreventSleep {
			flags += mutedStyle.Render(" [no-sleep]")
		}

		row := style.Render(fmt.Sprintf("%s%s %-24s %-10s %-10s", cursor, state,
			reminder.Label, fmt.Sprintf("%dm", reminder.FrequencyMinutes), left))
		rows = append(rows, row+" "+next+flags)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  t: toggle  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}
