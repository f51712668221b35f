package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/chime/internal/engine"
	"github.com/sadopc/chime/internal/store"
)

// dashboardModel shows the active countdown timers, the upcoming-alert
// overlay and the sleep-inhibition state. New timers are started from
// the preset picker.
type dashboardModel struct {
	engine *engine.Engine
	width  int
	height int

	timers       []store.Timer
	presets      []store.Preset
	overlay      []engine.OverlayItem
	missedCount  int
	inhibited    bool
	inhibitItems []string

	cursor     int
	picking    bool
	pickCursor int
}

func newDashboardModel(e *engine.Engine) dashboardModel {
	return dashboardModel{engine: e}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

type dashboardDataMsg struct {
	timers       []store.Timer
	presets      []store.Preset
	overlay      []engine.OverlayItem
	missedCount  int
	inhibited    bool
	inhibitItems []string
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		timers, _ := d.engine.ActiveTimers()
		presets, _ := d.engine.Presets()
		overlay, _ := d.engine.Overlay()
		missed, _ := d.engine.MissedItems()
		inhibited, items := d.engine.InhibitStatus()
		return dashboardDataMsg{
			timers:       timers,
			presets:      presets,
			overlay:      overlay,
			missedCount:  len(missed),
			inhibited:    inhibited,
			inhibitItems: items,
		}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.timers = msg.timers
		d.presets = msg.presets
		d.overlay = msg.overlay
		d.missedCount = msg.missedCount
		d.inhibited = msg.inhibited
		d.inhibitItems = msg.inhibitItems
		if d.cursor >= len(d.timers) {
			d.cursor = max(0, len(d.timers)-1)
		}
		if d.pickCursor >= len(d.presets) {
			d.pickCursor = max(0, len(d.presets)-1)
		}
		return d, nil

	case tickMsg:
		return d, d.loadData()

	case tea.KeyMsg:
		if d.picking {
			return d.updatePicker(msg)
		}
		return d.updateTimerList(msg)
	}
	return d, nil
}

func (d dashboardModel) updateTimerList(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if d.cursor > 0 {
			d.cursor--
		}
	case key.Matches(msg, keys.Down):
		if d.cursor < len(d.timers)-1 {
			d.cursor++
		}
	case key.Matches(msg, keys.Start), key.Matches(msg, keys.New):
		if len(d.presets) > 0 {
			d.picking = true
			d.pickCursor = 0
		}
	case key.Matches(msg, keys.Pause):
		if len(d.timers) > 0 {
			t := d.timers[d.cursor]
			if t.Paused {
				d.engine.ResumeTimer(t.ID)
			} else {
				d.engine.PauseTimer(t.ID)
			}
			return d, d.loadData()
		}
	case key.Matches(msg, keys.Delete), key.Matches(msg, keys.Stop):
		if len(d.timers) > 0 {
			d.engine.CancelTimer(d.timers[d.cursor].ID)
			return d, tea.Batch(d.loadData(), func() tea.Msg {
				return statusMsg{text: "Timer cancelled"}
			})
		}
	}
	return d, nil
}

func (d dashboardModel) updatePicker(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		d.picking = false
	case key.Matches(msg, keys.Up):
		if d.pickCursor > 0 {
			d.pickCursor--
		}
	case key.Matches(msg, keys.Down):
		if d.pickCursor < len(d.presets)-1 {
			d.pickCursor++
		}
	case key.Matches(msg, keys.Enter):
		d.picking = false
		if d.pickCursor < len(d.presets) {
			p := d.presets[d.pickCursor]
			d.engine.CreateTimer(p.Seconds, p.Label, false, false)
			return d, tea.Batch(d.loadData(), func() tea.Msg {
				return statusMsg{text: "Timer started: " + p.Label}
			})
		}
	}
	return d, nil
}

func (d dashboardModel) view() string {
	w := d.width - 4

	if d.picking {
		return d.renderPresetPicker(w)
	}

	top := d.renderTimerPanel(w)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		d.renderOverlayPanel(w/2),
		d.renderStatusPanel(w-w/2-2),
	)
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func (d dashboardModel) renderTimerPanel(w int) string {
	title := titleStyle.Render("Timers")

	if len(d.timers) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No running timers. Press s to start one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	now := time.Now()
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for i, t := range d.timers {
		cursor := "  "
		style := normalItemStyle
		if i == d.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		var remaining string
		if t.Paused {
			remaining = timerPausedStyle.Render("⏸ " + formatSeconds(t.PausedRemaining))
		} else {
			remaining = timerRunningStyle.Render("● " + formatDuration(time.Unix(t.EndTime, 0).Sub(now)))
		}

		label := t.Label
		if label == "" {
			label = formatSeconds(int64(t.Seconds))
		}
		flags := ""
		if t.PreventSleep {
			flags += mutedStyle.Render(" [no-sleep]")
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-28s", cursor, label))+remaining+flags)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  s: start  space: pause/resume  d: cancel"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderOverlayPanel(w int) string {
	title := titleStyle.Render("Up Next")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	if len(d.overlay) == 0 {
		rows = append(rows, mutedStyle.Render("Nothing scheduled in the window"))
	}

	now := time.Now()
	for _, item := range d.overlay {
		dot := typeDot(item.Type)
		label := item.Label
		if label == "" {
			label = item.Type
		}
		when := highlightStyle.Render(formatRelative(item.At, now))
		rows = append(rows, fmt.Sprintf("  %s %-24s %s", dot, label, when))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderStatusPanel(w int) string {
	title := titleStyle.Render("Status")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	if d.inhibited {
		rows = append(rows, successStyle.Render("  ☾ sleep inhibited"))
		for _, item := range d.inhibitItems {
			rows = append(rows, mutedStyle.Render("    "+item))
		}
	} else {
		rows = append(rows, mutedStyle.Render("  sleep allowed"))
	}

	rows = append(rows, "")
	if d.missedCount > 0 {
		rows = append(rows, warningStyle.Render(fmt.Sprintf("  %d missed item(s)", d.missedCount)))
	} else {
		rows = append(rows, mutedStyle.Render("  no missed items"))
	}
	if d.engine.GamingActive() {
		rows = append(rows, accentStyle.Render("  gaming mode active"))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderPresetPicker(w int) string {
	title := titleStyle.Render("Start Timer")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for i, p := range d.presets {
		cursor := "  "
		style := normalItemStyle
		if i == d.pickCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-20s %s", cursor, p.Label, formatSeconds(int64(p.Seconds)))))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: start  esc: cancel"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func typeDot(kind string) string {
	switch kind {
	case "timer":
		return successStyle.Render("●")
	case "alarm":
		return accentStyle.Render("●")
	case "reminder":
		return highlightStyle.Render("●")
	case "pomodoro":
		return warningStyle.Render("●")
	}
	return mutedStyle.Render("●")
}
