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

// missedModel lists the missed-item log, newest first. Export lives at
// the app level so it also works from other views.
type missedModel struct {
	engine *engine.Engine
	width  int
	height int

	items  []store.MissedItem
	cursor int
}

func newMissedModel(e *engine.Engine) missedModel {
	return missedModel{engine: e}
}

func (m *missedModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type missedDataMsg struct {
	items []store.MissedItem
}

func (m missedModel) refresh() tea.Cmd {
	return func() tea.Msg {
		items, _ := m.engine.MissedItems()
		return missedDataMsg{items: items}
	}
}

func (m missedModel) update(msg tea.Msg) (missedModel, tea.Cmd) {
	switch msg := msg.(type) {
	case missedDataMsg:
		m.items = msg.items
		if m.cursor >= len(m.items) {
			m.cursor = max(0, len(m.items)-1)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Clear):
			m.engine.ClearMissedItems()
			return m, tea.Batch(m.refresh(), func() tea.Msg {
				return statusMsg{text: "Missed items cleared"}
			})
		}
	}
	return m, nil
}

func (m missedModel) view() string {
	w := m.width - 4
	title := titleStyle.Render("Missed")

	if len(m.items) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("Nothing was missed. 🎉"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-3s %-10s %-24s %-18s %s", "", "Type", "Label", "Due", "Late by")))

	visible := m.items
	maxRows := m.height - 10
	if maxRows > 0 && len(visible) > maxRows {
		visible = visible[:maxRows]
	}

	for i, item := range visible {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		late := item.MissedAt - item.DueTime
		if late < 0 {
			late = 0
		}
		label := item.Label
		if label == "" {
			label = "(unnamed)"
		}

		row := style.Render(fmt.Sprintf("%s%s %-9s %-24s %-18s",
			cursor, typeDot(item.Type), item.Type, label,
			time.Unix(item.DueTime, 0).Format("Jan 02 15:04")))
		rows = append(rows, row+" "+warningStyle.Render(formatSeconds(late)))
	}

	if len(visible) < len(m.items) {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … and %d more", len(m.items)-len(visible))))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  o: export  c: clear"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
