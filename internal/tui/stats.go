package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/chime/internal/engine"
	"github.com/sadopc/chime/internal/store"
)

// statsModel charts the pomodoro history, seven days at a time.
type statsModel struct {
	engine *engine.Engine
	width  int
	height int

	stats  store.PomodoroStats
	offset int // 7-day blocks back from today (0 = current)

	chart barchart.Model
}

func newStatsModel(e *engine.Engine) statsModel {
	return statsModel{
		engine: e,
		chart:  barchart.New(60, 12),
	}
}

func (s *statsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type statsDataMsg struct {
	stats store.PomodoroStats
}

func (s statsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		stats, _ := s.engine.PomodoroSummary()
		return statsDataMsg{stats: stats}
	}
}

func (s statsModel) dateRange() (time.Time, time.Time) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := today.AddDate(0, 0, 1-7*s.offset)
	return end.AddDate(0, 0, -7), end
}

func (s statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statsDataMsg:
		s.stats = msg.stats
		s.buildChart()
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			s.offset++
			s.buildChart()
		case key.Matches(msg, keys.Right):
			if s.offset > 0 {
				s.offset--
				s.buildChart()
			}
		}
	}
	return s, nil
}

func (s *statsModel) buildChart() {
	chartWidth := s.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if s.height > 30 {
		chartHeight = 16
	}

	s.chart = barchart.New(chartWidth, chartHeight)

	from, to := s.dateRange()
	focusStyle := lipgloss.NewStyle().Foreground(colorSuccess)
	breakStyle := lipgloss.NewStyle().Foreground(colorWarning)

	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		day := s.stats.History[d.Format("2006-01-02")]

		values := []barchart.BarValue{
			{Name: "focus", Value: float64(day.FocusSeconds) / 3600.0, Style: focusStyle},
			{Name: "break", Value: float64(day.BreakSeconds) / 3600.0, Style: breakStyle},
		}
		bars = append(bars, barchart.BarData{
			Label:  d.Format("Mon 02"),
			Values: values,
		})
	}

	s.chart.PushAll(bars)
	s.chart.Draw()
}

func (s statsModel) view() string {
	// The first render can arrive before any WindowSizeMsg.
	w := s.width - 4
	if w < 20 {
		w = 20
	}

	from, to := s.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s — %s", from.Format("Jan 02"), to.Add(-24*time.Hour).Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Focus History"), "  ", dateLabel,
	)

	legend := "  " + successStyle.Render("●") + " focus  " + warningStyle.Render("●") + " break"

	table := s.renderTable(w)
	totals := s.renderTotals()
	nav := mutedStyle.Render("  ←/→: navigate weeks")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", s.chart.View(), "", legend, "", table, "", totals, "", nav,
		),
	)
}

func (s statsModel) renderTable(w int) string {
	from, to := s.dateRange()

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %10s %10s %10s", "Date", "Focus", "Break", "Sessions")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 46))))

	empty := true
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		day, ok := s.stats.History[date]
		if !ok {
			continue
		}
		empty = false
		rows = append(rows, fmt.Sprintf("  %-12s %10s %10s %10d",
			date, formatSeconds(day.FocusSeconds), formatSeconds(day.BreakSeconds), day.Sessions))
	}
	if empty {
		return mutedStyle.Render("  No sessions in this period")
	}
	return strings.Join(rows, "\n")
}

func (s statsModel) renderTotals() string {
	line := mutedStyle.Render("  Total: ") +
		highlightStyle.Render(formatHours(s.stats.TotalFocusSeconds)) +
		mutedStyle.Render(fmt.Sprintf(" focus across %d sessions, %d cycles",
			s.stats.SessionsCompleted, s.stats.CyclesCompleted))
	if s.stats.Streak > 0 {
		line += accentStyle.Render(fmt.Sprintf("  🔥 %d day streak", s.stats.Streak))
	}
	return line
}
