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

// pomodoroModel renders the engine's pomodoro session. All phase
// transitions happen in the engine; the view only issues start, stop
// and skip operations and re-reads the state.
type pomodoroModel struct {
	engine *engine.Engine
	width  int
	height int

	state        store.PomodoroState
	stats        store.PomodoroStats
	sessionsGoal int
}

func newPomodoroModel(e *engine.Engine) pomodoroModel {
	return pomodoroModel{engine: e, sessionsGoal: 4}
}

func (p *pomodoroModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

type pomodoroDataMsg struct {
	state        store.PomodoroState
	stats        store.PomodoroStats
	sessionsGoal int
}

func (p pomodoroModel) refresh() tea.Cmd {
	return func() tea.Msg {
		state, _ := p.engine.PomodoroStatus()
		stats, _ := p.engine.PomodoroSummary()
		settings, _ := p.engine.Settings()
		return pomodoroDataMsg{state: state, stats: stats, sessionsGoal: settings.PomodoroSessionsUntilLongBreak}
	}
}

func (p pomodoroModel) update(msg tea.Msg) (pomodoroModel, tea.Cmd) {
	switch msg := msg.(type) {
	case pomodoroDataMsg:
		p.state = msg.state
		p.stats = msg.stats
		if msg.sessionsGoal > 0 {
			p.sessionsGoal = msg.sessionsGoal
		}
		return p, nil

	case tickMsg:
		return p, p.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Start):
			if !p.state.Active {
				p.engine.StartPomodoro()
				return p, p.refresh()
			}
		case key.Matches(msg, keys.Stop):
			if p.state.Active {
				p.engine.StopPomodoro()
				return p, tea.Batch(p.refresh(), func() tea.Msg {
					return statusMsg{text: "Pomodoro stopped"}
				})
			}
		case key.Matches(msg, keys.Skip):
			if p.state.Active {
				p.engine.SkipPomodoroPhase()
				return p, p.refresh()
			}
		}
	}
	return p, nil
}

func (p pomodoroModel) view() string {
	w := p.width - 4

	title := titleStyle.Render("Pomodoro")
	phase := p.renderPhase()
	countdown := p.renderCountdown()
	dots := p.renderSessionDots()
	stats := p.renderStats()

	var controls string
	if p.state.Active {
		controls = mutedStyle.Render("  x: stop  f: skip phase")
	} else {
		controls = mutedStyle.Render("  s: start a focus session")
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title, "", phase, countdown, "", dots, "", stats, "", controls,
		),
	)
}

func (p pomodoroModel) renderPhase() string {
	if !p.state.Active {
		return subtitleStyle.Render("  Idle")
	}
	if p.state.IsBreak {
		kind := "Short break"
		if p.state.BreakType == "long" {
			kind = "Long break"
		}
		return warningStyle.Render(fmt.Sprintf("  %s — cycle %d", kind, p.state.CurrentCycle))
	}
	return successStyle.Render(fmt.Sprintf("  Focus — session %d of %d, cycle %d",
		p.state.CurrentSession, p.sessionsGoal, p.state.CurrentCycle))
}

func (p pomodoroModel) renderCountdown() string {
	if !p.state.Active {
		return timerStyle.Width(p.width - 8).Render(formatPomodoroTime(0))
	}
	remaining := time.Until(time.Unix(p.state.EndTime, 0))
	style := timerRunningStyle
	if p.state.IsBreak {
		style = timerPausedStyle
	}
	return style.Width(p.width - 8).Render(formatPomodoroTime(remaining))
}

// renderSessionDots shows completed sessions in the current cycle as
// filled dots.
func (p pomodoroModel) renderSessionDots() string {
	done := 0
	if p.state.Active {
		done = p.state.CurrentSession
		if !p.state.IsBreak {
			done--
		}
	}

	var dots []string
	for i := 0; i < p.sessionsGoal; i++ {
		if i < done {
			dots = append(dots, successStyle.Render("●"))
		} else {
			dots = append(dots, mutedStyle.Render("○"))
		}
	}
	return "  " + strings.Join(dots, " ")
}

func (p pomodoroModel) renderStats() string {
	today := time.Now().Format("2006-01-02")
	day := p.stats.History[today]

	var rows []string
	rows = append(rows, mutedStyle.Render("  Today: ")+
		highlightStyle.Render(formatHours(day.FocusSeconds))+
		mutedStyle.Render(" focus, ")+
		highlightStyle.Render(fmt.Sprintf("%d", day.Sessions))+
		mutedStyle.Render(" sessions"))
	rows = append(rows, mutedStyle.Render("  All time: ")+
		highlightStyle.Render(formatHours(p.stats.TotalFocusSeconds))+
		mutedStyle.Render(fmt.Sprintf(" focus, %d sessions, %d cycles",
			p.stats.SessionsCompleted, p.stats.CyclesCompleted)))
	if p.stats.Streak > 0 {
		rows = append(rows, accentStyle.Render(fmt.Sprintf("  🔥 %d day streak", p.stats.Streak)))
	}
	return strings.Join(rows, "\n")
}

func formatPomodoroTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
