package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tubemdo/tubemdo/internal/study"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type PointMsg struct {
	Index int
	Point study.Point
}

type DoneMsg struct {
	Points []study.Point
	Err    error
}

// SweepModel shows a live trade study: a progress bar, per-point results
// as they land, and the objective curve once the sweep finishes.
type SweepModel struct {
	parameter string
	objective string
	values    []float64

	points map[int]study.Point
	final  []study.Point
	done   bool
	err    error

	msgs   chan tea.Msg
	width  int
	height int
}

func NewSweepModel(parameter, objective string, values []float64) *SweepModel {
	return &SweepModel{
		parameter: parameter,
		objective: objective,
		values:    values,
		points:    make(map[int]study.Point, len(values)),
		msgs:      make(chan tea.Msg, len(values)+1),
		width:     80,
		height:    24,
	}
}

// Observer feeds completed points into the running program. Safe to call
// from worker goroutines.
func (m *SweepModel) Observer() study.Observer {
	return func(index int, pt study.Point) {
		m.msgs <- PointMsg{Index: index, Point: pt}
	}
}

// Finish signals the sweep outcome to the program.
func (m *SweepModel) Finish(points []study.Point, err error) {
	m.msgs <- DoneMsg{Points: points, Err: err}
}

func (m *SweepModel) wait() tea.Cmd {
	return func() tea.Msg { return <-m.msgs }
}

func (m *SweepModel) Init() tea.Cmd { return m.wait() }

func (m *SweepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.done {
				return m, tea.Quit
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case PointMsg:
		m.points[msg.Index] = msg.Point
		return m, m.wait()
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.final = msg.Points
		for i, pt := range msg.Points {
			m.points[i] = pt
		}
		return m, nil
	}
	return m, nil
}

func (m *SweepModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("   " + cyan.Render("sweep "+m.parameter) + "  " + dim.Render("minimize "+m.objective) + "\n")
	b.WriteString(dimmer.Render("   "+strings.Repeat("─", 40)) + "\n\n")

	finished := len(m.points)
	total := len(m.values)
	progress := 0.0
	if total > 0 {
		progress = float64(finished) / float64(total)
	}
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s\n\n", bar, dim.Render(fmt.Sprintf("%d/%d", finished, total))))

	for i, v := range m.values {
		pt, ok := m.points[i]
		label := fmt.Sprintf("%-10s", trimFloat(v))
		switch {
		case !ok:
			b.WriteString("     " + dimmer.Render(label+"…") + "\n")
		case pt.Err != "":
			b.WriteString("     " + dim.Render(label) + red.Render("✗ "+pt.Err) + "\n")
		case !pt.Result.Converged:
			b.WriteString("     " + dim.Render(label) + yellow.Render(fmt.Sprintf("○ %-14s", trimFloat(pt.Result.Objective))) +
				dim.Render(fmt.Sprintf("viol %.2e", pt.Result.Violation)) + "\n")
		default:
			b.WriteString("     " + white.Render(label) + green.Render("● ") + magenta.Render(fmt.Sprintf("%-14s", trimFloat(pt.Result.Objective))) +
				dim.Render(fmt.Sprintf("%d iters", pt.Result.Iterations)) + "\n")
		}
	}

	if m.done {
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString("   " + red.Render("sweep stopped: "+m.err.Error()) + "\n")
		}
		if plot := m.plot(); plot != "" {
			b.WriteString("\n" + plot + "\n")
		}
		b.WriteString("\n" + dim.Render("   enter/q exit") + "\n")
	} else {
		b.WriteString("\n" + dim.Render("   q abort") + "\n")
	}

	return b.String()
}

// plot renders the objective across converged points, in sweep order.
func (m *SweepModel) plot() string {
	type sample struct{ value, objective float64 }
	samples := make([]sample, 0, len(m.points))
	for _, pt := range m.points {
		if pt.Err == "" {
			samples = append(samples, sample{pt.Value, pt.Result.Objective})
		}
	}
	if len(samples) < 2 {
		return ""
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].value < samples[j].value })

	data := make([]float64, len(samples))
	for i, s := range samples {
		data[i] = s.objective
	}
	width := m.width - 20
	if width < 30 {
		width = 30
	}
	return asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("%s vs %s", m.objective, m.parameter)),
	)
}

func trimFloat(v float64) string {
	av := math.Abs(v)
	switch {
	case av != 0 && (av >= 1e6 || av < 1e-3):
		return fmt.Sprintf("%.3e", v)
	case av >= 100:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.4g", v)
	}
}

// Results returns what the sweep produced. After the DoneMsg it is the
// full outcome; on an aborted run it is the points that had arrived, in
// sweep order.
func (m *SweepModel) Results() ([]study.Point, error) {
	if m.done {
		return m.final, m.err
	}
	partial := make([]study.Point, 0, len(m.points))
	for i := range m.values {
		if pt, ok := m.points[i]; ok {
			partial = append(partial, pt)
		}
	}
	return partial, nil
}

// RunSweep drives the study behind a live view. The run function receives
// an observer to report points and must honor it from any goroutine.
// Results flow back through the model's message channel, so an aborted
// view never races the still-running study.
func RunSweep(parameter, objective string, values []float64, run func(obs study.Observer) ([]study.Point, error)) ([]study.Point, error) {
	model := NewSweepModel(parameter, objective, values)
	p := tea.NewProgram(model)

	go func() {
		points, err := run(model.Observer())
		model.Finish(points, err)
	}()

	if _, err := p.Run(); err != nil {
		return nil, err
	}
	return model.Results()
}
