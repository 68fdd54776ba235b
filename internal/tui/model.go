package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/OCAP2/scrubber/internal/engine"
	"github.com/OCAP2/scrubber/internal/util"
)

// Screen rows the pointer can interact with.
const (
	rowOverlay = 1
	rowTrack   = 2
)

const (
	defaultWidth = 80
	seekStep     = 0.05
)

// Dispatch sends a command to the engine. It must not block on the control
// thread.
type Dispatch func(command string, args ...string) error

// Model is the bubbletea model of the play command.
type Model struct {
	title    string
	dispatch Dispatch
	keys     keyMap
	help     help.Model

	frame Frame
	ready bool
	width int
	err   error

	hoverID   string
	onOverlay bool
}

// New creates a model titled title that forwards input through dispatch.
func New(title string, dispatch Dispatch) Model {
	return Model{
		title:    title,
		dispatch: dispatch,
		keys:     keys,
		help:     help.New(),
		width:    defaultWidth,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 10)
		m.help.Width = msg.Width
		return m, nil

	case FrameMsg:
		m.frame = Frame(msg)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Play):
		m.send(engine.CmdTogglePlay)
	case key.Matches(msg, m.keys.Resume):
		m.send(engine.CmdResume)
	case key.Matches(msg, m.keys.Prev):
		m.send(engine.CmdStepPrevious)
	case key.Matches(msg, m.keys.Next):
		m.send(engine.CmdStepNext)
	case key.Matches(msg, m.keys.Loop):
		m.send(engine.CmdToggleLoop)
	case key.Matches(msg, m.keys.Faster):
		m.send(engine.CmdSpeedUp)
	case key.Matches(msg, m.keys.Slower):
		m.send(engine.CmdSlowDown)
	case key.Matches(msg, m.keys.Back):
		m.seekBy(-seekStep)
	case key.Matches(msg, m.keys.Ahead):
		m.seekBy(seekStep)
	case key.Matches(msg, m.keys.Hide):
		m.send(engine.CmdHideDetail)
	}
	return m, nil
}

func (m *Model) seekBy(fraction float64) {
	if !m.ready {
		return
	}
	span := m.frame.End - m.frame.Start
	p := util.Clamp(m.frame.Start, m.frame.Progress+fraction*span, m.frame.End)
	m.send(engine.CmdSeek, strconv.FormatFloat(p, 'f', -1, 64))
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if !m.ready {
		return
	}
	w := m.trackWidth()
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.Y == rowTrack:
		if mk, ok := m.markerAt(msg.X); ok {
			m.send(engine.CmdSelect, mk.ID)
			return
		}
		m.drag(msg.X, w)

	case msg.Action == tea.MouseActionMotion && msg.Button == tea.MouseButtonLeft:
		m.drag(msg.X, w)

	case msg.Action == tea.MouseActionMotion:
		m.hover(msg.X, msg.Y)
	}
}

func (m *Model) drag(x, w int) {
	m.send(engine.CmdDrag, strconv.Itoa(x), strconv.Itoa(max(w-1, 1)))
}

// hover translates pointer motion into hover enter / exit and overlay leave
// commands.
func (m *Model) hover(x, y int) {
	var under string
	if y == rowTrack {
		if mk, ok := m.markerAt(x); ok {
			under = mk.ID
		}
	}
	switch {
	case under != "" && under != m.hoverID:
		m.hoverID = under
		m.onOverlay = false
		m.send(engine.CmdHover, under)
	case under == "" && m.hoverID != "":
		m.hoverID = ""
		if y == rowOverlay {
			m.onOverlay = true
			m.send(engine.CmdHoverExit, "overlay")
		} else {
			m.send(engine.CmdHoverExit)
		}
	case m.onOverlay && y != rowOverlay:
		m.onOverlay = false
		m.send(engine.CmdLeaveOverlay)
	}
}

func (m *Model) send(command string, args ...string) {
	if m.dispatch == nil {
		return
	}
	m.err = m.dispatch(command, args...)
}

func (m Model) trackWidth() int {
	return max(m.width, 10)
}

// column maps a progress value onto a track cell.
func (m Model) column(p float64) int {
	w := m.trackWidth()
	span := m.frame.End - m.frame.Start
	if span <= 0 {
		return 0
	}
	c := int(math.Round((p - m.frame.Start) / span * float64(w-1)))
	return max(0, min(c, w-1))
}

// markerAt returns the marker drawn in cell x. Markers sharing a cell
// resolve to the one with the greatest position.
func (m Model) markerAt(x int) (FrameMarker, bool) {
	var found FrameMarker
	ok := false
	for _, mk := range m.frame.Markers {
		if m.column(mk.Position) == x {
			found, ok = mk, true
		}
	}
	return found, ok
}

func (m Model) View() string {
	if !m.ready {
		return "loading session…\n"
	}
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteByte('\n')
	b.WriteString(m.overlayView())
	b.WriteByte('\n')
	b.WriteString(m.trackView())
	b.WriteByte('\n')
	b.WriteString(m.timeView())
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) headerView() string {
	state := "⏸ paused"
	if m.frame.Playing {
		state = "▶ playing"
		if !m.frame.Running {
			state = "▶ finished"
		}
	}
	status := fmt.Sprintf("%s  x%g", state, m.frame.Speed)
	if m.frame.Loop {
		status += "  loop"
	}
	return titleStyle.Render(m.title) + "  " + statusStyle.Render(status)
}

func (m Model) overlayView() string {
	o := m.frame.Overlay
	if !o.Visible || o.Text == "" {
		return ""
	}
	w := m.trackWidth()
	text := util.TruncateLeading(o.Text, w)
	lw := lipgloss.Width(text)
	x := int(engine.DetailPosition(float64(m.column(o.Position)), float64(lw), float64(w)))
	return strings.Repeat(" ", x) + overlayStyle(o.Tag, o.Opacity).Render(text)
}

func (m Model) trackView() string {
	w := m.trackWidth()
	handle := m.column(m.frame.Progress)
	cells := make([]string, w)
	for i := range cells {
		if i < handle {
			cells[i] = playedStyle.Render("━")
		} else {
			cells[i] = trackStyle.Render("─")
		}
	}
	for _, mk := range m.frame.Markers {
		cells[m.column(mk.Position)] = markerStyle(mk.Tags).Render("◆")
	}
	cells[handle] = handleStyle.Render("●")
	return strings.Join(cells, "")
}

func (m Model) timeView() string {
	line := statusStyle.Render(m.frame.Elapsed + " / " + m.frame.Length)
	if m.err != nil {
		line += "  " + errorStyle.Render(m.err.Error())
	}
	return line
}
