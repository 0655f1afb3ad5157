package termui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/treykane/pixview/internal/viewer"
)

// footerHeight is the number of terminal rows reserved below the image.
const footerHeight = 1

var (
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
)

// frameMsg carries a composed frame from the controller goroutine.
type frameMsg struct{ content string }

// statusMsg carries the controller's latest status report.
type statusMsg struct{ status viewer.Status }

// model is the Bubble Tea side of the backend. It never touches controller
// state: input becomes viewer events via emit, and frames and statuses
// arrive as messages.
type model struct {
	title        string
	keys         keyMap
	help         help.Model
	info         viewport.Model
	glamourStyle string

	emit     func(viewer.Event)
	onSize   func(width, height int)
	copyText func(string) error

	width     int
	height    int
	frame     string
	status    viewer.Status
	hasStatus bool
	notice    string
	showInfo  bool
}

func newModel(title, glamourStyle string, emit func(viewer.Event)) *model {
	return &model{
		title:        title,
		keys:         defaultKeyMap(),
		help:         help.New(),
		info:         viewport.New(0, 0),
		glamourStyle: glamourStyle,
		emit:         emit,
		copyText:     clipboard.WriteAll,
	}
}

// pixelSize converts a terminal size to the drawable size in window pixels.
func pixelSize(cols, rows int) (int, int) {
	return max(0, cols), max(0, rows-footerHeight) * 2
}

func (m *model) Init() tea.Cmd {
	if m.title == "" {
		return nil
	}
	return tea.SetWindowTitle(m.title)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.info.Width = msg.Width
		m.info.Height = max(0, msg.Height-footerHeight)
		w, h := pixelSize(msg.Width, msg.Height)
		if m.onSize != nil {
			m.onSize(w, h)
		}
		m.emit(viewer.Resize{Width: w, Height: h})
		if m.showInfo {
			m.refreshInfo()
		}
		return m, nil
	case frameMsg:
		m.frame = msg.content
		return m, nil
	case statusMsg:
		m.status = msg.status
		m.hasStatus = true
		if m.showInfo {
			m.refreshInfo()
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showInfo {
		switch {
		case key.Matches(msg, m.keys.Info), msg.Type == tea.KeyEsc:
			m.closeInfo()
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			m.emit(viewer.Quit{})
			return m, nil
		}
		var cmd tea.Cmd
		m.info, cmd = m.info.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.emit(viewer.Quit{})
	case key.Matches(msg, m.keys.Reload):
		m.notice = ""
		m.emit(viewer.ReloadRequest{})
	case key.Matches(msg, m.keys.Redraw):
		m.emit(viewer.Expose{})
	case key.Matches(msg, m.keys.Info):
		m.showInfo = true
		m.refreshInfo()
		m.info.GotoTop()
	case key.Matches(msg, m.keys.Copy):
		m.copyPath()
	default:
		m.emit(viewer.Other{Name: msg.String()})
	}
	return m, nil
}

// closeInfo hides the overlay. The image underneath has to be repainted, so
// the controller is asked for a fresh frame.
func (m *model) closeInfo() {
	m.showInfo = false
	m.emit(viewer.Expose{})
}

func (m *model) refreshInfo() {
	m.info.SetContent(renderMarkdown(infoMarkdown(m.status, m.hasStatus), m.width, m.glamourStyle))
}

func (m *model) copyPath() {
	if !m.hasStatus || m.status.Path == "" {
		m.notice = "No image loaded"
		return
	}
	path := m.status.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if err := m.copyText(path); err != nil {
		log.Warn("copy image path", "path", path, "error", err)
		m.notice = "Clipboard copy failed"
		return
	}
	m.notice = "Copied image path"
}

func (m *model) View() string {
	body := m.frame
	if m.showInfo {
		body = m.info.View()
	}
	if m.height <= footerHeight {
		return m.footer()
	}
	return body + "\n" + m.footer()
}

func (m *model) footer() string {
	width := m.width
	if width <= 0 {
		return ""
	}

	var segments []string
	if s := m.statusSegment(); s != "" {
		segments = append(segments, s)
	}
	if m.notice != "" {
		segments = append(segments, noticeStyle.Render(m.notice))
	}
	segments = append(segments, m.help.ShortHelpView(m.keys.ShortHelp()))

	line := " " + strings.Join(segments, " | ")
	return footerStyle.Width(width).Render(truncateWithEllipsis(line, width))
}

func (m *model) statusSegment() string {
	if !m.hasStatus {
		return ""
	}
	s := m.status
	text := fmt.Sprintf("%s %dx%d @%.2f", filepath.Base(s.Path), s.ImageW, s.ImageH, s.Scale)
	if s.Reloads > 0 {
		text += fmt.Sprintf(" reloads:%d", s.Reloads)
	}
	if s.Err != nil {
		text += " " + errorStyle.Render("error: "+s.Err.Error())
	}
	return text
}

func truncateWithEllipsis(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(value) <= width {
		return value
	}
	if width == 1 {
		return "…"
	}
	return ansi.Truncate(value, width-1, "") + "…"
}
