// Package tui is the interactive terminal display of scan results.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"miner-scanner/internal/model"
	"miner-scanner/internal/state"
)

const (
	refreshInterval = 500 * time.Millisecond
	lastScanLayout  = "15:04:05"
	listRowWidth    = 60
)

// StateSource is what the display reads and triggers.
type StateSource interface {
	Snapshot() state.Snapshot
	RequestScan() bool
}

type screen int

const (
	screenHome screen = iota
	screenList
	screenDetail
)

type tickMsg time.Time

// Model is the bubbletea model of the display.
type Model struct {
	src      StateSource
	keys     keyMap
	snap     state.Snapshot
	screen   screen
	cursor   int
	selected model.DeviceRecord
	viewport viewport.Model
	width    int
	height   int
	notice   string
}

// New creates the display model reading from src.
func New(src StateSource) *Model {
	vp := viewport.New(80, 20)
	return &Model{
		src:      src,
		keys:     defaultKeyMap(),
		snap:     src.Snapshot(),
		viewport: vp,
		width:    80,
		height:   24,
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the refresh ticker.
func (*Model) Init() tea.Cmd {
	return tick()
}

// Update handles ticks, resizes and key presses.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh()
		return m, tick()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-6, 3)
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		switch m.screen {
		case screenHome:
			return m.updateHome(msg)
		case screenList:
			return m.updateList(msg)
		case screenDetail:
			return m.updateDetail(msg)
		}
	}
	return m, nil
}

// refresh pulls a new snapshot and keeps the cursor and the detail record valid.
func (m *Model) refresh() {
	m.snap = m.src.Snapshot()
	if m.cursor >= len(m.snap.Records) {
		m.cursor = max(len(m.snap.Records)-1, 0)
	}
	if m.screen == screenList && len(m.snap.Records) == 0 {
		m.screen = screenHome
	}
	if m.screen == screenDetail {
		for _, r := range m.snap.Records {
			if r.Address == m.selected.Address {
				m.selected = r
				m.viewport.SetContent(strings.Join(DetailLines(r), "\n"))
				break
			}
		}
	}
}

func (m *Model) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Scan), key.Matches(msg, m.keys.Select):
		if m.src.RequestScan() {
			m.notice = "Scan requested"
		} else {
			m.notice = "A scan is already running"
		}
		m.snap = m.src.Snapshot()
	case key.Matches(msg, m.keys.View):
		if len(m.snap.Records) > 0 {
			m.screen = screenList
			m.notice = ""
		}
	case key.Matches(msg, m.keys.Back):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Records)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		if m.cursor < len(m.snap.Records) {
			m.selected = m.snap.Records[m.cursor]
			m.viewport.SetContent(strings.Join(DetailLines(m.selected), "\n"))
			m.viewport.GotoTop()
			m.screen = screenDetail
		}
	case key.Matches(msg, m.keys.Back):
		m.screen = screenHome
	}
	return m, nil
}

func (m *Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.screen = screenList
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the current screen.
func (m *Model) View() string {
	var body string
	switch m.screen {
	case screenList:
		body = m.listView()
	case screenDetail:
		body = m.detailView()
	default:
		body = m.homeView()
	}
	return appStyle.Render(body)
}

func (m *Model) homeView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Miner Scanner"))
	b.WriteString("\n")

	scan := buttonStyle.Render("Scan")
	if m.snap.Scanning {
		scan = busyButtonStyle.Render("Scanning...")
	}
	buttons := []string{scan}
	if n := len(m.snap.Records); n > 0 {
		buttons = append(buttons, " ", buttonStyle.Render(fmt.Sprintf("View (%d)", n)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	b.WriteString("\n\n")

	if m.snap.LastScanAt != nil {
		b.WriteString("Last scan: " + m.snap.LastScanAt.Local().Format(lastScanLayout) + "\n")
	}
	if m.snap.LastError != "" {
		b.WriteString(errorStyle.Render("Scan failed: "+m.snap.LastError) + "\n")
	}
	if m.notice != "" {
		b.WriteString(m.notice + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("s scan · v view · q quit"))
	return b.String()
}

func (m *Model) listView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Miners (%d)", len(m.snap.Records))))
	b.WriteString("\n")

	visible := max(m.height-8, 1)
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.snap.Records))
	for i := start; i < end; i++ {
		line := clip(listRow(m.snap.Records[i]), listRowWidth)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString("\n" + helpStyle.Render("↑/↓ move · enter details · esc back"))
	return b.String()
}

func listRow(r model.DeviceRecord) string {
	return fmt.Sprintf("%s | %s | %s", r.Address, orUnknown(r.Model), orUnknown(r.Hashrate))
}

func (m *Model) detailView() string {
	return titleStyle.Render(m.selected.Label()) + "\n" +
		m.viewport.View() + "\n" +
		helpStyle.Render("↑/↓ scroll · esc back")
}

// Run shows the display until the user quits or ctx is cancelled.
func Run(ctx context.Context, src StateSource) error {
	p := tea.NewProgram(New(src), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
