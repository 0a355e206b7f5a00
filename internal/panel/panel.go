package panel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hfujise/scopectl/internal/configstore"
	"github.com/hfujise/scopectl/internal/server"
)

// keyMap defines the panel key bindings
type keyMap struct {
	PrevSlot key.Binding
	NextSlot key.Binding
	Capture  key.Binding
	Save     key.Binding
	Load     key.Binding
	UndoSave key.Binding
	UndoLoad key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Capture, k.Save, k.Load, k.UndoSave, k.UndoLoad, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevSlot, k.NextSlot, k.Refresh},
		{k.Capture, k.Save, k.Load},
		{k.UndoSave, k.UndoLoad, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		PrevSlot: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/→", "slot"),
		),
		NextSlot: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("", ""),
		),
		Capture: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "capture"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save"),
		),
		Load: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "load"),
		),
		UndoSave: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "undo save"),
		),
		UndoLoad: key.NewBinding(
			key.WithKeys("U"),
			key.WithHelp("U", "undo load"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Operation result messages
type statusMsg struct {
	status server.Status
}

type captureDoneMsg struct {
	path  string
	bytes int
	err   error
}

type slotDoneMsg struct {
	op   string
	slot int
	err  error
}

type undoDoneMsg struct {
	op  string
	err error
}

// Model is the single-screen front panel: instrument status, the slot
// selector, and the last operation result.
type Model struct {
	ctrl    server.Controller
	saveDir string

	status server.Status
	slot   int

	busy      bool
	busyLabel string

	result string
	errMsg string

	spinner spinner.Model
	keys    keyMap
	help    help.Model

	Width  int
	Height int

	quitting bool
}

// New creates a panel model driving the given controller. Screenshots
// are written into saveDir.
func New(ctrl server.Controller, saveDir string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return Model{
		ctrl:    ctrl,
		saveDir: saveDir,
		slot:    configstore.MinSlot,
		spinner: s,
		keys:    newKeyMap(),
		help:    help.New(),
	}
}

// Init starts the spinner and fetches the initial status
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refreshStatus())
}

// Update handles all panel messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		m.status = msg.status
		m.busy = false
		return m, nil

	case captureDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.errMsg = configstore.Message(msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.result = fmt.Sprintf("Screenshot saved to %s (%d bytes)", msg.path, msg.bytes)
		return m, nil

	case slotDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.errMsg = configstore.Message(msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.result = fmt.Sprintf("Configuration %s slot %d", msg.op, msg.slot)
		return m, nil

	case undoDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.errMsg = configstore.Message(msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.result = fmt.Sprintf("Undid last %s", msg.op)
		return m, nil
	}

	return m, nil
}

// handleKey processes one key press. Operations are rejected while a
// previous one is still running; the instrument handles one transaction
// at a time.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.busy {
		return m, nil
	}

	// Direct slot selection on 1-8
	if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '8' {
		m.slot = int(s[0] - '0')
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.PrevSlot):
		if m.slot > configstore.MinSlot {
			m.slot--
		}
		return m, nil

	case key.Matches(msg, m.keys.NextSlot):
		if m.slot < configstore.MaxSlot {
			m.slot++
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.busy = true
		m.busyLabel = "Refreshing status"
		return m, m.refreshStatus()

	case key.Matches(msg, m.keys.Capture):
		m.busy = true
		m.busyLabel = "Capturing screenshot"
		return m, m.capture()

	case key.Matches(msg, m.keys.Save):
		m.busy = true
		m.busyLabel = fmt.Sprintf("Saving configuration to slot %d", m.slot)
		return m, m.saveSlot(m.slot)

	case key.Matches(msg, m.keys.Load):
		m.busy = true
		m.busyLabel = fmt.Sprintf("Loading configuration from slot %d", m.slot)
		return m, m.loadSlot(m.slot)

	case key.Matches(msg, m.keys.UndoSave):
		m.busy = true
		m.busyLabel = "Undoing last save"
		return m, m.undoSave()

	case key.Matches(msg, m.keys.UndoLoad):
		m.busy = true
		m.busyLabel = "Undoing last load"
		return m, m.undoLoad()
	}

	return m, nil
}

func (m Model) refreshStatus() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return statusMsg{status: ctrl.Status()}
	}
}

func (m Model) capture() tea.Cmd {
	ctrl := m.ctrl
	dir := m.saveDir
	return func() tea.Msg {
		image, err := ctrl.Capture()
		if err != nil {
			return captureDoneMsg{err: err}
		}
		path := filepath.Join(dir, fmt.Sprintf("DL74x0-%s.jpg", time.Now().Format("20060102-150405")))
		if err := os.WriteFile(path, image, 0o644); err != nil {
			return captureDoneMsg{err: err}
		}
		return captureDoneMsg{path: path, bytes: len(image)}
	}
}

func (m Model) saveSlot(slot int) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		n, err := ctrl.Save(slot)
		return slotDoneMsg{op: "saved to", slot: n, err: err}
	}
}

func (m Model) loadSlot(slot int) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		n, err := ctrl.Load(slot)
		return slotDoneMsg{op: "loaded from", slot: n, err: err}
	}
}

func (m Model) undoSave() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return undoDoneMsg{op: "save", err: ctrl.UndoSave()}
	}
}

func (m Model) undoLoad() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return undoDoneMsg{op: "load", err: ctrl.UndoLoad()}
	}
}

// View renders the panel
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render("Oscilloscope"))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")
	b.WriteString(m.renderSlots())
	b.WriteString("\n\n")

	switch {
	case m.busy:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(m.busyLabel)
		b.WriteString("...")
	case m.errMsg != "":
		b.WriteString(ErrorStyle.Render("✗ " + m.errMsg))
	case m.result != "":
		b.WriteString(ResultStyle.Render("✓ " + m.result))
	}
	b.WriteString("\n")

	return RenderApplicationContainer(b.String(), m.help.View(m.keys), m.Width, m.Height)
}

// renderStatus renders the instrument identity block
func (m Model) renderStatus() string {
	var b strings.Builder

	if !m.status.Connected {
		b.WriteString(StatusKeyStyle.Render("State"))
		b.WriteString(DisconnectedStyle.Render("not connected"))
		return b.String()
	}

	rows := []struct{ key, value string }{
		{"State", ConnectedStyle.Render("connected")},
		{"Model", m.status.Model},
		{"Channels", fmt.Sprintf("%d", m.status.Channels)},
		{"Address", m.status.Addr},
		{"Options", m.status.Options},
	}
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(StatusKeyStyle.Render(row.key))
		b.WriteString(StatusValueStyle.Render(row.value))
	}
	return b.String()
}

// renderSlots renders the slot selector row
func (m Model) renderSlots() string {
	var b strings.Builder
	b.WriteString(StatusKeyStyle.Render("Slot"))
	for n := configstore.MinSlot; n <= configstore.MaxSlot; n++ {
		label := fmt.Sprintf("%d", n)
		if n == m.slot {
			b.WriteString(SelectedSlotStyle.Render(label))
		} else {
			b.WriteString(SlotStyle.Render(label))
		}
	}
	return b.String()
}
