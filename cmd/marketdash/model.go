package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"marketdash/internal/controller"
)

// viewModel is the controller surface the UI drives.
type viewModel interface {
	Search(ctx context.Context, term string)
	SelectSymbol(ctx context.Context, symbol string)
	ClearSelection()
}

// Messages.
type tickMsg time.Time
type snapshotMsg controller.Snapshot
type snapshotsClosedMsg struct{}

const tickInterval = 250 * time.Millisecond

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForSnapshot turns the next subscription delivery into a message.
func waitForSnapshot(ch <-chan controller.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return snapshotsClosedMsg{}
		}
		return snapshotMsg(s)
	}
}

// Model.
type model struct {
	ctx    context.Context
	cancel context.CancelFunc
	ctrl   viewModel
	snaps  <-chan controller.Snapshot
	logger *slog.Logger

	snap controller.Snapshot
	now  time.Time

	// Search box.
	search    textinput.Model
	searching bool
	cursor    int

	tickerOffset  int
	viewport      viewport.Model
	ready         bool
	width, height int
}

func initialModel(ctx context.Context, cancel context.CancelFunc, ctrl viewModel, snaps <-chan controller.Snapshot, logger *slog.Logger) model {
	ti := textinput.New()
	ti.Placeholder = "symbol or company"
	ti.Prompt = " / "
	ti.CharLimit = 32
	return model{
		ctx:    ctx,
		cancel: cancel,
		ctrl:   ctrl,
		snaps:  snaps,
		logger: logger,
		now:    time.Now(),
		search: ti,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForSnapshot(m.snaps))
}

func (m model) searchCmd(term string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		ctrl.Search(ctx, term)
		return nil
	}
}

func (m model) selectCmd(symbol string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	m.logger.Info("selecting symbol", "symbol", symbol)
	return func() tea.Msg {
		ctrl.SelectSymbol(ctx, symbol)
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		switch key := msg.String(); key {
		case "q":
			m.cancel()
			return m, tea.Quit
		case "/":
			m.searching = true
			m.cursor = 0
			m.setContent()
			return m, m.search.Focus()
		case "esc":
			m.ctrl.ClearSelection()
			return m, nil
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			i := int(key[0] - '1')
			if i < len(m.snap.Watchlist) {
				return m, m.selectCmd(m.snap.Watchlist[i])
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// header + ticker + footer
		vpHeight := m.height - 3
		if vpHeight < 1 {
			vpHeight = 1
		}
		m.search.Width = max(m.width-len(m.search.Prompt)-2, 10)
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.setContent()
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		m.tickerOffset++
		return m, tickCmd()

	case snapshotMsg:
		prevSelected := m.snap.Selected
		m.snap = controller.Snapshot(msg)
		if n := len(m.snap.SearchResults); m.cursor >= n {
			m.cursor = max(n-1, 0)
		}
		m.setContent()
		if m.snap.Selected != nil && m.snap.Selected != prevSelected {
			m.viewport.GotoTop()
		}
		return m, waitForSnapshot(m.snaps)

	case snapshotsClosedMsg:
		return m, tea.Quit
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// updateSearch handles keys while the search box has focus. Every edit
// issues a search; the controller keeps only the newest one.
func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeSearch()
		return m, m.searchCmd("")
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		m.setContent()
		return m, nil
	case "down":
		if m.cursor < len(m.snap.SearchResults)-1 {
			m.cursor++
		}
		m.setContent()
		return m, nil
	case "enter":
		symbol := strings.ToUpper(strings.TrimSpace(m.search.Value()))
		if results := m.snap.SearchResults; len(results) > 0 && m.cursor < len(results) {
			symbol = results[m.cursor].Symbol
		}
		m.closeSearch()
		if symbol == "" {
			return m, nil
		}
		return m, m.selectCmd(symbol)
	}

	prev := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != prev {
		m.cursor = 0
		return m, tea.Batch(cmd, m.searchCmd(v))
	}
	return m, cmd
}

func (m *model) closeSearch() {
	m.searching = false
	m.cursor = 0
	m.search.Blur()
	m.search.SetValue("")
	m.setContent()
}

func (m *model) setContent() {
	if m.ready {
		m.viewport.SetContent(m.renderContent())
	}
}
