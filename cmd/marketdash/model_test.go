package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"marketdash/internal/controller"
	"marketdash/internal/domain"
)

type fakeViewModel struct {
	searches []string
	selects  []string
	clears   int
}

func (f *fakeViewModel) Search(_ context.Context, term string) { f.searches = append(f.searches, term) }
func (f *fakeViewModel) SelectSymbol(_ context.Context, sym string) { f.selects = append(f.selects, sym) }
func (f *fakeViewModel) ClearSelection() { f.clears++ }

func newTestModel(t *testing.T) (model, *fakeViewModel) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	fake := &fakeViewModel{}
	m := initialModel(ctx, cancel, fake, make(chan controller.Snapshot), slog.New(slog.NewTextHandler(io.Discard, nil)))
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, fake
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSearchTypingIssuesSearch(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, runes("/"))
	if !m.searching {
		t.Fatal("expected search mode after /")
	}
	next, cmd := m.Update(runes("m"))
	m = next.(model)
	if got := m.search.Value(); got != "m" {
		t.Errorf("search value = %q, want %q", got, "m")
	}
	if cmd == nil {
		t.Error("expected a search command after editing")
	}
}

func TestSearchEscClosesAndClearsTerm(t *testing.T) {
	m, fake := newTestModel(t)
	m = update(t, m, runes("/"))
	m = update(t, m, runes("x"))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(model)
	if m.searching {
		t.Error("expected search mode closed")
	}
	if cmd == nil {
		t.Fatal("expected clearing search command")
	}
	cmd()
	if len(fake.searches) != 1 || fake.searches[0] != "" {
		t.Errorf("searches = %q, want one empty search", fake.searches)
	}
}

func TestSearchEnterSelectsCursorResult(t *testing.T) {
	m, fake := newTestModel(t)
	m = update(t, m, runes("/"))
	m = update(t, m, snapshotMsg(controller.Snapshot{
		SearchTerm: "micro",
		SearchResults: []domain.SymbolMatch{
			{Symbol: "MU", Description: "MICRON TECHNOLOGY INC"},
			{Symbol: "MSFT", Description: "MICROSOFT CORP"},
		},
	}))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if m.searching {
		t.Error("expected search mode closed after enter")
	}
	cmd()
	if len(fake.selects) != 1 || fake.selects[0] != "MSFT" {
		t.Errorf("selects = %q, want [MSFT]", fake.selects)
	}
}

func TestDigitSelectsWatchlistSymbol(t *testing.T) {
	m, fake := newTestModel(t)
	m = update(t, m, snapshotMsg(controller.Snapshot{Watchlist: []string{"SPY", "QQQ"}}))

	_, cmd := m.Update(runes("2"))
	cmd()
	if len(fake.selects) != 1 || fake.selects[0] != "QQQ" {
		t.Errorf("selects = %q, want [QQQ]", fake.selects)
	}

	_, cmd = m.Update(runes("9"))
	if cmd != nil {
		t.Error("expected no command for out-of-range digit")
	}
}

func TestEscClearsSelection(t *testing.T) {
	m, fake := newTestModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if fake.clears != 1 {
		t.Errorf("clears = %d, want 1", fake.clears)
	}
}

func TestSnapshotClampsCursor(t *testing.T) {
	m, _ := newTestModel(t)
	m.cursor = 4
	m = update(t, m, snapshotMsg(controller.Snapshot{
		SearchResults: []domain.SymbolMatch{{Symbol: "A"}, {Symbol: "B"}},
	}))
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
}

func TestViewShowsLastError(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, snapshotMsg(controller.Snapshot{
		Watchlist: []string{"SPY"},
		Quotes:    domain.QuoteSet{"SPY": {Current: 510.5, PreviousClose: 505}},
		LastError: &controller.ErrorReport{Op: controller.OpSearch, Message: "API limit reached"},
	}))

	v := m.View()
	if !strings.Contains(v, "MarketDash") {
		t.Error("view missing header")
	}
	if !strings.Contains(v, "API limit reached") {
		t.Error("view missing error footer")
	}
	if !strings.Contains(m.renderContent(), "$510.50") {
		t.Error("content missing SPY price")
	}
}

func TestPadOrTrunc(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 3, "abc"},
		{"héllo", 3, "hél"},
		{"", 0, ""},
	}
	for _, tt := range tests {
		if got := padOrTrunc(tt.in, tt.width); got != tt.want {
			t.Errorf("padOrTrunc(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
