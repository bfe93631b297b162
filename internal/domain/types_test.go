package domain

import (
	"math"
	"testing"
)

func TestQuoteChange(t *testing.T) {
	q := Quote{Current: 101, PreviousClose: 100}
	if got := q.Change(); got != 1 {
		t.Errorf("Change() = %v, want 1", got)
	}
	if got := q.ChangePercent(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("ChangePercent() = %v, want 1.00", got)
	}
	if !q.IsUp() {
		t.Error("IsUp() = false, want true")
	}
}

func TestQuoteChangePercentZeroPreviousClose(t *testing.T) {
	tests := []Quote{
		{Current: 101, PreviousClose: 0},
		{Current: 0, PreviousClose: 0},
		{Current: -5, PreviousClose: 0},
	}
	for _, q := range tests {
		got := q.ChangePercent()
		if got != 0 {
			t.Errorf("ChangePercent(%+v) = %v, want 0", q, got)
		}
		if math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("ChangePercent(%+v) is not finite", q)
		}
	}
}

func TestQuoteChangePercentNegative(t *testing.T) {
	q := Quote{Current: 95, PreviousClose: 100}
	if got := q.ChangePercent(); math.Abs(got+5) > 1e-9 {
		t.Errorf("ChangePercent() = %v, want -5", got)
	}
	if q.IsUp() {
		t.Error("IsUp() = true, want false")
	}
}

func TestQuoteSetClone(t *testing.T) {
	s := QuoteSet{"SPY": {Current: 500}, "QQQ": {Current: 430}}
	c := s.Clone()
	c["SPY"] = Quote{Current: 1}
	delete(c, "QQQ")

	if s["SPY"].Current != 500 {
		t.Errorf("original SPY = %v after clone mutation, want 500", s["SPY"].Current)
	}
	if _, ok := s["QQQ"]; !ok {
		t.Error("original lost QQQ after clone mutation")
	}

	var nilSet QuoteSet
	if c := nilSet.Clone(); c == nil || len(c) != 0 {
		t.Errorf("nil.Clone() = %v, want empty non-nil set", c)
	}
}

func TestQuoteSetSymbols(t *testing.T) {
	s := QuoteSet{"SPY": {}, "DIA": {}, "QQQ": {}}
	got := s.Symbols()
	want := []string{"DIA", "QQQ", "SPY"}
	if len(got) != len(want) {
		t.Fatalf("Symbols() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Symbols()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
