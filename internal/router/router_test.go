package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/signcoach/internal/screen"
)

type stubScreen struct {
	title   string
	initRan bool
	updates int
}

func (s *stubScreen) Init() tea.Cmd {
	s.initRan = true
	return nil
}
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { s.updates++; return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }

func TestPush(t *testing.T) {
	r := New(&stubScreen{title: "sessions"})
	report := &stubScreen{title: "report"}
	r.Push(report)

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "report" {
		t.Errorf("expected active 'report', got %q", r.Active().Title())
	}
	if !report.initRan {
		t.Error("expected Init() to run on pushed screen")
	}
}

func TestPopNoopAtBottom(t *testing.T) {
	r := New(&stubScreen{title: "home"})
	r.Push(&stubScreen{title: "stats"})
	r.Pop()
	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
	if r.View(80, 24) != "home" {
		t.Errorf("expected home view, got %q", r.View(80, 24))
	}
}

func TestReplaceScreenMsg(t *testing.T) {
	r := New(&stubScreen{title: "home"})
	r.Push(&stubScreen{title: "sessions"})

	next := &stubScreen{title: "filtered"}
	r.Update(ReplaceScreenMsg{Screen: next})

	if r.Depth() != 2 || r.Active().Title() != "filtered" {
		t.Errorf("depth %d, active %q", r.Depth(), r.Active().Title())
	}
	if !next.initRan {
		t.Error("expected Init() to run via ReplaceScreenMsg")
	}
}

func TestUpdateForwardsToActive(t *testing.T) {
	bottom := &stubScreen{title: "home"}
	top := &stubScreen{title: "report"}
	r := New(bottom)
	r.Push(top)

	r.Update(tea.KeyPressMsg{Code: tea.KeyDown})

	if top.updates != 1 || bottom.updates != 0 {
		t.Errorf("updates: top %d, bottom %d", top.updates, bottom.updates)
	}
}
