package session

import (
	"strings"
	"testing"
)

func TestManagerHistoryFormat(t *testing.T) {
	m := NewManager(2)
	id := m.Create()

	if got := m.History(id); got != "" {
		t.Fatalf("fresh session should have no history, got %q", got)
	}

	m.AddExchange(id, "what is a widget?", "A small part.")
	m.AddExchange(id, "how many?", "Dozens.")

	want := "User: what is a widget?\nAssistant: A small part.\nUser: how many?\nAssistant: Dozens."
	if got := m.History(id); got != want {
		t.Fatalf("unexpected history:\n got %q\nwant %q", got, want)
	}
}

func TestManagerEvictsOldestExchange(t *testing.T) {
	m := NewManager(2)
	id := m.Create()

	m.AddExchange(id, "q1", "a1")
	m.AddExchange(id, "q2", "a2")
	m.AddExchange(id, "q3", "a3")

	history := m.History(id)
	if strings.Contains(history, "q1") {
		t.Fatalf("oldest exchange not evicted: %q", history)
	}
	if !strings.Contains(history, "q2") || !strings.Contains(history, "q3") {
		t.Fatalf("recent exchanges missing: %q", history)
	}
}

func TestManagerSessionsAreIsolated(t *testing.T) {
	m := NewManager(2)
	a := m.Create()
	b := m.Create()
	if a == b {
		t.Fatal("expected unique session ids")
	}

	m.AddExchange(a, "q", "a")
	if got := m.History(b); got != "" {
		t.Fatalf("history leaked between sessions: %q", got)
	}
}

func TestManagerIgnoresEmptyID(t *testing.T) {
	m := NewManager(2)
	m.AddExchange("", "q", "a")
	if got := m.History(""); got != "" {
		t.Fatalf("empty id must carry no history, got %q", got)
	}
}

func TestManagerClear(t *testing.T) {
	m := NewManager(2)
	id := m.Create()
	m.AddExchange(id, "q", "a")

	m.Clear(id)
	if got := m.History(id); got != "" {
		t.Fatalf("history survived clear: %q", got)
	}
}
