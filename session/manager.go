// Package session keeps a bounded conversation log per session id.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type exchange struct {
	question string
	answer   string
}

// Manager stores the last maxTurns exchanges for each session. It is safe
// for concurrent sessions; history is handed out as one formatted string.
type Manager struct {
	mu       sync.Mutex
	maxTurns int
	sessions map[string][]exchange
}

func NewManager(maxTurns int) *Manager {
	if maxTurns <= 0 {
		maxTurns = 2
	}
	return &Manager{
		maxTurns: maxTurns,
		sessions: make(map[string][]exchange),
	}
}

// Create registers a new session and returns its id.
func (m *Manager) Create() string {
	id := uuid.New().String()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id
}

// AddExchange appends a question/answer pair, evicting the oldest exchange
// once the bound is reached. Unknown ids are created on the fly.
func (m *Manager) AddExchange(id, question, answer string) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	log := append(m.sessions[id], exchange{question: question, answer: answer})
	if len(log) > m.maxTurns {
		log = log[len(log)-m.maxTurns:]
	}
	m.sessions[id] = log
}

// History formats a session's log for inclusion in the system prompt.
// Returns "" for unknown or empty sessions.
func (m *Manager) History(id string) string {
	if id == "" {
		return ""
	}
	m.mu.Lock()
	log := m.sessions[id]
	m.mu.Unlock()

	if len(log) == 0 {
		return ""
	}

	parts := make([]string, 0, len(log))
	for _, e := range log {
		parts = append(parts, fmt.Sprintf("User: %s\nAssistant: %s", e.question, e.answer))
	}
	return strings.Join(parts, "\n")
}

// Clear drops a session's history but keeps the id valid.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
