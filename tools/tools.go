// Package tools exposes retrieval capabilities the model can invoke during
// generation.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"coursechat/llm"
)

var (
	// ErrUnknownTool reports a model request for a name nothing registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArgument reports a tool call missing a required field.
	ErrInvalidArgument = errors.New("invalid tool argument")
)

// Source is a provenance reference behind a tool result, surfaced to the
// user after generation.
type Source struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// Result is what a tool hands back: text for the model plus the sources
// that produced it.
type Result struct {
	Text    string
	Sources []Source
}

// Tool is any capability with a definition and an execute operation.
type Tool interface {
	Definition() llm.ToolDefinition
	Execute(ctx context.Context, args json.RawMessage) (Result, error)
}

// Manager is a per-request plugin table of tools. It also owns the
// last-sources buffer: overwritten on every executed call, drained once by
// the orchestrator after generation. Managers are built fresh for each
// in-flight query, so no locking happens here.
type Manager struct {
	tools       map[string]Tool
	order       []string
	lastSources []Source
}

func NewManager(tools ...Tool) *Manager {
	m := &Manager{tools: make(map[string]Tool)}
	for _, tool := range tools {
		m.Register(tool)
	}
	return m
}

func (m *Manager) Register(tool Tool) {
	name := tool.Definition().Name
	if _, exists := m.tools[name]; !exists {
		m.order = append(m.order, name)
	}
	m.tools[name] = tool
}

// Definitions returns tool definitions in registration order.
func (m *Manager) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(m.order))
	for _, name := range m.order {
		defs = append(defs, m.tools[name].Definition())
	}
	return defs
}

// Execute runs a registered tool and records its sources. Errors are meant
// to be reported back to the model as tool-error turns, never to abort the
// request.
func (m *Manager) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	tool, ok := m.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: '%s'", ErrUnknownTool, name)
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return "", err
	}

	m.lastSources = result.Sources
	return result.Text, nil
}

// DrainSources returns the sources recorded by the most recent execution
// and clears the buffer. A second drain without an intervening execution
// yields nothing.
func (m *Manager) DrainSources() []Source {
	sources := m.lastSources
	m.lastSources = nil
	return sources
}
