package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"coursechat/llm"
	"coursechat/tools"
)

const systemPrompt = `You are an AI assistant specialized in course materials and educational content, with tools for searching course content and retrieving course outlines.

Tool usage:
- Use the search tool only for questions about specific course content or detailed educational materials.
- Use the outline tool when asked about a course's structure or lesson list.
- One search per query maximum. Synthesize the tool results into an accurate, fact-based answer.
- If a tool yields no results, say so clearly without offering alternatives.

Response protocol:
- General knowledge questions: answer from your existing knowledge without using tools.
- Course-specific questions: use a tool first, then answer.
- Provide direct answers only. Do not mention the search process, tools, or what you found versus what you knew.

Keep answers brief, concise and focused.`

// Generator drives the tool-mediated generation loop: one model call that
// may request tools, at most one round of tool execution, and one final
// model call whose answer stands whatever it contains.
type Generator struct {
	client llm.Client
	logger *log.Logger
}

func NewGenerator(client llm.Client, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{client: client, logger: logger}
}

// Respond answers one user query. History is an opaque formatted string of
// prior turns. The manager supplies tool definitions and executes requested
// calls; tool failures are reported back to the model as tool-result text,
// while faults from the model itself propagate to the caller.
func (g *Generator) Respond(ctx context.Context, query, history string, manager *tools.Manager) (string, error) {
	system := systemPrompt
	if history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: query},
	}

	var defs []llm.ToolDefinition
	if manager != nil {
		defs = manager.Definitions()
	}

	resp, err := g.client.Generate(ctx, messages, defs)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if len(resp.ToolCalls) == 0 || manager == nil {
		return strings.TrimSpace(resp.Content), nil
	}

	messages = append(messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})

	// Requested calls run synchronously in request order; later results may
	// be order-sensitive for the model's synthesis.
	for _, call := range resp.ToolCalls {
		text, execErr := manager.Execute(ctx, call.Name, call.Arguments)
		if execErr != nil {
			g.logger.Printf("tool %s failed: %v", call.Name, execErr)
			text = fmt.Sprintf("Tool execution failed: %v", execErr)
		}
		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: call.ID,
			Content:    text,
		})
	}

	// The follow-up call offers no tools and its response is final even if
	// the model asks for another round, capping the loop at one search per
	// user query.
	final, err := g.client.Generate(ctx, messages, nil)
	if err != nil {
		return "", fmt.Errorf("llm generate after tools: %w", err)
	}
	if len(final.ToolCalls) > 0 {
		g.logger.Printf("model requested %d further tool calls after the cap; returning text as-is", len(final.ToolCalls))
	}
	return strings.TrimSpace(final.Content), nil
}
