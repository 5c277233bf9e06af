package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"coursechat/llm"
	"coursechat/store"
)

// OutlineTool returns a course's title, link, and lesson list straight from
// the catalog, without touching the content collection.
type OutlineTool struct {
	store store.Store
}

func NewOutlineTool(s store.Store) *OutlineTool {
	return &OutlineTool{store: s}
}

func (t *OutlineTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get the full outline of a course: its title, link, and complete lesson list",
		Parameters: llm.ParameterSchema{
			Type: "object",
			Properties: map[string]llm.Property{
				"course_name": {
					Type:        "string",
					Description: "Course title (partial matches work)",
				},
			},
			Required: []string{"course_name"},
		},
	}
}

type outlineArgs struct {
	CourseName string `json:"course_name"`
}

func (t *OutlineTool) Execute(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args outlineArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}
	if strings.TrimSpace(args.CourseName) == "" {
		return Result{}, fmt.Errorf("%w: course_name must not be empty", ErrInvalidArgument)
	}

	title, err := t.store.ResolveCourseName(ctx, args.CourseName)
	if err != nil {
		return Result{Text: fmt.Sprintf("Outline error: %v", err)}, nil
	}
	if title == "" {
		return Result{Text: fmt.Sprintf("No course found matching '%s'", args.CourseName)}, nil
	}

	entry, err := t.store.CatalogEntry(ctx, title)
	if err != nil {
		return Result{Text: fmt.Sprintf("Outline error: %v", err)}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\n", entry.Title)
	if entry.Link != "" {
		fmt.Fprintf(&sb, "Course Link: %s\n", entry.Link)
	}
	if entry.Instructor != "" {
		fmt.Fprintf(&sb, "Instructor: %s\n", entry.Instructor)
	}
	fmt.Fprintf(&sb, "Lessons (%d):\n", len(entry.Lessons))
	for _, lesson := range entry.Lessons {
		fmt.Fprintf(&sb, "  Lesson %d: %s\n", lesson.Number, lesson.Title)
	}

	return Result{
		Text:    strings.TrimRight(sb.String(), "\n"),
		Sources: []Source{{Label: entry.Title, URL: entry.Link}},
	}, nil
}

var _ Tool = (*OutlineTool)(nil)
