package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"coursechat/course"
	"coursechat/llm"
	"coursechat/store"
)

// SearchTool lets the model search course content with fuzzy course-name
// matching and optional lesson filtering.
type SearchTool struct {
	store store.Store
}

func NewSearchTool(s store.Store) *SearchTool {
	return &SearchTool{store: s}
}

func (t *SearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters: llm.ParameterSchema{
			Type: "object",
			Properties: map[string]llm.Property{
				"query": {
					Type:        "string",
					Description: "What to search for in the course content",
				},
				"course_name": {
					Type:        "string",
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": {
					Type:        "integer",
					Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			Required: []string{"query"},
		},
	}
}

type searchArgs struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name"`
	LessonNumber *int   `json:"lesson_number"`
}

func (t *SearchTool) Execute(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args searchArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}
	if strings.TrimSpace(args.Query) == "" {
		return Result{}, fmt.Errorf("%w: query must not be empty", ErrInvalidArgument)
	}

	results := t.store.Search(ctx, args.Query, store.SearchOptions{
		CourseName:   args.CourseName,
		LessonNumber: args.LessonNumber,
	})

	// Index faults and resolution misses arrive as data; the model sees the
	// message and may answer from general knowledge instead.
	if results.Error != "" {
		return Result{Text: results.Error}, nil
	}
	if results.IsEmpty() {
		return Result{Text: noResultsMessage(args)}, nil
	}

	return t.formatResults(ctx, results), nil
}

func noResultsMessage(args searchArgs) string {
	var sb strings.Builder
	sb.WriteString("No relevant content found")
	if args.CourseName != "" {
		fmt.Fprintf(&sb, " in course '%s'", args.CourseName)
	}
	if args.LessonNumber != nil {
		fmt.Fprintf(&sb, " in lesson %d", *args.LessonNumber)
	}
	sb.WriteString(".")
	return sb.String()
}

func (t *SearchTool) formatResults(ctx context.Context, results store.SearchResults) Result {
	blocks := make([]string, 0, len(results.Documents))
	sources := make([]Source, 0, len(results.Documents))
	seen := make(map[string]struct{})
	catalog := make(map[string]course.Course)

	for i, doc := range results.Documents {
		meta := results.Metadata[i]

		header := meta.CourseTitle
		if meta.LessonNumber != nil {
			header = fmt.Sprintf("%s - Lesson %d", meta.CourseTitle, *meta.LessonNumber)
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", header, doc))

		if _, dup := seen[header]; dup {
			continue
		}
		seen[header] = struct{}{}
		sources = append(sources, Source{
			Label: header,
			URL:   t.sourceURL(ctx, catalog, meta),
		})
	}

	return Result{Text: strings.Join(blocks, "\n\n"), Sources: sources}
}

// sourceURL prefers the lesson link and falls back to the course link.
// Catalog entries are memoized per execution; a lookup failure just leaves
// the source without a link.
func (t *SearchTool) sourceURL(ctx context.Context, catalog map[string]course.Course, meta store.ChunkMeta) string {
	entry, ok := catalog[meta.CourseTitle]
	if !ok {
		fetched, err := t.store.CatalogEntry(ctx, meta.CourseTitle)
		if err != nil {
			catalog[meta.CourseTitle] = course.Course{}
			return ""
		}
		entry = fetched
		catalog[meta.CourseTitle] = entry
	}

	if meta.LessonNumber != nil {
		for _, lesson := range entry.Lessons {
			if lesson.Number == *meta.LessonNumber && lesson.Link != "" {
				return lesson.Link
			}
		}
	}
	return entry.Link
}

var _ Tool = (*SearchTool)(nil)
