package tools

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"coursechat/course"
	"coursechat/store"
)

// stubStore serves canned search results and catalog entries.
type stubStore struct {
	results    store.SearchResults
	lastQuery  string
	lastOpts   store.SearchOptions
	catalog    map[string]course.Course
	resolved   string
	resolveErr error
	titles     []string
}

func (s *stubStore) UpsertCourse(ctx context.Context, c course.Course) error       { return nil }
func (s *stubStore) UpsertChunks(ctx context.Context, chunks []course.Chunk) error { return nil }

func (s *stubStore) ResolveCourseName(ctx context.Context, name string) (string, error) {
	return s.resolved, s.resolveErr
}

func (s *stubStore) Search(ctx context.Context, query string, opts store.SearchOptions) store.SearchResults {
	s.lastQuery = query
	s.lastOpts = opts
	return s.results
}

func (s *stubStore) ExistingCourseTitles(ctx context.Context) ([]string, error) {
	return s.titles, nil
}

func (s *stubStore) CourseCount(ctx context.Context) (int, error) { return len(s.titles), nil }

func (s *stubStore) CatalogEntry(ctx context.Context, title string) (course.Course, error) {
	if entry, ok := s.catalog[title]; ok {
		return entry, nil
	}
	return course.Course{}, store.ErrCourseNotFound
}

func (s *stubStore) Clear(ctx context.Context) error { return nil }
func (s *stubStore) Close()                          {}

var _ store.Store = (*stubStore)(nil)

func intPtr(n int) *int { return &n }

func TestSearchToolDefinition(t *testing.T) {
	def := NewSearchTool(&stubStore{}).Definition()

	if def.Name != "search_course_content" {
		t.Fatalf("unexpected name: %q", def.Name)
	}
	if len(def.Parameters.Required) != 1 || def.Parameters.Required[0] != "query" {
		t.Fatalf("expected only query to be required, got %v", def.Parameters.Required)
	}
	for _, field := range []string{"query", "course_name", "lesson_number"} {
		if _, ok := def.Parameters.Properties[field]; !ok {
			t.Fatalf("missing parameter %q", field)
		}
	}
}

func TestSearchToolFormatsBlocks(t *testing.T) {
	s := &stubStore{
		results: store.SearchResults{
			Documents: []string{"first chunk", "second chunk"},
			Metadata: []store.ChunkMeta{
				{CourseTitle: "Intro to Widgets", LessonNumber: intPtr(1), ChunkIndex: 0},
				{CourseTitle: "Intro to Widgets", ChunkIndex: 7},
			},
			Distances: []float64{0.1, 0.2},
		},
		catalog: map[string]course.Course{
			"Intro to Widgets": {
				Title: "Intro to Widgets",
				Link:  "https://example.com/widgets",
				Lessons: []course.Lesson{
					{Number: 1, Title: "Assembly", Link: "https://example.com/widgets/1"},
				},
			},
		},
	}
	tool := NewSearchTool(s)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"widgets"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "[Intro to Widgets - Lesson 1]\nfirst chunk\n\n[Intro to Widgets]\nsecond chunk"
	if result.Text != want {
		t.Fatalf("unexpected text:\n got %q\nwant %q", result.Text, want)
	}

	if len(result.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(result.Sources))
	}
	if result.Sources[0].Label != "Intro to Widgets - Lesson 1" || result.Sources[0].URL != "https://example.com/widgets/1" {
		t.Fatalf("unexpected lesson source: %+v", result.Sources[0])
	}
	if result.Sources[1].URL != "https://example.com/widgets" {
		t.Fatalf("expected course link fallback, got %+v", result.Sources[1])
	}
}

func TestSearchToolDeduplicatesSources(t *testing.T) {
	s := &stubStore{
		results: store.SearchResults{
			Documents: []string{"a", "b"},
			Metadata: []store.ChunkMeta{
				{CourseTitle: "Intro to Widgets", LessonNumber: intPtr(1)},
				{CourseTitle: "Intro to Widgets", LessonNumber: intPtr(1), ChunkIndex: 1},
			},
			Distances: []float64{0.1, 0.2},
		},
	}

	result, err := NewSearchTool(s).Execute(context.Background(), json.RawMessage(`{"query":"q"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Sources) != 1 {
		t.Fatalf("expected deduplicated source, got %d", len(result.Sources))
	}
}

func TestSearchToolPassesFilters(t *testing.T) {
	s := &stubStore{results: store.SearchResults{}}
	tool := NewSearchTool(s)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"q","course_name":"Widgets","lesson_number":3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.lastQuery != "q" {
		t.Fatalf("unexpected query: %q", s.lastQuery)
	}
	if s.lastOpts.CourseName != "Widgets" {
		t.Fatalf("unexpected course filter: %q", s.lastOpts.CourseName)
	}
	if s.lastOpts.LessonNumber == nil || *s.lastOpts.LessonNumber != 3 {
		t.Fatalf("unexpected lesson filter: %v", s.lastOpts.LessonNumber)
	}
}

func TestSearchToolNoResultsMessage(t *testing.T) {
	cases := []struct {
		args string
		want string
	}{
		{`{"query":"q"}`, "No relevant content found."},
		{`{"query":"q","course_name":"Widgets"}`, "No relevant content found in course 'Widgets'."},
		{`{"query":"q","lesson_number":2}`, "No relevant content found in lesson 2."},
		{`{"query":"q","course_name":"Widgets","lesson_number":2}`, "No relevant content found in course 'Widgets' in lesson 2."},
	}

	for _, tc := range cases {
		s := &stubStore{results: store.SearchResults{}}
		result, err := NewSearchTool(s).Execute(context.Background(), json.RawMessage(tc.args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Text != tc.want {
			t.Fatalf("unexpected message for %s:\n got %q\nwant %q", tc.args, result.Text, tc.want)
		}
		if len(result.Sources) != 0 {
			t.Fatalf("empty search must not record sources, got %v", result.Sources)
		}
	}
}

func TestSearchToolPassesErrorText(t *testing.T) {
	s := &stubStore{results: store.SearchResults{Error: "No course found matching 'X'"}}

	result, err := NewSearchTool(s).Execute(context.Background(), json.RawMessage(`{"query":"q","course_name":"X"}`))
	if err != nil {
		t.Fatalf("store errors travel as text, got %v", err)
	}
	if result.Text != "No course found matching 'X'" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
}

// termEmbedder builds vectors from keyword counts so ranking is
// deterministic without a model.
type termEmbedder struct{}

func (termEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	terms := []string{"widget", "intro", "basics", "mechanical", "assembly"}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vec := make([]float32, len(terms)+1)
		for j, term := range terms {
			vec[j] = float32(strings.Count(lower, term))
		}
		vec[len(terms)] = 0.1

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		scale := float32(1 / math.Sqrt(norm))
		for j := range vec {
			vec[j] *= scale
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func TestSearchToolEndToEnd(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewChromemStore("", termEmbedder{}, store.Options{MaxResults: 5})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	doc, lessons, err := course.ParseDocument("Course Title: Intro to Widgets\n" +
		"Course Link: https://example.com/widgets\n" +
		"Course Instructor: Ada Example\n" +
		"Lesson 1: Basics\n" +
		"Widgets are small mechanical parts used in assembly.\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := st.UpsertCourse(ctx, doc); err != nil {
		t.Fatalf("upsert course: %v", err)
	}
	if err := st.UpsertChunks(ctx, course.BuildChunks(doc, lessons, 800, 100)); err != nil {
		t.Fatalf("upsert chunks: %v", err)
	}

	result, err := NewSearchTool(st).Execute(ctx, json.RawMessage(`{"query":"what are widgets","course_name":"Widgets"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !strings.HasPrefix(result.Text, "[Intro to Widgets - Lesson 1]\n") {
		t.Fatalf("unexpected block header: %q", result.Text)
	}
	if !strings.Contains(result.Text, "Widgets are small mechanical parts used in assembly.") {
		t.Fatalf("lesson text missing: %q", result.Text)
	}
	if len(result.Sources) != 1 || result.Sources[0].Label != "Intro to Widgets - Lesson 1" {
		t.Fatalf("unexpected sources: %+v", result.Sources)
	}
	if result.Sources[0].URL != "https://example.com/widgets" {
		t.Fatalf("expected course link fallback, got %q", result.Sources[0].URL)
	}
}

func TestSearchToolRejectsBadArguments(t *testing.T) {
	tool := NewSearchTool(&stubStore{})

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"query":""}`)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty query, got %v", err)
	}
	if _, err := tool.Execute(context.Background(), nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for missing arguments, got %v", err)
	}
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{not json`)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for bad json, got %v", err)
	}
}
