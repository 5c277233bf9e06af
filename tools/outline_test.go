package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"coursechat/course"
)

func TestOutlineToolFormatsOutline(t *testing.T) {
	s := &stubStore{
		resolved: "Intro to Widgets",
		catalog: map[string]course.Course{
			"Intro to Widgets": {
				Title:      "Intro to Widgets",
				Link:       "https://example.com/widgets",
				Instructor: "Ada Example",
				Lessons: []course.Lesson{
					{Number: 0, Title: "Welcome"},
					{Number: 1, Title: "Assembly"},
				},
			},
		},
	}

	result, err := NewOutlineTool(s).Execute(context.Background(), json.RawMessage(`{"course_name":"widgets"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Course: Intro to Widgets\n" +
		"Course Link: https://example.com/widgets\n" +
		"Instructor: Ada Example\n" +
		"Lessons (2):\n" +
		"  Lesson 0: Welcome\n" +
		"  Lesson 1: Assembly"
	if result.Text != want {
		t.Fatalf("unexpected outline:\n got %q\nwant %q", result.Text, want)
	}

	if len(result.Sources) != 1 || result.Sources[0].Label != "Intro to Widgets" {
		t.Fatalf("unexpected sources: %+v", result.Sources)
	}
	if result.Sources[0].URL != "https://example.com/widgets" {
		t.Fatalf("unexpected source url: %q", result.Sources[0].URL)
	}
}

func TestOutlineToolCourseMiss(t *testing.T) {
	result, err := NewOutlineTool(&stubStore{}).Execute(context.Background(), json.RawMessage(`{"course_name":"nothing"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "No course found matching 'nothing'" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
}

func TestOutlineToolResolveFaultBecomesText(t *testing.T) {
	s := &stubStore{resolveErr: errors.New("index offline")}

	result, err := NewOutlineTool(s).Execute(context.Background(), json.RawMessage(`{"course_name":"widgets"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "Outline error: index offline" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
}

func TestOutlineToolRequiresCourseName(t *testing.T) {
	tool := NewOutlineTool(&stubStore{})

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{}`)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestManagerExecuteAndDrain(t *testing.T) {
	s := &stubStore{
		resolved: "Intro to Widgets",
		catalog: map[string]course.Course{
			"Intro to Widgets": {Title: "Intro to Widgets", Link: "https://example.com/widgets"},
		},
	}
	m := NewManager(NewSearchTool(s), NewOutlineTool(s))

	defs := m.Definitions()
	if len(defs) != 2 || defs[0].Name != "search_course_content" || defs[1].Name != "get_course_outline" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}

	text, err := m.Execute(context.Background(), "get_course_outline", json.RawMessage(`{"course_name":"widgets"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text == "" {
		t.Fatal("expected outline text")
	}

	sources := m.DrainSources()
	if len(sources) != 1 || sources[0].Label != "Intro to Widgets" {
		t.Fatalf("unexpected sources: %+v", sources)
	}
	if again := m.DrainSources(); again != nil {
		t.Fatalf("second drain must be empty, got %+v", again)
	}
}

func TestManagerUnknownTool(t *testing.T) {
	m := NewManager()

	if _, err := m.Execute(context.Background(), "nope", nil); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}
