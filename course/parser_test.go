package course

import (
	"errors"
	"testing"
)

const sampleScript = `Course Title: Intro to Widgets
Course Link: https://example.com/widgets
Course Instructor: Ada Example

Lesson 0: Welcome
Lesson Link: https://example.com/widgets/lesson-0
Welcome to the course.

Lesson 1: Building Widgets
Widgets are assembled from parts.
Each part matters.
`

func TestParseDocumentHeader(t *testing.T) {
	doc, lessons, err := ParseDocument(sampleScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "Intro to Widgets" {
		t.Fatalf("unexpected title: %q", doc.Title)
	}
	if doc.Link != "https://example.com/widgets" {
		t.Fatalf("unexpected link: %q", doc.Link)
	}
	if doc.Instructor != "Ada Example" {
		t.Fatalf("unexpected instructor: %q", doc.Instructor)
	}

	if len(lessons) != 2 {
		t.Fatalf("expected 2 lessons, got %d", len(lessons))
	}
	if len(doc.Lessons) != 2 {
		t.Fatalf("expected 2 catalog lessons, got %d", len(doc.Lessons))
	}
}

func TestParseDocumentLessonLinks(t *testing.T) {
	_, lessons, err := ParseDocument(sampleScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := lessons[0].Lesson
	if first.Number != 0 || first.Title != "Welcome" {
		t.Fatalf("unexpected first lesson: %+v", first)
	}
	if first.Link != "https://example.com/widgets/lesson-0" {
		t.Fatalf("unexpected lesson link: %q", first.Link)
	}
	if lessons[0].Body != "Welcome to the course." {
		t.Fatalf("lesson link line leaked into body: %q", lessons[0].Body)
	}

	second := lessons[1].Lesson
	if second.Link != "" {
		t.Fatalf("expected empty link for lesson without one, got %q", second.Link)
	}
}

func TestParseDocumentPreservesDocumentOrder(t *testing.T) {
	content := "Course Title: Out of Order\nCourse Link:\nCourse Instructor: Bo\n" +
		"Lesson 2: Second Marker\nbody two\nLesson 1: First Marker\nbody one\n"

	_, lessons, err := ParseDocument(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lessons) != 2 {
		t.Fatalf("expected 2 lessons, got %d", len(lessons))
	}
	if lessons[0].Lesson.Number != 2 || lessons[1].Lesson.Number != 1 {
		t.Fatalf("lessons reordered: %d then %d", lessons[0].Lesson.Number, lessons[1].Lesson.Number)
	}
}

func TestParseDocumentKeepsPreamble(t *testing.T) {
	content := "Course Title: Intro to Widgets\nCourse Link:\nCourse Instructor: Ada\n" +
		"This introduction precedes every lesson.\n\n" +
		"Lesson 1: Basics\nWidgets are small mechanical parts.\n"

	doc, lessons, err := ParseDocument(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(lessons) != 2 {
		t.Fatalf("expected preamble plus lesson, got %d bodies", len(lessons))
	}
	if lessons[0].Lesson != nil {
		t.Fatalf("preamble must carry no lesson, got %+v", lessons[0].Lesson)
	}
	if lessons[0].Body != "This introduction precedes every lesson." {
		t.Fatalf("unexpected preamble body: %q", lessons[0].Body)
	}
	if lessons[1].Lesson == nil || lessons[1].Lesson.Number != 1 {
		t.Fatalf("unexpected lesson entry: %+v", lessons[1])
	}

	// The catalog only lists numbered lessons.
	if len(doc.Lessons) != 1 {
		t.Fatalf("expected 1 catalog lesson, got %d", len(doc.Lessons))
	}

	chunks := BuildChunks(doc, lessons, 800, 100)
	if len(chunks) != 2 {
		t.Fatalf("expected preamble and lesson chunks, got %d", len(chunks))
	}
	if chunks[0].LessonNumber != nil {
		t.Fatalf("preamble chunk must have no lesson number: %+v", chunks[0])
	}
	if chunks[0].Text != "This introduction precedes every lesson." {
		t.Fatalf("preamble text lost: %q", chunks[0].Text)
	}
	if chunks[1].LessonNumber == nil || *chunks[1].LessonNumber != 1 {
		t.Fatalf("unexpected lesson chunk: %+v", chunks[1])
	}
}

func TestParseDocumentWithoutLessonMarkers(t *testing.T) {
	content := "Course Title: Plain Notes\nCourse Link:\nCourse Instructor:\n\nJust some prose with no lessons.\n"

	doc, lessons, err := ParseDocument(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Lessons) != 0 {
		t.Fatalf("expected no catalog lessons, got %d", len(doc.Lessons))
	}
	if len(lessons) != 1 {
		t.Fatalf("expected 1 body, got %d", len(lessons))
	}
	if lessons[0].Lesson != nil {
		t.Fatalf("expected nil lesson for unmarked body")
	}
	if lessons[0].Body != "Just some prose with no lessons." {
		t.Fatalf("unexpected body: %q", lessons[0].Body)
	}
}

func TestParseDocumentMalformed(t *testing.T) {
	cases := map[string]string{
		"missing header":  "Lesson 1: Hello\nbody\n",
		"wrong order":     "Course Link: x\nCourse Title: y\nCourse Instructor: z\n",
		"empty title":     "Course Title:\nCourse Link: x\nCourse Instructor: z\n",
		"only two labels": "Course Title: x\nCourse Link: y\n",
	}

	for name, content := range cases {
		if _, _, err := ParseDocument(content); !errors.Is(err, ErrMalformedDocument) {
			t.Fatalf("%s: expected ErrMalformedDocument, got %v", name, err)
		}
	}
}

func TestParseDocumentCRLF(t *testing.T) {
	content := "Course Title: Win\r\nCourse Link: l\r\nCourse Instructor: i\r\nLesson 1: A\r\nbody\r\n"

	doc, lessons, err := ParseDocument(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Win" {
		t.Fatalf("unexpected title: %q", doc.Title)
	}
	if len(lessons) != 1 || lessons[0].Body != "body" {
		t.Fatalf("unexpected lessons: %+v", lessons)
	}
}
