// Package course models course documents and turns their raw text into
// indexable chunks.
package course

// Lesson is a single numbered lesson within a course. Numbers follow the
// source document and need not be contiguous.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"url,omitempty"`
}

// Course is identified by its title; ingesting a document whose title is
// already in the catalog is a no-op.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Chunk is one overlapping window of lesson text. LessonNumber is nil for
// text that appears before the first lesson marker. Index increases across
// the whole course, not per lesson, so (CourseTitle, Index) is a stable
// identity for upserts.
type Chunk struct {
	Text         string
	CourseTitle  string
	LessonNumber *int
	Index        int
}
