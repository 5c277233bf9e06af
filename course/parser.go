package course

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedDocument is returned when a document does not carry the
// required course header. Ingestion skips such files and moves on.
var ErrMalformedDocument = errors.New("malformed course document")

const (
	titleLabel      = "Course Title:"
	linkLabel       = "Course Link:"
	instructorLabel = "Course Instructor:"
	lessonLinkLabel = "Lesson Link:"
)

var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// LessonText pairs a lesson with its raw body text. Lesson is nil when the
// document has no lesson markers and the whole body stands on its own.
type LessonText struct {
	Lesson *Lesson
	Body   string
}

// ParseDocument extracts the course header and lesson bodies from a course
// script. The first three non-empty lines must be the Course Title, Course
// Link, and Course Instructor labels in that order; link and instructor may
// be empty after the colon. Lessons are returned in document order even when
// their numbers are not.
func ParseDocument(content string) (Course, []LessonText, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	header := make([]string, 0, 3)
	rest := 0
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		header = append(header, strings.TrimSpace(line))
		if len(header) == 3 {
			rest = i + 1
			break
		}
	}

	if len(header) < 3 ||
		!strings.HasPrefix(header[0], titleLabel) ||
		!strings.HasPrefix(header[1], linkLabel) ||
		!strings.HasPrefix(header[2], instructorLabel) {
		return Course{}, nil, fmt.Errorf("%w: missing course header lines", ErrMalformedDocument)
	}

	doc := Course{
		Title:      strings.TrimSpace(strings.TrimPrefix(header[0], titleLabel)),
		Link:       strings.TrimSpace(strings.TrimPrefix(header[1], linkLabel)),
		Instructor: strings.TrimSpace(strings.TrimPrefix(header[2], instructorLabel)),
	}
	if doc.Title == "" {
		return Course{}, nil, fmt.Errorf("%w: empty course title", ErrMalformedDocument)
	}

	var (
		lessons  []LessonText
		current  *Lesson
		body     []string
		preamble []string
	)

	flush := func() {
		if current == nil {
			return
		}
		lessons = append(lessons, LessonText{
			Lesson: current,
			Body:   strings.TrimSpace(strings.Join(body, "\n")),
		})
		body = body[:0]
	}

	for i := rest; i < len(lines); i++ {
		line := lines[i]
		if m := lessonMarker.FindStringSubmatch(line); m != nil {
			flush()
			number, err := strconv.Atoi(m[1])
			if err != nil {
				// Marker regex only admits digits; overflow is the one way here.
				return Course{}, nil, fmt.Errorf("%w: lesson number %q", ErrMalformedDocument, m[1])
			}
			current = &Lesson{Number: number, Title: strings.TrimSpace(m[2])}

			// An optional "Lesson Link:" line directly after the marker
			// belongs to the lesson, not its body.
			if i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if strings.HasPrefix(next, lessonLinkLabel) {
					current.Link = strings.TrimSpace(strings.TrimPrefix(next, lessonLinkLabel))
					i++
				}
			}
			continue
		}
		if current != nil {
			body = append(body, line)
		} else {
			preamble = append(preamble, line)
		}
	}
	flush()

	for i := range lessons {
		doc.Lessons = append(doc.Lessons, *lessons[i].Lesson)
	}

	// Text before the first lesson marker (or the whole body when no marker
	// exists) is still indexable; it goes first, without a lesson number.
	if intro := strings.TrimSpace(strings.Join(preamble, "\n")); intro != "" {
		lessons = append([]LessonText{{Body: intro}}, lessons...)
	}

	return doc, lessons, nil
}
