package course

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 100
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeWhitespace collapses runs of whitespace into single spaces so
// chunk windows never straddle layout artifacts of the source file.
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// SplitText cuts text into overlapping windows of at most size characters,
// with overlap characters repeated between consecutive windows. Sizes count
// runes, never bytes, so a cut cannot land inside a multibyte character.
// Cuts prefer a sentence end, then a word boundary, then a hard cut.
// Concatenating the first window with every later window minus its leading
// overlap runes reproduces the input exactly.
func SplitText(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	runes := []rune(text)

	var windows []string
	for start := 0; start < len(runes); {
		end := start + size
		if end >= len(runes) {
			windows = append(windows, string(runes[start:]))
			break
		}
		cut := splitPoint(runes, start, end, overlap)
		windows = append(windows, string(runes[start:cut]))
		start = cut - overlap
	}
	return windows
}

// splitPoint picks the best cut in (start+overlap, end]. The lower bound
// keeps every window longer than the overlap so the walk always advances.
func splitPoint(runes []rune, start, end, overlap int) int {
	min := start + overlap + 1

	for i := end; i >= min; i-- {
		if runes[i-1] == ' ' && i-2 >= start && isSentenceEnd(runes[i-2]) {
			return i
		}
	}
	for i := end; i >= min; i-- {
		if runes[i-1] == ' ' {
			return i
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// BuildChunks turns parsed lesson bodies into index-ready chunks. The first
// window of each numbered lesson gains a "Lesson N content: " prefix, which
// deliberately pushes that chunk past the nominal window size: the lesson
// context rides along into the embedding. Index runs across the whole
// course so (title, index) stays unique.
func BuildChunks(doc Course, lessons []LessonText, size, overlap int) []Chunk {
	var chunks []Chunk
	index := 0
	for _, lt := range lessons {
		body := NormalizeWhitespace(lt.Body)
		if body == "" {
			continue
		}
		for i, window := range SplitText(body, size, overlap) {
			text := window
			var lessonNumber *int
			if lt.Lesson != nil {
				n := lt.Lesson.Number
				lessonNumber = &n
				if i == 0 {
					text = fmt.Sprintf("Lesson %d content: %s", n, window)
				}
			}
			chunks = append(chunks, Chunk{
				Text:         text,
				CourseTitle:  doc.Title,
				LessonNumber: lessonNumber,
				Index:        index,
			})
			index++
		}
	}
	return chunks
}
