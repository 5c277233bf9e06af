package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"coursechat/course"
	"coursechat/embeddings"
)

const (
	catalogCollection = "course_catalog"
	contentCollection = "course_content"
	registryFile      = "catalog.json"
)

// ChromemStore keeps both collections in an embedded chromem database,
// persisted under a directory when a path is given. chromem cannot enumerate
// document ids, so the set of catalog titles is mirrored in a registry file
// next to the database and kept in sync on every write.
type ChromemStore struct {
	db       *chromem.DB
	catalog  *chromem.Collection
	content  *chromem.Collection
	embedder embeddings.Embedder
	embedFn  chromem.EmbeddingFunc
	opts     Options
	path     string

	mu     sync.RWMutex
	titles map[string]struct{}
}

// NewChromemStore opens (or creates) the index at path. An empty path keeps
// everything in memory, which the tests rely on.
func NewChromemStore(path string, embedder embeddings.Embedder, opts Options) (*ChromemStore, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem database: %w", err)
		}
	}

	s := &ChromemStore{
		db:       db,
		embedder: embedder,
		embedFn:  singleTextFunc(embedder),
		opts:     opts,
		path:     path,
		titles:   make(map[string]struct{}),
	}
	if err := s.openCollections(); err != nil {
		return nil, err
	}
	if err := s.loadRegistry(); err != nil {
		return nil, err
	}
	return s, nil
}

func singleTextFunc(e embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) == 0 {
			return nil, fmt.Errorf("embedder returned no vectors")
		}
		return vecs[0], nil
	}
}

func (s *ChromemStore) openCollections() error {
	meta := map[string]string{"hnsw:space": "cosine"}

	catalog, err := s.db.GetOrCreateCollection(catalogCollection, meta, s.embedFn)
	if err != nil {
		return fmt.Errorf("open catalog collection: %w", err)
	}
	content, err := s.db.GetOrCreateCollection(contentCollection, meta, s.embedFn)
	if err != nil {
		return fmt.Errorf("open content collection: %w", err)
	}

	s.catalog = catalog
	s.content = content
	return nil
}

func (s *ChromemStore) UpsertCourse(ctx context.Context, c course.Course) error {
	if c.Title == "" {
		return fmt.Errorf("course title is empty")
	}

	lessonsJSON, err := json.Marshal(c.Lessons)
	if err != nil {
		return fmt.Errorf("marshal lessons: %w", err)
	}

	metadata := map[string]string{
		"title":        c.Title,
		"instructor":   c.Instructor,
		"course_url":   c.Link,
		"lesson_count": strconv.Itoa(len(c.Lessons)),
		"lessons_json": string(lessonsJSON),
	}

	// The title is both the key and the embedded text; writing the same
	// title again overwrites in place.
	if err := s.catalog.AddDocument(ctx, chromem.Document{
		ID:       c.Title,
		Metadata: metadata,
		Content:  c.Title,
	}); err != nil {
		return fmt.Errorf("upsert catalog entry: %w", err)
	}

	s.mu.Lock()
	s.titles[c.Title] = struct{}{}
	s.mu.Unlock()

	return s.saveRegistry()
}

func (s *ChromemStore) UpsertChunks(ctx context.Context, chunks []course.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(chunks), len(vectors))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		metadata := map[string]string{
			"course_title": chunk.CourseTitle,
			"chunk_index":  strconv.Itoa(chunk.Index),
		}
		if chunk.LessonNumber != nil {
			metadata["lesson_number"] = strconv.Itoa(*chunk.LessonNumber)
		}
		docs[i] = chromem.Document{
			ID:        chunkID(chunk.CourseTitle, chunk.Index),
			Metadata:  metadata,
			Embedding: vectors[i],
			Content:   chunk.Text,
		}
	}

	if err := s.content.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

func chunkID(title string, index int) string {
	return fmt.Sprintf("%s:%d", title, index)
}

func (s *ChromemStore) ResolveCourseName(ctx context.Context, name string) (string, error) {
	if s.catalog.Count() == 0 {
		return "", nil
	}

	results, err := s.catalog.Query(ctx, name, 1, nil, nil)
	if err != nil {
		return "", fmt.Errorf("query catalog: %w", err)
	}
	if len(results) == 0 {
		return "", nil
	}
	if s.opts.ResolveMinSimilarity > 0 && float64(results[0].Similarity) < s.opts.ResolveMinSimilarity {
		return "", nil
	}
	return results[0].ID, nil
}

func (s *ChromemStore) Search(ctx context.Context, query string, opts SearchOptions) SearchResults {
	where := make(map[string]string)

	if opts.CourseName != "" {
		title, err := s.ResolveCourseName(ctx, opts.CourseName)
		if err != nil {
			return errorResults("Search error: %v", err)
		}
		if title == "" {
			return errorResults("No course found matching '%s'", opts.CourseName)
		}
		where["course_title"] = title
	}
	if opts.LessonNumber != nil {
		where["lesson_number"] = strconv.Itoa(*opts.LessonNumber)
	}

	total := s.content.Count()
	if total == 0 {
		return SearchResults{}
	}
	limit := s.opts.maxResults(opts.MaxResults)
	if limit > total {
		limit = total
	}

	var filter map[string]string
	if len(where) > 0 {
		filter = where
	}

	results, err := s.content.Query(ctx, query, limit, filter, nil)
	if err != nil {
		return errorResults("Search error: %v", err)
	}

	out := SearchResults{
		Documents: make([]string, 0, len(results)),
		Metadata:  make([]ChunkMeta, 0, len(results)),
		Distances: make([]float64, 0, len(results)),
	}
	for _, result := range results {
		meta := ChunkMeta{CourseTitle: result.Metadata["course_title"]}
		if v, ok := result.Metadata["lesson_number"]; ok {
			if n, convErr := strconv.Atoi(v); convErr == nil {
				meta.LessonNumber = &n
			}
		}
		if v, ok := result.Metadata["chunk_index"]; ok {
			meta.ChunkIndex, _ = strconv.Atoi(v)
		}
		out.Documents = append(out.Documents, result.Content)
		out.Metadata = append(out.Metadata, meta)
		out.Distances = append(out.Distances, 1-float64(result.Similarity))
	}
	return out
}

func (s *ChromemStore) ExistingCourseTitles(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	titles := make([]string, 0, len(s.titles))
	for title := range s.titles {
		titles = append(titles, title)
	}
	s.mu.RUnlock()

	sort.Strings(titles)
	return titles, nil
}

func (s *ChromemStore) CourseCount(ctx context.Context) (int, error) {
	return s.catalog.Count(), nil
}

func (s *ChromemStore) CatalogEntry(ctx context.Context, title string) (course.Course, error) {
	doc, err := s.catalog.GetByID(ctx, title)
	if err != nil {
		return course.Course{}, fmt.Errorf("%w: %s", ErrCourseNotFound, title)
	}

	entry := course.Course{
		Title:      title,
		Link:       doc.Metadata["course_url"],
		Instructor: doc.Metadata["instructor"],
	}
	if raw := doc.Metadata["lessons_json"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &entry.Lessons); err != nil {
			return course.Course{}, fmt.Errorf("decode lessons for %q: %w", title, err)
		}
	}
	return entry, nil
}

func (s *ChromemStore) Clear(ctx context.Context) error {
	if err := s.db.DeleteCollection(catalogCollection); err != nil {
		return fmt.Errorf("delete catalog collection: %w", err)
	}
	if err := s.db.DeleteCollection(contentCollection); err != nil {
		return fmt.Errorf("delete content collection: %w", err)
	}
	if err := s.openCollections(); err != nil {
		return err
	}

	s.mu.Lock()
	s.titles = make(map[string]struct{})
	s.mu.Unlock()

	return s.saveRegistry()
}

// Close is a no-op: chromem persists on every write.
func (s *ChromemStore) Close() {}

func (s *ChromemStore) registryPath() string {
	return filepath.Join(s.path, registryFile)
}

func (s *ChromemStore) loadRegistry() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.registryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read catalog registry: %w", err)
	}

	var titles []string
	if err := json.Unmarshal(data, &titles); err != nil {
		return fmt.Errorf("decode catalog registry: %w", err)
	}

	s.mu.Lock()
	for _, title := range titles {
		s.titles[title] = struct{}{}
	}
	s.mu.Unlock()
	return nil
}

func (s *ChromemStore) saveRegistry() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	titles := make([]string, 0, len(s.titles))
	for title := range s.titles {
		titles = append(titles, title)
	}
	s.mu.RUnlock()
	sort.Strings(titles)

	data, err := json.MarshalIndent(titles, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog registry: %w", err)
	}
	if err := os.WriteFile(s.registryPath(), data, 0o644); err != nil {
		return fmt.Errorf("write catalog registry: %w", err)
	}
	return nil
}

var _ Store = (*ChromemStore)(nil)
