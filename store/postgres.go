package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"coursechat/course"
	"coursechat/embeddings"
)

// PostgresStore backs the index with pgvector, both collections living in
// tables of the same database. Cosine distance (<=>) keeps ranking
// comparable with the chromem backend.
type PostgresStore struct {
	pool      *pgxpool.Pool
	embedder  embeddings.Embedder
	dimension int
	opts      Options
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, embedder embeddings.Embedder, dimension int, opts Options) (*PostgresStore, error) {
	if err := EnsureSchema(ctx, pool, dimension); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresStore{
		pool:      pool,
		embedder:  embedder,
		dimension: dimension,
		opts:      opts,
	}, nil
}

func (s *PostgresStore) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	return vecs[0], nil
}

func (s *PostgresStore) UpsertCourse(ctx context.Context, c course.Course) error {
	if c.Title == "" {
		return fmt.Errorf("course title is empty")
	}

	vec, err := s.embedOne(ctx, c.Title)
	if err != nil {
		return fmt.Errorf("embed course title: %w", err)
	}

	lessonsJSON, err := json.Marshal(c.Lessons)
	if err != nil {
		return fmt.Errorf("marshal lessons: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO course_catalog (title, instructor, course_url, lesson_count, lessons_json, embedding)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		ON CONFLICT (title) DO UPDATE
		SET instructor = EXCLUDED.instructor,
		    course_url = EXCLUDED.course_url,
		    lesson_count = EXCLUDED.lesson_count,
		    lessons_json = EXCLUDED.lessons_json,
		    embedding = EXCLUDED.embedding,
		    updated_at = NOW()
	`, c.Title, c.Instructor, c.Link, len(c.Lessons), string(lessonsJSON), pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("upsert catalog entry: %w", err)
	}

	return nil
}

func (s *PostgresStore) UpsertChunks(ctx context.Context, chunks []course.Chunk) error {
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

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for i, chunk := range chunks {
		if _, err = tx.Exec(ctx, `
			INSERT INTO course_chunks (id, course_title, lesson_number, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET course_title = EXCLUDED.course_title,
			    lesson_number = EXCLUDED.lesson_number,
			    content = EXCLUDED.content,
			    embedding = EXCLUDED.embedding,
			    updated_at = NOW()
		`, chunkID(chunk.CourseTitle, chunk.Index), chunk.CourseTitle, chunk.LessonNumber, chunk.Index, chunk.Text, pgvector.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("upsert chunk %d: %w", chunk.Index, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}
	return nil
}

func (s *PostgresStore) ResolveCourseName(ctx context.Context, name string) (string, error) {
	vec, err := s.embedOne(ctx, name)
	if err != nil {
		return "", fmt.Errorf("embed course name: %w", err)
	}

	var (
		title    string
		distance float64
	)
	err = s.pool.QueryRow(ctx, `
		SELECT title, (embedding <=> $1::vector) AS distance
		FROM course_catalog
		ORDER BY embedding <=> $1::vector
		LIMIT 1
	`, pgvector.NewVector(vec)).Scan(&title, &distance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("query catalog: %w", err)
	}

	if s.opts.ResolveMinSimilarity > 0 && 1-distance < s.opts.ResolveMinSimilarity {
		return "", nil
	}
	return title, nil
}

func (s *PostgresStore) Search(ctx context.Context, query string, opts SearchOptions) SearchResults {
	var conds []string
	args := []any{}

	if opts.CourseName != "" {
		title, err := s.ResolveCourseName(ctx, opts.CourseName)
		if err != nil {
			return errorResults("Search error: %v", err)
		}
		if title == "" {
			return errorResults("No course found matching '%s'", opts.CourseName)
		}
		args = append(args, title)
		conds = append(conds, fmt.Sprintf("course_title = $%d", len(args)+1))
	}
	if opts.LessonNumber != nil {
		args = append(args, *opts.LessonNumber)
		conds = append(conds, fmt.Sprintf("lesson_number = $%d", len(args)+1))
	}

	vec, err := s.embedOne(ctx, query)
	if err != nil {
		return errorResults("Search error: %v", err)
	}

	sql := `
		SELECT content, course_title, lesson_number, chunk_index, (embedding <=> $1::vector) AS distance
		FROM course_chunks`
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	// $1 is reserved for the query vector; filter args follow it.
	args = append([]any{pgvector.NewVector(vec)}, args...)
	args = append(args, s.opts.maxResults(opts.MaxResults))
	sql += fmt.Sprintf(" ORDER BY embedding <=> $1::vector LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return errorResults("Search error: %v", err)
	}
	defer rows.Close()

	var out SearchResults
	for rows.Next() {
		var (
			content  string
			meta     ChunkMeta
			distance float64
		)
		if err := rows.Scan(&content, &meta.CourseTitle, &meta.LessonNumber, &meta.ChunkIndex, &distance); err != nil {
			return errorResults("Search error: %v", err)
		}
		out.Documents = append(out.Documents, content)
		out.Metadata = append(out.Metadata, meta)
		out.Distances = append(out.Distances, distance)
	}
	if err := rows.Err(); err != nil {
		return errorResults("Search error: %v", err)
	}

	return out
}

func (s *PostgresStore) ExistingCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT title FROM course_catalog ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("query course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan course title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

func (s *PostgresStore) CourseCount(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM course_catalog").Scan(&count); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CatalogEntry(ctx context.Context, title string) (course.Course, error) {
	entry := course.Course{Title: title}
	var lessonsJSON []byte

	err := s.pool.QueryRow(ctx, `
		SELECT instructor, course_url, lessons_json
		FROM course_catalog
		WHERE title = $1
	`, title).Scan(&entry.Instructor, &entry.Link, &lessonsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return course.Course{}, fmt.Errorf("%w: %s", ErrCourseNotFound, title)
		}
		return course.Course{}, fmt.Errorf("query catalog entry: %w", err)
	}

	if len(lessonsJSON) > 0 {
		if err := json.Unmarshal(lessonsJSON, &entry.Lessons); err != nil {
			return course.Course{}, fmt.Errorf("decode lessons for %q: %w", title, err)
		}
	}
	return entry, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE course_chunks, course_catalog"); err != nil {
		return fmt.Errorf("truncate index tables: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

var _ Store = (*PostgresStore)(nil)
