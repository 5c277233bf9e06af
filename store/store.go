// Package store implements the dual-collection vector index: a catalog of
// course metadata keyed by title and a content collection of lesson chunks.
// Course names are resolved fuzzily by nearest-neighbor search over the
// catalog before content is filtered and searched.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"coursechat/config"
	"coursechat/course"
	"coursechat/embeddings"
)

const defaultMaxResults = 5

// ErrCourseNotFound reports a catalog lookup for a title that was never
// ingested.
var ErrCourseNotFound = errors.New("course not found")

// ChunkMeta mirrors the metadata stored with each content entry.
type ChunkMeta struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// SearchResults carries a content search outcome. When Error is set the
// other fields are empty and must not be interpreted; an unset Error with
// zero documents means the search ran and nothing matched.
type SearchResults struct {
	Documents []string
	Metadata  []ChunkMeta
	Distances []float64
	Error     string
}

func (r SearchResults) IsEmpty() bool {
	return r.Error == "" && len(r.Documents) == 0
}

func errorResults(format string, args ...any) SearchResults {
	return SearchResults{Error: fmt.Sprintf(format, args...)}
}

// SearchOptions narrows a content search. CourseName is resolved against the
// catalog first; MaxResults of zero falls back to the store's configured
// default.
type SearchOptions struct {
	CourseName   string
	LessonNumber *int
	MaxResults   int
}

// Store is the vector index contract shared by the chromem and Postgres
// backends. Search converts backend faults into SearchResults.Error instead
// of returning them, so callers always hold a well-formed result.
type Store interface {
	UpsertCourse(ctx context.Context, c course.Course) error
	UpsertChunks(ctx context.Context, chunks []course.Chunk) error
	ResolveCourseName(ctx context.Context, name string) (string, error)
	Search(ctx context.Context, query string, opts SearchOptions) SearchResults
	ExistingCourseTitles(ctx context.Context) ([]string, error)
	CourseCount(ctx context.Context) (int, error)
	CatalogEntry(ctx context.Context, title string) (course.Course, error)
	Clear(ctx context.Context) error
	Close()
}

// Options tune behavior shared by every backend.
type Options struct {
	MaxResults int
	// ResolveMinSimilarity below which a catalog match is treated as a miss.
	// Zero keeps the closest-match-always-wins behavior.
	ResolveMinSimilarity float64
}

func (o Options) maxResults(requested int) int {
	if requested > 0 {
		return requested
	}
	if o.MaxResults > 0 {
		return o.MaxResults
	}
	return defaultMaxResults
}

// New builds the configured backend.
func New(ctx context.Context, cfg config.Config, embedder embeddings.Embedder) (Store, error) {
	opts := Options{
		MaxResults:           cfg.MaxResults,
		ResolveMinSimilarity: cfg.Store.ResolveMinSimilarity,
	}

	switch cfg.Store.Backend {
	case config.BackendChromem:
		return NewChromemStore(cfg.Store.IndexPath, embedder, opts)
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}
		s, err := NewPostgresStore(ctx, pool, embedder, cfg.Embeddings.Dimension, opts)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", cfg.Store.Backend)
	}
}
