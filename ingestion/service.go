// Package ingestion walks a directory of course scripts and loads them into
// the vector index, skipping courses the catalog already holds.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"coursechat/course"
	"coursechat/knowledge"
	"coursechat/store"
)

type Service struct {
	store        store.Store
	driver       neo4j.DriverWithContext
	logger       *log.Logger
	chunkSize    int
	chunkOverlap int
}

// NewService builds the ingestion pipeline. driver may be nil when no
// knowledge graph is configured.
func NewService(s store.Store, driver neo4j.DriverWithContext, logger *log.Logger, chunkSize, chunkOverlap int) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:        s,
		driver:       driver,
		logger:       logger,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

type Stats struct {
	Courses int
	Chunks  int
}

// IngestDirectory loads every supported document under dir. Re-running over
// the same directory is a no-op for courses already in the catalog unless
// rebuild is set, which drops both collections first. Per-file failures are
// logged and skipped so one malformed script never blocks the rest.
func (s *Service) IngestDirectory(ctx context.Context, dir string, rebuild bool) (Stats, error) {
	if _, err := os.Stat(dir); err != nil {
		return Stats{}, fmt.Errorf("docs directory: %w", err)
	}

	if rebuild {
		if err := s.store.Clear(ctx); err != nil {
			return Stats{}, fmt.Errorf("clear index: %w", err)
		}
		s.logger.Println("cleared existing index data")
	}

	titles, err := s.store.ExistingCourseTitles(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list existing courses: %w", err)
	}
	existing := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		existing[title] = struct{}{}
	}

	var paths []string
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && SupportedDocument(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	}); err != nil {
		return Stats{}, fmt.Errorf("walk docs directory: %w", err)
	}

	if len(paths) == 0 {
		s.logger.Printf("no course documents found in %s", dir)
		return Stats{}, nil
	}

	var stats Stats
	for _, path := range paths {
		added, err := s.ingestFile(ctx, path, existing)
		if err != nil {
			s.logger.Printf("ingest failed for %s: %v", path, err)
			continue
		}
		if added > 0 {
			stats.Courses++
			stats.Chunks += added
		}
	}

	return stats, nil
}

func (s *Service) ingestFile(ctx context.Context, path string, existing map[string]struct{}) (int, error) {
	content, err := ReadDocument(path)
	if err != nil {
		return 0, err
	}

	doc, lessons, err := course.ParseDocument(content)
	if err != nil {
		if errors.Is(err, course.ErrMalformedDocument) {
			return 0, fmt.Errorf("skipping: %w", err)
		}
		return 0, err
	}

	if _, loaded := existing[doc.Title]; loaded {
		s.logger.Printf("course %q already loaded, skipping %s", doc.Title, path)
		return 0, nil
	}

	chunks := course.BuildChunks(doc, lessons, s.chunkSize, s.chunkOverlap)
	if len(chunks) == 0 {
		s.logger.Printf("skip empty document %s", path)
		return 0, nil
	}

	if err := s.store.UpsertCourse(ctx, doc); err != nil {
		return 0, fmt.Errorf("store course metadata: %w", err)
	}
	if err := s.store.UpsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store course chunks: %w", err)
	}
	existing[doc.Title] = struct{}{}

	if s.driver != nil {
		if err := knowledge.SyncCourse(ctx, s.driver, doc); err != nil {
			// The vector index is the system of record; a graph sync
			// failure downgrades to a warning.
			s.logger.Printf("knowledge graph sync failed for %q: %v", doc.Title, err)
		}
	}

	s.logger.Printf("ingested %q (%d lessons, %d chunks)", doc.Title, len(doc.Lessons), len(chunks))
	return len(chunks), nil
}
