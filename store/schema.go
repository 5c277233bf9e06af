package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the pgvector extension and both index tables. The
// catalog embeds course titles; the chunks table embeds lesson content and
// carries the filterable metadata columns.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS course_catalog (
			title TEXT PRIMARY KEY,
			instructor TEXT,
			course_url TEXT,
			lesson_count INT NOT NULL DEFAULT 0,
			lessons_json JSONB NOT NULL DEFAULT '[]',
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimension),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS course_chunks (
			id TEXT PRIMARY KEY,
			course_title TEXT NOT NULL,
			lesson_number INT,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(course_title, chunk_index)
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_course_chunks_course ON course_chunks(course_title)",
		"CREATE INDEX IF NOT EXISTS idx_course_chunks_lesson ON course_chunks(course_title, lesson_number)",
		"CREATE INDEX IF NOT EXISTS idx_course_chunks_embedding ON course_chunks USING ivfflat (embedding vector_cosine_ops)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}
