// Package knowledge mirrors the course catalog into a Neo4j graph so the
// analytics endpoint can report structure and instructor relationships.
package knowledge

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"coursechat/course"
)

// SyncCourse upserts a course, its lessons, and its instructor into the
// graph. Lessons are replaced wholesale on every sync; instructors are
// shared nodes and orphans are cleaned up afterwards.
func SyncCourse(ctx context.Context, driver neo4j.DriverWithContext, c course.Course) error {
	if driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	params := map[string]any{
		"title":      c.Title,
		"url":        c.Link,
		"instructor": c.Instructor,
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (c:Course {title: $title})
			SET c.url = $url,
			    c.updated_at = datetime()
		`, params); err != nil {
			return nil, fmt.Errorf("upsert course node: %w", err)
		}

		if _, err := tx.Run(ctx, `
			MATCH (c:Course {title: $title})-[r:TAUGHT_BY]->(:Instructor)
			DELETE r
		`, params); err != nil {
			return nil, fmt.Errorf("remove stale instructor relation: %w", err)
		}

		if c.Instructor != "" {
			if _, err := tx.Run(ctx, `
				MATCH (c:Course {title: $title})
				MERGE (i:Instructor {name: $instructor})
				MERGE (c)-[:TAUGHT_BY]->(i)
			`, params); err != nil {
				return nil, fmt.Errorf("upsert instructor relation: %w", err)
			}
		}

		if _, err := tx.Run(ctx, `
			MATCH (c:Course {title: $title})-[:HAS_LESSON]->(l:Lesson)
			DETACH DELETE l
		`, params); err != nil {
			return nil, fmt.Errorf("clear existing lessons: %w", err)
		}

		for _, lesson := range c.Lessons {
			if _, err := tx.Run(ctx, `
				MATCH (c:Course {title: $title})
				MERGE (l:Lesson {id: $lesson_id})
				SET l.number = $number,
				    l.title = $lesson_title,
				    l.url = $lesson_url
				MERGE (c)-[:HAS_LESSON {number: $number}]->(l)
			`, map[string]any{
				"title":        c.Title,
				"lesson_id":    fmt.Sprintf("%s#%d", c.Title, lesson.Number),
				"number":       lesson.Number,
				"lesson_title": lesson.Title,
				"lesson_url":   lesson.Link,
			}); err != nil {
				return nil, fmt.Errorf("upsert lesson node: %w", err)
			}
		}

		return nil, nil
	})

	if err == nil {
		if _, cleanupErr := session.Run(ctx, `
			MATCH (i:Instructor)
			WHERE NOT (i)<-[:TAUGHT_BY]-(:Course)
			DELETE i
		`, nil); cleanupErr != nil {
			err = cleanupErr
		}
	}

	return err
}

// Insight summarizes a course's graph neighborhood.
type Insight struct {
	LessonCount    int      `json:"lesson_count"`
	Instructor     string   `json:"instructor,omitempty"`
	RelatedCourses []string `json:"related_courses,omitempty"`
}

// CourseInsights returns per-title insights for the given courses. Related
// courses share an instructor.
func CourseInsights(ctx context.Context, driver neo4j.DriverWithContext, titles []string) (map[string]Insight, error) {
	if driver == nil {
		return nil, fmt.Errorf("neo4j driver is nil")
	}
	if len(titles) == 0 {
		return map[string]Insight{}, nil
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (c:Course)
		WHERE c.title IN $titles
		OPTIONAL MATCH (c)-[:HAS_LESSON]->(l:Lesson)
		OPTIONAL MATCH (c)-[:TAUGHT_BY]->(i:Instructor)
		OPTIONAL MATCH (i)<-[:TAUGHT_BY]-(related:Course)
		WITH c,
		     count(DISTINCT l) AS lessonCount,
		     i.name AS instructor,
		     [r IN collect(DISTINCT related.title) WHERE r IS NOT NULL AND r <> c.title] AS relatedCourses
		RETURN c.title AS title, lessonCount, instructor, relatedCourses
	`, map[string]any{"titles": titles})
	if err != nil {
		return nil, fmt.Errorf("run course insights query: %w", err)
	}

	insights := make(map[string]Insight, len(titles))
	for result.Next(ctx) {
		record := result.Record()

		titleVal, _ := record.Get("title")
		title, ok := titleVal.(string)
		if !ok {
			continue
		}

		insight := Insight{}
		if countVal, _ := record.Get("lessonCount"); countVal != nil {
			switch v := countVal.(type) {
			case int64:
				insight.LessonCount = int(v)
			case int32:
				insight.LessonCount = int(v)
			}
		}
		if instructorVal, _ := record.Get("instructor"); instructorVal != nil {
			if name, ok := instructorVal.(string); ok {
				insight.Instructor = name
			}
		}
		if relatedVal, _ := record.Get("relatedCourses"); relatedVal != nil {
			if items, ok := relatedVal.([]any); ok {
				for _, item := range items {
					if related, ok := item.(string); ok {
						insight.RelatedCourses = append(insight.RelatedCourses, related)
					}
				}
			}
		}

		insights[title] = insight
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("course insights result error: %w", err)
	}

	return insights, nil
}
