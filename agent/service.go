// Package agent wires the retrieval tools, session history, and the
// generation loop into the query interface the API layer consumes.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"coursechat/llm"
	"coursechat/session"
	"coursechat/store"
	"coursechat/tools"
)

type Service struct {
	store     store.Store
	generator *Generator
	sessions  *session.Manager
	logger    *log.Logger
}

func NewService(s store.Store, client llm.Client, sessions *session.Manager, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:     s,
		generator: NewGenerator(client, logger),
		sessions:  sessions,
		logger:    logger,
	}
}

func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// Query answers one question, returning the answer text and the sources the
// retrieval tools touched. A fresh tool manager per call keeps source
// tracking isolated between concurrent sessions.
func (s *Service) Query(ctx context.Context, query, sessionID string) (string, []tools.Source, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil, fmt.Errorf("query cannot be empty")
	}

	manager := tools.NewManager(
		tools.NewSearchTool(s.store),
		tools.NewOutlineTool(s.store),
	)

	history := ""
	if s.sessions != nil {
		history = s.sessions.History(sessionID)
	}

	prompt := "Answer this question about course materials: " + query

	answer, err := s.generator.Respond(ctx, prompt, history, manager)
	if err != nil {
		return "", nil, err
	}

	sources := manager.DrainSources()

	if s.sessions != nil && sessionID != "" {
		s.sessions.AddExchange(sessionID, query, answer)
	}

	return answer, sources, nil
}

// Analytics summarizes the catalog for the courses endpoint.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

func (s *Service) CourseAnalytics(ctx context.Context) (Analytics, error) {
	count, err := s.store.CourseCount(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("course count: %w", err)
	}
	titles, err := s.store.ExistingCourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("course titles: %w", err)
	}
	return Analytics{TotalCourses: count, CourseTitles: titles}, nil
}
