// Package api exposes the query and analytics endpoints over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"coursechat/agent"
	"coursechat/knowledge"
	"coursechat/tools"
)

// Server routes HTTP requests to the agent service. The Neo4j driver is
// optional; without it the courses endpoint omits graph insights.
type Server struct {
	service *agent.Service
	driver  neo4j.DriverWithContext
	logger  *log.Logger
	handler http.Handler
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	Answer    string         `json:"answer"`
	Sources   []tools.Source `json:"sources"`
	SessionID string         `json:"session_id"`
}

type coursesResponse struct {
	TotalCourses int                          `json:"total_courses"`
	CourseTitles []string                     `json:"course_titles"`
	Insights     map[string]knowledge.Insight `json:"insights,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(service *agent.Service, driver neo4j.DriverWithContext, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{service: service, driver: driver, logger: logger}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/courses", s.handleCourses)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.service.Sessions().Create()
	}

	answer, sources, err := s.service.Query(r.Context(), req.Query, sessionID)
	if err != nil {
		// Generation faults are distinct from empty search results, which
		// come back as a normal answer.
		s.logger.Printf("query failed: %v", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to generate an answer"})
		return
	}

	if sources == nil {
		sources = []tools.Source{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	analytics, err := s.service.CourseAnalytics(r.Context())
	if err != nil {
		s.logger.Printf("course analytics failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load course analytics"})
		return
	}

	resp := coursesResponse{
		TotalCourses: analytics.TotalCourses,
		CourseTitles: analytics.CourseTitles,
	}

	if s.driver != nil && len(analytics.CourseTitles) > 0 {
		insights, err := knowledge.CourseInsights(r.Context(), s.driver, analytics.CourseTitles)
		if err != nil {
			s.logger.Printf("course insights failed: %v", err)
		} else {
			resp.Insights = insights
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
