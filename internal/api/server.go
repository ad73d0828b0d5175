// Package api exposes the candidate portal over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"candidate-portal/internal/candidates"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/models"
	"candidate-portal/internal/search"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CandidateService interface {
	Load(ctx context.Context) *candidates.FetchResult
	FetchByID(ctx context.Context, id string) (models.Candidate, bool)
	Add(ctx context.Context, c models.Candidate) (candidates.AddOutcome, error)
	Remove(ctx context.Context, id string) error
	ResetSession(ctx context.Context)
	Health() candidates.Health
}

type Searcher interface {
	Search(ctx context.Context, q search.Query) *search.Result
}

type ActivityRecorder interface {
	Record(ctx context.Context, eventType models.EventType, data map[string]interface{}) models.TrackedEvent
}

type ResumeRequester interface {
	RequestResume(ctx context.Context, req models.ResumeRequest) (*models.ResumeRequestResult, error)
}

// Deps are the services behind the routes. Activity and Resume may be nil,
// in which case their routes answer 503.
type Deps struct {
	Candidates CandidateService
	Search     Searcher
	Activity   ActivityRecorder
	Resume     ResumeRequester
	Version    string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(log), AccessLog(log))

	h := &handlers{deps: deps, log: log}

	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api")
	{
		v1.GET("/candidates", h.listCandidates)
		v1.POST("/candidates", h.addCandidate)
		v1.GET("/candidates/:id", h.getCandidate)
		v1.DELETE("/candidates/:id", h.removeCandidate)
		v1.GET("/search", h.search)
		v1.POST("/activity", h.recordActivity)
		v1.POST("/resume-requests", h.requestResume)
		v1.POST("/admin/reset-session", h.resetSession)
	}
	return r
}

// Server owns the HTTP listener.
type Server struct {
	srv *http.Server
	log logger.Logger
}

func NewServer(port int, readTimeout, writeTimeout time.Duration, handler http.Handler, log logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		log: log,
	}
}

// Start serves in the background. Listener errors other than a clean
// shutdown are logged.
func (s *Server) Start() {
	go func() {
		s.log.Info("HTTP server listening", map[string]interface{}{"addr": s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
