// Package monitor exposes campaign progress: Prometheus metrics and a small
// JSON status API.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/bmlfuzz/pkg/findings"
)

// FindingLister is the part of the findings store the server reads.
type FindingLister interface {
	List(filter findings.Filter) ([]*findings.Finding, error)
}

// ServerConfig holds configuration for the monitor server
type ServerConfig struct {
	Bind string
	Port int
}

// Address returns the listen address.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// Server holds the monitor server state
type Server struct {
	config   ServerConfig
	metrics  *Metrics
	status   *Status
	findings FindingLister
	logger   logrus.FieldLogger
	started  time.Time
}

// NewServer creates a monitor server. findings may be nil.
func NewServer(config ServerConfig, metrics *Metrics, status *Status, findings FindingLister, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		config:   config,
		metrics:  metrics,
		status:   status,
		findings: findings,
		logger:   logger,
		started:  time.Now(),
	}
}

// Router builds the HTTP routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))
		r.Get("/campaigns", s.metrics.InstrumentHandler("GET", "/api/v1/campaigns", s.handleCampaigns))
		r.Get("/findings", s.metrics.InstrumentHandler("GET", "/api/v1/findings", s.handleFindings))
	})
	return r
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", srv.Addr).Info("Starting monitor server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down monitor server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{
		"status": "healthy",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, s.status.Campaigns())
}

func (s *Server) handleFindings(w http.ResponseWriter, r *http.Request) {
	if s.findings == nil {
		sendError(w, "Findings database not configured", http.StatusNotFound)
		return
	}

	filter := findings.Filter{Campaign: r.URL.Query().Get("campaign")}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			sendError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	list, err := s.findings.List(filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list findings")
		sendError(w, "Failed to list findings", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*findings.Finding{}
	}
	sendSuccess(w, list)
}
