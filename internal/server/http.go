package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/media-filter-pipeline/internal/config"
)

// StatusFunc returns the current status document served at /status
type StatusFunc func() any

// HTTPServer exposes monitoring endpoints while a filtering job runs
type HTTPServer struct {
	server *http.Server
	logger *slog.Logger
	status StatusFunc

	startTime time.Time
}

// NewHTTPServer creates a new monitoring HTTP server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, status StatusFunc) *HTTPServer {
	h := &HTTPServer{
		logger:    logger,
		status:    status,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/status", h.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Start starts the HTTP server in the background
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting monitoring HTTP server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server failed",
				slog.String("error", err.Error()),
			)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping monitoring HTTP server")
	return h.server.Shutdown(ctx)
}

// handleHealth responds to health check requests
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{
		"status":         "ok",
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// handleStatus responds with the current pipeline status document
func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.status())
}

// writeJSON serializes a response document as JSON
func (h *HTTPServer) writeJSON(w http.ResponseWriter, doc any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(doc); err != nil {
		h.logger.Error("Failed to encode HTTP response",
			slog.String("error", err.Error()),
		)
	}
}
