// Package http serves health checks and Prometheus metrics for the session.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"radiofree/internal/core"
)

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

// Metrics implements core.Metrics on Prometheus collectors.
type Metrics struct {
	SuggestionsTotal *prometheus.CounterVec
	EnqueuesTotal    *prometheus.CounterVec
	RepeatsTotal     prometheus.Counter
	CommandsTotal    *prometheus.CounterVec
	AutoDJState      *prometheus.GaugeVec
	HistorySize      prometheus.Gauge
}

func NewServer(config *core.ServerConfig, logger *zap.Logger) *Server {
	metrics := &Metrics{
		SuggestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiofree_suggestions_total",
				Help: "Total recommendation fetches by outcome",
			},
			[]string{"status"},
		),
		EnqueuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiofree_enqueues_total",
				Help: "Total tracks queued by source",
			},
			[]string{"source"},
		),
		RepeatsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "radiofree_repeats_rejected_total",
				Help: "Total suggestions rejected by the repeat guard",
			},
		),
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiofree_commands_total",
				Help: "Total user commands by label",
			},
			[]string{"command"},
		),
		AutoDJState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "radiofree_autodj_state",
				Help: "Current Auto-DJ state (1 for the active state)",
			},
			[]string{"state"},
		),
		HistorySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "radiofree_history_size",
				Help: "Entries in the session history",
			},
		),
	}

	// The process-global registry would panic on a second construction.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.SuggestionsTotal,
		metrics.EnqueuesTotal,
		metrics.RepeatsTotal,
		metrics.CommandsTotal,
		metrics.AutoDJState,
		metrics.HistorySize,
	)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"radiofree"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"radiofree"}`))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return &Server{
		config:  config,
		logger:  logger,
		server:  server,
		metrics: metrics,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) RecordSuggestion(status string) {
	s.metrics.SuggestionsTotal.WithLabelValues(status).Inc()
}

func (s *Server) RecordEnqueue(source string) {
	s.metrics.EnqueuesTotal.WithLabelValues(source).Inc()
}

func (s *Server) RecordRepeatRejected() {
	s.metrics.RepeatsTotal.Inc()
}

func (s *Server) RecordCommand(label string) {
	s.metrics.CommandsTotal.WithLabelValues(label).Inc()
}

func (s *Server) SetAutoDJState(state string) {
	for _, known := range []string{"disabled", "idle", "fetching", "cooldown"} {
		value := 0.0
		if known == state {
			value = 1.0
		}
		s.metrics.AutoDJState.WithLabelValues(known).Set(value)
	}
}

func (s *Server) SetHistorySize(size int) {
	s.metrics.HistorySize.Set(float64(size))
}
