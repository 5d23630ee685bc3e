package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	updatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "updates_processed_total",
			Help: "Total number of Telegram updates accepted for processing",
		},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commands_total",
			Help: "Total number of handled bot commands",
		},
		[]string{"command"},
	)

	moderationActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_actions_total",
			Help: "Total number of executed moderation actions",
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(updatesTotal)
	prometheus.MustRegister(commandsTotal)
	prometheus.MustRegister(moderationActionsTotal)
}

// Server exposes the Prometheus endpoint. An empty address disables it.
type Server struct {
	addr string
	srv  *http.Server
}

func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

func (s *Server) Start(ctx context.Context) error {
	if s.addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func CountUpdate() {
	updatesTotal.Inc()
}

func CountCommand(command string) {
	commandsTotal.WithLabelValues(command).Inc()
}

func CountModerationAction(action string) {
	moderationActionsTotal.WithLabelValues(action).Inc()
}
