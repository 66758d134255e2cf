// Package api exposes the engine and the assistant over JSON HTTP. Input
// validation happens here so the engine only ever sees valid values.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/simulation"
)

const maxBodyBytes = 64 << 10

type Engine interface {
	Snapshot() models.Snapshot
	Appliance(id int) (models.Appliance, error)
	AddDevice(spec models.DeviceSpec) models.Appliance
	ToggleApplianceState(id int, isOn bool)
	SetBudget(kwh float64) error
	ClearBudget()
	SetEnergyRate(rate float64) error
	Notifications(tab models.NotificationTab, order simulation.SortOrder) []models.Notification
	MarkNotificationRead(id int64)
	MarkNotificationUnread(id int64)
	MarkAllRead()
	DeleteNotification(id int64)
	ClearNotifications()
}

type Chat interface {
	Send(ctx context.Context, conversationID, text string) (models.Message, error)
	History(ctx context.Context, conversationID string) ([]models.Message, error)
	Reset(ctx context.Context, conversationID string) (models.Message, error)
}

type Server struct {
	engine  Engine
	chat    Chat
	metrics http.Handler
	router  *http.ServeMux
	handler http.Handler
	logger  *zap.Logger
	now     func() time.Time

	server   *http.Server
	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

func NewServer(engine Engine, chat Chat, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{
		engine:  engine,
		chat:    chat,
		metrics: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		router:  http.NewServeMux(),
		logger:  logger,
		now:     time.Now,
	}
	s.setupRoutes()
	s.handler = Chain(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)(s.router)
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	s.router.HandleFunc("GET /api/report", s.handleReport)

	s.router.HandleFunc("GET /api/appliances", s.handleListAppliances)
	s.router.HandleFunc("POST /api/appliances", s.handleAddAppliance)
	s.router.HandleFunc("GET /api/appliances/{id}/history", s.handleApplianceHistory)
	s.router.HandleFunc("POST /api/appliances/{id}/toggle", s.handleToggleAppliance)

	s.router.HandleFunc("PUT /api/budget", s.handleSetBudget)
	s.router.HandleFunc("DELETE /api/budget", s.handleClearBudget)
	s.router.HandleFunc("PUT /api/rate", s.handleSetRate)

	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("GET /api/chat/{conversation}", s.handleChatHistory)
	s.router.HandleFunc("DELETE /api/chat/{conversation}", s.handleChatReset)

	s.router.HandleFunc("GET /api/notifications", s.handleListNotifications)
	s.router.HandleFunc("POST /api/notifications/read-all", s.handleMarkAllRead)
	s.router.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkRead)
	s.router.HandleFunc("POST /api/notifications/{id}/unread", s.handleMarkUnread)
	s.router.HandleFunc("DELETE /api/notifications/{id}", s.handleDeleteNotification)
	s.router.HandleFunc("DELETE /api/notifications", s.handleClearNotifications)

	s.router.Handle("GET /metrics", s.metrics)
	s.router.HandleFunc("GET /healthz", s.handleHealth)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves on addr until Shutdown is called. It returns nil at once
// when Shutdown has already run.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr is the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
