package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hfujise/scopectl/internal/logging"
)

// Config holds the remote panel server configuration
type Config struct {
	Host     string
	Port     int
	LogLevel string
}

// Status describes the connected instrument for remote clients
type Status struct {
	Connected bool   `json:"connected"`
	Model     string `json:"model,omitempty"`
	Channels  int    `json:"channels,omitempty"`
	Options   string `json:"options,omitempty"`
	Addr      string `json:"addr,omitempty"`
}

// Controller is the instrument-facing surface the server exposes to
// remote clients. The command layer implements it over one session and
// one configuration store.
type Controller interface {
	Status() Status
	Capture() ([]byte, error)
	Save(slot int) (int, error)
	Load(slot int) (int, error)
	UndoSave() error
	UndoLoad() error
}

// Server exposes screenshot capture and slot operations over HTTP, with
// a websocket event feed for connected panels.
//
// The instrument handles one transaction at a time; mu serializes every
// controller call so concurrent HTTP requests queue instead of
// interleaving on the wire.
type Server struct {
	config *Config
	ctrl   Controller
	hub    *Hub

	mu   sync.Mutex
	http *http.Server
}

// New creates a new Server instance
func New(config *Config, ctrl Controller) (*Server, error) {
	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	s := &Server{
		config: config,
		ctrl:   ctrl,
		hub:    NewHub(),
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	logging.Info("Starting remote panel server",
		zap.String("addr", s.http.Addr),
		zap.String("log_level", s.config.LogLevel),
	)

	go s.hub.Run()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
			return
		}
		errChan <- nil
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.hub.Close()

	if err := s.http.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown did not complete cleanly", zap.Error(err))
		return err
	}

	logging.Info("All connections closed gracefully")
	logging.Sync()
	return nil
}
