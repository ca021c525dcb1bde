package preview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DefaultAddress binds the preview server to loopback on a free port
const DefaultAddress = "127.0.0.1:0"

// Server exposes a Registry over HTTP for local playback
type Server struct {
	registry *Registry
	log      zerolog.Logger
	http     *http.Server
	listener net.Listener
}

// NewServer creates a server for registry
func NewServer(registry *Registry, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registry.Routes(router)

	return &Server{
		registry: registry,
		log:      log.With().Str("component", "preview").Logger(),
		http: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start listens on address, points the registry at the bound URL, and serves in the background
func (s *Server) Start(address string) (string, error) {
	if address == "" {
		address = DefaultAddress
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return "", fmt.Errorf("failed to listen for previews on %s: %w", address, err)
	}
	s.listener = ln

	baseURL := "http://" + ln.Addr().String()
	s.registry.SetBaseURL(baseURL)

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("preview server stopped")
		}
	}()

	s.log.Debug().Str("url", baseURL).Msg("preview server listening")
	return baseURL, nil
}

// Shutdown stops the server and revokes every live handle
func (s *Server) Shutdown(ctx context.Context) error {
	s.registry.Close()
	if s.listener == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
