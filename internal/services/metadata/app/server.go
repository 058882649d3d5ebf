// Package app assembles the metadata service: store, engine, HTTP handler,
// and server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/louisbranch/ugs-metadata/internal/platform/timeouts"
	"github.com/louisbranch/ugs-metadata/internal/services/metadata/api/httpapi"
	"github.com/louisbranch/ugs-metadata/internal/services/metadata/engine"
	"github.com/louisbranch/ugs-metadata/internal/services/metadata/storage/sqlite"
)

// Config carries everything the metadata server needs to start.
type Config struct {
	HTTPAddr    string
	DBPath      string
	UserAuth    string
	CIAuth      string
	RequestRoot string
}

// Server hosts the metadata service over HTTP.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store
	engine     *engine.Engine
}

// New opens the store, seeds the engine, and binds the listen address. The
// caller owns the returned server and must Close it.
func New(ctx context.Context, config Config) (*Server, error) {
	listener, err := net.Listen("tcp", config.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", config.HTTPAddr, err)
	}

	store, err := openMetadataStore(config.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	eng, err := engine.New(ctx, store)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	handler := httpapi.New(eng, httpapi.Config{
		UserAuth:    config.UserAuth,
		CIAuth:      config.CIAuth,
		RequestRoot: config.RequestRoot,
	})

	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           handler.Routes(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store:  store,
		engine: eng,
	}, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve blocks until the server fails or the context ends, then shuts down
// gracefully within the shared shutdown budget.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil || s.httpServer == nil || s.listener == nil {
		return errors.New("server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	serveErr := make(chan error, 1)
	log.Printf("metadata listening on %s", s.Addr())
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the listener and the store. Safe to call whether or not
// Serve ran.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close metadata store: %v", err)
		}
	}
}

// Run creates and serves a metadata server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := New(ctx, config)
	if err != nil {
		return err
	}
	defer server.Close()
	return server.Serve(ctx)
}

func openMetadataStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata sqlite store: %w", err)
	}
	return store, nil
}
