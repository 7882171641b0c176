package hub

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/sources"
)

// Server accepts client connections and serves every registered source on each of them.
type Server struct {
	addr     string
	registry *sources.Registry
	logger   *log.Logger
	wg       sync.WaitGroup
}

// NewServer creates a server listening on addr.
func NewServer(addr string, registry *sources.Registry, logger *log.Logger) *Server {
	return &Server{addr: addr, registry: registry, logger: logger}
}

// ListenAndServe listens on the configured TCP address and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.logger.Info("listening", "addr", ln.Addr().String(), "sources", s.registry.Names())
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled, then waits for open connections
// to wind down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info("server stopped")
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			NewConn(conn, s.registry, s.logger).Serve(ctx)
		}()
	}
}
