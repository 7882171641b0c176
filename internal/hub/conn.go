package hub

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/shared"
	"github.com/desertthunder/yauma/internal/sources"
	"github.com/desertthunder/yauma/internal/wire"
)

// Conn is one client connection.
type Conn struct {
	ID       string
	conn     net.Conn
	registry *sources.Registry
	logger   *log.Logger
}

// NewConn wraps an accepted connection.
func NewConn(conn net.Conn, registry *sources.Registry, logger *log.Logger) *Conn {
	id := shared.GenerateID()
	return &Conn{
		ID:       id,
		conn:     conn,
		registry: registry,
		logger:   shared.WithLogger(logger, "conn", id[:8]),
	}
}

// Serve runs the connection until the client closes it, the transport fails or ctx is
// cancelled. A graceful close returns nil.
func (c *Conn) Serve(ctx context.Context) error {
	defer c.conn.Close()
	c.logger.Info("client connected", "remote", c.conn.RemoteAddr())

	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Now())
	})
	defer stop()

	bcast := NewBroadcaster()
	out := NewOutbox(OutboxCapacity)

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- c.writeLoop(out)
	}()

	var wg sync.WaitGroup
	for _, src := range c.registry.All() {
		sub := bcast.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.runSource(ctx, src, sub, out)
		}()
	}

	readErr := c.readLoop(ctx, bcast)
	bcast.Close()
	wg.Wait()
	out.Close()
	writeErr := <-writerDone

	switch {
	case readErr != nil && ctx.Err() == nil:
		c.logger.Error("connection read failed", "error", readErr)
		return readErr
	case writeErr != nil:
		c.logger.Warn("connection write failed", "error", writeErr)
		return writeErr
	}
	c.logger.Info("client disconnected")
	return nil
}

// readLoop decodes requests and broadcasts them. Malformed payloads are logged and dropped.
func (c *Conn) readLoop(ctx context.Context, bcast *Broadcaster) error {
	r := wire.NewReader(c.conn, c.logger)
	for {
		payload, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		req, err := models.ParseRequest(payload)
		if err != nil {
			c.logger.Warn("dropping malformed request", "payload", clip(payload, 200), "error", err)
			continue
		}
		c.logger.Debug("request", "request", req.String())

		if err := bcast.Publish(ctx, req); err != nil {
			return err
		}
	}
}

// writeLoop drains the outbox to the socket and finishes with a close frame. A write failure
// closes the outbox so blocked senders give up.
func (c *Conn) writeLoop(out *Outbox) error {
	w := wire.NewWriter(c.conn)
	fail := func(err error) error {
		out.Close()
		return err
	}

	for {
		select {
		case answer := <-out.Answers():
			if err := w.Send(answer); err != nil {
				return fail(err)
			}
		case <-out.Done():
			for {
				select {
				case answer := <-out.Answers():
					if err := w.Send(answer); err != nil {
						return err
					}
				default:
					if err := w.Close(); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
						return err
					}
					return nil
				}
			}
		}
	}
}

// runSource authenticates src if needed, then dispatches its subscription in order.
func (c *Conn) runSource(ctx context.Context, src sources.Source, sub <-chan models.Request, out *Outbox) {
	logger := shared.WithLogger(c.logger, "source", src.Name())
	sess := &session{sub: sub, out: out}

	if auth, ok := src.(sources.Authenticator); ok {
		if err := auth.Authenticate(ctx, sess); err != nil {
			logger.Warn("authentication failed", "error", err)
		}
	}

	dispatch := func(req models.Request) bool {
		if err := sources.Dispatch(ctx, src, req, out, logger); err != nil {
			logger.Debug("outbox closed, dropping remaining requests", "error", err)
			return false
		}
		return true
	}

	live := true
	for _, req := range sess.deferred {
		if live = dispatch(req); !live {
			break
		}
	}

	for req := range sub {
		if live {
			live = dispatch(req)
		}
	}
}

// session is the [sources.Session] handed to authenticating sources.
type session struct {
	sub      <-chan models.Request
	out      *Outbox
	deferred []models.Request
}

func (s *session) Receive(ctx context.Context) (models.Request, bool) {
	select {
	case req, ok := <-s.sub:
		return req, ok
	case <-ctx.Done():
		return models.Request{}, false
	}
}

func (s *session) Defer(req models.Request) { s.deferred = append(s.deferred, req) }

func (s *session) Outbox() sources.Outbox { return s.out }

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
