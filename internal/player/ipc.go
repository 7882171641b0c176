package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/desertthunder/yauma/internal/shared"
)

const ipcSuccess = "success"

type ipcCommand struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type ipcReply struct {
	RequestID *int64          `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
}

// ipc is a client for mpv's JSON IPC protocol.
type ipc struct {
	conn net.Conn

	wmu sync.Mutex
	enc *json.Encoder

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan ipcReply
	closed  chan struct{}
}

func newIPC(conn net.Conn) *ipc {
	c := &ipc{
		conn:    conn,
		enc:     json.NewEncoder(conn),
		pending: make(map[int64]chan ipcReply),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *ipc) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var reply ipcReply
		if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
			continue
		}
		if reply.Event != "" || reply.RequestID == nil {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*reply.RequestID]
		delete(c.pending, *reply.RequestID)
		c.mu.Unlock()
		if ok {
			ch <- reply
		}
	}
	close(c.closed)
}

// command runs one mpv command and returns its data field.
func (c *ipc) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	ch := make(chan ipcReply, 1)

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	c.wmu.Lock()
	err := c.enc.Encode(ipcCommand{Command: args, RequestID: id})
	c.wmu.Unlock()
	if err != nil {
		forget()
		return nil, fmt.Errorf("%w: %v", shared.ErrPlayerUnavailable, err)
	}

	select {
	case reply := <-ch:
		if reply.Error != ipcSuccess {
			return nil, fmt.Errorf("%w: %v: %s", shared.ErrPlayerCommand, args[0], reply.Error)
		}
		return reply.Data, nil
	case <-c.closed:
		forget()
		return nil, shared.ErrPlayerUnavailable
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	}
}

func (c *ipc) get(ctx context.Context, property string, v any) error {
	data, err := c.command(ctx, "get_property", property)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrParse, property, err)
	}
	return nil
}

func (c *ipc) set(ctx context.Context, property string, v any) error {
	_, err := c.command(ctx, "set_property", property, v)
	return err
}

func (c *ipc) Close() error {
	return c.conn.Close()
}
