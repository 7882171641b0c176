package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/shared"
)

// headerLength is the fixed size of a frame header.
const headerLength = 8

// MaxFrameSize bounds the payload length a peer may announce.
const MaxFrameSize = 64 * 1024 * 1024

// WriteFrame writes payload to w prefixed with its big-endian length.
//
// An empty payload is indistinguishable from a close frame; callers use [WriteClose] for that.
func WriteFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, headerLength+len(payload))
	binary.BigEndian.PutUint64(frame[:headerLength], uint64(len(payload)))
	copy(frame[headerLength:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// WriteClose writes a zero-length frame, telling the peer no more frames follow.
func WriteClose(w io.Writer) error {
	var header [headerLength]byte
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write close frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r.
//
// It returns [io.EOF] when the peer sent a close frame or the stream ended before a full header arrived.
// A payload cut short returns an error wrapping [io.ErrUnexpectedEOF]; a header over
// [MaxFrameSize] returns one wrapping [shared.ErrFrameTooLarge] without reading further.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	size := binary.BigEndian.Uint64(header[:])
	if size == 0 {
		return nil, io.EOF
	}

	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes announced, limit %d", shared.ErrFrameTooLarge, size, MaxFrameSize)
	}

	var payload bytes.Buffer
	n, err := io.CopyN(&payload, r, int64(size))
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read frame payload (%d of %d bytes): %w", n, size, err)
	}
	return payload.Bytes(), nil
}

// Reader yields the text payloads of a framed stream.
type Reader struct {
	r      io.Reader
	logger *log.Logger
}

// NewReader wraps r. A nil logger writes to stderr.
func NewReader(r io.Reader, logger *log.Logger) *Reader {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Reader{r: r, logger: logger}
}

// Next returns the next valid UTF-8 payload.
//
// Payloads that are not valid UTF-8 are logged and skipped. [io.EOF] marks a graceful close.
func (r *Reader) Next() (string, error) {
	for {
		payload, err := ReadFrame(r.r)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(payload) {
			r.logger.Warn("dropping frame", "size", len(payload), "error", shared.ErrInvalidUTF8)
			continue
		}
		return string(payload), nil
	}
}

// Writer serializes frames onto a stream so concurrent producers never interleave.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame writes one frame while holding the writer lock.
func (w *Writer) WriteFrame(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WriteFrame(w.w, payload)
}

// Send encodes v as JSON and writes it as one frame.
func (w *Writer) Send(v any) error {
	payload, err := Encode(v)
	if err != nil {
		return err
	}
	return w.WriteFrame(payload)
}

// Close writes a close frame. It does not close the underlying stream.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WriteClose(w.w)
}

// Encode marshals v to JSON for framing.
func Encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return payload, nil
}

// Send encodes v as JSON and writes it to w as one frame.
func Send(w io.Writer, v any) error {
	payload, err := Encode(v)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}
