package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// HeaderLen is the size of the little-endian length prefix.
const HeaderLen = 4

// DefaultMaxPayload bounds a single frame. The remote daemon never answers a
// getconfig request with more than a few kilobytes, so 64 MiB only guards
// against a corrupt or hostile length prefix.
const DefaultMaxPayload uint32 = 64 * 1024 * 1024

var (
	ErrClosedEarly     = errors.New("frame: connection closed early")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrNoProgress      = errors.New("frame: write made no progress")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: DefaultMaxPayload}
}

func (l Limits) max() uint64 {
	if l.MaxPayloadBytes == 0 {
		return math.MaxUint32
	}
	return uint64(l.MaxPayloadBytes)
}

// EncodeHeader returns the wire prefix for a payload of n bytes.
func EncodeHeader(n uint32) []byte {
	buf := make([]byte, HeaderLen)
	binary.LittleEndian.PutUint32(buf, n)
	return buf
}

// DecodeHeader returns the payload size announced by a wire prefix.
func DecodeHeader(b []byte) (uint32, error) {
	if len(b) != HeaderLen {
		return 0, fmt.Errorf("frame: invalid header length: %d", len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Encode returns the complete frame (prefix and payload) for payload.
func Encode(payload []byte, limits Limits) ([]byte, error) {
	if uint64(len(payload)) > limits.max() {
		return nil, ErrPayloadTooLarge
	}
	out := make([]byte, 0, HeaderLen+len(payload))
	out = append(out, EncodeHeader(uint32(len(payload)))...)
	return append(out, payload...), nil
}

// WriteFrame writes the length prefix and the full payload as one buffer.
// Short writes are retried until every byte is accepted or the writer fails.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	buf, err := Encode(payload, limits)
	if err != nil {
		return err
	}
	if err := writeFull(w, buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads exactly one frame. A stream that ends before the prefix or
// the declared payload is complete yields ErrClosedEarly; a truncated payload
// is never returned.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	var header [HeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, readErr("read header", err)
	}
	size, err := DecodeHeader(header[:])
	if err != nil {
		return nil, err
	}
	if uint64(size) > limits.max() {
		return nil, fmt.Errorf("%w: declared %d bytes, limit %d", ErrPayloadTooLarge, size, limits.max())
	}

	payload := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, readErr("read payload", err)
		}
	}
	return payload, nil
}

func readErr(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w: %w", op, ErrClosedEarly, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n <= 0 {
			return ErrNoProgress
		}
		b = b[n:]
	}
	return nil
}
