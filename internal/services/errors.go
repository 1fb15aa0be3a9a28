package services

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure a query can produce. The set is closed; the
// driver decides retry versus terminal reporting from the kind alone.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnection
	KindIO
	KindNotConnected
	KindDecode
	KindAgentUnreachable
)

var (
	ErrConnection       = errors.New("connection error")
	ErrIO               = errors.New("i/o error")
	ErrNotConnected     = errors.New("socket is not connected")
	ErrDecode           = errors.New("decode error")
	ErrAgentUnreachable = errors.New("agent unreachable")
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindIO:
		return "io"
	case KindNotConnected:
		return "not_connected"
	case KindDecode:
		return "decode"
	case KindAgentUnreachable:
		return "agent_unreachable"
	default:
		return "unknown"
	}
}

func (k Kind) marker() error {
	switch k {
	case KindConnection:
		return ErrConnection
	case KindIO:
		return ErrIO
	case KindNotConnected:
		return ErrNotConnected
	case KindDecode:
		return ErrDecode
	case KindAgentUnreachable:
		return ErrAgentUnreachable
	default:
		return nil
	}
}

// Retryable reports whether a failure of this kind consumes a retry attempt
// instead of ending the identifier immediately.
func (k Kind) Retryable() bool {
	switch k {
	case KindConnection, KindIO, KindAgentUnreachable:
		return true
	default:
		return false
	}
}

// Error is the failure value returned by the channel and the query driver.
type Error struct {
	Kind  Kind
	Agent string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	prefix := "query error"
	if marker := e.Kind.marker(); marker != nil {
		prefix = marker.Error()
	}
	detail := buildDetail(e.Agent, e.Op)
	switch {
	case detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, detail, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	case detail != "":
		return prefix + ": " + detail
	default:
		return prefix
	}
}

// Unwrap exposes both the kind marker and the underlying cause so callers can
// use errors.Is against either.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if marker := e.Kind.marker(); marker != nil {
		out = append(out, marker)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// ErrorKind mirrors Kind.String for classifiers that only see the error.
func (e *Error) ErrorKind() string {
	return e.Kind.String()
}

// Wrap builds a classified error. op names the failing step (connect, send,
// receive, decode).
func Wrap(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: strings.TrimSpace(op), Err: err}
}

// WithAgent stamps the agent identifier onto a classified error. Errors that
// are not *Error are classified as unknown.
func WithAgent(err error, agent string) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		cp := *classified
		cp.Agent = agent
		return &cp
	}
	return &Error{Kind: KindUnknown, Agent: agent, Err: err}
}

// KindOf returns the classification carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}

// Retryable reports whether err belongs to the retryable failure class.
func Retryable(err error) bool {
	return err != nil && KindOf(err).Retryable()
}

func buildDetail(agent, op string) string {
	parts := make([]string, 0, 2)
	if agent = strings.TrimSpace(agent); agent != "" {
		parts = append(parts, "agent "+agent)
	}
	if op = strings.TrimSpace(op); op != "" {
		parts = append(parts, op)
	}
	return strings.Join(parts, ": ")
}
