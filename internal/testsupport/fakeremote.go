package testsupport

import (
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mranv/agentARChecker/internal/frame"
)

// Reply describes how the fake daemon answers one connection.
type Reply struct {
	// Payload is sent back as a single well-formed frame.
	Payload []byte
	// Raw, when set, is written verbatim instead of a frame.
	Raw []byte
	// Hangup closes the connection without answering.
	Hangup bool
	// Delay postpones the answer.
	Delay time.Duration
}

// Handler decides the reply for the n-th accepted connection (1-based).
type Handler func(n int, request []byte) Reply

// ReplyWith answers every request with the same payload.
func ReplyWith(payload string) Handler {
	return func(int, []byte) Reply {
		return Reply{Payload: []byte(payload)}
	}
}

// Sequence answers connection n with replies[n-1]; the last reply repeats.
func Sequence(replies ...Reply) Handler {
	return func(n int, _ []byte) Reply {
		if len(replies) == 0 {
			return Reply{Hangup: true}
		}
		if n > len(replies) {
			n = len(replies)
		}
		return replies[n-1]
	}
}

// Text is a convenience Reply carrying payload as a frame.
func Text(payload string) Reply {
	return Reply{Payload: []byte(payload)}
}

// Hangup closes the connection after reading the request.
func Hangup() Reply {
	return Reply{Hangup: true}
}

// ShortFrame announces a ten byte payload and delivers only three.
func ShortFrame() Reply {
	raw := append(frame.EncodeHeader(10), []byte("abc")...)
	return Reply{Raw: raw}
}

// FakeRemote is a stand-in for the manager's remote daemon: it listens on a
// Unix socket, reads one request frame per connection, answers according to
// its Handler and closes the connection.
type FakeRemote struct {
	t        testing.TB
	listener net.Listener
	path     string
	handler  Handler

	mu       sync.Mutex
	conns    int
	requests []string

	wg sync.WaitGroup
}

// StartFakeRemote listens on a fresh socket and serves until the test ends.
func StartFakeRemote(t testing.TB, handler Handler) *FakeRemote {
	t.Helper()

	path := filepath.Join(SocketDir(t), "remote")
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen %s: %v", path, err)
	}
	fake := &FakeRemote{
		t:        t,
		listener: listener,
		path:     path,
		handler:  handler,
	}
	fake.wg.Add(1)
	go fake.serve()
	t.Cleanup(fake.Close)
	return fake
}

// Path returns the socket path to dial.
func (f *FakeRemote) Path() string {
	return f.path
}

// Connections returns how many connections have been accepted so far.
func (f *FakeRemote) Connections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns
}

// Requests returns every request payload received, in arrival order.
func (f *FakeRemote) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	copy(out, f.requests)
	return out
}

// Close stops accepting and waits for in-flight connections. The socket file
// is removed, so later dials fail with ENOENT.
func (f *FakeRemote) Close() {
	_ = f.listener.Close()
	f.wg.Wait()
}

func (f *FakeRemote) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				f.t.Logf("fake remote accept: %v", err)
			}
			return
		}
		f.mu.Lock()
		f.conns++
		n := f.conns
		f.mu.Unlock()

		f.wg.Add(1)
		go f.handle(conn, n)
	}
}

func (f *FakeRemote) handle(conn net.Conn, n int) {
	defer f.wg.Done()
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	request, err := frame.ReadFrame(conn, frame.DefaultLimits())
	if err != nil {
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, string(request))
	f.mu.Unlock()

	reply := Reply{Hangup: true}
	if f.handler != nil {
		reply = f.handler(n, request)
	}
	if reply.Delay > 0 {
		time.Sleep(reply.Delay)
	}
	switch {
	case reply.Hangup:
		return
	case reply.Raw != nil:
		_, _ = conn.Write(reply.Raw)
	default:
		_ = frame.WriteFrame(conn, reply.Payload, frame.DefaultLimits())
	}
}
