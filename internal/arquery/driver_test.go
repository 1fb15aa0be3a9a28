package arquery_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/mranv/agentARChecker/internal/agentids"
	"github.com/mranv/agentARChecker/internal/arquery"
	"github.com/mranv/agentARChecker/internal/channel"
	"github.com/mranv/agentARChecker/internal/config"
	"github.com/mranv/agentARChecker/internal/frame"
	"github.com/mranv/agentARChecker/internal/logging"
	"github.com/mranv/agentARChecker/internal/services"
	"github.com/mranv/agentARChecker/internal/testsupport"
)

const unreachableReply = "err cannot send request: Cannot send request to agent"

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type eventLog struct {
	events []arquery.Event
}

func (l *eventLog) Report(ev arquery.Event) {
	l.events = append(l.events, ev)
}

func (l *eventLog) states(agent string) []arquery.State {
	var out []arquery.State
	for _, ev := range l.events {
		if ev.Agent == agent {
			out = append(out, ev.State)
		}
	}
	return out
}

func refusingDialer(count *int) arquery.Dialer {
	return func(context.Context, string, channel.Options) (*channel.Channel, error) {
		*count++
		return nil, services.Wrap(services.KindConnection, "connect", syscall.ECONNREFUSED)
	}
}

func newDriver(cfg *config.Config, opts ...arquery.Option) *arquery.Driver {
	return arquery.New(cfg, logging.NewNop(), opts...)
}

func equalStates(got, want []arquery.State) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestRunExhaustsRetries(t *testing.T) {
	cfg := config.Default()
	dials := 0
	sleeper := &sleepRecorder{}
	events := &eventLog{}
	driver := newDriver(&cfg, arquery.WithDialer(refusingDialer(&dials)), arquery.WithSleep(sleeper.sleep))

	summary := driver.Run(context.Background(), []string{"001"}, events)

	if dials != 3 {
		t.Fatalf("expected exactly 3 dials, got %d", dials)
	}
	if sleeper.count() != 2 {
		t.Fatalf("expected exactly 2 pauses, got %d", sleeper.count())
	}
	for _, d := range sleeper.calls {
		if d != time.Second {
			t.Fatalf("expected 1s pause, got %s", d)
		}
	}
	if summary.Failed != 1 || summary.Succeeded != 0 || summary.OK() {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	result := summary.Results[0]
	if result.State != arquery.StateFailed || result.Attempts != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if services.KindOf(result.Err) != services.KindConnection || !errors.Is(result.Err, syscall.ECONNREFUSED) {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	want := []arquery.State{
		arquery.StatePending,
		arquery.StateAttempting, arquery.StateWaiting,
		arquery.StateAttempting, arquery.StateWaiting,
		arquery.StateAttempting, arquery.StateFailed,
	}
	if got := events.states("001"); !equalStates(got, want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
}

func TestRunStopsOnFirstSuccess(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, testsupport.ReplyWith("ok {}"))
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()))
	sleeper := &sleepRecorder{}

	summary := newDriver(cfg, arquery.WithSleep(sleeper.sleep)).Run(context.Background(), []string{"001"}, nil)

	result := summary.Results[0]
	if !result.Succeeded() || result.Attempts != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Response.Status != "ok" || result.Response.Body != "{}" {
		t.Fatalf("unexpected response: %+v", result.Response)
	}
	if sleeper.count() != 0 || remote.Connections() != 1 {
		t.Fatalf("expected one exchange and no pause, got %d connections %d pauses", remote.Connections(), sleeper.count())
	}
	if got := remote.Requests(); len(got) != 1 || got[0] != "001 com getconfig active-response" {
		t.Fatalf("daemon saw %q", got)
	}
}

func TestRunDecodeFailureIsTerminal(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, testsupport.Sequence(testsupport.Reply{Payload: []byte{'o', 'k', ' ', 0xff}}))
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()))
	sleeper := &sleepRecorder{}

	summary := newDriver(cfg, arquery.WithSleep(sleeper.sleep)).Run(context.Background(), []string{"004"}, nil)

	result := summary.Results[0]
	if result.State != arquery.StateFailed || result.Attempts != 1 {
		t.Fatalf("decode failure must not be retried: %+v", result)
	}
	if services.KindOf(result.Err) != services.KindDecode {
		t.Fatalf("expected decode error, got %v", result.Err)
	}
	if remote.Connections() != 1 || sleeper.count() != 0 {
		t.Fatalf("expected a single attempt, got %d connections %d pauses", remote.Connections(), sleeper.count())
	}
}

func TestRunRetriesUnreachableAgent(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, testsupport.Sequence(
		testsupport.Text(unreachableReply),
		testsupport.Text("ok {}"),
	))
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()))
	sleeper := &sleepRecorder{}

	summary := newDriver(cfg, arquery.WithSleep(sleeper.sleep)).Run(context.Background(), []string{"005"}, nil)

	result := summary.Results[0]
	if !result.Succeeded() || result.Attempts != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if remote.Connections() != 2 || sleeper.count() != 1 {
		t.Fatalf("expected two exchanges and one pause, got %d connections %d pauses", remote.Connections(), sleeper.count())
	}
}

func TestRunUnreachableAgentExhausts(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, testsupport.ReplyWith(unreachableReply))
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()))
	sleeper := &sleepRecorder{}

	summary := newDriver(cfg, arquery.WithSleep(sleeper.sleep)).Run(context.Background(), []string{"006"}, nil)

	result := summary.Results[0]
	if result.State != arquery.StateFailed || result.Attempts != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !errors.Is(result.Err, services.ErrAgentUnreachable) {
		t.Fatalf("expected agent unreachable, got %v", result.Err)
	}
	if result.Response.Status != "err" {
		t.Fatalf("expected last response to be kept, got %+v", result.Response)
	}
	if remote.Connections() != 3 || sleeper.count() != 2 {
		t.Fatalf("got %d connections %d pauses", remote.Connections(), sleeper.count())
	}
}

func TestRunOrdinaryErrReplyIsSuccess(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, testsupport.ReplyWith("err Invalid agent ID"))
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()))
	sleeper := &sleepRecorder{}

	summary := newDriver(cfg, arquery.WithSleep(sleeper.sleep)).Run(context.Background(), []string{"999"}, nil)

	result := summary.Results[0]
	if !result.Succeeded() || result.Attempts != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Response.Status != "err" || result.Response.Body != "Invalid agent ID" {
		t.Fatalf("unexpected response: %+v", result.Response)
	}
	if sleeper.count() != 0 {
		t.Fatalf("ordinary err reply must not be retried")
	}
}

func TestRunEndToEnd(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, func(_ int, request []byte) testsupport.Reply {
		if strings.HasPrefix(string(request), "001 ") {
			return testsupport.Text(`ok {"active-response":true}`)
		}
		return testsupport.Text("ok {}")
	})
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()), testsupport.WithRetry(3, 1000))

	dialsByAgent := map[string]int{}
	dialer := func(ctx context.Context, endpoint string, opts channel.Options) (*channel.Channel, error) {
		agent, _ := services.AgentIDFromContext(ctx)
		dialsByAgent[agent]++
		if agent == "002" && dialsByAgent[agent] < 3 {
			return nil, services.Wrap(services.KindConnection, "connect "+endpoint, syscall.ECONNREFUSED)
		}
		return channel.Dial(ctx, endpoint, opts)
	}
	sleeper := &sleepRecorder{}
	events := &eventLog{}

	ids, err := agentids.Read(strings.NewReader("001\n002\n"), cfg.Agents.IDWidth)
	if err != nil {
		t.Fatalf("read ids: %v", err)
	}
	summary := newDriver(cfg, arquery.WithDialer(dialer), arquery.WithSleep(sleeper.sleep)).Run(context.Background(), ids, events)

	if summary.Succeeded != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	first, second := summary.Results[0], summary.Results[1]
	if first.Agent != "001" || first.Attempts != 1 || first.Response.Status != "ok" || first.Response.Body != `{"active-response":true}` {
		t.Fatalf("unexpected result for 001: %+v", first)
	}
	if second.Agent != "002" || second.Attempts != 3 || second.Response.Status != "ok" {
		t.Fatalf("unexpected result for 002: %+v", second)
	}
	if sleeper.count() != 2 {
		t.Fatalf("expected two pauses, got %d", sleeper.count())
	}
	for _, d := range sleeper.calls {
		if d != time.Second {
			t.Fatalf("expected 1s pause, got %s", d)
		}
	}
	if remote.Connections() != 2 {
		t.Fatalf("expected two successful exchanges, got %d", remote.Connections())
	}
	waits := 0
	for _, ev := range events.events {
		if ev.State == arquery.StateWaiting {
			waits++
			if ev.Agent != "002" || ev.Delay != time.Second || services.KindOf(ev.Err) != services.KindConnection {
				t.Fatalf("unexpected waiting event: %+v", ev)
			}
		}
	}
	if waits != 2 {
		t.Fatalf("expected 2 waiting transitions, got %d", waits)
	}
}

func TestRunBlankInput(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, testsupport.ReplyWith("ok {}"))
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()))

	ids, err := agentids.Read(strings.NewReader("\n  \n\t\n"), cfg.Agents.IDWidth)
	if err != nil {
		t.Fatalf("read ids: %v", err)
	}
	events := &eventLog{}
	summary := newDriver(cfg).Run(context.Background(), ids, events)

	if len(summary.Results) != 0 || len(events.events) != 0 {
		t.Fatalf("expected nothing processed, got %+v", summary)
	}
	if remote.Connections() != 0 {
		t.Fatalf("expected no socket activity, got %d connections", remote.Connections())
	}
}

func TestRunCancelledContextSkipsSocket(t *testing.T) {
	cfg := config.Default()
	dials := 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := newDriver(&cfg, arquery.WithDialer(refusingDialer(&dials))).Run(ctx, []string{"001", "002"}, nil)

	if dials != 0 {
		t.Fatalf("expected no dials, got %d", dials)
	}
	if summary.Failed != 2 {
		t.Fatalf("expected both identifiers to fail, got %+v", summary)
	}
	for _, result := range summary.Results {
		if result.Attempts != 0 || !errors.Is(result.Err, context.Canceled) {
			t.Fatalf("unexpected result: %+v", result)
		}
	}
}

func TestRunCancelDuringPauseAbandonsRetry(t *testing.T) {
	cfg := config.Default()
	dials := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleep := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	summary := newDriver(&cfg, arquery.WithDialer(refusingDialer(&dials)), arquery.WithSleep(sleep)).Run(ctx, []string{"001", "002"}, nil)

	if dials != 1 {
		t.Fatalf("expected a single dial, got %d", dials)
	}
	first := summary.Results[0]
	if first.Attempts != 1 || !errors.Is(first.Err, context.Canceled) || !errors.Is(first.Err, services.ErrConnection) {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if summary.Results[1].Attempts != 0 {
		t.Fatalf("second identifier must not be attempted: %+v", summary.Results[1])
	}
}

func TestRunPausesBetweenRealAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRetry(3, 20))

	start := time.Now()
	summary := newDriver(cfg).Run(context.Background(), []string{"001"}, nil)
	elapsed := time.Since(start)

	result := summary.Results[0]
	if result.State != arquery.StateFailed || result.Attempts != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !errors.Is(result.Err, syscall.ENOENT) {
		t.Fatalf("expected missing socket, got %v", result.Err)
	}
	if elapsed < 40*time.Millisecond {
		t.Fatalf("expected two 20ms pauses, run took %s", elapsed)
	}
	if !strings.Contains(arquery.Hint(result.Err), "socket not found") {
		t.Fatalf("unexpected hint %q", arquery.Hint(result.Err))
	}
}

func TestQueryOneShortFrameIsRetryableIOError(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, testsupport.Sequence(testsupport.ShortFrame()))
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()))

	_, err := newDriver(cfg).QueryOne(context.Background(), "001")
	if services.KindOf(err) != services.KindIO || !services.Retryable(err) {
		t.Fatalf("expected retryable io error, got %v", err)
	}
	if !errors.Is(err, frame.ErrClosedEarly) {
		t.Fatalf("expected closed-early cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "agent 001") {
		t.Fatalf("expected agent in message, got %q", err.Error())
	}
}

func TestQueryOneUnreachableKeepsResponse(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, testsupport.ReplyWith(unreachableReply))
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()))

	resp, err := newDriver(cfg).QueryOne(context.Background(), "003")
	if services.KindOf(err) != services.KindAgentUnreachable {
		t.Fatalf("expected agent unreachable, got %v", err)
	}
	if resp.Status != "err" || !strings.Contains(resp.Body, "Cannot send request") {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRunRecordsRunID(t *testing.T) {
	cfg := config.Default()
	dials := 0
	ctx := services.WithRunID(context.Background(), "run-42")

	summary := newDriver(&cfg, arquery.WithDialer(refusingDialer(&dials)), arquery.WithPolicy(arquery.Policy{MaxAttempts: 1})).Run(ctx, []string{"001"}, nil)

	if summary.RunID != "run-42" {
		t.Fatalf("RunID = %q", summary.RunID)
	}
	if dials != 1 {
		t.Fatalf("expected one attempt with MaxAttempts=1, got %d", dials)
	}
}

func TestRunSendsIdentifiersAsSupplied(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, testsupport.ReplyWith("ok {}"))
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()))

	ids, err := agentids.Read(strings.NewReader("7\n42\n"), cfg.Agents.IDWidth)
	if err != nil {
		t.Fatalf("read ids: %v", err)
	}
	summary := newDriver(cfg).Run(context.Background(), ids, nil)

	if summary.Succeeded != 2 || summary.Results[0].Agent != "7" || summary.Results[1].Agent != "42" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	got := remote.Requests()
	want := []string{"7 com getconfig active-response", "42 com getconfig active-response"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("daemon saw %q, want %q", got, want)
	}
}

func TestRunPadsIdentifiersWhenWidthConfigured(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, testsupport.ReplyWith("ok {}"))
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()))
	cfg.Agents.IDWidth = 3

	ids, err := agentids.Read(strings.NewReader("7\nweb-1\n"), cfg.Agents.IDWidth)
	if err != nil {
		t.Fatalf("read ids: %v", err)
	}
	newDriver(cfg).Run(context.Background(), ids, nil)

	got := remote.Requests()
	want := []string{"007 com getconfig active-response", "web-1 com getconfig active-response"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("daemon saw %q, want %q", got, want)
	}
}

func TestQueryOneToleratesNilChannel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dialer := func(context.Context, string, channel.Options) (*channel.Channel, error) {
		return nil, nil
	}

	summary := newDriver(cfg, arquery.WithDialer(dialer)).Run(context.Background(), []string{"001"}, nil)

	result := summary.Results[0]
	if result.State != arquery.StateFailed || result.Attempts != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if services.KindOf(result.Err) != services.KindNotConnected {
		t.Fatalf("kind = %s, want not connected (%v)", services.KindOf(result.Err), result.Err)
	}
}

func TestRunStampsResultsWithClock(t *testing.T) {
	remote := testsupport.StartFakeRemote(t, testsupport.ReplyWith("ok {}"))
	cfg := testsupport.NewConfig(t, testsupport.WithSocketPath(remote.Path()))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ticks := 0
	clock := func() time.Time {
		now := base.Add(time.Duration(ticks) * 250 * time.Millisecond)
		ticks++
		return now
	}

	summary := newDriver(cfg, arquery.WithClock(clock)).Run(context.Background(), []string{"001", "002"}, nil)

	first, second := summary.Results[0], summary.Results[1]
	if !first.Started.Equal(base) || first.Duration() != 250*time.Millisecond {
		t.Fatalf("unexpected timing for 001: started %s took %s", first.Started, first.Duration())
	}
	if !second.Started.Equal(base.Add(500*time.Millisecond)) || second.Duration() != 250*time.Millisecond {
		t.Fatalf("unexpected timing for 002: started %s took %s", second.Started, second.Duration())
	}
}
