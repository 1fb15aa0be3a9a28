package arquery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mranv/agentARChecker/internal/channel"
	"github.com/mranv/agentARChecker/internal/config"
	"github.com/mranv/agentARChecker/internal/frame"
	"github.com/mranv/agentARChecker/internal/logging"
	"github.com/mranv/agentARChecker/internal/services"
)

// Dialer opens a channel to endpoint. channel.Dial is the production dialer.
type Dialer func(ctx context.Context, endpoint string, opts channel.Options) (*channel.Channel, error)

// Sleeper pauses between attempts and returns early with ctx's error when
// ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy bounds the attempts made for one identifier.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Driver queries agents one at a time against a single endpoint.
type Driver struct {
	endpoint string
	command  Command
	chanOpts channel.Options
	policy   Policy
	logger   *slog.Logger
	dial     Dialer
	sleep    Sleeper
	now      func() time.Time
}

// Option customizes a Driver.
type Option func(*Driver)

// WithDialer replaces channel.Dial.
func WithDialer(dial Dialer) Option {
	return func(d *Driver) {
		if dial != nil {
			d.dial = dial
		}
	}
}

// WithSleep replaces the context-aware timer used between attempts.
func WithSleep(sleep Sleeper) Option {
	return func(d *Driver) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// WithPolicy overrides the retry policy read from config.
func WithPolicy(policy Policy) Option {
	return func(d *Driver) {
		d.policy = policy
	}
}

// WithClock overrides the time source for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// New builds a Driver from the [remote] and [retry] sections of cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Driver {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	d := &Driver{
		endpoint: cfg.Remote.SocketPath,
		command:  CommandFromConfig(cfg),
		chanOpts: channel.Options{
			ConnectTimeout: cfg.ConnectTimeout(),
			ReadTimeout:    cfg.ReadTimeout(),
			WriteTimeout:   cfg.WriteTimeout(),
			Limits:         frame.Limits{MaxPayloadBytes: cfg.Remote.MaxFrameBytes},
		},
		policy: Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.RetryDelay()},
		logger: logging.NewComponentLogger(logger, "arquery"),
		dial:   channel.Dial,
		sleep:  sleepContext,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.policy.MaxAttempts < 1 {
		d.policy.MaxAttempts = 1
	}
	if d.policy.Delay < 0 {
		d.policy.Delay = 0
	}
	return d
}

// Endpoint returns the socket path the driver dials.
func (d *Driver) Endpoint() string {
	return d.endpoint
}

// Policy returns the effective retry policy.
func (d *Driver) Policy() Policy {
	return d.policy
}

// QueryOne performs a single exchange for id over a fresh channel. The
// channel is closed on every return path. A reply whose status is "err" and
// whose body carries "Cannot send request" is returned alongside a
// KindAgentUnreachable error; any other reply, including other "err" replies,
// is a success.
func (d *Driver) QueryOne(ctx context.Context, id string) (Response, error) {
	logger := logging.WithContext(ctx, d.logger)
	request := BuildRequest(id, d.command)
	logger.Debug("encoded request", logging.Any("payload", request), logging.Int("bytes", len(request)))

	ch, err := d.dial(ctx, d.endpoint, d.chanOpts)
	if err != nil {
		return Response{}, services.WithAgent(err, id)
	}
	defer ch.Close()
	stop := context.AfterFunc(ctx, ch.Close)
	defer stop()
	logger.Debug("connected", logging.String("endpoint", d.endpoint))

	if err := ch.Send(request); err != nil {
		return Response{}, services.WithAgent(err, id)
	}
	payload, err := ch.Receive()
	if err != nil {
		return Response{}, services.WithAgent(err, id)
	}
	resp, err := ParseResponse(payload)
	if err != nil {
		return Response{}, services.WithAgent(err, id)
	}
	logger.Debug("response received", logging.String("status", resp.Status), logging.Int("bytes", len(payload)))

	if resp.AgentUnreachable() {
		return resp, services.WithAgent(services.Wrap(services.KindAgentUnreachable, "query", errors.New(resp.Body)), id)
	}
	return resp, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
