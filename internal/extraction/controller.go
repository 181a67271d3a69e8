// Package extraction runs the structuring client under a bounded retry
// policy with exponential backoff.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/labparse/internal/providers"
)

const (
	// MaxAttempts bounds the calls made in one run.
	MaxAttempts = 5
	// DefaultUnit is the base backoff delay.
	DefaultUnit = time.Second
)

// Extractor makes exactly one structuring call.
type Extractor interface {
	Extract(ctx context.Context, rawText string) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, rawText string) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, rawText string) (string, error) {
	return f(ctx, rawText)
}

// Timer schedules backoff waits. It matches retry-go's Timer so tests can
// observe delays without sleeping.
type Timer interface {
	After(time.Duration) <-chan time.Time
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Backoff returns the wait between attempt n and attempt n+1.
func Backoff(n int, unit time.Duration) time.Duration {
	if n < 1 {
		return 0
	}
	return unit << (n - 1)
}

// Config configures a Controller.
type Config struct {
	Unit           time.Duration // Default 1s
	AttemptTimeout time.Duration // Zero disables the per-attempt deadline
	Observer       Observer
	Timer          Timer
	Logger         *slog.Logger
}

// Controller drives an Extractor through Idle, Attempting, Retrying and a
// terminal Succeeded or Exhausted state. A Controller is immutable; each Run
// keeps its own history.
type Controller struct {
	extractor      Extractor
	unit           time.Duration
	attemptTimeout time.Duration
	observer       Observer
	timer          Timer
	logger         *slog.Logger
}

// New creates a controller around extractor.
func New(extractor Extractor, cfg Config) *Controller {
	if cfg.Unit <= 0 {
		cfg.Unit = DefaultUnit
	}
	if cfg.Timer == nil {
		cfg.Timer = realTimer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		extractor:      extractor,
		unit:           cfg.Unit,
		attemptTimeout: cfg.AttemptTimeout,
		observer:       cfg.Observer,
		timer:          cfg.Timer,
		logger:         cfg.Logger,
	}
}

// Outcome is the record of one run. Payload is set only when Final is
// Succeeded.
type Outcome struct {
	Payload  string
	Attempts []Attempt
	Final    State
}

// Run extracts a payload from rawText. The returned Outcome is never nil.
//
// The error is nil on success. Otherwise it is the first non-transient error,
// an *ExhaustedRetriesError after MaxAttempts transient failures, or the
// context's error if ctx ends first.
func (c *Controller) Run(ctx context.Context, rawText string) (*Outcome, error) {
	r := &run{
		c:     c,
		ctx:   ctx,
		text:  rawText,
		state: State{Phase: Idle},
	}

	doErr := retry.Do(r.attempt,
		retry.Context(ctx),
		retry.Attempts(MaxAttempts),
		retry.RetryIf(func(error) bool { return r.state.Phase == Retrying }),
		retry.DelayType(func(uint, error, *retry.Config) time.Duration { return r.delay }),
		retry.WithTimer(c.timer),
		retry.LastErrorOnly(true),
	)

	if !r.state.Phase.Terminal() {
		// The loop ended outside an attempt: cancelled before the first
		// attempt or during a backoff wait.
		cause := ctx.Err()
		if cause == nil {
			cause = doErr
			if last := r.last(); last != nil && last.Err != nil {
				cause = &ExhaustedRetriesError{Attempts: last.Index, Last: last.Err}
			}
		}
		r.finish(Exhausted, nil, cause)
	}

	out := &Outcome{Attempts: r.history, Final: r.state}
	if r.state.Phase == Succeeded {
		out.Payload = r.payload
		return out, nil
	}
	return out, r.err
}

type run struct {
	c    *Controller
	ctx  context.Context
	text string

	state   State
	history []Attempt
	delay   time.Duration
	payload string
	err     error
}

func (r *run) attempt() error {
	if err := r.ctx.Err(); err != nil {
		r.finish(Exhausted, nil, err)
		return err
	}

	n := len(r.history) + 1
	r.history = append(r.history, Attempt{Index: n, Started: time.Now()})
	a := &r.history[n-1]
	r.transition(State{Phase: Attempting, Attempt: n}, nil, 0)

	payload, err := r.call()
	a.Duration = time.Since(a.Started)
	a.Payload, a.Err = payload, err

	if ctxErr := r.ctx.Err(); ctxErr != nil {
		r.finish(Exhausted, a, ctxErr)
		return ctxErr
	}

	switch {
	case err == nil:
		r.payload = payload
		r.finish(Succeeded, a, nil)
		return nil
	case !providers.IsTransient(err):
		r.c.logger.Warn("extraction attempt failed, not retrying", "attempt", n, "error", err)
		r.finish(Exhausted, a, err)
		return err
	case n >= MaxAttempts:
		r.c.logger.Warn("extraction attempts exhausted", "attempts", n, "error", err)
		r.finish(Exhausted, a, &ExhaustedRetriesError{Attempts: n, Last: err})
		return err
	default:
		r.delay = Backoff(n, r.c.unit)
		r.c.logger.Info("extraction attempt failed, retrying", "attempt", n, "delay", r.delay, "error", err)
		r.transition(State{Phase: Retrying, Attempt: n}, a, r.delay)
		return err
	}
}

// call runs one extraction under the optional per-attempt deadline.
func (r *run) call() (string, error) {
	if r.c.attemptTimeout <= 0 {
		return r.c.extractor.Extract(r.ctx, r.text)
	}
	actx, cancel := context.WithTimeout(r.ctx, r.c.attemptTimeout)
	defer cancel()

	payload, err := r.c.extractor.Extract(actx, r.text)
	if err != nil && r.ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) && !providers.IsFatal(err) {
		return "", &providers.TransientServiceError{
			Message: fmt.Sprintf("attempt timed out after %s", r.c.attemptTimeout),
			Err:     err,
		}
	}
	return payload, err
}

func (r *run) last() *Attempt {
	if len(r.history) == 0 {
		return nil
	}
	return &r.history[len(r.history)-1]
}

func (r *run) finish(phase Phase, a *Attempt, err error) {
	r.err = err
	r.transition(State{Phase: phase, Attempt: len(r.history)}, a, 0)
}

func (r *run) transition(to State, a *Attempt, delay time.Duration) {
	from := r.state
	r.state = to
	r.c.logger.Debug("extraction state", "from", from.String(), "to", to.String())
	if r.c.observer != nil {
		r.c.observer.Transition(from, to, a, delay)
	}
}
