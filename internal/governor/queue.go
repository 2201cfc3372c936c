package governor

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"qwenauth/internal/clock"
)

// Config controls request pacing.
type Config struct {
	// MinInterval is the minimum gap between two dispatches.
	MinInterval time.Duration
	// JitterMin and JitterMax bound the random delay added to every
	// dispatch.
	JitterMin time.Duration
	JitterMax time.Duration
}

// DefaultConfig returns the pacing used against the Qwen API.
func DefaultConfig() Config {
	return Config{
		MinInterval: time.Second,
		JitterMin:   500 * time.Millisecond,
		JitterMax:   1500 * time.Millisecond,
	}
}

// Validate checks that the durations are usable.
func (c Config) Validate() error {
	if c.MinInterval < 0 || c.JitterMin < 0 || c.JitterMax < 0 {
		return errors.New("governor durations must not be negative")
	}
	if c.JitterMax < c.JitterMin {
		return errors.New("governor jitterMax must not be less than jitterMin")
	}
	return nil
}

// Jitter returns a random duration in [min, max].
type Jitter func(min, max time.Duration) time.Duration

// UniformJitter draws uniformly from [min, max].
func UniformJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}

// Queue runs tasks one at a time in submission order, spacing dispatches
// by at least MinInterval plus jitter.
type Queue struct {
	cfg    Config
	clock  clock.Clock
	jitter Jitter

	mu           sync.Mutex
	tail         chan struct{}
	lastDispatch time.Time
}

// NewQueue creates a queue. A nil clock means the wall clock and a nil
// jitter means UniformJitter.
func NewQueue(cfg Config, clk clock.Clock, jitter Jitter) *Queue {
	if clk == nil {
		clk = clock.Real{}
	}
	if jitter == nil {
		jitter = UniformJitter
	}
	return &Queue{cfg: cfg, clock: clk, jitter: jitter}
}

// Do waits for every earlier task to finish, waits out the pacing delay and
// then runs task. It returns task's error, or ctx.Err() if ctx ends first.
// A task abandoned by its caller never runs, and later tasks still wait for
// their turn behind it.
func (q *Queue) Do(ctx context.Context, task func(ctx context.Context) error) error {
	q.mu.Lock()
	prev := q.tail
	done := make(chan struct{})
	q.tail = done
	q.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			go func() {
				<-prev
				close(done)
			}()
			return ctx.Err()
		}
	}
	defer close(done)

	if err := q.clock.Sleep(ctx, q.delay()); err != nil {
		return err
	}

	q.mu.Lock()
	q.lastDispatch = q.clock.Now()
	q.mu.Unlock()

	return task(ctx)
}

// delay is max(0, MinInterval - sinceLastDispatch) + jitter.
func (q *Queue) delay() time.Duration {
	q.mu.Lock()
	last := q.lastDispatch
	q.mu.Unlock()

	var wait time.Duration
	if !last.IsZero() {
		if remaining := q.cfg.MinInterval - q.clock.Now().Sub(last); remaining > 0 {
			wait = remaining
		}
	}
	return wait + q.jitter(q.cfg.JitterMin, q.cfg.JitterMax)
}

// LastDispatch returns when the most recent task was dispatched.
func (q *Queue) LastDispatch() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastDispatch
}
