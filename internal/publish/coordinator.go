package publish

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Phase is the publish indicator shown to the operator.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhasePublishing    Phase = "publishing"
	PhaseSuccess       Phase = "success"
	PhaseConfigMissing Phase = "config_missing"
	PhaseError         Phase = "error"
)

// How long a finished phase stays visible before returning to idle.
const (
	DefaultSuccessDisplay = 4 * time.Second
	DefaultFailureDisplay = 5 * time.Second
)

// Publisher is anything that can run one publish.
type Publisher interface {
	Publish(ctx context.Context) Result
}

// State is a snapshot of the coordinator.
type State struct {
	Phase     Phase     `json:"phase"`
	Last      *Result   `json:"last,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Coordinator serializes publishes and tracks the indicator state. Calls made
// while a publish is in flight share its result instead of starting another.
type Coordinator struct {
	publisher      Publisher
	group          singleflight.Group
	successDisplay time.Duration
	failureDisplay time.Duration
	now            func() time.Time

	mu    sync.Mutex
	state State
	gen   uint64
	timer *time.Timer
}

// CoordinatorOption configures a Coordinator
type CoordinatorOption func(*Coordinator)

// WithDisplayDurations overrides how long success and failure phases last.
func WithDisplayDurations(success, failure time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.successDisplay = success
		c.failureDisplay = failure
	}
}

// NewCoordinator wraps p.
func NewCoordinator(p Publisher, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		publisher:      p,
		successDisplay: DefaultSuccessDisplay,
		failureDisplay: DefaultFailureDisplay,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = State{Phase: PhaseIdle, UpdatedAt: c.now()}
	return c
}

// Publish runs a publish, or joins the one already running. Once started the
// publish ignores ctx cancellation; the synchronizer's timeout bounds it.
func (c *Coordinator) Publish(ctx context.Context) Result {
	detached := context.WithoutCancel(ctx)
	v, _, _ := c.group.Do("publish", func() (any, error) {
		c.begin()
		r := c.publisher.Publish(detached)
		c.finish(r)
		return r, nil
	})
	return v.(Result)
}

// State returns the current phase and the last result.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	return s
}

// Close stops any pending return to idle.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.state = State{Phase: PhasePublishing, Last: c.state.Last, UpdatedAt: c.now()}
}

func (c *Coordinator) finish(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	phase, display := PhaseSuccess, c.successDisplay
	switch {
	case r.Success:
	case r.Error == KindConfigMissing:
		phase, display = PhaseConfigMissing, c.failureDisplay
	default:
		phase, display = PhaseError, c.failureDisplay
	}

	c.gen++
	gen := c.gen
	c.state = State{Phase: phase, Last: &r, UpdatedAt: c.now()}
	c.timer = time.AfterFunc(display, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen {
			return
		}
		c.state.Phase = PhaseIdle
		c.state.UpdatedAt = c.now()
		c.timer = nil
	})
}
