package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"
)

var (
	ErrNoHealthy = fmt.Errorf("no healthy relays")
	ErrNoAcquire = fmt.Errorf("relay not acquired")
)

// Dispatcher round-robins push events over healthy relays, retrying a
// bounded number of times. With no relays configured it is a no-op.
type Dispatcher struct {
	relays            []Relay
	roundRobinCounter atomic.Uint64
	maxAttempts       int
}

func NewDispatcher(relays []Relay, maxAttempts int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 2
	}

	return &Dispatcher{relays: relays, maxAttempts: maxAttempts}
}

// HasRelays reports whether any relay is configured at all.
func (d *Dispatcher) HasRelays() bool { return len(d.relays) > 0 }

func (d *Dispatcher) selectRelay() (Relay, error) {
	healthy := make([]Relay, 0, len(d.relays))
	for _, r := range d.relays {
		if r.Ready() {
			healthy = append(healthy, r)
		}
	}

	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := d.roundRobinCounter.Add(1)
	idx := int((x - 1) % uint64(len(healthy)))

	return healthy[idx], nil
}

func (d *Dispatcher) tryOnce(ctx context.Context, ev PushEvent) error {
	r, err := d.selectRelay()
	if err != nil {
		return err
	}

	if !r.Acquire() {
		return ErrNoAcquire
	}

	return r.Push(ctx, ev)
}

// Push delivers one event to some healthy relay, or reports the last error.
func (d *Dispatcher) Push(ctx context.Context, ev PushEvent) error {
	var last error
	for i := 0; i < d.maxAttempts; i++ {
		if err := d.tryOnce(ctx, ev); err == nil {
			return nil
		} else {
			last = err
		}
	}

	if last == nil {
		last = fmt.Errorf("push failed")
	}

	return last
}
