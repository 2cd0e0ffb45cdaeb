package panel

import (
	"context"
	"sync"
	"time"
)

// Poller calls a fetch function immediately and then on every tick until
// stopped. Overlapping work is not a concern: each fetch is idempotent.
type Poller struct {
	interval time.Duration
	fetch    func(ctx context.Context)

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	mutex   sync.Mutex
}

// NewPoller creates a stopped poller
func NewPoller(interval time.Duration, fetch func(ctx context.Context)) *Poller {
	return &Poller{interval: interval, fetch: fetch}
}

// Start begins polling. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.running {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.running = true

	go p.loop(ctx, p.done)
}

// Stop halts polling and waits for an in-flight fetch to return.
func (p *Poller) Stop() {
	p.mutex.Lock()
	if !p.running {
		p.mutex.Unlock()
		return
	}
	p.running = false
	p.cancel()
	done := p.done
	p.mutex.Unlock()

	<-done
}

// IsRunning returns true while the poller is active
func (p *Poller) IsRunning() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.running
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetch(ctx)
		}
	}
}
