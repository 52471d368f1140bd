package writepolicy

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krisalay/swrcache/types"
)

// DefaultDelay is how long the dashboard waits after a write before reloading.
const DefaultDelay = 500 * time.Millisecond

type deferredReq struct {
	ctx context.Context
	key types.Key
	due time.Time
}

/*
Deferred revalidates keys a fixed delay after the write that made them stale.

A key already waiting is not queued twice. The queue is bounded: when it is
full the request is dropped with a warning, since blocking would stall the
caller that just finished a write.
*/
type Deferred struct {
	target Mutator
	delay  time.Duration
	log    *logrus.Entry

	// ch holds pending requests in due order; all share one delay.
	ch chan deferredReq

	mu      sync.Mutex
	pending map[types.Key]struct{}
	closed  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewDeferred(target Mutator, delay time.Duration, buffer int, log *logrus.Entry) *Deferred {
	if buffer < 1 {
		buffer = 1
	}
	if delay < 0 {
		delay = 0
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	d := &Deferred{
		target:  target,
		delay:   delay,
		log:     log.WithField("component", "writepolicy"),
		ch:      make(chan deferredReq, buffer),
		pending: make(map[types.Key]struct{}),
		stop:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.worker()

	return d
}

func (d *Deferred) OnWrite(ctx context.Context, keys ...types.Key) {
	due := time.Now().Add(d.delay)
	ctx = context.WithoutCancel(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, k := range keys {
		if k.IsZero() {
			continue
		}
		if d.closed {
			d.log.WithField("key", k.String()).Debug("write policy closed, revalidation skipped")
			continue
		}
		if _, ok := d.pending[k]; ok {
			continue
		}
		select {
		case d.ch <- deferredReq{ctx: ctx, key: k, due: due}:
			d.pending[k] = struct{}{}
		default:
			d.log.WithField("key", k.String()).Warn("revalidation queue full, request dropped")
		}
	}
}

// Pending returns the number of keys whose revalidation has not started yet.
func (d *Deferred) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Deferred) worker() {
	defer d.wg.Done()

	for req := range d.ch {
		if wait := time.Until(req.due); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-d.stop:
				t.Stop()
			}
		}

		// The key stays pending until its revalidation has started.
		d.target.Mutate(req.ctx, req.key)

		d.mu.Lock()
		delete(d.pending, req.key)
		d.mu.Unlock()
	}
}

/*
Close flushes pending keys without waiting for their delay and stops the
worker. Later OnWrite calls are ignored.
*/
func (d *Deferred) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.stop)
	close(d.ch)
	d.mu.Unlock()

	d.wg.Wait()
}
