package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/utils"
)

// ErrOrderNotFound is returned by a FetchFunc when the token matches no
// order. The poller surfaces it as the distinct NotFound view, never as a
// connectivity problem.
var ErrOrderNotFound = errors.New("tracker: order not found")

// FetchFunc loads the current state of one order by its token.
type FetchFunc func(ctx context.Context, token string) (*models.Order, error)

// View is what a tracking consumer is looking at. Loading and NotFound are
// observable states of their own, distinct from the five lifecycle states.
type View int

const (
	ViewLoading View = iota
	ViewNotFound
	ViewOrder
)

// Snapshot is one observation of an order, emitted by the poller.
type Snapshot struct {
	View  View
	Order *models.Order
	// Degraded is set when the latest fetch failed and Order carries the
	// last known good state. Renders as a non-blocking connectivity
	// warning, never as a destructive state change.
	Degraded bool
	Seq      uint64
}

// Poller periodically fetches an order and emits snapshots. It never
// initiates transitions itself; it only reacts to externally observed state.
//
// Each fetch carries a monotonic sequence number. A response is discarded if
// a later request's response already arrived, so out-of-order network replies
// cannot roll the display backward. Cancel the context to tear down; nothing
// is emitted after teardown.
type Poller struct {
	token    string
	fetch    FetchFunc
	interval time.Duration

	mu         sync.Mutex
	nextSeq    uint64
	appliedSeq uint64
	last       *models.Order
	hasResult  bool
	notFound   bool
}

func NewPoller(token string, fetch FetchFunc, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Poller{token: token, fetch: fetch, interval: interval}
}

// Run starts polling and returns the snapshot stream. The channel closes when
// ctx is cancelled.
func (p *Poller) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 1)

	go func() {
		var inflight sync.WaitGroup

		// Initial view before the first response lands.
		if !emit(ctx, out, Snapshot{View: ViewLoading}) {
			close(out)
			return
		}
		p.poll(ctx, out)

		// Ticks don't wait for a slow fetch; overlapping responses are
		// resolved by the sequence guard in poll.
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				inflight.Add(1)
				go func() {
					defer inflight.Done()
					p.poll(ctx, out)
				}()
			case <-ctx.Done():
				inflight.Wait()
				close(out)
				return
			}
		}
	}()

	return out
}

// poll issues one fetch and applies the result if no later fetch beat it.
func (p *Poller) poll(ctx context.Context, out chan Snapshot) {
	p.mu.Lock()
	p.nextSeq++
	seq := p.nextSeq
	p.mu.Unlock()

	order, err := p.fetch(ctx, p.token)

	p.mu.Lock()
	if seq <= p.appliedSeq {
		// A later request already answered; this reply is stale.
		p.mu.Unlock()
		return
	}
	p.appliedSeq = seq

	var snap Snapshot
	switch {
	case err == nil:
		p.last = order
		p.hasResult = true
		p.notFound = false
		snap = Snapshot{View: ViewOrder, Order: order, Seq: seq}
	case errors.Is(err, ErrOrderNotFound):
		p.hasResult = true
		p.notFound = true
		snap = Snapshot{View: ViewNotFound, Seq: seq}
	default:
		// Keep the last known good state and retry on the next tick.
		utils.ErrorLogger.Printf("tracker %s: fetch failed, retrying: %v", p.token, err)
		switch {
		case p.notFound:
			snap = Snapshot{View: ViewNotFound, Degraded: true, Seq: seq}
		case p.hasResult:
			snap = Snapshot{View: ViewOrder, Order: p.last, Degraded: true, Seq: seq}
		default:
			snap = Snapshot{View: ViewLoading, Degraded: true, Seq: seq}
		}
	}
	p.mu.Unlock()

	emit(ctx, out, snap)
}

// emit delivers a snapshot unless the consumer already tore down. A slow
// consumer only ever sees the newest snapshot: when the buffer is full, the
// snapshot with the lower Seq is the one dropped, whichever side it is on, so
// an older poll result can never evict a newer one. Returns false once ctx is
// cancelled.
func emit(ctx context.Context, out chan Snapshot, snap Snapshot) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case out <- snap:
			return true
		default:
			select {
			case queued := <-out:
				if queued.Seq > snap.Seq {
					snap = queued
				}
			default:
			}
		}
	}
}
