package statustrack

import (
	"context"
	"sync"
	"time"

	"github.com/lifetag/lifetag-api/internal/model"
	"github.com/lifetag/lifetag-api/pkg/logger"
)

// errMsgSubscription is the fixed message surfaced when either live
// subscription fails. The flag is sticky; there is no automatic retry.
const errMsgSubscription = "Unable to load your verification status"

// ProfessionalWatcher delivers snapshots of one professional document.
type ProfessionalWatcher interface {
	Watch(ctx context.Context, id string) (<-chan *model.Professional, <-chan error)
}

// StatusUpdateWatcher delivers newest-first snapshots of one professional's
// status feed.
type StatusUpdateWatcher interface {
	Watch(ctx context.Context, professionalID string) (<-chan []*model.VerificationStatusUpdate, <-chan error)
}

// Snapshot is the derived live view handed to the presentation layer.
type Snapshot struct {
	Loading          bool                              `json:"loading"`
	Professional     *model.Professional               `json:"professional,omitempty"`
	Updates          []*model.VerificationStatusUpdate `json:"updates"`
	Current          CurrentStatus                     `json:"current"`
	HasUnreadUpdates bool                              `json:"has_unread_updates"`
	Timeline         []TimelineEntry                   `json:"timeline"`
	Err              string                            `json:"error,omitempty"`
}

// Tracker maintains a live, derived view of one professional's own
// verification state through two chained subscriptions: the outer one on the
// professional document, the inner one on that professional's status feed.
// Whenever the outer subscription fires, the previous inner subscription is
// cancelled and a fresh one established, so stale listeners never deliver.
type Tracker struct {
	professionals ProfessionalWatcher
	updates       StatusUpdateWatcher
	logger        *logger.Logger
	now           func() time.Time

	mu          sync.Mutex
	snapshot    Snapshot
	changes     chan Snapshot
	cancel      context.CancelFunc
	innerCancel context.CancelFunc
	wg          sync.WaitGroup
}

func NewTracker(professionals ProfessionalWatcher, updates StatusUpdateWatcher, logger *logger.Logger) *Tracker {
	return &Tracker{
		professionals: professionals,
		updates:       updates,
		logger:        logger,
		now:           time.Now,
		snapshot:      Snapshot{Loading: true, Current: statusDisplay[StatusPending]},
		changes:       make(chan Snapshot, 1),
	}
}

// Start activates the subscriptions for the given user. It returns
// immediately; derived state arrives on Changes.
func (t *Tracker) Start(ctx context.Context, userID string) {
	// Restart for a new user tears down both subscriptions first.
	t.Stop()

	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.cancel = cancel
	t.snapshot = Snapshot{Loading: true, Current: statusDisplay[StatusPending]}
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(ctx, userID)
}

// Stop cancels both subscriptions and waits for their goroutines to exit.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.mu.Unlock()
	t.wg.Wait()
}

// Snapshot returns the latest derived state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot
}

// Changes delivers each recomputed snapshot; only the most recent value is
// retained when the consumer lags.
func (t *Tracker) Changes() <-chan Snapshot {
	return t.changes
}

func (t *Tracker) run(ctx context.Context, userID string) {
	defer t.wg.Done()
	defer t.cancelInner()

	docs, errs := t.professionals.Watch(ctx, userID)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			t.fail(err)
			return
		case p, ok := <-docs:
			if !ok {
				return
			}
			t.onProfessional(ctx, p)
		}
	}
}

// onProfessional handles one outer delivery: replace the inner subscription
// and recompute from the new document plus the last seen feed.
func (t *Tracker) onProfessional(ctx context.Context, p *model.Professional) {
	t.cancelInner()

	t.mu.Lock()
	t.snapshot.Professional = p
	t.recomputeLocked()
	t.mu.Unlock()
	t.publish()

	if p == nil {
		return
	}

	innerCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.innerCancel = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go t.runInner(innerCtx, p.ID)
}

func (t *Tracker) runInner(ctx context.Context, professionalID string) {
	defer t.wg.Done()

	feeds, errs := t.updates.Watch(ctx, professionalID)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			t.fail(err)
			return
		case updates, ok := <-feeds:
			if !ok {
				return
			}
			t.mu.Lock()
			t.snapshot.Updates = updates
			t.recomputeLocked()
			t.mu.Unlock()
			t.publish()
		}
	}
}

func (t *Tracker) cancelInner() {
	t.mu.Lock()
	if t.innerCancel != nil {
		t.innerCancel()
		t.innerCancel = nil
	}
	t.mu.Unlock()
}

// recomputeLocked rebuilds the derived fields. The error flag is sticky:
// once set, loading-state transitions stop.
func (t *Tracker) recomputeLocked() {
	if t.snapshot.Err != "" {
		return
	}
	t.snapshot.Loading = false
	t.snapshot.Current = deriveStatus(t.snapshot.Professional, t.snapshot.Updates)
	t.snapshot.HasUnreadUpdates = hasUnread(t.snapshot.Updates, t.now())
	t.snapshot.Timeline = buildTimeline(t.snapshot.Professional, t.snapshot.Updates)
}

func (t *Tracker) fail(err error) {
	t.logger.Error(err, "status subscription failed")
	t.mu.Lock()
	if t.snapshot.Err == "" {
		t.snapshot.Err = errMsgSubscription
	}
	t.mu.Unlock()
	t.publish()
}

// publish replaces any undelivered snapshot with the latest.
func (t *Tracker) publish() {
	snap := t.Snapshot()
	for {
		select {
		case t.changes <- snap:
			return
		default:
			select {
			case <-t.changes:
			default:
			}
		}
	}
}
