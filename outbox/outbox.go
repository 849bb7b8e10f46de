// Package outbox implements the durable offline submission queue. A scan
// result that cannot reach the server is appended here and replayed, in
// enqueue order, on the next sweep. Delivery is at-least-once with no
// retry cap: a lost inventory scan costs more than a duplicate one, and
// the server deduplicates on the submission's client id.
package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mxscan/scankit/logger"
	"github.com/mxscan/scankit/store"
)

// StorageKey is the blob key the serialized queue lives under.
const StorageKey = "scankit.outbox"

// Item is one queued submission: the API path it was headed for and the
// request body it carried.
type Item struct {
	Path       string          `json:"path"`
	Body       json.RawMessage `json:"body"`
	EnqueuedAt time.Time       `json:"ts"`
}

// Fingerprint is a stable short identity for the item, used to correlate
// log lines across sweeps.
func (i Item) Fingerprint() uint64 {
	h := xxhash.New()
	h.WriteString(i.Path)
	h.Write(i.Body)
	return h.Sum64()
}

// Sender delivers one queued item. A nil return means the server
// definitively acknowledged the submission; any error — transport,
// HTTP status or application-level rejection — keeps the item queued.
type Sender interface {
	Send(ctx context.Context, path string, body json.RawMessage) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, path string, body json.RawMessage) error

func (f SenderFunc) Send(ctx context.Context, path string, body json.RawMessage) error {
	return f(ctx, path, body)
}

// Outbox is the persisted queue. All mutations rewrite the whole blob;
// the last writer wins across processes, which is acceptable for the
// single-operator scanning workflow.
type Outbox struct {
	mutex sync.Mutex
	store store.Store
	log   logger.Logger
	now   func() time.Time
}

// Option configures an Outbox.
type Option func(*Outbox)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *Outbox) { o.now = now }
}

// New returns an Outbox backed by s.
func New(s store.Store, log logger.Logger, opts ...Option) *Outbox {
	o := &Outbox{
		store: s,
		log:   log.WithPrefix("[outbox]"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Outbox) loadLocked(ctx context.Context) []Item {
	blob, found, err := o.store.Load(ctx, StorageKey)
	if err != nil {
		o.log.Warn("failed to load queue: %s", err)
		return nil
	}
	if !found {
		return nil
	}
	var items []Item
	if err := json.Unmarshal(blob, &items); err != nil {
		o.log.Warn("queue blob is corrupt, treating as empty: %s", err)
		return nil
	}
	return items
}

func (o *Outbox) saveLocked(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	blob, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return o.store.Save(ctx, StorageKey, blob)
}

// Push appends a submission to the queue and returns the new queue
// length. A return of 0 means persistence failed and the submission is
// NOT guaranteed queued; callers should surface that to the operator.
func (o *Outbox) Push(ctx context.Context, path string, body json.RawMessage) int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	items := o.loadLocked(ctx)
	item := Item{Path: path, Body: body, EnqueuedAt: o.now()}
	items = append(items, item)
	if err := o.saveLocked(ctx, items); err != nil {
		o.log.Error("failed to persist queued submission %x: %s", item.Fingerprint(), err)
		return 0
	}
	o.log.Info("queued submission %x for %s (%d pending)", item.Fingerprint(), path, len(items))
	return len(items)
}

// Len returns the number of currently queued items.
func (o *Outbox) Len(ctx context.Context) int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return len(o.loadLocked(ctx))
}

// Items returns a copy of the queued items in enqueue order.
func (o *Outbox) Items(ctx context.Context) []Item {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.loadLocked(ctx)
}

// Drain attempts delivery of every queued item in FIFO order through
// sender. An item leaves the queue only on definitive success; any
// failure keeps it, and the survivors are re-persisted as the new whole
// queue in their original relative order. Drain never fails — it
// returns the number of items still pending.
func (o *Outbox) Drain(ctx context.Context, sender Sender) int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	items := o.loadLocked(ctx)
	if len(items) == 0 {
		return 0
	}
	o.log.Info("sweeping %d queued submission(s)", len(items))
	remaining := make([]Item, 0, len(items))
	for _, item := range items {
		if err := o.send(ctx, sender, item); err != nil {
			o.log.Warn("submission %x not delivered, keeping: %s", item.Fingerprint(), err)
			remaining = append(remaining, item)
			continue
		}
		o.log.Info("delivered queued submission %x for %s", item.Fingerprint(), item.Path)
	}
	if err := o.saveLocked(ctx, remaining); err != nil {
		o.log.Error("failed to persist queue after sweep: %s", err)
	}
	return len(remaining)
}

// send guards the sweep against a panicking sender; a panic is treated
// the same as a delivery failure.
func (o *Outbox) send(ctx context.Context, sender Sender, item Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errorsFromPanic(r)
		}
	}()
	return sender.Send(ctx, item.Path, item.Body)
}
