// Package history owns the user's analysis history: the in-memory
// collection, its durable local copy and its mirror in the remote archive.
//
// The local copy is the source of truth for the running process. The
// remote archive is written in the background and read back once per
// session to replace the local copy when it has anything to offer.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/contentiq/internal/client/metrics"
	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"github.com/dmitrijs2005/contentiq/internal/client/repositories/kv"
	"github.com/dmitrijs2005/contentiq/internal/logging"
)

const (
	DefaultLimit        = 50
	DefaultWorkers      = 2
	DefaultQueueSize    = 64
	DefaultWriteTimeout = 30 * time.Second
)

// Archiver is the remote mirror. Implementations swallow their own errors.
type Archiver interface {
	Write(ctx context.Context, cred models.Credential, item models.HistoryItem)
	List(ctx context.Context, cred models.Credential) []models.HistoryItem
}

type Config struct {
	Limit        int
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	return c
}

type writeJob struct {
	cred models.Credential
	item models.HistoryItem
}

// Reconciler is the only component that mutates the history collection.
// Append, Pull and Clear are serialized against each other; remote calls
// never run under the lock.
type Reconciler struct {
	cfg     Config
	store   kv.Store
	archive Archiver
	log     logging.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	items []models.HistoryItem
	// gen changes on Clear so that a pull started before it is discarded.
	gen uint64
	// appended collects items appended while at least one pull is running,
	// so the pull result does not drop them.
	pulls    int
	appended []models.HistoryItem

	inflight atomic.Int32

	qmu     sync.RWMutex
	closed  bool
	queue   chan writeJob
	workers sync.WaitGroup
}

func New(store kv.Store, archive Archiver, cfg Config, log logging.Logger, m *metrics.Metrics) *Reconciler {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logging.Nop()
	}

	r := &Reconciler{
		cfg:     cfg,
		store:   store,
		archive: archive,
		log:     log.With("component", "history"),
		metrics: m,
		items:   []models.HistoryItem{},
		queue:   make(chan writeJob, cfg.QueueSize),
	}

	for range cfg.Workers {
		r.workers.Add(1)
		go r.worker()
	}
	return r
}

// Limit is the retention bound of the collection.
func (r *Reconciler) Limit() int {
	return r.cfg.Limit
}

// Load replaces the in-memory collection with the locally persisted one.
// An unreadable payload is logged and treated as empty.
func (r *Reconciler) Load(ctx context.Context) error {
	raw, err := r.store.Get(ctx, kv.KeyHistory)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	items := []models.HistoryItem{}
	if raw != nil {
		if err := json.Unmarshal(raw, &items); err != nil {
			r.log.Warn(ctx, "persisted history unreadable, starting empty", "error", err)
			items = []models.HistoryItem{}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = models.Normalize(items, r.cfg.Limit)
	r.metrics.HistorySize(len(r.items))
	return nil
}

// Items returns a snapshot, newest first.
func (r *Reconciler) Items() []models.HistoryItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.HistoryItem, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *Reconciler) Get(id string) (models.HistoryItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ID == id {
			return it, true
		}
	}
	return models.HistoryItem{}, false
}

// Syncing reports whether a pull or a remote write is pending.
func (r *Reconciler) Syncing() bool {
	return r.inflight.Load() > 0
}

// Append adds item to the collection and persists it before returning.
// With a non-zero credential the item is also queued for the remote
// archive; that write is attempted once and never reported back.
func (r *Reconciler) Append(ctx context.Context, cred models.Credential, item models.HistoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]models.HistoryItem, 0, len(r.items)+1)
	next = append(next, item)
	next = append(next, r.items...)
	next = models.Normalize(next, r.cfg.Limit, item.ID)

	if err := r.persist(ctx, next); err != nil {
		return err
	}
	r.items = next
	r.metrics.HistorySize(len(next))

	if r.pulls > 0 {
		r.appended = append(r.appended, item)
	}

	if !cred.IsZero() {
		r.enqueue(ctx, writeJob{cred: cred, item: item})
	}
	return nil
}

// Epoch identifies the current history scope. Clear starts a new one.
func (r *Reconciler) Epoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// Pull replaces the collection with the remote archive's content when the
// archive returns at least one record. An empty result leaves the
// collection untouched; it may mean an empty archive or a failed read.
//
// The pull is bound to the scope epoch was read from (see Epoch). If the
// history has been cleared since, it is dropped without touching the
// collection, even when it was requested before the clear and started after.
func (r *Reconciler) Pull(ctx context.Context, cred models.Credential, epoch uint64) error {
	r.inflight.Add(1)
	defer r.inflight.Add(-1)

	r.mu.Lock()
	if r.gen != epoch {
		r.mu.Unlock()
		r.metrics.Pull("discarded")
		r.log.Debug(ctx, "pull requested before clear, skipped")
		return nil
	}
	mark := len(r.appended)
	r.pulls++
	r.mu.Unlock()

	remote := r.archive.List(ctx, cred)

	r.mu.Lock()
	defer r.mu.Unlock()

	var during []models.HistoryItem
	if mark < len(r.appended) {
		during = append(during, r.appended[mark:]...)
	}
	r.pulls--
	if r.pulls == 0 {
		r.appended = nil
	}

	switch {
	case r.gen != epoch:
		r.metrics.Pull("discarded")
		r.log.Debug(ctx, "pull result discarded after clear")
		return nil
	case len(remote) == 0:
		r.metrics.Pull("unchanged")
		r.log.Debug(ctx, "remote archive empty, keeping local history")
		return nil
	}

	keep := make([]string, 0, len(during))
	for _, it := range during {
		keep = append(keep, it.ID)
	}

	next := make([]models.HistoryItem, 0, len(during)+len(remote))
	next = append(next, during...)
	next = append(next, remote...)
	next = models.Normalize(next, r.cfg.Limit, keep...)

	if err := r.persist(ctx, next); err != nil {
		return err
	}
	r.items = next
	r.metrics.HistorySize(len(next))
	r.metrics.Pull("replaced")
	r.log.Info(ctx, "history replaced from remote archive", "items", len(next))
	return nil
}

// Clear empties the collection and its local copy. The remote archive is
// not touched.
func (r *Reconciler) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	r.appended = nil
	r.items = []models.HistoryItem{}
	r.metrics.HistorySize(0)

	if err := r.store.Delete(ctx, kv.KeyHistory); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Close stops accepting remote writes and waits for queued ones to finish.
func (r *Reconciler) Close() {
	r.qmu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.qmu.Unlock()
	r.workers.Wait()
}

func (r *Reconciler) persist(ctx context.Context, items []models.HistoryItem) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := r.store.Set(ctx, kv.KeyHistory, b); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}
