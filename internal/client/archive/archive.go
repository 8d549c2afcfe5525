// Package archive mirrors the user's history into a folder of JSON records
// on a remote file store.
//
// Every operation takes the credential explicitly. A zero or simulated
// credential turns the archive into a no-op that never reaches the store.
// Failures stay inside this package: Write logs, List returns what it could
// read.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/contentiq/internal/client/filestore"
	"github.com/dmitrijs2005/contentiq/internal/client/metrics"
	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"github.com/dmitrijs2005/contentiq/internal/logging"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultFolderName       = "ContentIQ_Archive"
	DefaultRecordPrefix     = "CIQ_LOG_"
	DefaultPageSize         = 50
	DefaultFetchConcurrency = 8
	DefaultLookupTimeout    = 30 * time.Second

	recordSuffix  = ".json"
	folderCacheSz = 16
)

type Config struct {
	FolderName       string
	RecordPrefix     string
	PageSize         int
	FetchConcurrency int
	// RequestsPerSecond paces calls to the store. Zero means unlimited.
	RequestsPerSecond float64
	// LookupTimeout bounds the shared folder lookup, which outlives the
	// caller that started it.
	LookupTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.FolderName == "" {
		c.FolderName = DefaultFolderName
	}
	if c.RecordPrefix == "" {
		c.RecordPrefix = DefaultRecordPrefix
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = DefaultFetchConcurrency
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = DefaultLookupTimeout
	}
	return c
}

type Archive struct {
	cfg     Config
	factory filestore.Factory
	log     logging.Logger
	metrics *metrics.Metrics
	limiter *rate.Limiter

	folders *lru.Cache[string, string]
	group   singleflight.Group
}

func New(factory filestore.Factory, cfg Config, log logging.Logger, m *metrics.Metrics) *Archive {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logging.Nop()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	// only fails for a non-positive size
	folders, _ := lru.New[string, string](folderCacheSz)

	return &Archive{
		cfg:     cfg,
		factory: factory,
		log:     log.With("component", "archive"),
		metrics: m,
		limiter: rate.NewLimiter(limit, max(cfg.FetchConcurrency, 1)),
		folders: folders,
	}
}

// RecordName is the remote file name for the item with the given id.
func (a *Archive) RecordName(id string) string {
	return a.cfg.RecordPrefix + id + recordSuffix
}

func (a *Archive) wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// LocateOrCreateContainer returns the id of the archive folder, creating it
// when missing. Concurrent callers within this process share one lookup; a
// second process racing the first may still create a duplicate folder.
func (a *Archive) LocateOrCreateContainer(ctx context.Context, cred models.Credential) (string, error) {
	if !cred.IsLive() {
		return "", nil
	}

	store, err := a.factory(ctx, cred)
	if err != nil {
		return "", fmt.Errorf("open file store: %w", err)
	}
	return a.container(ctx, cred, store)
}

func (a *Archive) container(ctx context.Context, cred models.Credential, store filestore.FileStore) (string, error) {
	if id, ok := a.folders.Get(cred.Token); ok {
		return id, nil
	}

	// Every caller waiting on the flight shares its result, so it must not
	// die with the context of whichever caller happened to start it.
	flight := a.group.DoChan(cred.Token, func() (any, error) {
		if id, ok := a.folders.Get(cred.Token); ok {
			return id, nil
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.LookupTimeout)
		defer cancel()

		if err := a.wait(ctx); err != nil {
			return "", err
		}
		id, found, err := store.FindFolder(ctx, a.cfg.FolderName)
		a.metrics.ArchiveOp("find_folder", err)
		if err != nil {
			return "", fmt.Errorf("find folder: %w", err)
		}

		if !found {
			if err := a.wait(ctx); err != nil {
				return "", err
			}
			id, err = store.CreateFolder(ctx, a.cfg.FolderName)
			a.metrics.ArchiveOp("create_folder", err)
			if err != nil {
				return "", fmt.Errorf("create folder: %w", err)
			}
			a.log.Info(ctx, "archive folder created", "folder_id", id)
		}

		a.folders.Add(cred.Token, id)
		return id, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Write uploads item as a new record. Errors are logged and counted, never
// returned.
func (a *Archive) Write(ctx context.Context, cred models.Credential, item models.HistoryItem) {
	if !cred.IsLive() {
		return
	}

	if err := a.write(ctx, cred, item); err != nil {
		a.metrics.ArchiveOp("write", err)
		a.log.Warn(ctx, "remote write failed", "op", "write", "item_id", item.ID, "error", err)
		return
	}
	a.metrics.ArchiveOp("write", nil)
	a.log.Debug(ctx, "record archived", "item_id", item.ID)
}

func (a *Archive) write(ctx context.Context, cred models.Credential, item models.HistoryItem) error {
	store, err := a.factory(ctx, cred)
	if err != nil {
		return fmt.Errorf("open file store: %w", err)
	}

	folderID, err := a.container(ctx, cred, store)
	if err != nil {
		return err
	}

	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}

	if err := a.wait(ctx); err != nil {
		return err
	}
	if err := store.CreateFile(ctx, folderID, a.RecordName(item.ID), body); err != nil {
		a.forget(cred, err)
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// List reads every record in the archive folder, newest first. Records that
// cannot be fetched or parsed are skipped; any failure before the fan-out
// yields an empty result.
func (a *Archive) List(ctx context.Context, cred models.Credential) []models.HistoryItem {
	if !cred.IsLive() {
		return []models.HistoryItem{}
	}

	items, err := a.list(ctx, cred)
	a.metrics.ArchiveOp("list", err)
	if err != nil {
		a.log.Warn(ctx, "remote list failed", "op", "list", "error", err)
		return []models.HistoryItem{}
	}
	return items
}

func (a *Archive) list(ctx context.Context, cred models.Credential) ([]models.HistoryItem, error) {
	store, err := a.factory(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("open file store: %w", err)
	}

	folderID, err := a.container(ctx, cred, store)
	if err != nil {
		return nil, err
	}

	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	refs, err := store.ListFiles(ctx, folderID, a.cfg.PageSize)
	if err != nil {
		a.forget(cred, err)
		return nil, fmt.Errorf("list records: %w", err)
	}

	records := make([]filestore.FileRef, 0, len(refs))
	for _, r := range refs {
		if strings.HasPrefix(r.Name, a.cfg.RecordPrefix) {
			records = append(records, r)
		}
	}

	// Each slot is written by exactly one goroutine.
	fetched := make([]*models.HistoryItem, len(records))

	g := new(errgroup.Group)
	g.SetLimit(a.cfg.FetchConcurrency)
	for i, ref := range records {
		g.Go(func() error {
			item, err := a.fetch(ctx, store, ref)
			if err != nil {
				a.log.Debug(ctx, "record skipped", "file_id", ref.ID, "name", ref.Name, "error", err)
				return nil
			}
			fetched[i] = item
			return nil
		})
	}
	_ = g.Wait()

	items := make([]models.HistoryItem, 0, len(fetched))
	for _, it := range fetched {
		if it != nil {
			items = append(items, *it)
		}
	}
	models.SortNewestFirst(items)
	return items, nil
}

func (a *Archive) fetch(ctx context.Context, store filestore.FileStore, ref filestore.FileRef) (*models.HistoryItem, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	body, err := store.ReadFile(ctx, ref.ID)
	if err != nil {
		return nil, err
	}

	var item models.HistoryItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if item.ID == "" {
		return nil, fmt.Errorf("decode record: missing id")
	}
	return &item, nil
}

// forget drops the cached folder id when the store reports it gone, so the
// next call looks it up again.
func (a *Archive) forget(cred models.Credential, err error) {
	if isNotFound(err) {
		a.folders.Remove(cred.Token)
	}
}
