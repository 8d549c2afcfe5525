package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/contentiq/internal/client/analysis"
	"github.com/dmitrijs2005/contentiq/internal/client/archive"
	"github.com/dmitrijs2005/contentiq/internal/client/auth"
	"github.com/dmitrijs2005/contentiq/internal/client/config"
	"github.com/dmitrijs2005/contentiq/internal/client/filestore"
	"github.com/dmitrijs2005/contentiq/internal/client/history"
	"github.com/dmitrijs2005/contentiq/internal/client/metrics"
	"github.com/dmitrijs2005/contentiq/internal/client/provider"
	"github.com/dmitrijs2005/contentiq/internal/client/repositories/kv"
	"github.com/dmitrijs2005/contentiq/internal/client/session"
	"github.com/dmitrijs2005/contentiq/internal/filex"
	"github.com/dmitrijs2005/contentiq/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	store    kv.Store
	session  *session.Manager
	history  *history.Reconciler
	analysis *analysis.Orchestrator
	reader   *bufio.Reader
	out      io.Writer
}

func storePath(dir, backend string) string {
	if backend == kv.BackendBadger {
		return filepath.Join(dir, "badger")
	}
	return filepath.Join(dir, "contentiq.db")
}

func newFileStoreFactory(ctx context.Context, c *config.Config) (filestore.Factory, error) {
	if c.ArchiveBackend == "s3" {
		return filestore.NewS3Factory(ctx, filestore.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3Endpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		})
	}
	return filestore.NewDriveFactory(filestore.DriveOptions{Endpoint: c.DriveEndpoint}), nil
}

func (a *App) newCredentialProvider() session.CredentialProvider {
	if a.config.UseSimulatedAuth() {
		a.log.Info(context.Background(), "no OAuth client configured, using simulated credentials")
		return auth.NewSimulatedProvider()
	}
	return auth.NewGoogleProvider(auth.GoogleOptions{
		ClientID:     a.config.GoogleClientID,
		ClientSecret: a.config.GoogleClientSecret,
		Notify: func(dc auth.DeviceCode) {
			fmt.Fprintf(a.out, "To sign in, open %s and enter code %s\n", dc.VerificationURL, dc.UserCode)
		},
	})
}

// NewApp builds every component from c. The returned App owns the store and
// background workers; Run releases them on exit.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	dir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	store, err := kv.Open(ctx, kv.Options{Backend: c.StoreBackend, Path: storePath(dir, c.StoreBackend)})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	factory, err := newFileStoreFactory(ctx, c)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("archive backend: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if c.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, c.MetricsAddr, reg); err != nil {
				log.Error(ctx, "metrics server stopped", "error", err)
			}
		}()
	}

	arch := archive.New(factory, archive.Config{
		FolderName:        c.ArchiveFolder,
		RecordPrefix:      c.RecordPrefix,
		PageSize:          c.ListPageSize,
		FetchConcurrency:  c.FetchConcurrency,
		RequestsPerSecond: c.RemoteRPS,
	}, log, m)

	hist := history.New(store, arch, history.Config{
		Limit:     c.HistoryLimit,
		Workers:   c.SyncWorkers,
		QueueSize: c.SyncQueueSize,
	}, log, m)
	if err := hist.Load(ctx); err != nil {
		hist.Close()
		_ = store.Close()
		return nil, err
	}

	a := &App{
		config:  c,
		log:     log,
		store:   store,
		history: hist,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}

	a.session = session.NewManager(a.newCredentialProvider(), store, hist, log)

	analyzer := provider.New(provider.Options{
		BaseURL:         c.AnalysisBaseURL,
		APIKey:          c.AnalysisAPIKey,
		Model:           c.AnalysisModel,
		ImageModel:      c.ImageModel,
		HTTPClient:      &http.Client{Timeout: c.RequestTimeout},
		SearchGrounding: c.SearchGrounding,
		SearchBaseURL:   c.SearchBaseURL,
	}, log)
	a.analysis = analysis.New(analyzer, hist, a.session, log, m)

	return a, nil
}

// Run restores the previous session and blocks in the REPL until the user
// exits or input ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if u, ok := a.session.RestoreSession(ctx); ok && u.IsLoggedIn {
		fmt.Fprintf(a.out, "Welcome back, %s\n", u.Name)
	}
	fmt.Fprintln(a.out, "ContentIQ CLI (type 'help' for commands)")

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

// Close stops background work and releases the local store.
func (a *App) Close() {
	a.session.Close()
	a.history.Close()
	if err := a.store.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		a.log.Warn(context.Background(), "closing local store", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.Current().IsLoggedIn
}

// getStatus renders the prompt status: user, sync state and archive size.
func (a *App) getStatus() string {
	s := ""
	if u := a.session.Current(); u.IsLoggedIn {
		s = u.Name + " "
		if a.history.Syncing() {
			s += "syncing "
		} else {
			s += "online "
		}
	}
	return fmt.Sprintf("(%s%d/%d)", s, a.history.Len(), a.history.Limit())
}
