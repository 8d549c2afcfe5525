// Package analysis runs one analysis end to end: validate the input, call
// the provider, wrap the report into a history item and hand it to the
// history reconciler.
package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/contentiq/internal/client/metrics"
	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"github.com/dmitrijs2005/contentiq/internal/client/provider"
	"github.com/dmitrijs2005/contentiq/internal/logging"
	"github.com/go-playground/validator/v10"
)

// Analyzer is the external analysis capability.
type Analyzer interface {
	Analyze(ctx context.Context, kind models.Kind, payload provider.Payload, instructions string) (models.AnalysisResult, error)
}

type Appender interface {
	Append(ctx context.Context, cred models.Credential, item models.HistoryItem) error
}

// CredentialSource yields the credential active at call time.
type CredentialSource interface {
	Credential() models.Credential
}

// File is an uploaded document. MediaType is guessed from Name or the
// content when empty.
type File struct {
	Name      string
	MediaType string
	Content   io.Reader
}

type Request struct {
	Kind         models.Kind `validate:"required"`
	Text         string      `validate:"required_if=Kind youtube,required_if=Kind image_gen"`
	File         *File       `validate:"required_if=Kind pdf,required_if=Kind resume,required_if=Kind pdf_refine"`
	Instructions string
}

type Orchestrator struct {
	analyzer Analyzer
	history  Appender
	creds    CredentialSource
	log      logging.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate

	now func() time.Time
}

func New(analyzer Analyzer, history Appender, creds CredentialSource, log logging.Logger, m *metrics.Metrics) *Orchestrator {
	if log == nil {
		log = logging.Nop()
	}
	return &Orchestrator{
		analyzer: analyzer,
		history:  history,
		creds:    creds,
		log:      log.With("component", "analysis"),
		metrics:  m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Run analyses req and records the outcome in history. Nothing is stored
// when validation or the provider fails.
func (o *Orchestrator) Run(ctx context.Context, req Request) (models.HistoryItem, error) {
	kind, err := models.ParseKind(string(req.Kind))
	if err != nil {
		return models.HistoryItem{}, fmt.Errorf("%w %q, want one of %v", err, req.Kind, models.Kinds())
	}
	req.Kind = kind
	req.Text = strings.TrimSpace(req.Text)

	if err := o.check(req); err != nil {
		return models.HistoryItem{}, err
	}

	payload := provider.Payload{Text: req.Text}
	if req.Kind.NeedsFile() {
		p, err := encodeFile(req.File)
		if err != nil {
			return models.HistoryItem{}, err
		}
		payload = p
	}

	started := o.now()
	result, err := o.analyzer.Analyze(ctx, req.Kind, payload, req.Instructions)
	o.metrics.Analysis(string(req.Kind), err)
	if err != nil {
		o.log.Warn(ctx, "analysis failed", "kind", req.Kind, "error", err)
		return models.HistoryItem{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	now := o.now()
	item := models.NewHistoryItem(req.Kind, itemTitle(req, result, now), itemThumbnail(result), result, now)
	o.log.Info(ctx, "analysis complete", "kind", req.Kind, "item_id", item.ID, "elapsed", now.Sub(started))

	if err := o.history.Append(ctx, o.creds.Credential(), item); err != nil {
		return item, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return item, nil
}

func (o *Orchestrator) check(req Request) error {
	err := o.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "File":
			return ErrMissingFile
		case "Text":
			return ErrMissingInput
		}
	}
	return fmt.Errorf("invalid request: %w", err)
}

func encodeFile(f *File) (provider.Payload, error) {
	if f.Content == nil {
		return provider.Payload{}, ErrMissingFile
	}
	data, err := io.ReadAll(f.Content)
	if err != nil {
		return provider.Payload{}, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if len(data) == 0 {
		return provider.Payload{}, ErrMissingFile
	}

	return provider.Payload{
		Data:      base64.StdEncoding.EncodeToString(data),
		MediaType: mediaType(f, data),
	}, nil
}

func mediaType(f *File, data []byte) string {
	if f.MediaType != "" {
		return f.MediaType
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name))); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
		return t
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

const promptTitleLen = 15

func itemTitle(req Request, r models.AnalysisResult, now time.Time) string {
	if req.Kind == models.KindImageGen {
		prompt := []rune(req.Text)
		if len(prompt) > promptTitleLen {
			prompt = prompt[:promptTitleLen]
		}
		return "Art: " + string(prompt) + "..."
	}
	if r.Title != "" {
		return r.Title
	}
	return "Scan " + now.Format(time.TimeOnly)
}

func itemThumbnail(r models.AnalysisResult) string {
	if r.ThumbnailURL != "" {
		return r.ThumbnailURL
	}
	return r.GeneratedImageURL
}
