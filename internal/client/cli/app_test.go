package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/contentiq/internal/client/analysis"
	"github.com/dmitrijs2005/contentiq/internal/client/auth"
	"github.com/dmitrijs2005/contentiq/internal/client/config"
	"github.com/dmitrijs2005/contentiq/internal/client/history"
	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"github.com/dmitrijs2005/contentiq/internal/client/provider"
	"github.com/dmitrijs2005/contentiq/internal/client/repositories/kv"
	"github.com/dmitrijs2005/contentiq/internal/client/session"
	"github.com/dmitrijs2005/contentiq/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopArchive struct{}

func (nopArchive) Write(context.Context, models.Credential, models.HistoryItem) {}
func (nopArchive) List(context.Context, models.Credential) []models.HistoryItem {
	return nil
}

type stubAnalyzer struct {
	kind         models.Kind
	payload      provider.Payload
	instructions string
	err          error
}

func (s *stubAnalyzer) Analyze(_ context.Context, kind models.Kind, p provider.Payload, instructions string) (models.AnalysisResult, error) {
	s.kind, s.payload, s.instructions = kind, p, instructions
	if s.err != nil {
		return models.AnalysisResult{}, s.err
	}
	return models.AnalysisResult{
		Summary: "Solid work.",
		Title:   "Report",
		Tags:    []string{"go", "cli"},
		Scores:  models.Scores{Overall: 80},
	}, nil
}

func newTestApp(t *testing.T, input string, an analysis.Analyzer) (*App, *bytes.Buffer) {
	t.Helper()

	store, err := kv.OpenBadger("")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()

	log := logging.Nop()
	hist := history.New(store, nopArchive{}, history.Config{}, log, nil)
	sess := session.NewManager(auth.NewSimulatedProvider(), store, hist, log)

	var out bytes.Buffer
	a := &App{
		config:   cfg,
		log:      log,
		store:    store,
		session:  sess,
		history:  hist,
		analysis: analysis.New(an, hist, sess, log, nil),
		reader:   bufio.NewReader(strings.NewReader(input)),
		out:      &out,
	}
	t.Cleanup(a.Close)
	return a, &out
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestApp_LoginStatusLogout(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp(t, "", &stubAnalyzer{})

	assert.Equal(t, "(0/50)", a.getStatus())

	require.NoError(t, a.Login(ctx))
	a.session.Wait()
	assert.True(t, a.isLoggedIn())
	assert.Contains(t, out.String(), "Logged in as Demo Creator")
	assert.Contains(t, out.String(), "Simulated credential")
	assert.Equal(t, "(Demo Creator online 0/50)", a.getStatus())

	out.Reset()
	require.NoError(t, a.Login(ctx))
	assert.Contains(t, out.String(), "Already logged in")

	out.Reset()
	require.NoError(t, a.Status(ctx))
	assert.Contains(t, out.String(), "credential(simulated)")
	assert.Contains(t, out.String(), "Sync:       online")

	require.NoError(t, a.Logout(ctx))
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, "(0/50)", a.getStatus())
}

func TestApp_AnalyzeHistoryShow(t *testing.T) {
	ctx := context.Background()
	an := &stubAnalyzer{}
	a, out := newTestApp(t, "", an)

	require.NoError(t, a.Analyze(ctx, models.KindYouTube, []string{"https://youtu.be/dQw4w9WgXcQ"}))
	assert.Equal(t, models.KindYouTube, an.kind)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", an.payload.Text)
	assert.Contains(t, out.String(), "== Report ==")
	assert.Contains(t, out.String(), "tags: go, cli")
	require.Equal(t, 1, a.history.Len())

	out.Reset()
	require.NoError(t, a.History(ctx))
	assert.Contains(t, out.String(), "Report")

	id := a.history.Items()[0].ID
	out.Reset()
	require.NoError(t, a.Show(ctx, id[:8]))
	assert.Contains(t, out.String(), "id: "+id)

	assert.Error(t, a.Show(ctx, "zzzz-not-an-id"))
}

func TestApp_AnalyzeFileKinds(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		a, _ := newTestApp(t, "", &stubAnalyzer{})
		err := a.Analyze(ctx, models.KindPDF, []string{filepath.Join(t.TempDir(), "nope.pdf")})
		require.ErrorIs(t, err, analysis.ErrMissingFile)
		assert.Equal(t, 0, a.history.Len())
	})

	t.Run("inline instructions", func(t *testing.T) {
		an := &stubAnalyzer{}
		a, _ := newTestApp(t, "", an)
		path := writeTemp(t, "cv.pdf", "%PDF-1.4 fake")

		require.NoError(t, a.Analyze(ctx, models.KindPDFRefine, []string{path, "make", "it", "formal"}))
		assert.Equal(t, "make it formal", an.instructions)
		assert.Equal(t, "application/pdf", an.payload.MediaType)
		assert.True(t, an.payload.IsFile())
	})

	t.Run("prompted instructions", func(t *testing.T) {
		an := &stubAnalyzer{}
		a, out := newTestApp(t, "shorter\nfriendlier\n\n", an)
		path := writeTemp(t, "doc.pdf", "%PDF-1.4 fake")

		require.NoError(t, a.Analyze(ctx, models.KindPDFRefine, []string{path}))
		assert.Equal(t, "shorter\nfriendlier", an.instructions)
		assert.Contains(t, out.String(), "How should the document be rewritten?")
	})

	t.Run("provider failure", func(t *testing.T) {
		a, _ := newTestApp(t, "", &stubAnalyzer{err: errors.New("quota")})
		err := a.Analyze(ctx, models.KindImageGen, []string{"a", "fox"})
		require.ErrorIs(t, err, analysis.ErrProvider)
		assert.Equal(t, 0, a.history.Len())
	})
}

func TestApp_ClearAsksForConfirmation(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t, "n\ny\n", &stubAnalyzer{})

	require.NoError(t, a.Analyze(ctx, models.KindYouTube, []string{"https://youtu.be/x"}))
	require.Equal(t, 1, a.history.Len())

	require.NoError(t, a.Clear(ctx))
	assert.Equal(t, 1, a.history.Len())

	require.NoError(t, a.Clear(ctx))
	assert.Equal(t, 0, a.history.Len())
}

func TestApp_SyncRequiresLogin(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp(t, "", &stubAnalyzer{})

	require.NoError(t, a.Sync(ctx))
	assert.Contains(t, out.String(), "Not logged in")

	require.NoError(t, a.Login(ctx))
	a.session.Wait()
	out.Reset()
	require.NoError(t, a.Sync(ctx))
	assert.Contains(t, out.String(), "History: 0 / 50")
}
