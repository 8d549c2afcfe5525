package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/contentiq/internal/client/history"
	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"github.com/dmitrijs2005/contentiq/internal/client/repositories/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	token      string
	tokenErr   error
	profile    models.Profile
	profileErr error
	revokeErr  error

	mu        sync.Mutex
	gotPrompt string
	gotScopes []string
	revoked   []string
}

func (f *fakeProvider) RequestToken(_ context.Context, scopes []string, prompt string) (models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotScopes = scopes
	f.gotPrompt = prompt
	if f.tokenErr != nil {
		return models.Credential{}, f.tokenErr
	}
	return models.NewCredential(f.token), nil
}

func (f *fakeProvider) FetchProfile(context.Context, models.Credential) (models.Profile, error) {
	return f.profile, f.profileErr
}

func (f *fakeProvider) Revoke(_ context.Context, cred models.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, cred.Token)
	return f.revokeErr
}

type fakeSyncer struct {
	mu      sync.Mutex
	epoch   uint64
	pulls   []models.Credential
	clears  int
	pullErr error
}

func (f *fakeSyncer) Epoch() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.epoch
}

func (f *fakeSyncer) Pull(_ context.Context, cred models.Credential, _ uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls = append(f.pulls, cred)
	return f.pullErr
}

func (f *fakeSyncer) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.epoch++
	return nil
}

func (f *fakeSyncer) pullCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pulls)
}

func memStore(t *testing.T) kv.Store {
	t.Helper()
	s, err := kv.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func persistedUser(t *testing.T, s kv.Store) (models.User, bool) {
	t.Helper()
	raw, err := s.Get(context.Background(), kv.KeyUser)
	require.NoError(t, err)
	if raw == nil {
		return models.User{}, false
	}
	var u models.User
	require.NoError(t, json.Unmarshal(raw, &u))
	return u, true
}

var ada = models.Profile{Name: "Ada", Email: "ada@example.com", PictureURL: "https://pic"}

func TestManager_LoginSuccess(t *testing.T) {
	ctx := context.Background()
	store := memStore(t)
	prov := &fakeProvider{token: "ya29.live", profile: ada}
	syncer := &fakeSyncer{}
	m := NewManager(prov, store, syncer, nil)
	defer m.Close()

	u, err := m.Login(ctx)
	require.NoError(t, err)
	m.Wait()

	assert.True(t, u.IsLoggedIn)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ya29.live", m.Credential().Token)
	assert.Equal(t, u, m.Current())
	assert.Equal(t, "consent", prov.gotPrompt)
	assert.NotEmpty(t, prov.gotScopes)

	saved, ok := persistedUser(t, store)
	require.True(t, ok)
	assert.Equal(t, u, saved)

	require.Equal(t, 1, syncer.pullCount())
	assert.Equal(t, "ya29.live", syncer.pulls[0].Token)
}

func TestManager_LoginTokenFailureLeavesState(t *testing.T) {
	store := memStore(t)
	syncer := &fakeSyncer{}
	m := NewManager(&fakeProvider{tokenErr: errors.New("popup closed")}, store, syncer, nil)
	defer m.Close()

	_, err := m.Login(context.Background())
	require.ErrorIs(t, err, ErrLoginFailed)
	m.Wait()

	assert.False(t, m.Current().IsLoggedIn)
	assert.True(t, m.Credential().IsZero())
	assert.Zero(t, syncer.pullCount())
	_, ok := persistedUser(t, store)
	assert.False(t, ok)
}

func TestManager_LoginProfileFailureStartsNoPull(t *testing.T) {
	store := memStore(t)
	syncer := &fakeSyncer{}
	prov := &fakeProvider{token: "ya29.live", profileErr: errors.New("401")}
	m := NewManager(prov, store, syncer, nil)
	defer m.Close()

	_, err := m.Login(context.Background())
	require.ErrorIs(t, err, ErrProfileFailed)
	m.Wait()

	assert.Equal(t, models.LoggedOut(), m.Current())
	assert.True(t, m.Credential().IsZero())
	assert.Zero(t, syncer.pullCount())
	_, ok := persistedUser(t, store)
	assert.False(t, ok)
}

func TestManager_RestoreSession(t *testing.T) {
	ctx := context.Background()
	store := memStore(t)
	u := models.NewLoggedInUser(ada, models.NewCredential("ya29.saved"))
	raw, err := json.Marshal(u)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, kv.KeyUser, raw))

	syncer := &fakeSyncer{}
	m := NewManager(&fakeProvider{}, store, syncer, nil)
	defer m.Close()

	got, ok := m.RestoreSession(ctx)
	require.True(t, ok)
	m.Wait()

	assert.Equal(t, u, got)
	assert.Equal(t, "ya29.saved", m.Credential().Token)
	require.Equal(t, 1, syncer.pullCount())
}

func TestManager_RestoreWithoutCredentialSkipsPull(t *testing.T) {
	ctx := context.Background()
	store := memStore(t)
	raw, err := json.Marshal(models.User{Name: "Ada"})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, kv.KeyUser, raw))

	syncer := &fakeSyncer{}
	m := NewManager(&fakeProvider{}, store, syncer, nil)
	defer m.Close()

	_, ok := m.RestoreSession(ctx)
	require.True(t, ok)
	m.Wait()
	assert.Zero(t, syncer.pullCount())
}

func TestManager_RestoreFailuresMeanNoSession(t *testing.T) {
	ctx := context.Background()
	store := memStore(t)
	m := NewManager(&fakeProvider{}, store, &fakeSyncer{}, nil)
	defer m.Close()

	_, ok := m.RestoreSession(ctx)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, kv.KeyUser, []byte("{broken")))
	u, ok := m.RestoreSession(ctx)
	assert.False(t, ok)
	assert.Equal(t, models.LoggedOut(), u)
	assert.True(t, m.Credential().IsZero())
}

func TestManager_LogoutRevokesLiveCredential(t *testing.T) {
	ctx := context.Background()
	store := memStore(t)
	prov := &fakeProvider{token: "ya29.live", profile: ada, revokeErr: errors.New("network")}
	syncer := &fakeSyncer{}
	m := NewManager(prov, store, syncer, nil)
	defer m.Close()

	_, err := m.Login(ctx)
	require.NoError(t, err)
	m.Wait()
	require.NoError(t, store.Set(ctx, kv.KeyHistory, []byte("[]")))

	// revoke failure is not fatal
	require.NoError(t, m.Logout(ctx))

	assert.Equal(t, []string{"ya29.live"}, prov.revoked)
	assert.Equal(t, models.LoggedOut(), m.Current())
	assert.True(t, m.Credential().IsZero())
	assert.Equal(t, 1, syncer.clears)

	_, ok := persistedUser(t, store)
	assert.False(t, ok)
	raw, err := store.Get(ctx, kv.KeyHistory)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestManager_LogoutNeverRevokesSimulated(t *testing.T) {
	ctx := context.Background()
	prov := &fakeProvider{token: models.SimulatedTokenPrefix + "demo", profile: ada}
	m := NewManager(prov, memStore(t), &fakeSyncer{}, nil)
	defer m.Close()

	_, err := m.Login(ctx)
	require.NoError(t, err)
	m.Wait()

	require.NoError(t, m.Logout(ctx))
	assert.Empty(t, prov.revoked)
	assert.False(t, m.Current().IsLoggedIn)
}

func TestManager_Sync(t *testing.T) {
	ctx := context.Background()
	syncer := &fakeSyncer{}
	m := NewManager(&fakeProvider{token: "ya29.live", profile: ada}, memStore(t), syncer, nil)
	defer m.Close()

	require.NoError(t, m.Sync(ctx))
	assert.Zero(t, syncer.pullCount())

	_, err := m.Login(ctx)
	require.NoError(t, err)
	m.Wait()

	require.NoError(t, m.Sync(ctx))
	assert.Equal(t, 2, syncer.pullCount())
}

// countingArchive is a remote mirror that records every call.
type countingArchive struct {
	mu     sync.Mutex
	remote []models.HistoryItem
	lists  int
	writes int
}

func (a *countingArchive) Write(context.Context, models.Credential, models.HistoryItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.writes++
}

func (a *countingArchive) List(context.Context, models.Credential) []models.HistoryItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lists++
	return append([]models.HistoryItem(nil), a.remote...)
}

func (a *countingArchive) calls() (lists, writes int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lists, a.writes
}

// delayedReconciler holds every pull until release is closed.
type delayedReconciler struct {
	*history.Reconciler
	requested chan struct{}
	release   chan struct{}
	once      sync.Once
}

func (d *delayedReconciler) Pull(ctx context.Context, cred models.Credential, epoch uint64) error {
	d.once.Do(func() { close(d.requested) })
	<-d.release
	return d.Reconciler.Pull(ctx, cred, epoch)
}

func TestManager_LogoutBeforeBackgroundPullStarts(t *testing.T) {
	ctx := context.Background()
	store := memStore(t)
	arch := &countingArchive{remote: []models.HistoryItem{{ID: "remote-1", CreatedAtMillis: 1}}}
	rec := history.New(store, arch, history.Config{}, nil, nil)
	t.Cleanup(rec.Close)

	delayed := &delayedReconciler{
		Reconciler: rec,
		requested:  make(chan struct{}),
		release:    make(chan struct{}),
	}
	m := NewManager(&fakeProvider{token: "ya29.live", profile: ada}, store, delayed, nil)
	defer m.Close()

	_, err := m.Login(ctx)
	require.NoError(t, err)
	<-delayed.requested

	require.NoError(t, m.Logout(ctx))
	close(delayed.release)
	m.Wait()

	assert.Zero(t, rec.Len())
	raw, err := store.Get(ctx, kv.KeyHistory)
	require.NoError(t, err)
	assert.Nil(t, raw)

	lists, _ := arch.calls()
	assert.Zero(t, lists)
}

func TestManager_LogoutLeavesRemoteArchiveAlone(t *testing.T) {
	ctx := context.Background()
	store := memStore(t)
	arch := &countingArchive{remote: []models.HistoryItem{{ID: "remote-1", CreatedAtMillis: 1}}}
	rec := history.New(store, arch, history.Config{}, nil, nil)
	t.Cleanup(rec.Close)

	m := NewManager(&fakeProvider{token: "ya29.live", profile: ada}, store, rec, nil)
	defer m.Close()

	_, err := m.Login(ctx)
	require.NoError(t, err)
	m.Wait()
	require.Equal(t, 1, rec.Len())

	lists, writes := arch.calls()
	require.Equal(t, 1, lists)

	require.NoError(t, m.Logout(ctx))

	gotLists, gotWrites := arch.calls()
	assert.Equal(t, lists, gotLists)
	assert.Equal(t, writes, gotWrites)
	assert.Len(t, arch.remote, 1)
	assert.Zero(t, rec.Len())

	raw, err := store.Get(ctx, kv.KeyHistory)
	require.NoError(t, err)
	assert.Nil(t, raw)
}
