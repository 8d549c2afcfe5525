// Package session owns the signed-in user and the active credential.
//
// The credential is published to readers through Credential; every state
// change happens under one lock and is persisted before it becomes
// visible. A successful login or restore starts a background history pull.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/contentiq/internal/client/auth"
	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"github.com/dmitrijs2005/contentiq/internal/client/repositories/kv"
	"github.com/dmitrijs2005/contentiq/internal/logging"
)

var (
	ErrLoginFailed   = errors.New("login failed")
	ErrProfileFailed = errors.New("profile fetch failed")
)

// CredentialProvider issues, describes and revokes bearer tokens.
type CredentialProvider interface {
	RequestToken(ctx context.Context, scopes []string, prompt string) (models.Credential, error)
	FetchProfile(ctx context.Context, cred models.Credential) (models.Profile, error)
	Revoke(ctx context.Context, cred models.Credential) error
}

// Syncer is the part of the history reconciler the session drives. A pull
// is bound to the epoch read when it was requested, so a logout that
// clears the history in between cancels it.
type Syncer interface {
	Epoch() uint64
	Pull(ctx context.Context, cred models.Credential, epoch uint64) error
	Clear(ctx context.Context) error
}

type Manager struct {
	provider CredentialProvider
	store    kv.Store
	history  Syncer
	log      logging.Logger
	scopes   []string

	mu   sync.RWMutex
	user models.User
	cred models.Credential

	// base is the context background pulls run under; cancel stops them.
	base   context.Context
	cancel context.CancelFunc
	pulls  sync.WaitGroup
}

func NewManager(provider CredentialProvider, store kv.Store, history Syncer, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		provider: provider,
		store:    store,
		history:  history,
		log:      log.With("component", "session"),
		scopes:   auth.DefaultScopes,
		user:     models.LoggedOut(),
		base:     base,
		cancel:   cancel,
	}
}

// Current returns the active user, or the logged-out default.
func (m *Manager) Current() models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Credential returns the active credential; zero when logged out.
func (m *Manager) Credential() models.Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred
}

// RestoreSession loads the persisted user. A user carrying a credential
// becomes active and triggers a pull. Any failure means no session.
func (m *Manager) RestoreSession(ctx context.Context) (models.User, bool) {
	raw, err := m.store.Get(ctx, kv.KeyUser)
	if err != nil {
		m.log.Warn(ctx, "cannot read persisted user", "error", err)
		return models.LoggedOut(), false
	}
	if raw == nil {
		return models.LoggedOut(), false
	}

	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		m.log.Warn(ctx, "persisted user unreadable", "error", err)
		return models.LoggedOut(), false
	}

	m.mu.Lock()
	m.user = u
	m.cred = u.Credential()
	cred := m.cred
	epoch := m.history.Epoch()
	m.mu.Unlock()

	if !cred.IsZero() {
		m.pull(cred, epoch)
	}
	m.log.Info(ctx, "session restored", "email", u.Email, "credential", cred.String())
	return u, true
}

// Login requests a fresh credential with forced consent, fetches the
// profile and makes the new user active. On any failure the session is
// left as it was.
func (m *Manager) Login(ctx context.Context) (models.User, error) {
	cred, err := m.provider.RequestToken(ctx, m.scopes, auth.PromptConsent)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	profile, err := m.provider.FetchProfile(ctx, cred)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrProfileFailed, err)
	}

	u := models.NewLoggedInUser(profile, cred)
	raw, err := json.Marshal(u)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: encode user: %w", ErrLoginFailed, err)
	}

	m.mu.Lock()
	if err := m.store.Set(ctx, kv.KeyUser, raw); err != nil {
		m.mu.Unlock()
		return models.User{}, fmt.Errorf("%w: persist user: %w", ErrLoginFailed, err)
	}
	m.user = u
	m.cred = cred
	epoch := m.history.Epoch()
	m.mu.Unlock()

	m.log.Info(ctx, "logged in", "email", u.Email, "credential", cred.String())
	m.pull(cred, epoch)
	return u, nil
}

// Logout revokes a live credential (best effort), resets the session and
// deletes the persisted user and history. The remote archive is untouched.
func (m *Manager) Logout(ctx context.Context) error {
	if cred := m.Credential(); cred.IsLive() {
		if err := m.provider.Revoke(ctx, cred); err != nil {
			m.log.Warn(ctx, "token revocation failed", "error", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.user = models.LoggedOut()
	m.cred = models.Credential{}

	var errs []error
	if err := m.store.Delete(ctx, kv.KeyUser, kv.KeyHistory); err != nil {
		errs = append(errs, fmt.Errorf("delete persisted session: %w", err))
	}
	if err := m.history.Clear(ctx); err != nil {
		errs = append(errs, err)
	}

	m.log.Info(ctx, "logged out")
	return errors.Join(errs...)
}

// Sync re-runs a pull with the active credential and waits for it.
func (m *Manager) Sync(ctx context.Context) error {
	m.mu.RLock()
	cred := m.cred
	epoch := m.history.Epoch()
	m.mu.RUnlock()

	if cred.IsZero() {
		return nil
	}
	return m.history.Pull(ctx, cred, epoch)
}

// Wait blocks until background pulls have finished.
func (m *Manager) Wait() {
	m.pulls.Wait()
}

// Close cancels background pulls and waits for them.
func (m *Manager) Close() {
	m.cancel()
	m.pulls.Wait()
}

func (m *Manager) pull(cred models.Credential, epoch uint64) {
	m.pulls.Add(1)
	go func() {
		defer m.pulls.Done()
		if err := m.history.Pull(m.base, cred, epoch); err != nil {
			m.log.Warn(m.base, "history pull failed", "error", err)
		}
	}()
}
