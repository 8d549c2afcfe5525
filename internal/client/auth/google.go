package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"github.com/dmitrijs2005/contentiq/internal/netx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// DeviceCode is what the user needs to approve a device-flow login.
type DeviceCode struct {
	VerificationURL string
	UserCode        string
	Expiry          time.Time
}

type GoogleOptions struct {
	ClientID     string
	ClientSecret string
	// Endpoint overrides google.Endpoint.
	Endpoint oauth2.Endpoint
	// UserinfoEndpoint overrides the base URL of the userinfo API.
	UserinfoEndpoint string
	RevokeURL        string
	HTTPClient       *http.Client
	// Notify is called once the device code is known. Login blocks until the
	// user approves or the code expires.
	Notify func(DeviceCode)
}

type GoogleProvider struct {
	opts GoogleOptions
}

func NewGoogleProvider(opts GoogleOptions) *GoogleProvider {
	if opts.Endpoint.TokenURL == "" {
		opts.Endpoint = google.Endpoint
	}
	if opts.RevokeURL == "" {
		opts.RevokeURL = DefaultRevokeURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Notify == nil {
		opts.Notify = func(DeviceCode) {}
	}
	return &GoogleProvider{opts: opts}
}

func (p *GoogleProvider) httpCtx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.opts.HTTPClient)
}

// RequestToken runs the device authorization flow for scopes. prompt is
// passed through as the OAuth prompt parameter when set.
func (p *GoogleProvider) RequestToken(ctx context.Context, scopes []string, prompt string) (models.Credential, error) {
	conf := &oauth2.Config{
		ClientID:     p.opts.ClientID,
		ClientSecret: p.opts.ClientSecret,
		Endpoint:     p.opts.Endpoint,
		Scopes:       scopes,
	}

	var authOpts []oauth2.AuthCodeOption
	if prompt != "" {
		authOpts = append(authOpts, oauth2.SetAuthURLParam("prompt", prompt))
	}

	ctx = p.httpCtx(ctx)
	da, err := conf.DeviceAuth(ctx, authOpts...)
	if err != nil {
		return models.Credential{}, fmt.Errorf("device authorization: %w", err)
	}

	verify := da.VerificationURIComplete
	if verify == "" {
		verify = da.VerificationURI
	}
	p.opts.Notify(DeviceCode{VerificationURL: verify, UserCode: da.UserCode, Expiry: da.Expiry})

	tok, err := conf.DeviceAccessToken(ctx, da)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && (re.ErrorCode == "access_denied" || re.ErrorCode == "expired_token") {
			return models.Credential{}, fmt.Errorf("%w: %s", ErrConsentDenied, re.ErrorCode)
		}
		return models.Credential{}, fmt.Errorf("device token: %w", err)
	}
	if tok.AccessToken == "" {
		return models.Credential{}, errors.New("device token: empty access token")
	}

	return models.NewCredential(tok.AccessToken), nil
}

// FetchProfile reads name, email and picture of the token's owner.
func (p *GoogleProvider) FetchProfile(ctx context.Context, cred models.Credential) (models.Profile, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.Token, TokenType: "Bearer"})

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(p.httpCtx(ctx), ts))}
	if p.opts.UserinfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.opts.UserinfoEndpoint))
	}

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return models.Profile{}, fmt.Errorf("userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return models.Profile{}, fmt.Errorf("userinfo: %w", err)
	}

	return models.Profile{Name: info.Name, Email: info.Email, PictureURL: info.Picture}, nil
}

// Revoke invalidates a live token. Simulated and empty credentials are
// ignored.
func (p *GoogleProvider) Revoke(ctx context.Context, cred models.Credential) error {
	if !cred.IsLive() {
		return nil
	}
	if err := netx.PostForm(ctx, p.opts.HTTPClient, p.opts.RevokeURL, url.Values{"token": {cred.Token}}); err != nil {
		return fmt.Errorf("%w: %w", ErrRevokeFailed, err)
	}
	return nil
}
