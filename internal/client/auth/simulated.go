package auth

import (
	"context"

	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"github.com/google/uuid"
)

// SimulatedProvider fabricates credentials locally. The archive treats
// them as a no-op, so the whole client runs without a Google account.
type SimulatedProvider struct {
	Profile models.Profile
}

func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{Profile: models.Profile{
		Name:  "Demo Creator",
		Email: "demo@contentiq.local",
	}}
}

func (p *SimulatedProvider) RequestToken(context.Context, []string, string) (models.Credential, error) {
	return models.NewCredential(models.SimulatedTokenPrefix + uuid.NewString()), nil
}

func (p *SimulatedProvider) FetchProfile(context.Context, models.Credential) (models.Profile, error) {
	return p.Profile, nil
}

func (p *SimulatedProvider) Revoke(context.Context, models.Credential) error {
	return nil
}
