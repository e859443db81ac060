// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/code-pulse/internal/config"
)

// ClientProvider hands out API clients authenticated for an installation.
type ClientProvider interface {
	ForInstallation(ctx context.Context, installationID int64) (*github.Client, error)
}

// NewClientProvider picks App authentication when an App ID is configured
// and falls back to the personal access token otherwise.
func NewClientProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ClientProvider, error) {
	if cfg.GitHub.AppID != 0 {
		return NewAppClientProvider(cfg.GitHub.AppID, cfg.GitHub.PrivateKeyPath, logger)
	}
	if cfg.GitHub.Token == "" {
		return nil, fmt.Errorf("no GitHub credentials configured")
	}
	logger.Info("using personal access token for GitHub API access")
	return NewStaticClientProvider(NewPATClient(ctx, cfg.GitHub.Token)), nil
}

// AppClientProvider authenticates as a GitHub App installation. Clients are
// cached per installation; their transports renew the installation token
// before it expires.
type AppClientProvider struct {
	appID      int64
	privateKey []byte
	logger     *slog.Logger

	mu      sync.Mutex
	clients map[int64]*github.Client
}

// NewAppClientProvider loads the App's private key.
func NewAppClientProvider(appID int64, privateKeyPath string, logger *slog.Logger) (*AppClientProvider, error) {
	privateKey, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", privateKeyPath, err)
	}
	return &AppClientProvider{
		appID:      appID,
		privateKey: privateKey,
		logger:     logger,
		clients:    make(map[int64]*github.Client),
	}, nil
}

// ForInstallation returns the client of an installation.
func (p *AppClientProvider) ForInstallation(_ context.Context, installationID int64) (*github.Client, error) {
	if installationID == 0 {
		return nil, fmt.Errorf("installation ID is required for GitHub App authentication")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[installationID]; ok {
		return c, nil
	}

	transport, err := ghinstallation.New(http.DefaultTransport, p.appID, installationID, p.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation transport for installation ID %d: %w", installationID, err)
	}
	c := github.NewClient(&http.Client{Transport: transport})
	p.clients[installationID] = c

	p.logger.Info("created GitHub installation client", "installation_id", installationID)
	return c, nil
}

// StaticClientProvider returns the same client for every installation.
type StaticClientProvider struct {
	client *github.Client
}

func NewStaticClientProvider(client *github.Client) *StaticClientProvider {
	return &StaticClientProvider{client: client}
}

func (p *StaticClientProvider) ForInstallation(context.Context, int64) (*github.Client, error) {
	return p.client, nil
}

// NewPATClient creates a new GitHub client authenticated with a Personal Access Token (PAT).
// This is useful for CLI tools or local development where an App installation is not available.
func NewPATClient(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return github.NewClient(oauth2.NewClient(ctx, ts))
}
