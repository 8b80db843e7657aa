// Package ghclient creates go-github clients authenticated either as a GitHub
// App installation or with a static token.
package ghclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// Factory hands out clients per installation and caches their transports so
// installation tokens are reused until they expire.
type Factory struct {
	appID   int64
	key     []byte
	token   string
	baseURL string
	base    http.RoundTripper

	mu         sync.Mutex
	transports map[int64]*ghinstallation.Transport
}

// Option customises a Factory.
type Option func(*Factory)

// WithEnterpriseURL targets a GitHub Enterprise Server API, e.g.
// https://ghe.example.com/api/v3/.
func WithEnterpriseURL(baseURL string) Option {
	return func(f *Factory) { f.baseURL = baseURL }
}

// WithTransport sets the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Factory) { f.base = rt }
}

// NewAppFactory authenticates as installations of the App appID.
func NewAppFactory(appID int64, privateKey []byte, opts ...Option) *Factory {
	f := &Factory{appID: appID, key: privateKey}
	return f.apply(opts)
}

// NewTokenFactory authenticates every client with token, ignoring the
// installation id.
func NewTokenFactory(token string, opts ...Option) *Factory {
	f := &Factory{token: token}
	return f.apply(opts)
}

func (f *Factory) apply(opts []Option) *Factory {
	f.base = http.DefaultTransport
	f.transports = make(map[int64]*ghinstallation.Transport)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ForInstallation returns a client scoped to installationID.
func (f *Factory) ForInstallation(installationID int64) (*github.Client, error) {
	if f.token != "" {
		tr := &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: f.token}),
			Base:   f.base,
		}
		return f.client(&http.Client{Transport: tr})
	}
	if installationID == 0 {
		return nil, errors.New("no installation id in delivery")
	}

	tr, err := f.transport(installationID)
	if err != nil {
		return nil, err
	}
	return f.client(&http.Client{Transport: tr})
}

func (f *Factory) transport(installationID int64) (*ghinstallation.Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if tr, ok := f.transports[installationID]; ok {
		return tr, nil
	}
	tr, err := ghinstallation.New(f.base, f.appID, installationID, f.key)
	if err != nil {
		return nil, fmt.Errorf("creating installation transport: %w", err)
	}
	if f.baseURL != "" {
		tr.BaseURL = strings.TrimSuffix(f.baseURL, "/")
	}
	f.transports[installationID] = tr
	return tr, nil
}

func (f *Factory) client(hc *http.Client) (*github.Client, error) {
	client := github.NewClient(hc)
	if f.baseURL == "" {
		return client, nil
	}
	client, err := client.WithEnterpriseURLs(f.baseURL, f.baseURL)
	if err != nil {
		return nil, fmt.Errorf("configuring enterprise URL: %w", err)
	}
	return client, nil
}
