// Package twitter fetches a connected account's timeline through an
// API-gateway host. Gateway deployments are loosely documented and disagree
// on route names and payload shapes, so the adapter tries an ordered list of
// endpoint candidates and the parser runs a shape fallback chain.
package twitter

import (
	"context"
	"fmt"

	stealth "github.com/anatolykoptev/go-stealth"

	"github.com/vantagefeed/postsync/internal/models"
	"github.com/vantagefeed/postsync/internal/retry"
)

const (
	// DefaultLimit is the incremental-mode fetch cap when neither the caller
	// nor the configuration sets one.
	DefaultLimit = 20
	// pageMax is the largest result count the gateway honors per request.
	pageMax = 20

	defaultMaxPages = 10
)

// gatewayHeaderOrder keeps the auth headers first, matching what the gateway
// frontends expect.
var gatewayHeaderOrder = []string{
	"x-rapidapi-key",
	"x-rapidapi-host",
	"accept",
	"user-agent",
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// gatewayHeaders returns the two required gateway auth headers plus basics.
func gatewayHeaders(creds models.Credentials) map[string]string {
	return map[string]string{
		"x-rapidapi-key":  creds.APIKey,
		"x-rapidapi-host": creds.APIHost,
		"accept":          "application/json",
		"user-agent":      defaultUserAgent,
	}
}

// doer is the HTTP seam; tests inject fakes, production wraps the stealth
// browser client.
type doer interface {
	do(ctx context.Context, url string, headers map[string]string) (body []byte, status int, err error)
}

type stealthDoer struct {
	bc *stealth.BrowserClient
}

func (d *stealthDoer) do(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
	// Anti-fingerprint jitter
	if err := stealth.DefaultJitter.Sleep(ctx); err != nil {
		return nil, 0, err
	}
	body, _, status, err := d.bc.DoWithHeaderOrder("GET", url, headers, nil, gatewayHeaderOrder)
	return body, status, err
}

// Config holds the adapter's tunables.
type Config struct {
	// Policy is the per-endpoint retry policy. Zero value means retry.Default.
	Policy retry.Policy
	// MaxPages bounds pagination per fetch.
	MaxPages int
	// UsageHook is called after every upstream request for advisory usage
	// counting. Optional.
	UsageHook func(success bool)
}

// Client is the gateway-backed Twitter fetch adapter.
type Client struct {
	doer     doer
	policy   retry.Policy
	maxPages int
	usage    func(success bool)
}

// NewClient creates a gateway-backed adapter.
func NewClient(cfg Config) (*Client, error) {
	bc, err := stealth.NewClient(stealth.WithHeaderOrder(gatewayHeaderOrder))
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}
	return newClient(&stealthDoer{bc: bc}, cfg), nil
}

func newClient(d doer, cfg Config) *Client {
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = retry.Default()
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = defaultMaxPages
	}
	usage := cfg.UsageHook
	if usage == nil {
		usage = func(bool) {}
	}
	return &Client{doer: d, policy: cfg.Policy, maxPages: cfg.MaxPages, usage: usage}
}
