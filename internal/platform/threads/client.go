// Package threads fetches a connected account's posts from the Threads graph
// surface. Pagination uses the `after` cursor; the next-page cursor may
// arrive as a structured field or embedded in a full next-page URL.
package threads

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/vantagefeed/postsync/internal/retry"
)

const (
	// DefaultLimit is the incremental-mode fetch cap for Threads accounts.
	DefaultLimit = 100
	// pageMax is the largest limit the graph API accepts per page.
	pageMax = 100

	defaultMaxPages = 10
	defaultAPIBase  = "https://graph.threads.net/v1.0"
)

// threadFields is the requested field list: identity, content, reply
// indicators, engagement counters, and nested insight metrics.
var threadFields = strings.Join([]string{
	"id",
	"text",
	"timestamp",
	"media_type",
	"permalink",
	"shortcode",
	"link_attachment_url",
	"is_quote_post",
	"is_reply",
	"replied_to",
	"like_count",
	"reply_count",
	"repost_count",
	"quote_count",
	"insights.metric(views,likes,replies,reposts,quotes)",
}, ",")

// Config holds the adapter's tunables.
type Config struct {
	// APIBase overrides the graph API base URL; tests point it at a local
	// server.
	APIBase string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// Policy is the retry policy shared with the Twitter adapter.
	Policy retry.Policy
	// MaxPages bounds pagination per fetch.
	MaxPages int
	// UsageHook is called after every upstream request for advisory usage
	// counting. Optional.
	UsageHook func(success bool)
}

// Client is the Threads graph API fetch adapter.
type Client struct {
	httpClient *http.Client
	apiBase    string
	policy     retry.Policy
	maxPages   int
	usage      func(success bool)
}

func NewClient(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
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
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiBase:  strings.TrimRight(cfg.APIBase, "/"),
		policy:   cfg.Policy,
		maxPages: cfg.MaxPages,
		usage:    usage,
	}
}
