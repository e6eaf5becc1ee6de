package models

import "time"

// Platform identifies one of the supported social networks.
type Platform string

const (
	PlatformTwitter Platform = "twitter"
	PlatformThreads Platform = "threads"
)

// MediaType classifies a post's dominant media.
type MediaType string

const (
	MediaText  MediaType = "text"
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Credentials is the opaque per-platform credential bundle attached to an
// account. Which fields are populated depends on the platform: the Twitter
// gateway needs APIKey+APIHost, Threads needs AccessToken, and the legacy
// consumer/access pairs are carried for accounts connected before the
// gateway migration.
type Credentials struct {
	APIKey         string `json:"api_key,omitempty"`
	APIHost        string `json:"api_host,omitempty"`
	AccessToken    string `json:"access_token,omitempty"`
	AccessSecret   string `json:"access_secret,omitempty"`
	ConsumerKey    string `json:"consumer_key,omitempty"`
	ConsumerSecret string `json:"consumer_secret,omitempty"`
}

// Account is a connected social account. The sync pipeline reads accounts
// and writes only SyncCursor; everything else is owned by account management.
type Account struct {
	ID          string   `json:"id"`
	Platform    Platform `json:"platform"`
	Handle      string   `json:"handle"`
	DisplayName string   `json:"display_name,omitempty"`
	// UserID is the platform-native numeric user id, when known.
	// Stored as a string because both networks use 64-bit ids.
	UserID string `json:"user_id,omitempty"`
	// Credentials never leave the process through serialized output.
	Credentials Credentials `json:"-"`
	// SyncCursor marks the newest post already ingested, UTC.
	// Zero means the account has never been synced.
	SyncCursor time.Time `json:"sync_cursor"`
}

// EngagementMetrics is the per-post engagement bundle. Impressions, Quotes
// and Clicks are pointers because not every platform (or every payload shape)
// reports them.
type EngagementMetrics struct {
	Impressions *int `json:"impressions"`
	Likes       int  `json:"likes"`
	Replies     int  `json:"replies"`
	Reposts     int  `json:"reposts"`
	Quotes      *int `json:"quotes,omitempty"`
	Clicks      *int `json:"clicks,omitempty"`
}

// Post is the canonical, platform-agnostic post record produced by the
// normalizers and consumed by scoring and storage.
type Post struct {
	Platform       Platform
	PlatformPostID string
	Text           string
	CreatedAt      time.Time
	MediaType      MediaType
	HasURL         bool
	Metrics        EngagementMetrics
	// Raw is the source payload for this post as returned by the API,
	// kept for auditing.
	Raw       []byte
	Permalink string
	Score     float64
}

// Key returns the storage identity {platform}_{platform_post_id}.
func (p Post) Key() string {
	return string(p.Platform) + "_" + p.PlatformPostID
}

// IntPtr is a convenience for building optional metric values.
func IntPtr(v int) *int { return &v }
