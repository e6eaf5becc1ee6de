// Package platform defines the contract between the sync orchestrator and
// the per-network fetch adapters.
package platform

import (
	"context"
	"time"

	"github.com/vantagefeed/postsync/internal/models"
	"github.com/vantagefeed/postsync/internal/trace"
)

// FetchOptions selects the window for one account's fetch. A nil Since means
// incremental mode: no time filter, cap by count only.
type FetchOptions struct {
	Since *time.Time
	Limit int
}

// FetchResult carries the normalized posts (newest-first, deduplicated,
// truncated to the requested limit) plus the debug trace for the attempt.
type FetchResult struct {
	Posts []models.Post
	Trace *trace.Trace
}

// Fetcher is one platform's fetch adapter. Implementations return a non-nil
// FetchResult even when they return an error, so the caller always gets the
// debug trace.
type Fetcher interface {
	Fetch(ctx context.Context, account models.Account, opts FetchOptions) (*FetchResult, error)
}
