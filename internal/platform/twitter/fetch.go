package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/vantagefeed/postsync/internal/models"
	"github.com/vantagefeed/postsync/internal/platform"
	"github.com/vantagefeed/postsync/internal/trace"
)

// Fetch pulls up to opts.Limit timeline posts for the account, paginating
// with the gateway's opaque cursor. The returned result always carries the
// debug trace, including on error.
func (c *Client) Fetch(ctx context.Context, account models.Account, opts platform.FetchOptions) (*platform.FetchResult, error) {
	tr := trace.New()
	res := &platform.FetchResult{Trace: tr}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if opts.Since != nil {
		tr.Addf("twitter fetch: handle=%s limit=%d since=%s", account.Handle, limit, opts.Since.UTC().Format("2006-01-02T15:04:05Z"))
	} else {
		tr.Addf("twitter fetch: handle=%s limit=%d (no time filter)", account.Handle, limit)
	}

	seen := make(map[string]bool)
	var posts []models.Post
	cursor := ""

	for page := 1; page <= c.maxPages; page++ {
		count := limit - len(posts)
		if count > pageMax {
			count = pageMax
		}

		params := url.Values{}
		params.Set("screenname", account.Handle)
		params.Set("count", strconv.Itoa(count))
		if account.UserID != "" {
			params.Set("rest_id", account.UserID)
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		tr.Addf("page %d: params %s", page, params.Encode())

		body, err := c.fetchPage(ctx, account, params, tr)
		if err != nil {
			res.Posts = posts
			return res, err
		}

		rawCount, pagePosts, nextCursor, newestRaw := parseTimelinePage(body, account.Handle, tr)
		if rawCount == 0 {
			tr.Addf("page %d: no raw items, stopping", page)
			break
		}

		for _, p := range pagePosts {
			if opts.Since != nil && !p.CreatedAt.After(*opts.Since) {
				tr.Addf("skip %s: older than cutoff", p.PlatformPostID)
				continue
			}
			if seen[p.PlatformPostID] {
				continue
			}
			seen[p.PlatformPostID] = true
			posts = append(posts, p)
		}

		// The stop decision looks at raw timestamps, excluded items
		// included: a page of fresh replies must not end pagination.
		if opts.Since != nil && !newestRaw.IsZero() && !newestRaw.After(*opts.Since) {
			tr.Addf("page %d: entirely older than cutoff, stopping", page)
			break
		}
		if len(posts) >= limit {
			tr.Addf("reached limit %d", limit)
			break
		}
		if nextCursor == "" {
			tr.Addf("page %d: no next cursor", page)
			break
		}
		cursor = nextCursor
	}

	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	if len(posts) > limit {
		posts = posts[:limit]
	}
	tr.Addf("twitter fetch done: %d posts", len(posts))
	res.Posts = posts
	return res, nil
}

// fetchPage requests one page, walking the endpoint candidates. Server-side
// failures are retried per the policy before falling to the next candidate;
// auth failures abort immediately; other client errors mean the route name is
// wrong for this gateway and the next candidate is tried without retry.
func (c *Client) fetchPage(ctx context.Context, account models.Account, params url.Values, tr *trace.Trace) ([]byte, error) {
	headers := gatewayHeaders(account.Credentials)

	var lastErr error
	for _, endpoint := range timelineEndpoints {
		u := timelineURL(account.Credentials.APIHost, endpoint, params)

		var body []byte
		status, err := c.policy.Do(ctx, func(attempt int) (int, error) {
			b, st, derr := c.doer.do(ctx, u, headers)
			c.usage(derr == nil && st == 200)
			if derr != nil {
				tr.Addf("%s attempt %d: transport error: %v", endpoint, attempt, derr)
				return 0, derr
			}
			if st >= 500 {
				tr.Addf("%s attempt %d: HTTP %d: %s", endpoint, attempt, st, trace.Snippet(b, 200))
			}
			body = b
			return st, nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			tr.Addf("%s: giving up: %v", endpoint, err)
			lastErr = err
			continue
		}

		switch {
		case status == 200:
			tr.Addf("%s: HTTP 200 (%d bytes)", endpoint, len(body))
			return body, nil
		case status == 401 || status == 403:
			tr.Addf("%s: HTTP %d: %s", endpoint, status, trace.Snippet(body, 200))
			return nil, fmt.Errorf("%w: HTTP %d", ErrAuthFailed, status)
		default:
			tr.Addf("%s: HTTP %d, trying next endpoint: %s", endpoint, status, trace.Snippet(body, 200))
			lastErr = fmt.Errorf("%s: HTTP %d", endpoint, status)
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no endpoint candidates configured")
	}
	return nil, fmt.Errorf("all timeline endpoints failed: %w", lastErr)
}
