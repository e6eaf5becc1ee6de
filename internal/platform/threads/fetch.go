package threads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/vantagefeed/postsync/internal/models"
	"github.com/vantagefeed/postsync/internal/platform"
	"github.com/vantagefeed/postsync/internal/trace"
)

// Fetch pulls up to opts.Limit posts for the account. Unlike the Twitter
// adapter there is no auth fast-path: any non-200 after retries surfaces
// directly as the fetch error.
func (c *Client) Fetch(ctx context.Context, account models.Account, opts platform.FetchOptions) (*platform.FetchResult, error) {
	tr := trace.New()
	res := &platform.FetchResult{Trace: tr}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if opts.Since != nil {
		tr.Addf("threads fetch: user=%s limit=%d since=%s", account.UserID, limit, opts.Since.UTC().Format("2006-01-02T15:04:05Z"))
	} else {
		tr.Addf("threads fetch: user=%s limit=%d (no time filter)", account.UserID, limit)
	}

	seen := make(map[string]bool)
	var posts []models.Post
	after := ""

	for page := 1; page <= c.maxPages; page++ {
		count := limit - len(posts)
		if count > pageMax {
			count = pageMax
		}

		params := url.Values{}
		params.Set("access_token", account.Credentials.AccessToken)
		params.Set("limit", strconv.Itoa(count))
		params.Set("fields", threadFields)
		if after != "" {
			params.Set("after", after)
		}
		u := fmt.Sprintf("%s/%s/threads?%s", c.apiBase, account.UserID, params.Encode())
		tr.Addf("page %d: GET /%s/threads limit=%d after=%q", page, account.UserID, count, after)

		body, err := c.getPage(ctx, u, tr)
		if err != nil {
			res.Posts = posts
			return res, err
		}

		rawCount, pagePosts, nextCursor, newestRaw := parseThreadsPage(body, tr)
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

		// Items arrive newest-first: a full page with no raw item newer
		// than the cutoff means everything beyond it is older still. The
		// check spans excluded items, so a page of fresh replies does not
		// end pagination.
		if opts.Since != nil && !newestRaw.IsZero() && !newestRaw.After(*opts.Since) {
			tr.Addf("page %d: no item newer than cutoff, stopping", page)
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
		after = nextCursor
	}

	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	if len(posts) > limit {
		posts = posts[:limit]
	}
	tr.Addf("threads fetch done: %d posts", len(posts))
	res.Posts = posts
	return res, nil
}

func (c *Client) getPage(ctx context.Context, u string, tr *trace.Trace) ([]byte, error) {
	var body []byte
	status, err := c.policy.Do(ctx, func(attempt int) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return 0, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.usage(false)
			tr.Addf("attempt %d: transport error: %v", attempt, err)
			return 0, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			c.usage(false)
			return 0, err
		}
		c.usage(resp.StatusCode == http.StatusOK)
		if resp.StatusCode != http.StatusOK {
			tr.Addf("attempt %d: HTTP %d: %s", attempt, resp.StatusCode, trace.Snippet(b, 200))
		}
		body = b
		return resp.StatusCode, nil
	})
	if err != nil {
		return nil, fmt.Errorf("threads API: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("threads API: HTTP %d: %s", status, trace.Snippet(body, 200))
	}
	return body, nil
}
