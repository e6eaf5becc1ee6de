package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantagefeed/postsync/internal/config"
	"github.com/vantagefeed/postsync/internal/models"
	"github.com/vantagefeed/postsync/internal/platform"
	"github.com/vantagefeed/postsync/internal/scoring"
	"github.com/vantagefeed/postsync/internal/trace"
)

type fakeStore struct {
	accounts []models.Account
	posts    map[string]models.Post
	cursors  map[string]time.Time
	failKey  string
}

func newFakeStore(accounts ...models.Account) *fakeStore {
	return &fakeStore{
		accounts: accounts,
		posts:    map[string]models.Post{},
		cursors:  map[string]time.Time{},
	}
}

func (f *fakeStore) Accounts(context.Context) ([]models.Account, error) {
	return f.accounts, nil
}

func (f *fakeStore) UpsertPost(_ context.Context, post models.Post) error {
	if f.failKey != "" && post.Key() == f.failKey {
		return errors.New("disk full")
	}
	f.posts[post.Key()] = post
	return nil
}

func (f *fakeStore) UpdateCursor(_ context.Context, accountID string, ts time.Time) error {
	f.cursors[accountID] = ts
	return nil
}

type fakeFetcher struct {
	posts    []models.Post
	err      error
	lastOpts platform.FetchOptions
}

func (f *fakeFetcher) Fetch(_ context.Context, _ models.Account, opts platform.FetchOptions) (*platform.FetchResult, error) {
	f.lastOpts = opts
	tr := trace.New()
	tr.Addf("fetched %d posts", len(f.posts))
	return &platform.FetchResult{Posts: f.posts, Trace: tr}, f.err
}

func post(p models.Platform, id string, created time.Time) models.Post {
	return models.Post{
		Platform:       p,
		PlatformPostID: id,
		Text:           "post " + id,
		CreatedAt:      created,
		Metrics:        models.EngagementMetrics{Likes: 5},
	}
}

func account(id string, p models.Platform) models.Account {
	return models.Account{ID: id, Platform: p, Handle: "h-" + id}
}

func newService(st Store, fetchers map[models.Platform]platform.Fetcher, cfg config.SyncConfig) *Service {
	return New(st, fetchers, scoring.Score, nil, zerolog.Nop(), cfg)
}

func TestRunStoresAndScoresPosts(t *testing.T) {
	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	st := newFakeStore(account("a1", models.PlatformTwitter))
	fetchers := map[models.Platform]platform.Fetcher{
		models.PlatformTwitter: &fakeFetcher{posts: []models.Post{
			post(models.PlatformTwitter, "1", created),
			post(models.PlatformTwitter, "2", created.Add(-time.Hour)),
		}},
	}

	results, err := newService(st, fetchers, config.SyncConfig{}).Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Err)
	assert.Equal(t, 2, results[0].Fetched)
	assert.Equal(t, 2, results[0].Stored)
	assert.NotEmpty(t, results[0].Trace)

	stored := st.posts["twitter_1"]
	assert.Equal(t, scoring.Score(models.EngagementMetrics{Likes: 5}), stored.Score)
}

func TestRunIsolatesAccountFailures(t *testing.T) {
	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	st := newFakeStore(
		account("a1", models.PlatformTwitter),
		account("a2", models.PlatformThreads),
		account("a3", models.PlatformTwitter),
	)
	good := &fakeFetcher{posts: []models.Post{post(models.PlatformTwitter, "1", created)}}
	bad := &fakeFetcher{err: fmt.Errorf("threads API: HTTP 401")}

	// a2 fails; a1 and a3 share the twitter fetcher and still sync.
	results, err := newService(st, map[models.Platform]platform.Fetcher{
		models.PlatformTwitter: good,
		models.PlatformThreads: bad,
	}, config.SyncConfig{}).Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	byID := map[string]Result{}
	for _, r := range results {
		byID[r.AccountID] = r
	}
	assert.Empty(t, byID["a1"].Err)
	assert.Equal(t, 1, byID["a1"].Stored)
	assert.Contains(t, byID["a2"].Err, "HTTP 401")
	assert.NotEmpty(t, byID["a2"].Trace)
	assert.Empty(t, byID["a3"].Err)
	assert.Equal(t, 1, byID["a3"].Stored)
}

func TestRunAdvancesCursorToMaxCreatedAt(t *testing.T) {
	newest := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	st := newFakeStore(account("a1", models.PlatformTwitter))
	fetchers := map[models.Platform]platform.Fetcher{
		models.PlatformTwitter: &fakeFetcher{posts: []models.Post{
			post(models.PlatformTwitter, "1", newest),
			post(models.PlatformTwitter, "2", newest.Add(-48*time.Hour)),
		}},
	}

	svc := newService(st, fetchers, config.SyncConfig{})
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC) }

	_, err := svc.Run(context.Background(), Options{})
	require.NoError(t, err)

	// The cursor lands on the newest stored post, never on wall-clock time.
	cursor, ok := st.cursors["a1"]
	require.True(t, ok)
	assert.True(t, newest.Equal(cursor))
}

func TestRunHoldsCursorOnPartialStoreFailure(t *testing.T) {
	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	st := newFakeStore(account("a1", models.PlatformTwitter))
	st.failKey = "twitter_2"
	fetchers := map[models.Platform]platform.Fetcher{
		models.PlatformTwitter: &fakeFetcher{posts: []models.Post{
			post(models.PlatformTwitter, "1", created),
			post(models.PlatformTwitter, "2", created.Add(-time.Hour)),
		}},
	}

	results, err := newService(st, fetchers, config.SyncConfig{}).Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Stored)
	assert.Contains(t, results[0].Err, "disk full")

	_, ok := st.cursors["a1"]
	assert.False(t, ok, "cursor must not move when an upsert failed")
}

func TestRunHoldsCursorWhenNothingNew(t *testing.T) {
	cursor := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	acc := account("a1", models.PlatformTwitter)
	acc.SyncCursor = cursor
	st := newFakeStore(acc)
	fetchers := map[models.Platform]platform.Fetcher{
		models.PlatformTwitter: &fakeFetcher{},
	}

	_, err := newService(st, fetchers, config.SyncConfig{}).Run(context.Background(), Options{})
	require.NoError(t, err)
	_, ok := st.cursors["a1"]
	assert.False(t, ok)
}

func TestRunUnknownPlatform(t *testing.T) {
	st := newFakeStore(account("a1", models.Platform("myspace")))

	results, err := newService(st, map[models.Platform]platform.Fetcher{}, config.SyncConfig{}).
		Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Err, "no fetcher for platform")
}

func TestRunMissingRequestedAccount(t *testing.T) {
	st := newFakeStore(account("a1", models.PlatformTwitter))
	fetchers := map[models.Platform]platform.Fetcher{
		models.PlatformTwitter: &fakeFetcher{},
	}

	results, err := newService(st, fetchers, config.SyncConfig{}).
		Run(context.Background(), Options{AccountIDs: []string{"a1", "ghost"}})
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]Result{}
	for _, r := range results {
		byID[r.AccountID] = r
	}
	assert.Equal(t, "account not found", byID["ghost"].Err)
	assert.Empty(t, byID["a1"].Err)
}

func TestLimitResolution(t *testing.T) {
	cursorless := account("a1", models.PlatformThreads)
	fetcher := &fakeFetcher{}
	fetchers := map[models.Platform]platform.Fetcher{models.PlatformThreads: fetcher}

	// Platform default when nothing is set.
	st := newFakeStore(cursorless)
	_, err := newService(st, fetchers, config.SyncConfig{}).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 100, fetcher.lastOpts.Limit)

	// Config cap overrides the platform default.
	_, err = newService(st, fetchers, config.SyncConfig{MaxPosts: 40}).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 40, fetcher.lastOpts.Limit)

	// Per-run option wins over both.
	_, err = newService(st, fetchers, config.SyncConfig{MaxPosts: 40}).
		Run(context.Background(), Options{MaxPosts: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, fetcher.lastOpts.Limit)
}

func TestWindowResolution(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	cursor := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	acc := account("a1", models.PlatformTwitter)
	acc.SyncCursor = cursor
	fetcher := &fakeFetcher{}
	fetchers := map[models.Platform]platform.Fetcher{models.PlatformTwitter: fetcher}
	st := newFakeStore(acc)

	svc := newService(st, fetchers, config.SyncConfig{})
	svc.now = func() time.Time { return now }

	// Incremental mode uses the account cursor.
	_, err := svc.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.NotNil(t, fetcher.lastOpts.Since)
	assert.True(t, cursor.Equal(*fetcher.lastOpts.Since))

	// An explicit lookback replaces the cursor window.
	_, err = svc.Run(context.Background(), Options{LookbackDays: 7})
	require.NoError(t, err)
	require.NotNil(t, fetcher.lastOpts.Since)
	assert.True(t, now.AddDate(0, 0, -7).Equal(*fetcher.lastOpts.Since))
}
