// Package syncer orchestrates one sync run across all connected accounts:
// fetch, score, store, advance cursor. Accounts are isolated from each other,
// so one failing account never blocks the rest of the run.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vantagefeed/postsync/internal/config"
	"github.com/vantagefeed/postsync/internal/metrics"
	"github.com/vantagefeed/postsync/internal/models"
	"github.com/vantagefeed/postsync/internal/platform"
)

// Store is the persistence surface the orchestrator needs.
type Store interface {
	Accounts(ctx context.Context) ([]models.Account, error)
	UpsertPost(ctx context.Context, post models.Post) error
	UpdateCursor(ctx context.Context, accountID string, ts time.Time) error
}

// ScoreFunc computes the engagement score stored with each post.
type ScoreFunc func(models.EngagementMetrics) float64

// Options narrows one run. Zero values defer to the configured defaults.
type Options struct {
	// AccountIDs restricts the run to the named accounts. Empty means all.
	AccountIDs []string
	// LookbackDays overrides the configured backfill window for this run.
	LookbackDays int
	// MaxPosts overrides the configured per-account fetch cap for this run.
	MaxPosts int
}

// Result reports the outcome for one account. Err is a string so results
// serialize cleanly for CLI output.
type Result struct {
	AccountID   string          `json:"account_id"`
	Handle      string          `json:"handle"`
	DisplayName string          `json:"display_name,omitempty"`
	Platform    models.Platform `json:"platform"`
	Fetched     int             `json:"fetched"`
	Stored      int             `json:"stored"`
	Err         string          `json:"error,omitempty"`
	Trace       []string        `json:"trace,omitempty"`
}

type Service struct {
	store    Store
	fetchers map[models.Platform]platform.Fetcher
	score    ScoreFunc
	recorder metrics.Recorder
	log      zerolog.Logger
	cfg      config.SyncConfig
	now      func() time.Time
}

// platformLimit is each platform's per-run fetch cap when neither the caller
// nor the config sets one.
var platformLimit = map[models.Platform]int{
	models.PlatformTwitter: 20,
	models.PlatformThreads: 100,
}

func New(store Store, fetchers map[models.Platform]platform.Fetcher, score ScoreFunc,
	recorder metrics.Recorder, log zerolog.Logger, cfg config.SyncConfig) *Service {
	if recorder == nil {
		recorder = metrics.Noop()
	}
	return &Service{
		store:    store,
		fetchers: fetchers,
		score:    score,
		recorder: recorder,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run performs one sync pass. It always returns one Result per selected
// account; per-account failures are recorded in the result, not returned.
// The returned error covers run-level failures only, such as being unable to
// list accounts at all.
func (s *Service) Run(ctx context.Context, opts Options) ([]Result, error) {
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts, missing := selectAccounts(accounts, opts.AccountIDs)

	results := make([]Result, 0, len(accounts)+len(missing))
	for _, id := range missing {
		results = append(results, Result{
			AccountID: id,
			Err:       "account not found",
		})
	}

	for _, acc := range accounts {
		res := s.syncAccount(ctx, acc, opts)
		if res.Err != "" {
			s.recorder.IncAccountErrors(string(acc.Platform))
			s.log.Error().
				Str("account", acc.ID).
				Str("platform", string(acc.Platform)).
				Str("error", res.Err).
				Msg("account sync failed")
		} else {
			s.log.Info().
				Str("account", acc.ID).
				Str("platform", string(acc.Platform)).
				Int("fetched", res.Fetched).
				Int("stored", res.Stored).
				Msg("account synced")
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) syncAccount(ctx context.Context, acc models.Account, opts Options) Result {
	res := Result{
		AccountID:   acc.ID,
		Handle:      acc.Handle,
		DisplayName: acc.DisplayName,
		Platform:    acc.Platform,
	}

	fetcher, ok := s.fetchers[acc.Platform]
	if !ok {
		res.Err = fmt.Sprintf("no fetcher for platform %q", acc.Platform)
		return res
	}

	fetchOpts := platform.FetchOptions{
		Since: s.sinceFor(acc, opts),
		Limit: s.limitFor(acc.Platform, opts),
	}

	fetched, err := fetcher.Fetch(ctx, acc, fetchOpts)
	if fetched != nil && fetched.Trace != nil {
		res.Trace = fetched.Trace.Lines()
	}
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.Fetched = len(fetched.Posts)

	var (
		maxCreated time.Time
		allStored  = true
	)
	for _, post := range fetched.Posts {
		post.Score = s.score(post.Metrics)
		if err := s.store.UpsertPost(ctx, post); err != nil {
			allStored = false
			res.Err = fmt.Sprintf("store post %s: %s", post.Key(), err)
			s.log.Warn().
				Str("account", acc.ID).
				Str("post", post.Key()).
				Err(err).
				Msg("upsert failed")
			continue
		}
		res.Stored++
		if post.CreatedAt.After(maxCreated) {
			maxCreated = post.CreatedAt
		}
	}
	s.recorder.IncPostsStored(string(acc.Platform), res.Stored)

	// The cursor tracks content actually persisted. It only moves when every
	// post landed, so a partially failed page is re-fetched next run.
	if allStored && maxCreated.After(acc.SyncCursor) {
		if err := s.store.UpdateCursor(ctx, acc.ID, maxCreated); err != nil {
			res.Err = fmt.Sprintf("advance cursor: %s", err)
		}
	}
	return res
}

// sinceFor resolves the fetch window: an explicit lookback wins, then the
// configured backfill window, then the account's own cursor.
func (s *Service) sinceFor(acc models.Account, opts Options) *time.Time {
	days := opts.LookbackDays
	if days == 0 {
		days = s.cfg.LookbackDays
	}
	if days > 0 {
		since := s.now().AddDate(0, 0, -days)
		return &since
	}
	if !acc.SyncCursor.IsZero() {
		since := acc.SyncCursor
		return &since
	}
	return nil
}

func (s *Service) limitFor(p models.Platform, opts Options) int {
	if opts.MaxPosts > 0 {
		return opts.MaxPosts
	}
	if s.cfg.MaxPosts > 0 {
		return s.cfg.MaxPosts
	}
	return platformLimit[p]
}

func selectAccounts(accounts []models.Account, ids []string) ([]models.Account, []string) {
	if len(ids) == 0 {
		return accounts, nil
	}
	byID := make(map[string]models.Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ID] = acc
	}
	var (
		selected []models.Account
		missing  []string
	)
	for _, id := range ids {
		if acc, ok := byID[id]; ok {
			selected = append(selected, acc)
		} else {
			missing = append(missing, id)
		}
	}
	return selected, missing
}
