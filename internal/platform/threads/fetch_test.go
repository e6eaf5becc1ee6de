package threads

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vantagefeed/postsync/internal/models"
	"github.com/vantagefeed/postsync/internal/platform"
	"github.com/vantagefeed/postsync/internal/retry"
)

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		RetryStatus: func(status int) bool { return status >= 500 },
	}
}

func testAccount() models.Account {
	return models.Account{
		ID:          "acc-2",
		Platform:    models.PlatformThreads,
		Handle:      "acme",
		UserID:      "777",
		Credentials: models.Credentials{AccessToken: "tok"},
	}
}

func item(id, ts string) string {
	return fmt.Sprintf(`{"id":%q,"text":"post %s","timestamp":%q,"media_type":"TEXT_POST"}`, id, id, ts)
}

func TestFetchPaginates(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.String())
		if r.URL.Query().Get("access_token") != "tok" {
			t.Errorf("missing access token in %s", r.URL)
		}
		if r.URL.Query().Get("after") == "" {
			fmt.Fprintf(w, `{"data":[%s],"paging":{"cursors":{"after":"aft-1"}}}`,
				item("1", "2024-03-02T12:00:00+0000"))
			return
		}
		fmt.Fprintf(w, `{"data":[%s]}`, item("2", "2024-03-01T12:00:00+0000"))
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, Policy: fastPolicy()})
	res, err := c.Fetch(context.Background(), testAccount(), platform.FetchOptions{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(res.Posts))
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
	if !strings.Contains(requests[0], "/777/threads") {
		t.Fatalf("expected user id in path: %s", requests[0])
	}
	if !strings.Contains(requests[1], "after=aft-1") {
		t.Fatalf("expected after cursor on page 2: %s", requests[1])
	}
	if res.Posts[0].PlatformPostID != "1" {
		t.Fatalf("expected newest-first, got %s", res.Posts[0].PlatformPostID)
	}
}

func TestFetchSamePageIncrementalStop(t *testing.T) {
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// full page, all older than the cutoff, cursor still present
		fmt.Fprintf(w, `{"data":[%s,%s],"paging":{"cursors":{"after":"aft-next"}}}`,
			item("1", "2024-03-02T12:00:00+0000"), item("2", "2024-03-01T12:00:00+0000"))
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, Policy: fastPolicy()})
	res, err := c.Fetch(context.Background(), testAccount(), platform.FetchOptions{Since: &since, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Posts) != 0 {
		t.Fatalf("expected no posts newer than cutoff, got %d", len(res.Posts))
	}
	if calls != 1 {
		t.Fatalf("expected halt after one page despite cursor, got %d calls", calls)
	}
	joined := strings.Join(res.Trace.Lines(), "\n")
	if !strings.Contains(joined, "no item newer than cutoff") {
		t.Fatalf("expected incremental stop in trace:\n%s", joined)
	}
}

func TestFetchContinuesPastAllReplyPage(t *testing.T) {
	// A page of fresh replies is excluded content, not exhausted history:
	// the incremental stop must not fire and page 2 must still be fetched.
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("after") == "" {
			fmt.Fprint(w, `{"data":[
				{"id":"10","text":"thanks","timestamp":"2024-03-02T12:00:00+0000","is_reply":true},
				{"id":"11","text":"same","timestamp":"2024-03-02T11:00:00+0000","is_reply":true}
			],"paging":{"cursors":{"after":"aft-1"}}}`)
			return
		}
		fmt.Fprintf(w, `{"data":[%s]}`, item("12", "2024-03-01T12:00:00+0000"))
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, Policy: fastPolicy()})
	res, err := c.Fetch(context.Background(), testAccount(), platform.FetchOptions{Since: &since, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected pagination past the all-reply page, got %d calls", calls)
	}
	if len(res.Posts) != 1 || res.Posts[0].PlatformPostID != "12" {
		t.Fatalf("expected post 12 from page 2, got %+v", res.Posts)
	}
	for _, line := range res.Trace.Lines() {
		if strings.Contains(line, "no item newer than cutoff") {
			t.Fatalf("fresh reply page wrongly treated as stale: %v", res.Trace.Lines())
		}
	}
}

func TestFetchSurfacesHTTPErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Invalid OAuth access token"}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, Policy: fastPolicy()})
	res, err := c.Fetch(context.Background(), testAccount(), platform.FetchOptions{Limit: 10})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "HTTP 401") {
		t.Fatalf("expected status in error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retry on 401, got %d calls", calls)
	}
	if res.Trace.Len() == 0 {
		t.Fatal("expected trace preserved on error")
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"data":[%s]}`, item("1", "2024-03-02T12:00:00+0000"))
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, Policy: fastPolicy()})
	res, err := c.Fetch(context.Background(), testAccount(), platform.FetchOptions{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Posts) != 1 {
		t.Fatalf("expected 1 post after retries, got %d", len(res.Posts))
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestFetchEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, Policy: fastPolicy()})
	res, err := c.Fetch(context.Background(), testAccount(), platform.FetchOptions{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Posts) != 0 {
		t.Fatalf("expected empty result, got %d", len(res.Posts))
	}
}
