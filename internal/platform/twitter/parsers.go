package twitter

import (
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vantagefeed/postsync/internal/models"
	"github.com/vantagefeed/postsync/internal/trace"
)

// rawTweet is the union of the legacy tweet fields the gateway variants
// return. Whichever shape a page arrives in, extraction funnels into this
// struct before normalization.
type rawTweet struct {
	TweetID             string          `json:"tweet_id"`
	IDStr               string          `json:"id_str"`
	Text                string          `json:"text"`
	FullText            string          `json:"full_text"`
	CreatedAt           string          `json:"created_at"`
	InReplyToStatusID   string          `json:"in_reply_to_status_id_str"`
	InReplyToUserID     string          `json:"in_reply_to_user_id_str"`
	InReplyToScreenName string          `json:"in_reply_to_screen_name"`
	RetweetedStatus     json.RawMessage `json:"retweeted_status"`
	RetweetedResult     json.RawMessage `json:"retweeted_status_result"`
	FavoriteCount       int             `json:"favorite_count"`
	ReplyCount          int             `json:"reply_count"`
	RetweetCount        int             `json:"retweet_count"`
	QuoteCount          *int            `json:"quote_count"`
	Entities            struct {
		URLs []struct {
			ExpandedURL string `json:"expanded_url"`
		} `json:"urls"`
		Media []mediaEntity `json:"media"`
	} `json:"entities"`
	ExtendedEntities struct {
		Media []mediaEntity `json:"media"`
	} `json:"extended_entities"`
	Views struct {
		Count string `json:"count"`
	} `json:"views"`
	ViewsCount *int `json:"views_count"`

	blob json.RawMessage // source payload, kept for auditing
}

type mediaEntity struct {
	Type string `json:"type"`
}

func (t rawTweet) id() string {
	if t.TweetID != "" {
		return t.TweetID
	}
	return t.IDStr
}

// timelineParsers is the ordered shape fallback chain. Each parser is cheap
// and independent; the first one yielding at least one raw item wins for
// that page.
var timelineParsers = []struct {
	name  string
	parse func(body []byte) ([]rawTweet, string)
}{
	{"instructions", parseInstructionTimeline},
	{"globalObjects", parseGlobalObjects},
	{"flatArray", parseFlatArray},
}

// parseTimelinePage runs the shape chain over one page body and normalizes
// the winning shape's items. It returns the raw item count (pre-exclusion),
// the normalized posts, the next-page cursor if the shape carried one, and
// the newest raw timestamp on the page. The newest timestamp spans excluded
// items too: a page full of fresh replies is still a fresh page, and the
// incremental stop must not treat it as exhausted history.
func parseTimelinePage(body []byte, screenName string, tr *trace.Trace) (int, []models.Post, string, time.Time) {
	var items []rawTweet
	var cursor string
	for _, p := range timelineParsers {
		its, cur := p.parse(body)
		tr.Addf("shape %s: %d items", p.name, len(its))
		if len(its) > 0 {
			items, cursor = its, cur
			break
		}
	}
	if len(items) == 0 {
		return 0, nil, "", time.Time{}
	}

	var posts []models.Post
	var newestRaw time.Time
	for _, it := range items {
		if ts, ok := parseCreatedAt(it.CreatedAt); ok && ts.After(newestRaw) {
			newestRaw = ts
		}
		post, reason := normalizeTweet(it, screenName)
		if reason != "" {
			tr.Addf("skip %s: %s", it.id(), reason)
			continue
		}
		posts = append(posts, post)
	}
	return len(items), posts, cursor, newestRaw
}

// --- Shape A: instructions/entries timeline tree ---

type timelineObj struct {
	Instructions []timelineInstruction `json:"instructions"`
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
	Entry   *timelineEntry  `json:"entry"`
}

type timelineEntry struct {
	EntryID string          `json:"entryId"`
	Content timelineContent `json:"content"`
}

type timelineContent struct {
	EntryType   string          `json:"entryType"`
	TypeName    string          `json:"__typename"`
	ItemContent json.RawMessage `json:"itemContent"`
	Value       string          `json:"value"`
	CursorType  string          `json:"cursorType"`
}

func parseInstructionTimeline(body []byte) ([]rawTweet, string) {
	var raw struct {
		Timeline timelineObj `json:"timeline"`
		Data     struct {
			User struct {
				Result struct {
					Timeline struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline"`
					TimelineV2 struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline_v2"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ""
	}

	tl := raw.Data.User.Result.Timeline.Timeline
	if len(tl.Instructions) == 0 {
		tl = raw.Data.User.Result.TimelineV2.Timeline
	}
	if len(tl.Instructions) == 0 {
		tl = raw.Timeline
	}

	var tweets []rawTweet
	var cursor string
	for _, instruction := range tl.Instructions {
		entries := instruction.Entries
		if instruction.Entry != nil {
			entries = append(entries, *instruction.Entry)
		}
		for _, entry := range entries {
			if entry.Content.EntryType == "TimelineTimelineCursor" || entry.Content.TypeName == "TimelineTimelineCursor" {
				if entry.Content.CursorType == "Bottom" || strings.Contains(entry.EntryID, "cursor-bottom") {
					cursor = entry.Content.Value
				}
				continue
			}
			if entry.Content.ItemContent == nil {
				continue
			}
			var item struct {
				TypeName     string `json:"__typename"`
				TweetResults struct {
					Result json.RawMessage `json:"result"`
				} `json:"tweet_results"`
			}
			if err := json.Unmarshal(entry.Content.ItemContent, &item); err != nil {
				continue
			}
			if item.TypeName != "" && item.TypeName != "TimelineTweet" {
				continue
			}
			if rt, ok := tweetFromResult(item.TweetResults.Result); ok {
				tweets = append(tweets, rt)
			}
		}
	}
	return tweets, cursor
}

func tweetFromResult(result json.RawMessage) (rawTweet, bool) {
	if len(result) == 0 || string(result) == "null" {
		return rawTweet{}, false
	}
	var r struct {
		RestID string          `json:"rest_id"`
		Legacy json.RawMessage `json:"legacy"`
		Views  struct {
			Count string `json:"count"`
		} `json:"views"`
	}
	if err := json.Unmarshal(result, &r); err != nil {
		return rawTweet{}, false
	}
	var rt rawTweet
	if len(r.Legacy) > 0 {
		if err := json.Unmarshal(r.Legacy, &rt); err != nil {
			return rawTweet{}, false
		}
	}
	if rt.IDStr == "" {
		rt.IDStr = r.RestID
	}
	if rt.Views.Count == "" {
		rt.Views.Count = r.Views.Count
	}
	rt.blob = result
	return rt, true
}

// --- Shape B: flat keyed globalObjects map ---

func parseGlobalObjects(body []byte) ([]rawTweet, string) {
	var raw struct {
		GlobalObjects struct {
			Tweets map[string]json.RawMessage `json:"tweets"`
		} `json:"globalObjects"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ""
	}

	var tweets []rawTweet
	for id, blob := range raw.GlobalObjects.Tweets {
		var rt rawTweet
		if err := json.Unmarshal(blob, &rt); err != nil {
			continue
		}
		if rt.IDStr == "" {
			rt.IDStr = id
		}
		rt.blob = blob
		tweets = append(tweets, rt)
	}
	return tweets, ""
}

// --- Shape C: simplified flat array ---

func parseFlatArray(body []byte) ([]rawTweet, string) {
	var raw struct {
		Timeline   []json.RawMessage `json:"timeline"`
		NextCursor string            `json:"next_cursor"`
	}
	if err := json.Unmarshal(body, &raw); err == nil && len(raw.Timeline) > 0 {
		return flatTweets(raw.Timeline), raw.NextCursor
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(body, &arr); err == nil {
		return flatTweets(arr), ""
	}
	return nil, ""
}

func flatTweets(blobs []json.RawMessage) []rawTweet {
	var tweets []rawTweet
	for _, blob := range blobs {
		var rt rawTweet
		if err := json.Unmarshal(blob, &rt); err != nil {
			continue
		}
		rt.blob = blob
		tweets = append(tweets, rt)
	}
	return tweets
}

// --- Normalization ---

var createdAtFormats = []string{
	"Mon Jan 02 15:04:05 -0700 2006", // ruby date, legacy API
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
}

func parseCreatedAt(s string) (time.Time, bool) {
	for _, format := range createdAtFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// normalizeTweet converts one raw item into a canonical post. A non-empty
// reason means the item is excluded (reply, retweet) or unusable (missing
// id/timestamp); exclusions are traced by the caller, never fatal.
func normalizeTweet(t rawTweet, screenName string) (models.Post, string) {
	id := t.id()
	if id == "" {
		return models.Post{}, "missing id"
	}

	text := t.FullText
	if text == "" {
		text = t.Text
	}

	if t.InReplyToStatusID != "" || t.InReplyToUserID != "" || t.InReplyToScreenName != "" {
		return models.Post{}, "reply"
	}
	if strings.HasPrefix(text, "RT @") || isPresent(t.RetweetedStatus) || isPresent(t.RetweetedResult) {
		return models.Post{}, "retweet"
	}

	if t.CreatedAt == "" {
		return models.Post{}, "missing timestamp"
	}
	created, ok := parseCreatedAt(t.CreatedAt)
	if !ok {
		return models.Post{}, "unparseable timestamp " + t.CreatedAt
	}

	permalink := ""
	if screenName != "" {
		permalink = "https://x.com/" + screenName + "/status/" + id
	}

	return models.Post{
		Platform:       models.PlatformTwitter,
		PlatformPostID: id,
		Text:           text,
		CreatedAt:      created,
		MediaType:      classifyMedia(t),
		HasURL:         detectURL(t, text),
		Metrics: models.EngagementMetrics{
			Impressions: impressions(t),
			Likes:       t.FavoriteCount,
			Replies:     t.ReplyCount,
			Reposts:     t.RetweetCount,
			Quotes:      t.QuoteCount,
		},
		Raw:       t.blob,
		Permalink: permalink,
	}, ""
}

func isPresent(m json.RawMessage) bool {
	return len(m) > 0 && string(m) != "null"
}

// classifyMedia inspects the nested media arrays; video beats image.
func classifyMedia(t rawTweet) models.MediaType {
	media := t.ExtendedEntities.Media
	if len(media) == 0 {
		media = t.Entities.Media
	}
	result := models.MediaText
	for _, m := range media {
		switch m.Type {
		case "video", "animated_gif":
			return models.MediaVideo
		case "photo", "image":
			result = models.MediaImage
		}
	}
	return result
}

func detectURL(t rawTweet, text string) bool {
	if len(t.Entities.URLs) > 0 {
		return true
	}
	return strings.Contains(text, "http://") || strings.Contains(text, "https://")
}

func impressions(t rawTweet) *int {
	if t.Views.Count != "" {
		if n, err := strconv.Atoi(t.Views.Count); err == nil {
			return &n
		}
	}
	return t.ViewsCount
}
