package threads

import (
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vantagefeed/postsync/internal/models"
	"github.com/vantagefeed/postsync/internal/trace"
)

// rawThread holds the fields the graph API returns for one thread post.
type rawThread struct {
	ID                string          `json:"id"`
	Text              string          `json:"text"`
	Timestamp         string          `json:"timestamp"`
	MediaType         string          `json:"media_type"`
	Permalink         string          `json:"permalink"`
	Shortcode         string          `json:"shortcode"`
	LinkAttachmentURL string          `json:"link_attachment_url"`
	IsQuotePost       bool            `json:"is_quote_post"`
	IsReply           bool            `json:"is_reply"`
	RepliedTo         json.RawMessage `json:"replied_to"`
	LikeCount         *int            `json:"like_count"`
	ReplyCount        *int            `json:"reply_count"`
	RepostCount       *int            `json:"repost_count"`
	QuoteCount        *int            `json:"quote_count"`
	Insights          struct {
		Data []insightMetric `json:"data"`
	} `json:"insights"`

	blob json.RawMessage // source payload, kept for auditing
}

type insightMetric struct {
	Name   string `json:"name"`
	Values []struct {
		Value int `json:"value"`
	} `json:"values"`
	TotalValue *struct {
		Value int `json:"value"`
	} `json:"total_value"`
}

func (m insightMetric) value() (int, bool) {
	if m.TotalValue != nil {
		return m.TotalValue.Value, true
	}
	if len(m.Values) > 0 {
		return m.Values[0].Value, true
	}
	return 0, false
}

// threadParsers is the ordered shape fallback chain for one page body.
var threadParsers = []struct {
	name  string
	parse func(body []byte) ([]rawThread, string)
}{
	{"data/paging", parseDataEnvelope},
	{"keyedObject", parseKeyedObject},
	{"flatArray", parseFlatArray},
}

// parseThreadsPage runs the shape chain and normalizes the winning shape's
// items. Returns raw item count, normalized posts, the next-page cursor, and
// the newest raw timestamp on the page. The newest timestamp spans excluded
// items too: a page of fresh replies or reposts is still a fresh page and
// must not trip the incremental stop.
func parseThreadsPage(body []byte, tr *trace.Trace) (int, []models.Post, string, time.Time) {
	var items []rawThread
	var cursor string
	for _, p := range threadParsers {
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
		if ts, ok := parseTimestamp(it.Timestamp); ok && ts.After(newestRaw) {
			newestRaw = ts
		}
		post, reason := normalizeThread(it)
		if reason != "" {
			tr.Addf("skip %s: %s", it.ID, reason)
			continue
		}
		posts = append(posts, post)
	}
	return len(items), posts, cursor, newestRaw
}

// --- Shape A: data array with paging envelope ---

func parseDataEnvelope(body []byte) ([]rawThread, string) {
	var raw struct {
		Data   []json.RawMessage `json:"data"`
		Paging struct {
			Cursors struct {
				After string `json:"after"`
			} `json:"cursors"`
			Next string `json:"next"`
		} `json:"paging"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ""
	}

	cursor := raw.Paging.Cursors.After
	if cursor == "" && raw.Paging.Next != "" {
		cursor = afterFromURL(raw.Paging.Next)
	}
	return decodeThreads(raw.Data), cursor
}

// afterFromURL digs the after cursor out of a full next-page URL.
func afterFromURL(next string) string {
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("after")
}

// --- Shape B: flat keyed object ---

func parseKeyedObject(body []byte) ([]rawThread, string) {
	var raw struct {
		Threads map[string]json.RawMessage `json:"threads"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ""
	}

	var items []rawThread
	for id, blob := range raw.Threads {
		var rt rawThread
		if err := json.Unmarshal(blob, &rt); err != nil {
			continue
		}
		if rt.ID == "" {
			rt.ID = id
		}
		rt.blob = blob
		items = append(items, rt)
	}
	return items, ""
}

// --- Shape C: bare array ---

func parseFlatArray(body []byte) ([]rawThread, string) {
	var arr []json.RawMessage
	if err := json.Unmarshal(body, &arr); err != nil {
		return nil, ""
	}
	return decodeThreads(arr), ""
}

func decodeThreads(blobs []json.RawMessage) []rawThread {
	var items []rawThread
	for _, blob := range blobs {
		var rt rawThread
		if err := json.Unmarshal(blob, &rt); err != nil {
			continue
		}
		rt.blob = blob
		items = append(items, rt)
	}
	return items
}

// --- Normalization ---

var timestampFormats = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// normalizeThread converts one raw item into a canonical post. A non-empty
// reason means the item is excluded or unusable.
func normalizeThread(t rawThread) (models.Post, string) {
	if t.ID == "" {
		return models.Post{}, "missing id"
	}
	if t.IsReply || isPresent(t.RepliedTo) {
		return models.Post{}, "reply"
	}
	if t.MediaType == "REPOST_FACADE" {
		return models.Post{}, "repost"
	}
	if t.Timestamp == "" {
		return models.Post{}, "missing timestamp"
	}
	created, ok := parseTimestamp(t.Timestamp)
	if !ok {
		return models.Post{}, "unparseable timestamp " + t.Timestamp
	}

	permalink := t.Permalink
	if permalink == "" && t.Shortcode != "" {
		permalink = "https://www.threads.net/t/" + t.Shortcode
	}

	return models.Post{
		Platform:       models.PlatformThreads,
		PlatformPostID: t.ID,
		Text:           t.Text,
		CreatedAt:      created,
		MediaType:      classifyMedia(t.MediaType),
		HasURL:         detectURL(t),
		Metrics:        metricsFrom(t),
		Raw:            t.blob,
		Permalink:      permalink,
	}, ""
}

func isPresent(m json.RawMessage) bool {
	return len(m) > 0 && string(m) != "null"
}

func classifyMedia(mediaType string) models.MediaType {
	switch mediaType {
	case "VIDEO":
		return models.MediaVideo
	case "IMAGE", "CAROUSEL_ALBUM":
		return models.MediaImage
	default:
		return models.MediaText
	}
}

func detectURL(t rawThread) bool {
	if t.LinkAttachmentURL != "" {
		return true
	}
	return strings.Contains(t.Text, "http://") || strings.Contains(t.Text, "https://")
}

// metricsFrom prefers nested insight metrics and falls back to the flat
// counters; views map to impressions and stay nil when neither source
// reports them.
func metricsFrom(t rawThread) models.EngagementMetrics {
	var m models.EngagementMetrics
	if t.LikeCount != nil {
		m.Likes = *t.LikeCount
	}
	if t.ReplyCount != nil {
		m.Replies = *t.ReplyCount
	}
	if t.RepostCount != nil {
		m.Reposts = *t.RepostCount
	}
	m.Quotes = t.QuoteCount

	for _, metric := range t.Insights.Data {
		v, ok := metric.value()
		if !ok {
			continue
		}
		switch metric.Name {
		case "views":
			m.Impressions = models.IntPtr(v)
		case "likes":
			m.Likes = v
		case "replies":
			m.Replies = v
		case "reposts":
			m.Reposts = v
		case "quotes":
			m.Quotes = models.IntPtr(v)
		}
	}
	return m
}
