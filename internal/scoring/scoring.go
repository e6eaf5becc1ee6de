// Package scoring computes the engagement score assigned to a post at
// ingestion time. The score is a pure function of the engagement metrics;
// it performs no I/O and the orchestrator consumes it through a function
// value so dashboards can swap formulas without touching the pipeline.
package scoring

import "github.com/vantagefeed/postsync/internal/models"

// Weights applied to each engagement signal. Replies and quotes indicate
// conversation, reposts indicate reach, so they outweigh plain likes.
const (
	likeWeight       = 1.0
	replyWeight      = 2.0
	repostWeight     = 3.0
	quoteWeight      = 2.0
	clickWeight      = 0.5
	impressionWeight = 0.001
)

// Score maps an engagement-metrics bundle to a single number.
// Optional metrics contribute zero when absent.
func Score(m models.EngagementMetrics) float64 {
	s := likeWeight*float64(m.Likes) +
		replyWeight*float64(m.Replies) +
		repostWeight*float64(m.Reposts)
	if m.Quotes != nil {
		s += quoteWeight * float64(*m.Quotes)
	}
	if m.Clicks != nil {
		s += clickWeight * float64(*m.Clicks)
	}
	if m.Impressions != nil {
		s += impressionWeight * float64(*m.Impressions)
	}
	return s
}
