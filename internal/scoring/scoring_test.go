package scoring

import (
	"testing"

	"github.com/vantagefeed/postsync/internal/models"
)

func TestScoreCoreSignals(t *testing.T) {
	got := Score(models.EngagementMetrics{Likes: 10, Replies: 5, Reposts: 2})
	want := 10.0 + 2.0*5 + 3.0*2
	if got != want {
		t.Fatalf("Score = %v, want %v", got, want)
	}
}

func TestScoreOptionalSignals(t *testing.T) {
	m := models.EngagementMetrics{
		Likes:       1,
		Quotes:      models.IntPtr(4),
		Clicks:      models.IntPtr(10),
		Impressions: models.IntPtr(2000),
	}
	got := Score(m)
	want := 1.0 + 2.0*4 + 0.5*10 + 0.001*2000
	if got != want {
		t.Fatalf("Score = %v, want %v", got, want)
	}
}

func TestScoreZeroMetrics(t *testing.T) {
	if got := Score(models.EngagementMetrics{}); got != 0 {
		t.Fatalf("Score of empty metrics = %v, want 0", got)
	}
}
