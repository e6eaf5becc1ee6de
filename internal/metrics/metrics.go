// Package metrics exposes advisory usage counters for the sync pipeline.
// The counters feed the dashboard's usage display only; nothing throttles
// on them, and recording is best-effort.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder counts upstream requests and stored posts.
type Recorder interface {
	IncRequest(platform string, success bool)
	IncPostsStored(platform string, n int)
	IncAccountErrors(platform string)
}

type PromRecorder struct {
	requestsTotal *prometheus.CounterVec
	postsStored   *prometheus.CounterVec
	accountErrors *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *PromRecorder {
	factory := promauto.With(reg)
	return &PromRecorder{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postsync_upstream_requests_total",
			Help: "Upstream API requests by platform and outcome.",
		}, []string{"platform", "outcome"}),
		postsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postsync_posts_stored_total",
			Help: "Canonical post records upserted by platform.",
		}, []string{"platform"}),
		accountErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postsync_account_errors_total",
			Help: "Account sync attempts that ended in an error.",
		}, []string{"platform"}),
	}
}

func (r *PromRecorder) IncRequest(platform string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.requestsTotal.WithLabelValues(platform, outcome).Inc()
}

func (r *PromRecorder) IncPostsStored(platform string, n int) {
	r.postsStored.WithLabelValues(platform).Add(float64(n))
}

func (r *PromRecorder) IncAccountErrors(platform string) {
	r.accountErrors.WithLabelValues(platform).Inc()
}

// Noop returns a recorder that discards everything, used when metrics are
// disabled in the configuration.
func Noop() Recorder { return &noopRecorder{} }

type noopRecorder struct{}

func (n *noopRecorder) IncRequest(string, bool)       {}
func (n *noopRecorder) IncPostsStored(string, int)    {}
func (n *noopRecorder) IncAccountErrors(string)       {}
