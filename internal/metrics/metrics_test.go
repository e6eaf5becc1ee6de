package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.IncRequest("twitter", true)
	r.IncRequest("twitter", true)
	r.IncRequest("twitter", false)

	ok := testutil.ToFloat64(r.requestsTotal.WithLabelValues("twitter", "success"))
	failed := testutil.ToFloat64(r.requestsTotal.WithLabelValues("twitter", "failure"))
	assert.Equal(t, 2.0, ok)
	assert.Equal(t, 1.0, failed)
}

func TestRecorderCountsStoredPosts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.IncPostsStored("threads", 7)
	assert.Equal(t, 7.0, testutil.ToFloat64(r.postsStored.WithLabelValues("threads")))
}

func TestRecorderRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	r.IncAccountErrors("twitter")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNoopRecorder(t *testing.T) {
	r := Noop()
	r.IncRequest("twitter", true)
	r.IncPostsStored("twitter", 1)
	r.IncAccountErrors("twitter")
}
