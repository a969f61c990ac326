package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herohde/shoginet/pkg/api"
	"github.com/herohde/shoginet/pkg/client"
)

func TestReporterBound(t *testing.T) {
	c, err := api.NewClient("https://example.org/")
	require.NoError(t, err)

	r := client.NewReporter(c, 3)
	job := &api.Job{Work: api.Work{ID: "j1", Type: api.WorkAnalysis}}

	// Submitting far more than the capacity before the loop starts
	// leaves at most the capacity queued; the rest are dropped.
	for i := 0; i < 50; i++ {
		r.Send(context.Background(), job, &api.Result{})
	}

	assert.Equal(t, 3, r.Queued())
	assert.Equal(t, int64(47), r.Dropped())
}

func TestReporterPosts(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c, err := api.NewClient(server.URL + "/")
	require.NoError(t, err)

	r := client.NewReporter(c, 8)
	go r.Run(context.Background())

	job := &api.Job{Work: api.Work{ID: "j1", Type: api.WorkAnalysis}}
	r.Send(context.Background(), job, &api.Result{})
	r.Send(context.Background(), job, &api.Result{})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(paths) == 2
	}, 5*time.Second, 10*time.Millisecond)

	r.Stop()
	select {
	case <-r.Finished():
	case <-time.After(5 * time.Second):
		t.Fatal("reporter did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/analysis/j1", "/analysis/j1"}, paths)
}
