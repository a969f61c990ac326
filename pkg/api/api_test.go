package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herohde/shoginet/pkg/api"
	"github.com/herohde/shoginet/pkg/usi"
)

func TestParseEndpoint(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		u, err := api.ParseEndpoint("https://lishogi.org/fishnet")
		require.NoError(t, err)
		assert.Equal(t, "https://lishogi.org/fishnet/", u.String())
	})

	t.Run("scheme", func(t *testing.T) {
		_, err := api.ParseEndpoint("ftp://example.org/")
		assert.Error(t, err)
	})
}

func TestClientURL(t *testing.T) {
	c, err := api.NewClient("https://example.org/fishnet/")
	require.NoError(t, err)

	assert.Equal(t, "https://example.org/fishnet/acquire", c.URL("acquire"))
	assert.Equal(t, "https://example.org/fishnet/analysis/abc", c.URL("analysis/abc"))
	assert.Equal(t, "https://example.org/", c.BaseURL())
}

func TestPostClassification(t *testing.T) {
	tests := []struct {
		status int
		check  func(*api.Response) bool
	}{
		{http.StatusAccepted, (*api.Response).JobAccepted},
		{http.StatusNoContent, (*api.Response).NoJob},
		{http.StatusBadGateway, (*api.Response).ServerError},
		{http.StatusBadRequest, (*api.Response).ClientError},
		{http.StatusTooManyRequests, (*api.Response).RateLimited},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		c, err := api.NewClient(server.URL + "/")
		require.NoError(t, err)

		resp, err := c.Post(context.Background(), "acquire", false, map[string]string{})
		require.NoError(t, err)
		assert.True(t, tt.check(resp))

		server.Close()
	}
}

func TestPostStopQuery(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c, err := api.NewClient(server.URL + "/")
	require.NoError(t, err)

	_, err = c.Post(context.Background(), "analysis/j1", true, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "stop=true", query)
}

func TestUpdateRequested(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		resp := &api.Response{
			StatusCode: 400,
			Body:       []byte(`{"error":"Please restart shoginet to upgrade."}`),
		}
		msg, err := resp.UpdateRequested()
		assert.ErrorIs(t, err, api.ErrUpdateRequired)
		assert.Contains(t, msg, "upgrade")
	})

	t.Run("other-error", func(t *testing.T) {
		resp := &api.Response{StatusCode: 400, Body: []byte(`{"error":"unknown key"}`)}
		msg, err := resp.UpdateRequested()
		assert.NoError(t, err)
		assert.Equal(t, "unknown key", msg)
	})

	t.Run("no-json", func(t *testing.T) {
		resp := &api.Response{StatusCode: 400, Body: []byte(`bad gateway`)}
		msg, err := resp.UpdateRequested()
		assert.NoError(t, err)
		assert.Empty(t, msg)
	})
}

func TestValidateKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/key/good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c, err := api.NewClient(server.URL + "/")
	require.NoError(t, err)

	ok, err := c.ValidateKey(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.ValidateKey(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobDecoding(t *testing.T) {
	body := `{
		"work": {"id": "j1", "type": "move", "level": 5, "flavor": "fairy",
			"clock": {"btime": 600, "wtime": 600, "byo": 10, "inc": 0}},
		"position": "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1",
		"moves": "7g7f 3c3d",
		"game_id": "abcdefgh",
		"skipPositions": [1, 2]
	}`

	var job api.Job
	require.NoError(t, json.Unmarshal([]byte(body), &job))

	assert.Equal(t, "j1", job.Work.ID)
	assert.Equal(t, api.WorkMove, job.Work.Type)
	assert.Equal(t, 5, job.Work.Level)
	assert.True(t, job.UseVariantEngine())
	assert.Equal(t, "standard", job.EffectiveVariant())
	assert.Equal(t, []string{"7g7f", "3c3d"}, job.MoveList())
	assert.Equal(t, []int{1, 2}, job.SkipPositions)
	require.NotNil(t, job.Work.Clock)
	assert.Equal(t, int64(600), job.Work.Clock.BTime)
}

func TestResultEnvelope(t *testing.T) {
	depth := 11
	score := usi.Score{Value: 25}
	nodes := int64(1000)

	result := &api.Result{
		Envelope: api.Envelope{
			Shoginet: api.ClientInfo{Version: "2.0.0", Runtime: "go", APIKey: "k"},
			StdInfo:  &api.EngineInfo{Name: "engine", Options: map[string]string{"Threads": "4"}},
		},
		Analysis: []*api.AnalysisPly{
			{Skipped: true},
			{Depth: &depth, Score: &score, Nodes: &nodes},
		},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Contains(t, decoded, "shoginet")
	assert.Contains(t, decoded, "yaneuraou")
	assert.NotContains(t, decoded, "fairy")

	analysis := decoded["analysis"].([]any)
	require.Len(t, analysis, 2)
	assert.Equal(t, map[string]any{"skipped": true}, analysis[0])
	ply := analysis[1].(map[string]any)
	assert.Equal(t, float64(11), ply["depth"])
	assert.Equal(t, map[string]any{"cp": float64(25)}, ply["score"])
}
