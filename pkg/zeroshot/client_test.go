package zeroshot

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"edu-insight-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var labels = []string{"Mathematics", "Physics", "Chemistry", "Biology"}

func TestClassifyObjectResponse(t *testing.T) {
	var got classifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"sequence":"x","labels":["Biology","Chemistry","Physics","Mathematics"],"scores":[0.91,0.05,0.03,0.01]}`))
	}))
	defer srv.Close()

	c := NewClient(config.ClassifierConfig{BaseURL: srv.URL + "/models", Model: "test-model", APIKey: "secret"})
	res, err := c.Classify(context.Background(), "How does photosynthesis work?", labels)
	require.NoError(t, err)

	assert.Equal(t, "How does photosynthesis work?", got.Inputs)
	assert.Equal(t, labels, got.Parameters.CandidateLabels)
	assert.False(t, got.Parameters.MultiLabel)

	best, score, err := res.Best(labels)
	require.NoError(t, err)
	assert.Equal(t, "Biology", best)
	assert.InDelta(t, 0.91, score, 1e-9)
}

func TestClassifyListResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"Physics","score":0.7},{"label":"Mathematics","score":0.2}]`))
	}))
	defer srv.Close()

	c := NewClient(config.ClassifierConfig{BaseURL: srv.URL})
	res, err := c.Classify(context.Background(), "velocity", labels)
	require.NoError(t, err)
	best, _, err := res.Best(labels)
	require.NoError(t, err)
	assert.Equal(t, "Physics", best)
}

func TestClassifyNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"model loading"}`))
	}))
	defer srv.Close()

	c := NewClient(config.ClassifierConfig{BaseURL: srv.URL})
	_, err := c.Classify(context.Background(), "x", labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClassifyErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"bad input"}`))
	}))
	defer srv.Close()

	c := NewClient(config.ClassifierConfig{BaseURL: srv.URL})
	_, err := c.Classify(context.Background(), "x", labels)
	require.Error(t, err)
}

func TestBestTieGoesToEarliestLabel(t *testing.T) {
	res := Result{"Chemistry": 0.4, "Physics": 0.4, "Biology": 0.2}
	best, _, err := res.Best(labels)
	require.NoError(t, err)
	assert.Equal(t, "Physics", best)
}

func TestBestIgnoresUnknownLabels(t *testing.T) {
	res := Result{"Cooking": 0.99, "Mathematics": 0.01}
	best, _, err := res.Best(labels)
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", best)

	_, _, err = Result{"Cooking": 1}.Best(labels)
	assert.ErrorIs(t, err, ErrNoScores)
}

func TestBestSkipsNonFiniteScores(t *testing.T) {
	res := Result{"Mathematics": math.NaN(), "Physics": math.Inf(1), "Chemistry": 0.3}
	best, score, err := res.Best(labels)
	require.NoError(t, err)
	assert.Equal(t, "Chemistry", best)
	assert.Equal(t, 0.3, score)

	_, _, err = Result{"Mathematics": math.NaN()}.Best(labels)
	assert.ErrorIs(t, err, ErrNoScores)
}
