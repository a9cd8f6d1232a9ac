package googlesearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "test-cse", r.URL.Query().Get("cx"))
		assert.Equal(t, `"Jane Doe" TX phone email`, r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("num"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Items: []SearchItem{
				{
					Title:   "Jane Doe, Realtor",
					Link:    "https://example.com/jane-doe",
					Snippet: "Call Jane at (512) 555-0147 or jane@example.com",
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", "test-cse", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), `"Jane Doe" TX phone email`, 5)

	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "https://example.com/jane-doe", resp.Items[0].Link)
	assert.Contains(t, resp.Items[0].Snippet, "jane@example.com")
}

func TestSearch_NumClamped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("num"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{})
	}))
	defer srv.Close()

	client := NewClient("test-key", "test-cse", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), "query", 50)
	require.NoError(t, err)
}

func TestSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{Items: nil})
	}))
	defer srv.Close()

	client := NewClient("test-key", "test-cse", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), "nobody at all", 5)

	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "quota exceeded"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", "test-cse", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), "test", 5)

	assert.Error(t, err)
	assert.Nil(t, resp)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", "test-cse", WithBaseURL(srv.URL))
	resp, err := client.Search(ctx, "test", 5)

	assert.Error(t, err)
	assert.Nil(t, resp)
}
