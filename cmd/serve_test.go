package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shortsale-cli/internal/model"
)

type stubSeenLister struct {
	ids []string
	err error
}

func (s *stubSeenLister) SeenIDs(context.Context) ([]string, error) {
	return s.ids, s.err
}

// batchRecorder collects listings passed to the webhook run func.
type batchRecorder struct {
	mu      sync.Mutex
	batches [][]model.Listing
	done    chan struct{}
}

func newBatchRecorder() *batchRecorder {
	return &batchRecorder{done: make(chan struct{}, 8)}
}

func (r *batchRecorder) run(_ context.Context, listings []model.Listing) {
	r.mu.Lock()
	r.batches = append(r.batches, listings)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *batchRecorder) wait(t *testing.T) []model.Listing {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook batch never ran")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.batches)
	return r.batches[len(r.batches)-1]
}

func TestRouter_Health(t *testing.T) {
	router := newRouter(context.Background(), &stubSeenLister{}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_ApifyHook(t *testing.T) {
	recorder := newBatchRecorder()
	router := newRouter(context.Background(), &stubSeenLister{}, recorder.run, nil)

	payload := `[
		{"zpid": "111", "address": "1 Main St, Austin, TX", "agentName": "Jane Doe", "fullText": "Short sale opportunity"},
		{"zpid": "222", "address": "2 Oak Ave, Dallas, TX"}
	]`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hooks/apify", strings.NewReader(payload)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body struct {
		Status   string `json:"status"`
		Received int    `json:"received"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body.Status)
	assert.Equal(t, 2, body.Received)

	batch := recorder.wait(t)
	require.Len(t, batch, 2)
	assert.Equal(t, "111", batch[0].ID)
	assert.Equal(t, "Jane Doe", batch[0].AgentName)
}

func TestRouter_ApifyHook_BadBody(t *testing.T) {
	router := newRouter(context.Background(), &stubSeenLister{}, func(context.Context, []model.Listing) {
		t.Fatal("run should not be called for a bad body")
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hooks/apify", strings.NewReader("not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ApifyHook_DatasetID(t *testing.T) {
	recorder := newBatchRecorder()
	var gotDataset string
	fetch := func(_ context.Context, datasetID string) ([]model.Listing, error) {
		gotDataset = datasetID
		return []model.Listing{{ID: "111", Address: "1 Main St, Austin, TX"}}, nil
	}
	router := newRouter(context.Background(), &stubSeenLister{}, recorder.run, fetch)

	payload := `{"resource": {"defaultDatasetId": "ds-42"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hooks/apify", strings.NewReader(payload)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	batch := recorder.wait(t)
	require.Len(t, batch, 1)
	assert.Equal(t, "111", batch[0].ID)
	assert.Equal(t, "ds-42", gotDataset)
}

func TestRouter_ApifyHook_DatasetQueryParam(t *testing.T) {
	recorder := newBatchRecorder()
	var gotDataset string
	fetch := func(_ context.Context, datasetID string) ([]model.Listing, error) {
		gotDataset = datasetID
		return nil, nil
	}
	router := newRouter(context.Background(), &stubSeenLister{}, recorder.run, fetch)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hooks/apify?datasetId=ds-7", strings.NewReader("{}")))

	require.Equal(t, http.StatusAccepted, rec.Code)
	recorder.wait(t)
	assert.Equal(t, "ds-7", gotDataset)
}

func TestRouter_ApifyHook_DatasetWithoutApify(t *testing.T) {
	router := newRouter(context.Background(), &stubSeenLister{}, func(context.Context, []model.Listing) {
		t.Fatal("run should not be called when apify is not configured")
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hooks/apify?datasetId=ds-7", strings.NewReader("{}")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ExportIDs(t *testing.T) {
	router := newRouter(context.Background(), &stubSeenLister{ids: []string{"a", "b"}}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export-ids", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestRouter_ExportIDs_Empty(t *testing.T) {
	router := newRouter(context.Background(), &stubSeenLister{}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export-ids", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRouter_ExportIDs_StoreError(t *testing.T) {
	router := newRouter(context.Background(), &stubSeenLister{err: errors.New("db down")}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export-ids", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
