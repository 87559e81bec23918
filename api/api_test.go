package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"digestbot/digest"
	"digestbot/library"
	"digestbot/rssfeeds"
	"digestbot/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	out  digest.Outcome
	jobs []types.DigestJob
}

func (f *fakeRunner) Run(_ context.Context, job types.DigestJob) digest.Outcome {
	f.jobs = append(f.jobs, job)
	return f.out
}

type fakeQueue struct {
	jobs []types.DigestJob
	err  error
}

func (f *fakeQueue) Dispatch(_ context.Context, job types.DigestJob) error {
	f.jobs = append(f.jobs, job)
	return f.err
}

type fakeLibrary struct {
	items  []types.LibraryItem
	err    error
	userID string
	opts   types.SearchOptions
}

func (f *fakeLibrary) Search(_ context.Context, userID string, opts types.SearchOptions) ([]types.LibraryItem, error) {
	f.userID, f.opts = userID, opts
	return f.items, f.err
}

type fakeIngester struct {
	res  rssfeeds.Result
	err  error
	args []string
}

func (f *fakeIngester) Ingest(_ context.Context, userID, feed string, count int) (rssfeeds.Result, error) {
	f.args = []string{userID, feed, fmt.Sprint(count)}
	return f.res, f.err
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestHealth(t *testing.T) {
	r := NewRouter(Services{Logger: zaptest.NewLogger(t)})
	w := do(t, r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestRunDigest(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		out        digest.Outcome
		wantStatus int
		wantField  map[string]any
	}{
		{
			name:       "completed",
			body:       `{"user_id":"u1"}`,
			out:        digest.Outcome{Status: digest.StatusCompleted, Stage: digest.StagePublish, ItemID: "item-1"},
			wantStatus: http.StatusCreated,
			wantField:  map[string]any{"status": "completed", "item_id": "item-1"},
		},
		{
			name:       "skipped",
			body:       `{"user_id":"u1"}`,
			out:        digest.Outcome{Status: digest.StatusSkipped, Stage: digest.StageDefinition, Reason: digest.ReasonDefinitionAbsent},
			wantStatus: http.StatusOK,
			wantField:  map[string]any{"status": "skipped", "reason": "definition-absent"},
		},
		{
			name:       "failed",
			body:       `{"user_id":"u1"}`,
			out:        digest.Outcome{Status: digest.StatusFailed, Stage: digest.StageSelect, Err: errors.New("bad json")},
			wantStatus: http.StatusInternalServerError,
			wantField:  map[string]any{"status": "failed", "stage": "select", "error": "bad json"},
		},
		{
			name:       "missing user",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{out: tt.out}
			r := NewRouter(Services{Digests: runner, Logger: zaptest.NewLogger(t)})

			w := do(t, r, http.MethodPost, "/api/digests", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			got := decode(t, w)
			for k, v := range tt.wantField {
				assert.Equal(t, v, got[k], k)
			}
			if tt.wantStatus == http.StatusBadRequest {
				assert.Empty(t, runner.jobs)
			}
		})
	}
}

func TestEnqueueDigest(t *testing.T) {
	t.Run("no queue", func(t *testing.T) {
		r := NewRouter(Services{Logger: zaptest.NewLogger(t)})
		w := do(t, r, http.MethodPost, "/api/digests/enqueue", `{"user_id":"u1"}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("queued", func(t *testing.T) {
		q := &fakeQueue{}
		r := NewRouter(Services{Queue: q, Logger: zaptest.NewLogger(t)})
		w := do(t, r, http.MethodPost, "/api/digests/enqueue", `{"user_id":"u1"}`)
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, []types.DigestJob{{UserID: "u1"}}, q.jobs)
	})

	t.Run("queue error", func(t *testing.T) {
		q := &fakeQueue{err: errors.New("brokers down")}
		r := NewRouter(Services{Queue: q, Logger: zaptest.NewLogger(t)})
		w := do(t, r, http.MethodPost, "/api/digests/enqueue", `{"user_id":"u1"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestSearchLibrary(t *testing.T) {
	lib := &fakeLibrary{items: []types.LibraryItem{{ID: "a", Title: "A"}}}
	r := NewRouter(Services{Library: lib, Logger: zaptest.NewLogger(t)})

	w := do(t, r, http.MethodGet, "/api/library/u1/search?q=in:inbox&limit=500", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])
	assert.Equal(t, "u1", lib.userID)
	assert.Equal(t, types.SearchOptions{Limit: maxSearchLimit, Query: "in:inbox"}, lib.opts)

	w = do(t, r, http.MethodGet, "/api/library/u1/search?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	lib.items = nil
	w = do(t, r, http.MethodGet, "/api/library/u1/search", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decode(t, w)["items"])
	assert.Equal(t, defaultSearchLimit, lib.opts.Limit)

	lib.err = fmt.Errorf("%w: bad", library.ErrInvalidQuery)
	w = do(t, r, http.MethodGet, "/api/library/u1/search?q=in:nowhere", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	lib.err = errors.New("database is locked")
	w = do(t, r, http.MethodGet, "/api/library/u1/search", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIngestFeed(t *testing.T) {
	ing := &fakeIngester{res: rssfeeds.Result{FeedURL: "https://e.com/rss", Fetched: 2, Saved: 2, ItemIDs: []string{"a", "b"}}}
	r := NewRouter(Services{Ingester: ing, Logger: zaptest.NewLogger(t)})

	w := do(t, r, http.MethodPost, "/api/library/u1/ingest", `{"feed_url":"https://e.com/rss","count":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(2), decode(t, w)["saved"])
	assert.Equal(t, []string{"u1", "https://e.com/rss", "2"}, ing.args)

	w = do(t, r, http.MethodPost, "/api/library/u1/ingest", `{"count":2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ing.err = errors.New("feed 404")
	w = do(t, r, http.MethodPost, "/api/library/u1/ingest", `{"feed_url":"https://e.com/rss"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
