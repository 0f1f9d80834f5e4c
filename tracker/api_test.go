package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/reelwatch/tracker/internal/store"
	"github.com/hazyhaar/reelwatch/tracker/internal/tariff"

	_ "modernc.org/sqlite"
)

func apiRequest(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIReelLifecycle(t *testing.T) {
	svc, st := testService(t)
	addUser(t, st, "u-1", tariff.Pro)
	h := svc.Router()

	rec := apiRequest(t, h, http.MethodPost, "/api/reels", "u-1",
		`{"title":"Launch","platform":"instagram","url":"https://instagram.com/reel/A/"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var reel store.Reel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reel))
	assert.Equal(t, "Launch", reel.Title)
	assert.True(t, reel.Enabled)

	rec = apiRequest(t, h, http.MethodGet, "/api/reels", "u-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reels []store.Reel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reels))
	assert.Len(t, reels, 1)

	rec = apiRequest(t, h, http.MethodPatch, "/api/reels/"+reel.ID, "u-1",
		`{"title":"Renamed","enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated store.Reel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", updated.Title)
	assert.False(t, updated.Enabled)

	// A body with only one field leaves the others as they are.
	rec = apiRequest(t, h, http.MethodPatch, "/api/reels/"+reel.ID, "u-1",
		`{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, updated.Enabled)

	rec = apiRequest(t, h, http.MethodPatch, "/api/reels/"+reel.ID, "u-1",
		`{"title":"Final"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Final", updated.Title)
	assert.True(t, updated.Enabled)

	rec = apiRequest(t, h, http.MethodDelete, "/api/reels/"+reel.ID, "u-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = apiRequest(t, h, http.MethodGet, "/api/reels/"+reel.ID, "u-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIErrorStatuses(t *testing.T) {
	svc, st := testService(t)
	addUser(t, st, "u-1", tariff.Free)
	h := svc.Router()

	// Missing tenant header.
	rec := apiRequest(t, h, http.MethodGet, "/api/reels", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown platform.
	rec = apiRequest(t, h, http.MethodPost, "/api/reels", "u-1",
		`{"platform":"myspace","url":"https://example.com/x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Duplicate URL.
	body := `{"platform":"instagram","url":"https://instagram.com/reel/A/"}`
	require.Equal(t, http.StatusCreated, apiRequest(t, h, http.MethodPost, "/api/reels", "u-1", body).Code)
	assert.Equal(t, http.StatusConflict, apiRequest(t, h, http.MethodPost, "/api/reels", "u-1", body).Code)

	// Quota: two more reels fill the free plan, the next is rejected.
	for _, u := range []string{"B", "C"} {
		b := `{"platform":"instagram","url":"https://instagram.com/reel/` + u + `/"}`
		require.Equal(t, http.StatusCreated, apiRequest(t, h, http.MethodPost, "/api/reels", "u-1", b).Code)
	}
	rec = apiRequest(t, h, http.MethodPost, "/api/reels", "u-1",
		`{"platform":"instagram","url":"https://instagram.com/reel/D/"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Unknown tenant.
	rec = apiRequest(t, h, http.MethodGet, "/api/parse/status", "ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIParseFlow(t *testing.T) {
	svc, st := testService(t)
	addUser(t, st, "u-1", tariff.Pro)
	h := svc.Router()
	ctx := context.Background()

	for _, u := range []string{"A", "B"} {
		_, err := svc.CreateReel(ctx, "u-1", "", "instagram", "https://instagram.com/reel/"+u+"/")
		require.NoError(t, err)
	}

	rec := apiRequest(t, h, http.MethodPost, "/api/parse", "u-1", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var enq map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enq))
	assert.Equal(t, 2, enq["enqueued"])

	rec = apiRequest(t, h, http.MethodGet, "/api/parse/status", "u-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status store.QueueStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 2, status.PendingCount)
	assert.True(t, status.CanEnqueueNow)

	// A second parse while jobs are in flight dedups instead of erroring.
	rec = apiRequest(t, h, http.MethodPost, "/api/parse", "u-1", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enq))
	assert.Equal(t, 0, enq["enqueued"])
}

func TestAPIHistory(t *testing.T) {
	svc, st := testService(t)
	addUser(t, st, "u-1", tariff.Free)
	h := svc.Router()
	ctx := context.Background()

	r, err := svc.CreateReel(ctx, "u-1", "", "vk", "https://vk.com/clip-1_2")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, st.InsertHistory(ctx, &store.HistoryEntry{
			ReelID:   r.ID,
			Views:    int64(100 * (i + 1)),
			ParsedAt: int64(1000 + i),
		}))
	}

	rec := apiRequest(t, h, http.MethodGet, "/api/reels/"+r.ID+"/history?limit=2", "u-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []store.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, int64(300), entries[0].Views)

	rec = apiRequest(t, h, http.MethodGet, "/api/reels/"+r.ID+"/history?limit=bogus", "u-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
