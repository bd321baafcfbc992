package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiowave/backend/config"
	"github.com/radiowave/backend/datastore"
	"github.com/radiowave/backend/ratings"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := datastore.New(&config.Config{
		Database: config.Database{
			Type: config.DBTypeSQLite,
			Path: filepath.Join(t.TempDir(), "server.db"),
		},
	})
	require.NoError(t, store.Connect(context.Background()))
	t.Cleanup(func() { store.Close() })
	return NewHTTPRouter(store, ratings.NewService(store))
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func ratingBody(songID, userID, ratingType string) map[string]string {
	return map[string]string{
		"song_id":     songID,
		"artist":      "Cool Artist",
		"title":       "Cool Title",
		"rating_type": ratingType,
		"user_id":     userID,
	}
}

func TestRatingFlow(t *testing.T) {
	e := newTestServer(t)

	// first vote inserts
	rec, body := doJSON(t, e, http.MethodPost, "/api/ratings", ratingBody("s1", "u1", "thumbs_up"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rating submitted successfully", body["message"])
	assert.NotNil(t, body["id"])

	rec, body = doJSON(t, e, http.MethodGet, "/api/ratings/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["thumbs_up"])
	assert.EqualValues(t, 0, body["thumbs_down"])

	// identical re-vote is rejected and leaves the tally alone
	rec, body = doJSON(t, e, http.MethodPost, "/api/ratings", ratingBody("s1", "u1", "thumbs_up"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You have already rated this song", body["error"])

	rec, body = doJSON(t, e, http.MethodGet, "/api/ratings/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["thumbs_up"])
	assert.EqualValues(t, 0, body["thumbs_down"])

	// a differing vote flips the existing record
	rec, body = doJSON(t, e, http.MethodPost, "/api/ratings", ratingBody("s1", "u1", "thumbs_down"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rating updated successfully", body["message"])

	rec, body = doJSON(t, e, http.MethodGet, "/api/ratings/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["thumbs_up"])
	assert.EqualValues(t, 1, body["thumbs_down"])
}

func TestRatingValidation(t *testing.T) {
	e := newTestServer(t)

	incomplete := ratingBody("s1", "u1", "thumbs_up")
	delete(incomplete, "song_id")
	rec, body := doJSON(t, e, http.MethodPost, "/api/ratings", incomplete)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", body["error"])

	rec, body = doJSON(t, e, http.MethodPost, "/api/ratings", ratingBody("s1", "u1", "sideways_thumb"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid rating type", body["error"])
}

func TestTallyForUnratedSong(t *testing.T) {
	e := newTestServer(t)

	rec, body := doJSON(t, e, http.MethodGet, "/api/ratings/never-rated", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["thumbs_up"])
	assert.EqualValues(t, 0, body["thumbs_down"])
}

func TestConcurrentRatingRequests(t *testing.T) {
	e := newTestServer(t)

	const numVoters = 10
	var wg sync.WaitGroup
	codes := make(chan int, numVoters)

	for i := 0; i < numVoters; i++ {
		ratingType := "thumbs_up"
		if i%2 == 1 {
			ratingType = "thumbs_down"
		}
		payload := ratingBody("s1", uuid.NewString(), ratingType)

		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, _ := json.Marshal(payload)
			req := httptest.NewRequest(http.MethodPost, "/api/ratings", bytes.NewReader(raw))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}

	rec, body := doJSON(t, e, http.MethodGet, "/api/ratings/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, body["thumbs_up"])
	assert.EqualValues(t, 5, body["thumbs_down"])
}

func TestUsersEndpoints(t *testing.T) {
	e := newTestServer(t)

	rec, body := doJSON(t, e, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["users"])

	rec, body = doJSON(t, e, http.MethodPost, "/api/users", map[string]string{"name": "Ada"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name and email are required", body["error"])

	rec, body = doJSON(t, e, http.MethodPost, "/api/users",
		map[string]string{"name": "Ada", "email": "ada@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User created successfully", body["message"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.NotNil(t, user["id"])
	assert.Equal(t, "Ada", user["name"])

	// duplicate email trips the unique constraint, which is a plain
	// query failure rather than a validation error
	rec, body = doJSON(t, e, http.MethodPost, "/api/users",
		map[string]string{"name": "Ada2", "email": "ada@example.com"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, body["error"])

	rec, body = doJSON(t, e, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users, ok := body["users"].([]any)
	require.True(t, ok)
	assert.Len(t, users, 1)
}

func TestTestDBEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec, body := doJSON(t, e, http.MethodGet, "/api/test-db", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Database connected successfully", body["message"])
	assert.Equal(t, "sqlite", body["database_type"])
	assert.NotEmpty(t, body["version"])
}

func TestDBMetricsEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec, body := doJSON(t, e, http.MethodGet, "/api/db-metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sqlite", body["database_type"])
	assert.Equal(t, "SQLite does not use connection pooling", body["message"])
}

func TestClientIPEndpoint(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/client-ip", nil)
	req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.9")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "203.0.113.9", body["ip"])
}

func TestWelcomePage(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to Radiowave!")
	assert.Contains(t, rec.Body.String(), fmt.Sprintf("running with %s", config.DBTypeSQLite))
}
