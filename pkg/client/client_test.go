package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SessionLifecycle(t *testing.T) {
	var loaded atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/sessions":
			var req CreateSessionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"Go"}, req.Skills)
			w.WriteHeader(http.StatusAccepted)
			io.WriteString(w, `{"success":true,"data":{"id":"s1","phase":"loading"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/sessions/s1":
			phase := "loading"
			if loaded.Swap(true) {
				phase = "active"
			}
			io.WriteString(w, `{"success":true,"data":{"id":"s1","phase":"`+phase+`","questions":["q1"]}}`)
		case r.URL.Path == "/api/v1/sessions/s1/next":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["answer"] == "" {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"success":false,"error":{"code":"validation_error","message":"answer is empty"}}`)
				return
			}
			io.WriteString(w, `{"success":true,"data":{"id":"s1","phase":"scoring"}}`)
		case r.URL.Path == "/api/v1/sessions/s1/submit":
			io.WriteString(w, `{"success":true,"data":{"id":"s1","phase":"completed","result":{"perQuestion":[{"score":8}],"summary":{"total":8,"avg":8}}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok", WithTimeout(time.Second))
	ctx := context.Background()

	s, err := c.CreateSession(ctx, CreateSessionRequest{Skills: []string{"Go"}, Difficulty: "easy"})
	require.NoError(t, err)
	assert.Equal(t, "loading", s.Phase)

	s, err = c.WaitForQuestions(ctx, "s1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "active", s.Phase)

	_, err = c.Next(ctx, "s1", "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "validation_error", apiErr.Code)

	s, err = c.Next(ctx, "s1", "closures")
	require.NoError(t, err)
	assert.Equal(t, "scoring", s.Phase)

	s, err = c.Submit(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, s.Finished())
	require.NotNil(t, s.Result)
	assert.Equal(t, 8, s.Result.Summary.Total)
}

func TestClient_Reporting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/leaderboard":
			if r.URL.Query().Get("user_id") == "u1" {
				io.WriteString(w, `{"success":true,"personalStats":[{"id":1,"user_id":"u1"}],"globalLeaderboard":[]}`)
				return
			}
			io.WriteString(w, `{"success":true,"globalLeaderboard":[{"id":2,"global_rank":1}],"personalStats":[]}`)
		case "/api/v1/leaderboard/global":
			w.Header().Set("X-Fallback-Data", "true")
			io.WriteString(w, `[]`)
		case "/api/v1/users/u1/history":
			io.WriteString(w, `{"interviews":[{"id":5,"performance_rating":"Good"}],"summary":{"total_interviews":1},"user_id":"u1"}`)
		case "/api/v1/reports":
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":"No report found!"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	ctx := context.Background()

	top, err := c.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 1, top[0].Rank)

	stats, err := c.PersonalStats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stats, 1)

	global, fallback, err := c.GlobalLeaderboard(ctx)
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Empty(t, global)

	h, err := c.History(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, h.Summary.TotalInterviews)
	assert.Equal(t, "Good", h.Interviews[0].PerformanceRating)

	err = c.callRaw(ctx, http.MethodGet, "/api/v1/reports", nil, &struct{}{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "No report found!", apiErr.Message)
}
