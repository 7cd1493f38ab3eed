package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vosk-transcribe" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"No audio file provided"}`)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "pcm-bytes" || header.Filename != "clip.webm" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"unexpected upload"}`)
			return
		}
		if header.Header.Get("Content-Type") != "audio/webm" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"transcript":" closures capture variables ","confidence":0.9}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	res, err := c.Transcribe(context.Background(), "clip.webm", "audio/webm", strings.NewReader("pcm-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "closures capture variables", res.Transcript)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}

func TestClient_TranscribeErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "rejected", status: http.StatusBadRequest, body: `{"error":"No audio file provided"}`, want: ErrRejected},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, want: ErrUnavailable},
		{name: "not json", status: http.StatusOK, body: `<html>`, want: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).Transcribe(context.Background(), "", "", strings.NewReader("x"))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestClient_TranscribeOversizedClip(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"transcript":"ok","confidence":1}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.maxClip = 4

	_, err := c.Transcribe(context.Background(), "", "", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Zero(t, calls.Load())

	res, err := c.Transcribe(context.Background(), "", "", strings.NewReader("1234"))
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Transcript)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_HealthCheck(t *testing.T) {
	var unhealthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		if unhealthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"status":"Vosk server is running!"}`)
	}))

	c := New(srv.URL, time.Second)
	assert.Equal(t, "stt", c.Type())
	assert.NoError(t, c.HealthCheck(context.Background()))

	unhealthy.Store(true)
	assert.ErrorIs(t, c.HealthCheck(context.Background()), ErrUnavailable)

	srv.Close()
	assert.ErrorIs(t, c.HealthCheck(context.Background()), ErrUnavailable)
}
