package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPostsReset(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Table cleared"}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), srv.Client(), srv.URL+"/", &out))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/reset", gotPath)
	assert.Contains(t, out.String(), "Success! Table cleared")
}

func TestRunReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"leads: clear failed: connection refused"}`))
	}))
	defer srv.Close()

	err := run(context.Background(), srv.Client(), srv.URL, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunReportsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"success":false,"error":"Too many requests, please try again later."}`))
	}))
	defer srv.Close()

	err := run(context.Background(), srv.Client(), srv.URL, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
}

func TestRunReportsNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer srv.Close()

	err := run(context.Background(), srv.Client(), srv.URL, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad gateway")
}
