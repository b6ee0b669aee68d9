package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		assert.Equal(t, "uptime", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	c := NewBaseClient(srv.URL + "/")
	c.SetHeader("User-Agent", "uptime")

	body, err := c.Get(context.Background(), "/api/v1/health")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success"}`, string(body))
}

func TestNon2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewBaseClient(srv.URL).Get(context.Background(), "/")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}
