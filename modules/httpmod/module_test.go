package httpmod

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/magicd/internal/lambda"
	"github.com/vk/magicd/internal/registry"
)

func newHTTPRegistry() *registry.Registry {
	reg := registry.New()
	(&Module{}).Register(reg)
	reg.Freeze()
	return reg
}

func TestHTTPGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "pong")
	}))
	defer server.Close()

	reg := newHTTPRegistry()
	args := lambda.New("http_get")
	args.SetString("url", server.URL)
	require.NoError(t, reg.Signal(context.Background(), "http_get", args))

	status, _ := args.GetInt("status")
	assert.Equal(t, http.StatusOK, status)
	content, _ := args.GetString("content")
	assert.Equal(t, "pong", content)
}

func TestHTTPPostSendsBodyAndContentType(t *testing.T) {
	var gotBody string
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	reg := newHTTPRegistry()
	args := lambda.New("http_post")
	args.SetString("url", server.URL)
	args.SetString("body", `{"x":1}`)
	args.SetString("content_type", "application/json")
	require.NoError(t, reg.Signal(context.Background(), "http_post", args))

	assert.Equal(t, `{"x":1}`, gotBody)
	assert.Equal(t, "application/json", gotContentType)
	status, _ := args.GetInt("status")
	assert.Equal(t, http.StatusCreated, status)
}

func TestHTTPGetRequiresURL(t *testing.T) {
	reg := newHTTPRegistry()
	assert.Error(t, reg.Signal(context.Background(), "http_get", lambda.New("http_get")))
}

func TestHTTPGetReportsConnectionFailure(t *testing.T) {
	reg := newHTTPRegistry()
	args := lambda.New("http_get")
	args.SetString("url", "http://127.0.0.1:1")
	assert.Error(t, reg.Signal(context.Background(), "http_get", args))
}
