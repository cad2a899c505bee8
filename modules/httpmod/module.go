// Package httpmod provides stateless HTTP request slots for scripts.
package httpmod

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vk/magicd/internal/ctxlog"
	"github.com/vk/magicd/internal/lambda"
	"github.com/vk/magicd/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// httpClient is shared across all slot executions to reuse TCP connections.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// onHTTPGet is the handler for the 'http_get' slot.
func onHTTPGet(ctx context.Context, args *lambda.Node) error {
	return execute(ctx, http.MethodGet, args, nil)
}

// onHTTPPost is the handler for the 'http_post' slot.
func onHTTPPost(ctx context.Context, args *lambda.Node) error {
	body, _ := args.GetString("body")
	return execute(ctx, http.MethodPost, args, strings.NewReader(body))
}

// execute performs the request and writes "status" and "content" back into
// the invocation node.
func execute(ctx context.Context, method string, args *lambda.Node, body io.Reader) error {
	url, ok := args.GetString("url")
	if !ok {
		return fmt.Errorf("%s requires a 'url' argument", strings.ToLower(method))
	}

	logger := ctxlog.FromContext(ctx).With("slot", "http", "method", method, "url", url)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if contentType, ok := args.GetString("content_type"); ok {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to '%s' failed: %w", url, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from '%s': %w", url, err)
	}

	args.SetInt("status", resp.StatusCode)
	args.SetString("content", string(content))
	return nil
}

// Register registers the HTTP slots with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSlot("http_get", &registry.RegisteredSlot{
		New: func() registry.Handler { return registry.HandlerFunc(onHTTPGet) },
	})
	r.RegisterSlot("http_post", &registry.RegisteredSlot{
		New: func() registry.Handler { return registry.HandlerFunc(onHTTPPost) },
	})
}
