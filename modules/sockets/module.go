// Package sockets lets scripts publish signals to a socket.io endpoint.
package sockets

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/magicd/internal/ctxlog"
	"github.com/vk/magicd/internal/lambda"
	"github.com/vk/magicd/internal/registry"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onSocketsSignal is the handler for the 'sockets_signal' slot. It connects
// to the endpoint given in "url", emits the "event" with the node's
// "payload" value, and disconnects.
func onSocketsSignal(ctx context.Context, args *lambda.Node) error {
	rawURL, ok := args.GetString("url")
	if !ok {
		return fmt.Errorf("sockets_signal requires a 'url' argument")
	}
	event, ok := args.GetString("event")
	if !ok {
		return fmt.Errorf("sockets_signal requires an 'event' argument")
	}
	namespace, _ := args.GetString("namespace")

	logger := ctxlog.FromContext(ctx).With("slot", "sockets_signal", "url", rawURL, "event", event)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	var payload any
	if p := args.Child("payload"); p != nil {
		native, err := lambda.ValueToGo(p.Value)
		if err != nil {
			return fmt.Errorf("converting payload: %w", err)
		}
		payload = native
	}

	timeout := 10 * time.Second
	if raw, ok := args.GetString("timeout"); ok {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			logger.Warn("Failed to parse timeout, using default 10s", "timeout", raw, "error", err)
		} else {
			timeout = parsed
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	if insecure, _ := args.GetBool("insecure_skip_verify"); insecure {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	done := make(chan error, 1)
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	io.On(types.EventName("connect"), func(...any) {
		logger.Debug("Connected, emitting signal", "namespace", namespace, "sid", io.Id())
		io.Emit(event, payload)
		done <- nil
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		if err, ok := errs[0].(error); ok {
			done <- err
			return
		}
		done <- fmt.Errorf("connect error: %v", errs[0])
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		return fmt.Errorf("timed out while waiting for connection to '%s'", baseURL)
	case err := <-done:
		return err
	}
}

// Register registers the sockets slot with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSlot("sockets_signal", &registry.RegisteredSlot{
		New: func() registry.Handler { return registry.HandlerFunc(onSocketsSignal) },
	})
}
