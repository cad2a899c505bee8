// Package logmod exposes the host's structured logger to scripts.
package logmod

import (
	"context"
	"fmt"

	"github.com/vk/magicd/internal/ctxlog"
	"github.com/vk/magicd/internal/lambda"
	"github.com/vk/magicd/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// message extracts what to log: the "message" child, falling back to the
// invocation node's own value.
func message(args *lambda.Node) string {
	if msg, ok := args.GetString("message"); ok {
		return msg
	}
	if native, err := lambda.ValueToGo(args.Value); err == nil && native != nil {
		return fmt.Sprintf("%v", native)
	}
	return ""
}

// onLogInfo is the handler for the 'log_info' slot.
func onLogInfo(ctx context.Context, args *lambda.Node) error {
	ctxlog.FromContext(ctx).Info(message(args))
	return nil
}

// onLogError is the handler for the 'log_error' slot.
func onLogError(ctx context.Context, args *lambda.Node) error {
	ctxlog.FromContext(ctx).Error(message(args))
	return nil
}

// Register registers the logging slots with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSlot("log_info", &registry.RegisteredSlot{
		New: func() registry.Handler { return registry.HandlerFunc(onLogInfo) },
	})
	r.RegisterSlot("log_error", &registry.RegisteredSlot{
		New: func() registry.Handler { return registry.HandlerFunc(onLogError) },
	})
}
