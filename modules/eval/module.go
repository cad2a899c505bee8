// Package eval provides the fixed dispatch target for scripts: it signals
// every child of its argument node, in order, under the child's own name.
// Children whose name starts with "." are data nodes and are skipped; this
// is how failure context rides along inside exception-handler scripts.
package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/magicd/internal/lambda"
	"github.com/vk/magicd/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// handler walks one tree. It holds the registry it dispatches through.
type handler struct {
	registry *registry.Registry
}

// Signal dispatches each executable child in order. The first failing
// child aborts the rest of the tree.
func (h *handler) Signal(ctx context.Context, args *lambda.Node) error {
	for _, child := range args.Children {
		if child.Name == "" || strings.HasPrefix(child.Name, ".") {
			continue
		}
		if err := h.registry.Signal(ctx, child.Name, child); err != nil {
			return fmt.Errorf("slot '%s': %w", child.Name, err)
		}
	}
	return nil
}

// Register registers the evaluate slot with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSlot("evaluate", &registry.RegisteredSlot{
		New: func() registry.Handler { return &handler{registry: r} },
	})
}
