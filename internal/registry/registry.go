package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/magicd/internal/ctxlog"
	"github.com/vk/magicd/internal/lambda"
)

// Handler executes a single named slot against an instruction tree. The
// args node is shared and mutable: handlers communicate results back to the
// caller by writing children into it.
type Handler interface {
	Signal(ctx context.Context, args *lambda.Node) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, args *lambda.Node) error

// Signal implements Handler.
func (f HandlerFunc) Signal(ctx context.Context, args *lambda.Node) error {
	return f(ctx, args)
}

// RegisteredSlot holds the compiled Go parts of a slot. New is invoked once
// per dispatch so that handlers never share per-invocation state.
type RegisteredSlot struct {
	New func() Handler
}

// Module is the interface that all feature modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all registered slots for a single application instance.
type Registry struct {
	slots  map[string]*RegisteredSlot
	frozen bool
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		slots: make(map[string]*RegisteredSlot),
	}
}

// RegisterSlot registers a slot factory under the given name. Registering a
// duplicate name, registering after Freeze, or registering a slot without a
// factory is a programmer error and panics.
func (r *Registry) RegisterSlot(name string, slot *RegisteredSlot) {
	if r.frozen {
		panic(fmt.Sprintf("slot '%s' registered after registry was frozen", name))
	}
	if slot == nil || slot.New == nil {
		panic(fmt.Sprintf("slot '%s' registered without a handler factory", name))
	}
	if _, exists := r.slots[name]; exists {
		panic(fmt.Sprintf("slot handler with name '%s' already registered", name))
	}
	slog.Debug("Registering slot handler.", "name", name)
	r.slots[name] = slot
}

// Freeze marks the registry read-only. Every registration must happen
// before the first startup script executes; Freeze is the enforcement point.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Has reports whether a slot with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.slots[name]
	return ok
}

// Slots returns all registered slot names in sorted order.
func (r *Registry) Slots() []string {
	names := make([]string, 0, len(r.slots))
	for name := range r.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Signal dispatches args to the named slot and waits for it to finish. A
// fresh handler instance is created for every dispatch. An unknown slot
// name is an error, not a panic: scripts are user input.
func (r *Registry) Signal(ctx context.Context, name string, args *lambda.Node) error {
	slot, ok := r.slots[name]
	if !ok {
		return fmt.Errorf("no slot registered with the name '%s'", name)
	}
	return slot.New().Signal(ctx, args)
}

// SignalBackground dispatches args to the named slot without waiting.
// Errors are logged through the context logger and otherwise dropped.
func (r *Registry) SignalBackground(ctx context.Context, name string, args *lambda.Node) {
	go func() {
		if err := r.Signal(ctx, name, args); err != nil {
			ctxlog.FromContext(ctx).Error("Background slot invocation failed.", "slot", name, "error", err)
		}
	}()
}
