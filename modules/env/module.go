// Package env lets scripts read the process environment.
package env

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/magicd/internal/lambda"
	"github.com/vk/magicd/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onEnvGet is the handler for the 'env_get' slot. It writes the variable's
// value back into the invocation node under "value".
func onEnvGet(ctx context.Context, args *lambda.Node) error {
	name, ok := args.GetString("name")
	if !ok {
		return fmt.Errorf("env_get requires a 'name' argument")
	}
	args.SetString("value", os.Getenv(name))
	return nil
}

// onEnvList is the handler for the 'env_list' slot. It writes every
// environment variable as a child of a "values" node.
func onEnvList(ctx context.Context, args *lambda.Node) error {
	values := lambda.New("values")
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			values.SetString(pair[0], pair[1])
		}
	}
	args.Add(values)
	return nil
}

// Register registers the environment slots with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSlot("env_get", &registry.RegisteredSlot{
		New: func() registry.Handler { return registry.HandlerFunc(onEnvGet) },
	})
	r.RegisterSlot("env_list", &registry.RegisteredSlot{
		New: func() registry.Handler { return registry.HandlerFunc(onEnvList) },
	})
}
