package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/magicd/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and a frozen
// registry built from the compiled-in feature modules.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules(cfg)
	}

	reg := registry.New()
	for _, mod := range modules {
		registerModule(logger, reg, mod)
	}

	// From here on the registry is read-only: every slot a startup script
	// may reference must already be registered.
	reg.Freeze()
	logger.Debug("Registry frozen.", "slots", len(reg.Slots()))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
	}
}

// registerModule registers one feature module under a fault barrier. A
// module whose registration panics is skipped with an error log so the
// remaining modules still register; a silently missing module would
// disable an unknown set of slots.
func registerModule(logger *slog.Logger, reg *registry.Registry, mod registry.Module) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Module registration failed, skipping.", "module", fmt.Sprintf("%T", mod), "error", rec)
		}
	}()
	mod.Register(reg)
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
