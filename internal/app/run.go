package app

import (
	"context"

	"github.com/vk/magicd/internal/ctxlog"
	"github.com/vk/magicd/internal/faults"
	"github.com/vk/magicd/internal/fsutil"
	"github.com/vk/magicd/internal/hlparse"
	"github.com/vk/magicd/internal/httpserver"
	"github.com/vk/magicd/internal/startup"
)

// Run executes the main application lifecycle: startup scripts first, then
// the HTTP pipeline. It blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	files := fsutil.OSFiles{}
	parser := hlparse.NewHCLParser()

	a.logger.Info("Executing startup scripts.", "system", a.config.SystemRoot(), "modules", a.config.ModulesRoot())
	runner := startup.NewRunner(files, files, parser, a.registry)
	runner.Run(ctx, a.config.SystemRoot(), a.config.ModulesRoot())
	a.logger.Info("Startup scripts finished.")

	resolver := faults.NewResolver(a.config.RootFolder, files, parser, a.registry)
	server := httpserver.New(httpserver.Config{
		ListenAddr:     a.config.ListenAddr,
		AuthSecret:     a.config.AuthSecret,
		AllowedOrigins: a.config.AllowedOrigins,
	}, a.logger, a.registry, resolver, parser)

	return server.ListenAndServe(ctx)
}
