// Package startup executes initialization scripts found under reserved
// "magic.startup" folders. The traversal covers three layers relative to
// each top-level module folder: the folder itself, its immediate children,
// and its grandchildren. System folders always run before module folders,
// because system scripts register foundational state that module scripts
// may depend on. One broken module must never prevent its siblings from
// initializing, so every top-level folder runs under its own fault barrier.
package startup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/magicd/internal/ctxlog"
	"github.com/vk/magicd/internal/fsutil"
	"github.com/vk/magicd/internal/hlparse"
	"github.com/vk/magicd/internal/lambda"
)

const (
	// FolderName is the reserved name that marks a folder as containing
	// startup scripts.
	FolderName = "magic.startup"

	// ScriptExtension is the reserved extension of executable script files.
	ScriptExtension = ".hl"

	// evalSlot is the fixed slot name every parsed script is dispatched under.
	evalSlot = "evaluate"
)

// Signaler dispatches a named slot against an instruction tree. The
// registry satisfies this.
type Signaler interface {
	Signal(ctx context.Context, name string, args *lambda.Node) error
}

// Runner walks the layered folder hierarchy and executes every script it
// finds, exactly once each.
type Runner struct {
	folders  fsutil.FolderService
	files    fsutil.FileService
	parser   hlparse.Parser
	signaler Signaler
}

// NewRunner creates a startup script runner from its collaborators.
func NewRunner(folders fsutil.FolderService, files fsutil.FileService, parser hlparse.Parser, signaler Signaler) *Runner {
	return &Runner{
		folders:  folders,
		files:    files,
		parser:   parser,
		signaler: signaler,
	}
}

// Run executes all startup scripts beneath the system root first, then the
// modules root. It runs exactly once during application startup, after the
// registry is frozen and before the HTTP pipeline serves requests. Run
// never returns an error: failures are contained per top-level folder.
func (r *Runner) Run(ctx context.Context, systemRoot, modulesRoot string) {
	var topLevel []string
	for _, root := range []string{systemRoot, modulesRoot} {
		folders, err := r.folders.ListFolders(root)
		if err != nil {
			// A missing root is common on a fresh install.
			ctxlog.FromContext(ctx).Warn("Skipping startup root.", "root", root, "error", err)
			continue
		}
		topLevel = append(topLevel, folders...)
	}

	for _, folder := range topLevel {
		r.runTopLevel(ctx, folder)
	}
}

// runTopLevel executes one top-level folder's three layers under a fault
// barrier. Scripts already executed before a failure keep their effects.
func (r *Runner) runTopLevel(ctx context.Context, folder string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.report(ctx, folder, fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := r.execTopLevel(ctx, folder); err != nil {
		r.report(ctx, folder, err)
	}
}

// execTopLevel applies the layered lookup to a single top-level folder.
func (r *Runner) execTopLevel(ctx context.Context, folder string) error {
	// Layer 0: the top-level folder itself is a startup folder.
	if filepath.Base(folder) == FolderName {
		return r.execFolder(ctx, folder)
	}

	children, err := r.folders.ListFolders(folder)
	if err != nil {
		return err
	}

	for _, child := range children {
		// Layer 1: module-level startup folder.
		if filepath.Base(child) == FolderName {
			if err := r.execFolder(ctx, child); err != nil {
				return err
			}
			continue
		}

		// Layer 2: sub-module-level startup folders.
		grandchildren, err := r.folders.ListFolders(child)
		if err != nil {
			return err
		}
		for _, grandchild := range grandchildren {
			if filepath.Base(grandchild) == FolderName {
				if err := r.execFolder(ctx, grandchild); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// execFolder parses and dispatches every script file beneath folder.
func (r *Runner) execFolder(ctx context.Context, folder string) error {
	ctxlog.FromContext(ctx).Info("Executing startup folder.", "folder", folder)

	scripts, err := r.files.ListFiles(folder, ScriptExtension)
	if err != nil {
		return err
	}

	for _, script := range scripts {
		src, err := r.files.Load(script)
		if err != nil {
			return fmt.Errorf("loading %s: %w", script, err)
		}
		tree, err := r.parser.Parse(script, src)
		if err != nil {
			return err
		}
		if err := r.signaler.Signal(ctx, evalSlot, tree); err != nil {
			return fmt.Errorf("executing %s: %w", script, err)
		}
	}

	return nil
}

// report surfaces a contained failure. If no logger was configured yet,
// for instance because required configuration has not been supplied, the
// failure is written to stderr so it is never silently swallowed.
func (r *Runner) report(ctx context.Context, folder string, err error) {
	if logger, ok := ctxlog.Lookup(ctx); ok {
		logger.Error("Startup folder failed, continuing with next module.", "folder", folder, "error", err)
		return
	}
	fmt.Fprintf(os.Stderr, "startup folder %s failed: %v\n", folder, err)
}
