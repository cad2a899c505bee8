// Package faults turns an unhandled request failure into a response
// payload. Modules can take over failure shaping by placing a reserved
// "exceptions.hl" script in any ancestor folder of the path that failed;
// the nearest ancestor wins and exactly one script executes per failure.
// Without a script the caller gets a generic, non-identifying message,
// unless the failure was explicitly marked public.
package faults

import (
	"context"
	"errors"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/vk/magicd/internal/ctxlog"
	"github.com/vk/magicd/internal/fsutil"
	"github.com/vk/magicd/internal/hlparse"
	"github.com/vk/magicd/internal/lambda"
)

const (
	// HandlerFilename is the reserved name of a custom exception-handler
	// script.
	HandlerFilename = "exceptions.hl"

	// ContextNode is the name of the node carrying failure context into an
	// exception-handler script. The leading dot keeps eval from dispatching
	// it as a slot; the script reaches it through the tree root.
	ContextNode = ".context"

	// DefaultMessage is what callers see when a failure is not public and
	// no custom handler shaped the response.
	DefaultMessage = "An unknown error occurred, check your server logs for details"

	evalSlot = "evaluate"
)

// Fault is a request failure with structured context. Status defaults to
// 500 when unset. Public faults expose their message and field verbatim
// even without a custom handler.
type Fault struct {
	Message string
	Path    string
	Field   string
	Status  int
	Public  bool
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return f.Message
}

// Payload is the JSON body returned to the caller after a failure.
type Payload struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Signaler dispatches a named slot against an instruction tree.
type Signaler interface {
	Signal(ctx context.Context, name string, args *lambda.Node) error
}

// Resolver performs the ancestor search and script execution. It holds no
// per-failure state and never caches lookup results: failures are assumed
// rare relative to request volume.
type Resolver struct {
	root     string
	files    fsutil.FileService
	parser   hlparse.Parser
	signaler Signaler
}

// NewResolver creates a Resolver rooted at the configured files folder.
func NewResolver(root string, files fsutil.FileService, parser hlparse.Parser, signaler Signaler) *Resolver {
	return &Resolver{
		root:     root,
		files:    files,
		parser:   parser,
		signaler: signaler,
	}
}

// Resolve maps a failure at requestPath to a response payload and status
// code. It runs on the request goroutine that experienced the failure.
func (r *Resolver) Resolve(ctx context.Context, requestPath string, cause error) (Payload, int) {
	fault := asFault(cause, requestPath)

	script, ok := r.find(requestPath)
	if ok {
		payload, status, err := r.execute(ctx, script, fault)
		if err == nil {
			return payload, status
		}
		// A broken exceptions.hl gets the same containment discipline as a
		// broken startup script: log and fall through to the default shape.
		ctxlog.FromContext(ctx).Error("Custom exception handler failed.", "script", script, "error", err)
	}

	return defaultPayload(fault), fault.Status
}

// asFault normalizes an arbitrary error into a Fault with its status
// defaulted. Errors that are not faults are never public.
func asFault(cause error, requestPath string) *Fault {
	var fault *Fault
	if !errors.As(cause, &fault) {
		fault = &Fault{Message: cause.Error()}
	}
	if fault.Path == "" {
		fault.Path = requestPath
	}
	if fault.Status == 0 {
		fault.Status = http.StatusInternalServerError
	}
	return fault
}

// find searches upward through requestPath's ancestors for a handler
// script, starting at the immediate parent and stopping at the virtual
// root. The nearest ancestor wins.
func (r *Resolver) find(requestPath string) (string, bool) {
	dir := path.Dir(path.Clean("/" + requestPath))
	for dir != "/" && dir != "." {
		candidate := filepath.Join(r.root, filepath.FromSlash(strings.TrimPrefix(dir, "/")), HandlerFilename)
		if r.files.Exists(candidate) {
			return candidate, true
		}
		dir = path.Dir(dir)
	}
	return "", false
}

// execute runs one handler script with the failure context attached and
// reads whatever the script left there back out as the response.
func (r *Resolver) execute(ctx context.Context, script string, fault *Fault) (Payload, int, error) {
	src, err := r.files.Load(script)
	if err != nil {
		return Payload{}, 0, err
	}
	tree, err := r.parser.Parse(script, src)
	if err != nil {
		return Payload{}, 0, err
	}

	ctxNode := lambda.New(ContextNode)
	ctxNode.SetString("message", fault.Message)
	ctxNode.SetString("path", fault.Path)
	if fault.Field != "" {
		ctxNode.SetString("field", fault.Field)
	}
	ctxNode.SetInt("status", fault.Status)
	ctxNode.SetBool("public", fault.Public)
	tree.Add(ctxNode)

	if err := r.signaler.Signal(ctx, evalSlot, tree); err != nil {
		return Payload{}, 0, err
	}

	payload := Payload{Message: DefaultMessage}
	if msg, ok := ctxNode.GetString("message"); ok && msg != "" {
		payload.Message = msg
	}
	if field, ok := ctxNode.GetString("field"); ok {
		payload.Field = field
	}
	status := fault.Status
	if s, ok := ctxNode.GetInt("status"); ok && s != 0 {
		status = s
	}
	return payload, status, nil
}

// defaultPayload is the response shape when no custom handler ran. The
// original status always passes through; the message only does for faults
// explicitly marked public.
func defaultPayload(fault *Fault) Payload {
	if fault.Public {
		return Payload{Message: fault.Message, Field: fault.Field}
	}
	return Payload{Message: DefaultMessage}
}
