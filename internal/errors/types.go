// Package errors provides the structured error type shared across the build
// orchestrator: every fatal condition named in the core's error taxonomy
// (config-invalid, html-parse, descriptor-invalid, source-missing,
// tool-missing, tool-failed, artifact-collision, io, network,
// build-cancelled) is represented as a *CoreError carrying a message chain
// and structured context so causality survives when rendered to the user.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Type categorizes a CoreError per the core's error taxonomy.
type Type string

const (
	TypeConfigInvalid     Type = "config-invalid"
	TypeHTMLParse         Type = "html-parse"
	TypeDescriptorInvalid Type = "descriptor-invalid"
	TypeSourceMissing     Type = "source-missing"
	TypeToolMissing       Type = "tool-missing"
	TypeOfflineToolMissing Type = "offline-tool-missing"
	TypeToolFailed         Type = "tool-failed"
	TypeArtifactCollision  Type = "artifact-collision"
	TypeIO                 Type = "io"
	TypeNetwork            Type = "network"
	TypeBuildCancelled     Type = "build-cancelled"
)

// CoreError is a structured error with a type, a free-form context map, and
// an optional wrapped cause.
type CoreError struct {
	Type      Type
	Message   string
	Cause     error
	Context   map[string]interface{}
	Recoverable bool
}

// Error implements the error interface, rendering as a single line; the
// cause chain is appended so callers that print via %v still see causality.
func (e *CoreError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.Type))
	b.WriteString("] ")
	b.WriteString(e.Message)

	for k, v := range e.Context {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is compares by Type so errors.Is(err, &CoreError{Type: TypeToolFailed}) works.
func (e *CoreError) Is(target error) bool {
	var t *CoreError
	if errors.As(target, &t) {
		return e.Type == t.Type
	}
	return false
}

// WithContext attaches a key/value pair of diagnostic context.
func (e *CoreError) WithContext(key string, value interface{}) *CoreError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New constructs a CoreError of the given type.
func New(t Type, message string) *CoreError {
	return &CoreError{Type: t, Message: message}
}

// Wrap constructs a CoreError of the given type around a cause.
func Wrap(t Type, message string, cause error) *CoreError {
	return &CoreError{Type: t, Message: message, Cause: cause}
}

// ToolFailed builds the tool-failed error carrying the tool name, arguments,
// and exit code, per the core's error taxonomy.
func ToolFailed(tool string, args []string, exitCode int, cause error) *CoreError {
	return Wrap(TypeToolFailed, fmt.Sprintf("%s exited with code %d", tool, exitCode), cause).
		WithContext("tool", tool).
		WithContext("args", args).
		WithContext("exit_code", exitCode)
}

// OfflineToolMissing builds the offline-tool-missing variant of tool-missing.
func OfflineToolMissing(tool string) *CoreError {
	return New(TypeOfflineToolMissing, fmt.Sprintf("%s is not available locally and offline mode forbids downloading it", tool)).
		WithContext("tool", tool)
}

// ArtifactCollision builds the artifact-collision error for two tasks that
// claim the same staging path.
func ArtifactCollision(path string) *CoreError {
	return New(TypeArtifactCollision, "two tasks claimed the same staging path").
		WithContext("path", path)
}

// DescriptorInvalid builds a descriptor-invalid error.
func DescriptorInvalid(reason string) *CoreError {
	return New(TypeDescriptorInvalid, reason)
}

// BuildCancelled builds the build-cancelled error for a superseded build.
func BuildCancelled() *CoreError {
	return New(TypeBuildCancelled, "build was superseded by a later trigger")
}

// Is reports whether err carries the given Type anywhere in its chain.
func Is(err error, t Type) bool {
	return errors.Is(err, &CoreError{Type: t})
}

// Recoverable types are ones that, in serve mode, should not stop the dev
// server loop.
func Recoverable(err error) bool {
	var ce *CoreError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Type {
	case TypeBuildCancelled, TypeSourceMissing:
		return true
	default:
		return false
	}
}

// Logger is the minimal logging capability an ErrorHandler needs; satisfied
// by *zap.SugaredLogger.
type Logger interface {
	Errorw(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
}

// Handler centralizes the per-type error handling behavior spec.md §7
// describes: in serve mode, log and keep running; in build mode, the
// caller is expected to exit nonzero itself.
type Handler struct {
	logger Logger
}

// NewHandler creates an error handler bound to the given logger.
func NewHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle logs err at a severity appropriate to its type.
func (h *Handler) Handle(_ context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		if Recoverable(err) {
			h.logger.Warnw(ce.Message, "type", ce.Type)
			return
		}
		h.logger.Errorw(ce.Message, "type", ce.Type)
		return
	}
	h.logger.Errorw(err.Error())
}
