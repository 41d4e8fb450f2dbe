// Package extensions registers the extension modules built into the binary
// with the running application.
package extensions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"launchseq/host"

	"go.uber.org/zap"
)

var (
	// ErrDuplicateExtension is returned when two extensions share a name
	ErrDuplicateExtension = errors.New("extension already registered")

	// ErrInvalidExtension is returned for nil extensions or empty names
	ErrInvalidExtension = errors.New("invalid extension")
)

// Extension is an externally supplied module that attaches itself to the
// running application.
type Extension interface {
	Name() string
	Register(app *host.Application) error
}

// Registry keeps the build's extensions in registration order.
type Registry struct {
	mu         sync.RWMutex
	extensions []Extension
	names      map[string]struct{}
	disabled   map[string]struct{}
	logger     *zap.SugaredLogger
}

// NewRegistry creates an empty registry. Extensions named in disabled are
// kept but skipped by RegisterAll.
func NewRegistry(logger *zap.SugaredLogger, disabled []string) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Registry{
		names:    make(map[string]struct{}),
		disabled: make(map[string]struct{}, len(disabled)),
		logger:   logger,
	}
	for _, name := range disabled {
		r.disabled[name] = struct{}{}
	}
	return r
}

// Add appends ext to the registry.
func (r *Registry) Add(ext Extension) error {
	if ext == nil || ext.Name() == "" {
		return ErrInvalidExtension
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[ext.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateExtension, ext.Name())
	}
	r.names[ext.Name()] = struct{}{}
	r.extensions = append(r.extensions, ext)
	return nil
}

// Names lists registered extension names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.extensions))
	for _, ext := range r.extensions {
		out = append(out, ext.Name())
	}
	return out
}

// Enabled reports whether the named extension will be registered.
func (r *Registry) Enabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, disabled := r.disabled[name]
	return !disabled
}

// RegisterAll attaches every enabled extension to app in registration order.
// It stops at the first failure.
func (r *Registry) RegisterAll(ctx context.Context, app *host.Application) error {
	if app == nil {
		return errors.New("application handle is nil")
	}

	r.mu.RLock()
	exts := make([]Extension, len(r.extensions))
	copy(exts, r.extensions)
	r.mu.RUnlock()

	for _, ext := range exts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("extension registration interrupted before %s: %w", ext.Name(), err)
		}
		if !r.Enabled(ext.Name()) {
			r.logger.Infow("Extension disabled by configuration", "extension", ext.Name())
			continue
		}
		if err := ext.Register(app); err != nil {
			return fmt.Errorf("extension %s: %w", ext.Name(), err)
		}
		app.Attach(ext.Name())
		r.logger.Debugw("Extension registered", "extension", ext.Name())
	}

	r.logger.Infow("Extensions registered", "count", len(app.Extensions()))
	return nil
}
