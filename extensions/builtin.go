package extensions

import (
	"net/http"

	"launchseq/host"
	"launchseq/mapping"

	"go.uber.org/zap"
)

// Deps carries what the built-in extensions need from the build.
type Deps struct {
	Mapping *mapping.Services
	Logger  *zap.SugaredLogger
}

// RegisterBuiltins adds the extensions compiled into this build, in their
// fixed order.
func RegisterBuiltins(r *Registry, deps Deps) error {
	builtins := []Extension{
		&MapsExtension{Services: deps.Mapping},
		&LaunchAuditExtension{Logger: deps.Logger},
		&IndexExtension{},
	}
	for _, ext := range builtins {
		if err := r.Add(ext); err != nil {
			return err
		}
	}
	return nil
}

// MapsExtension exposes the mapping service status. It refuses to attach
// before the service has its API key.
type MapsExtension struct {
	Services *mapping.Services
}

func (e *MapsExtension) Name() string { return "maps" }

func (e *MapsExtension) Register(app *host.Application) error {
	if e.Services == nil || !e.Services.Configured() {
		return mapping.ErrNotConfigured
	}
	app.Router().HandleFunc("/maps/status", func(w http.ResponseWriter, r *http.Request) {
		host.WriteJSON(w, http.StatusOK, map[string]any{
			"configured":  e.Services.Configured(),
			"fingerprint": e.Services.Fingerprint(),
		})
	}).Methods(http.MethodGet)
	return nil
}

// LaunchAuditExtension logs every launch event.
type LaunchAuditExtension struct {
	Logger *zap.SugaredLogger
}

func (e *LaunchAuditExtension) Name() string { return "launch-audit" }

func (e *LaunchAuditExtension) Register(app *host.Application) error {
	logger := e.Logger
	if logger == nil {
		logger = app.Logger()
	}
	app.Observe(host.ObserverFunc(func(event host.Event, lc *host.LaunchContext) {
		logger.Infow("Launch event", "event", string(event), "launch_id", lc.LaunchID)
	}))
	return nil
}

// IndexExtension lists the attached extensions at /extensions.
type IndexExtension struct{}

func (e *IndexExtension) Name() string { return "extension-index" }

func (e *IndexExtension) Register(app *host.Application) error {
	app.Router().HandleFunc("/extensions", func(w http.ResponseWriter, r *http.Request) {
		host.WriteJSON(w, http.StatusOK, map[string]any{"extensions": app.Extensions()})
	}).Methods(http.MethodGet)
	return nil
}
