package host

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"launchseq/util/goroutine"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Event identifies a point in the application launch that observers can
// intercept.
type Event string

const (
	EventWillFinishLaunching Event = "will-finish-launching"
	EventDidFinishLaunching  Event = "did-finish-launching"
	EventLaunchFailed        Event = "launch-failed"
)

// Observer receives launch events emitted by the application.
type Observer interface {
	OnLaunchEvent(event Event, lc *LaunchContext)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(event Event, lc *LaunchContext)

func (f ObserverFunc) OnLaunchEvent(event Event, lc *LaunchContext) { f(event, lc) }

// Application is the running application handle handed to extensions during
// bootstrap. Its DidFinishLaunching method is the framework's own startup
// logic and must run last.
type Application struct {
	name   string
	addr   string
	logger *zap.SugaredLogger
	router *mux.Router

	mu         sync.Mutex
	observers  []Observer
	extensions []string
	launched   bool
	server     *http.Server
	listenAddr string
	serveWg    sync.WaitGroup

	ready atomic.Bool
}

// NewApplication creates an application handle. An empty addr disables the
// status listener; routes are still mounted and reachable through Handler.
func NewApplication(name, addr string, logger *zap.SugaredLogger) *Application {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Application{
		name:   name,
		addr:   addr,
		logger: logger,
		router: mux.NewRouter(),
	}
}

// Name returns the application name.
func (a *Application) Name() string { return a.name }

// Router exposes the application's router so extensions can mount routes.
func (a *Application) Router() *mux.Router { return a.router }

// Handler returns the HTTP handler serving the application's routes.
func (a *Application) Handler() http.Handler { return a.router }

// Logger returns the application's logger.
func (a *Application) Logger() *zap.SugaredLogger { return a.logger }

// Observe subscribes o to launch events.
func (a *Application) Observe(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// Attach records that the named extension is attached to this application.
func (a *Application) Attach(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.extensions = append(a.extensions, name)
}

// Extensions lists attached extensions in attach order.
func (a *Application) Extensions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.extensions))
	copy(out, a.extensions)
	return out
}

// Ready reports whether the base startup logic completed.
func (a *Application) Ready() bool { return a.ready.Load() }

// ListenAddr returns the bound status listener address, if any.
func (a *Application) ListenAddr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listenAddr
}

// DidFinishLaunching runs the framework's base startup: it notifies
// observers, mounts the health routes, binds the status listener and marks
// the application ready. It returns false if startup failed or had already
// run.
func (a *Application) DidFinishLaunching(ctx context.Context, lc *LaunchContext) bool {
	a.mu.Lock()
	if a.launched {
		a.mu.Unlock()
		a.logger.Warnw("Base startup invoked more than once", "app", a.name)
		return false
	}
	a.launched = true
	a.mu.Unlock()

	a.notify(EventWillFinishLaunching, lc)

	a.router.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)
	a.router.HandleFunc("/readyz", a.handleReady).Methods(http.MethodGet)
	a.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if a.addr != "" {
		if err := a.listen(ctx); err != nil {
			a.logger.Errorw("Failed to start status listener", "addr", a.addr, "error", err)
			a.notify(EventLaunchFailed, lc)
			return false
		}
	}

	a.ready.Store(true)
	a.logger.Infow("Application finished launching",
		"app", a.name,
		"launch_id", lc.LaunchID,
		"extensions", len(a.Extensions()))
	a.notify(EventDidFinishLaunching, lc)
	return true
}

func (a *Application) listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.mu.Lock()
	a.server = srv
	a.listenAddr = ln.Addr().String()
	a.mu.Unlock()

	a.serveWg.Add(1)
	go func() {
		defer a.serveWg.Done()
		defer goroutine.Recover("status-listener", a.logger)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorw("Status listener stopped", "error", err)
		}
	}()

	a.logger.Infow("Status listener started", "addr", ln.Addr().String())
	return nil
}

// Shutdown stops the status listener and clears readiness.
func (a *Application) Shutdown(ctx context.Context) error {
	a.ready.Store(false)

	a.mu.Lock()
	srv := a.server
	a.server = nil
	a.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	a.serveWg.Wait()
	return err
}

func (a *Application) notify(event Event, lc *LaunchContext) {
	a.mu.Lock()
	observers := make([]Observer, len(a.observers))
	copy(observers, a.observers)
	a.mu.Unlock()

	for _, o := range observers {
		o.OnLaunchEvent(event, lc)
	}
}

func (a *Application) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *Application) handleReady(w http.ResponseWriter, r *http.Request) {
	if !a.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
