package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ruteri/package-registry/common"
	"github.com/ruteri/package-registry/metrics"
	"go.uber.org/atomic"
)

// HTTPServerConfig configures the listener shared by the registry node and
// the oracle.
type HTTPServerConfig struct {
	ListenAddr string
	// MetricsAddr enables the Prometheus listener when non-empty.
	MetricsAddr string
	EnablePprof bool

	Log *slog.Logger

	// Admin, when set, is mounted under /admin.
	Admin *AdminHandler

	// DrainDuration is how long /readyz reports not ready after /drain
	// before the operator is expected to stop the process.
	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RouteRegistrar mounts a handler's routes on a router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

type Server struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv        *http.Server
	metricsSrv *metrics.MetricsServer

	// api holds the service routes. It is nil while the server waits for
	// the service to come up, for example during an oracle key unlock.
	api atomic.Pointer[chi.Mux]
}

// New creates a server serving the routes of registrars. With no registrars
// the server answers health and admin requests only, until SetRoutes is
// called.
func New(cfg *HTTPServerConfig, registrars ...RouteRegistrar) (srv *Server, err error) {
	metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
	if err != nil {
		return nil, err
	}

	srv = &Server{
		cfg:        cfg,
		log:        cfg.Log,
		metricsSrv: metricsSrv,
	}
	srv.isReady.Store(true)
	if len(registrars) > 0 {
		srv.SetRoutes(registrars...)
	}

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv, nil
}

// SetRoutes replaces the service routes.
func (srv *Server) SetRoutes(registrars ...RouteRegistrar) {
	mux := chi.NewRouter()
	for _, r := range registrars {
		r.RegisterRoutes(mux)
	}
	srv.api.Store(mux)
}

// Handler returns the root handler, for use with httptest.
func (srv *Server) Handler() http.Handler {
	return srv.srv.Handler
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()
	mux.Use(srv.httpLogger)

	mux.Get("/livez", srv.handleLivez)
	mux.Get("/readyz", srv.handleReadyz)
	mux.Get("/drain", srv.handleDrain)
	mux.Get("/undrain", srv.handleUndrain)

	if srv.cfg.Admin != nil {
		srv.log.Info("oracle unlock API mounted", "path", "/admin")
		mux.Mount("/admin", srv.cfg.Admin.AdminRouter())
	}
	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API mounted", "path", "/debug")
		mux.Mount("/debug", middleware.Profiler())
	}

	mux.HandleFunc("/*", srv.dispatch)
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"status":"` + status + `"}`))
}

// dispatch forwards everything that is not a health or admin route to the
// registry or oracle routes installed with SetRoutes.
func (srv *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	api := srv.api.Load()
	if api == nil {
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}

	// The service router resolves the full path on its own.
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, nil))
	api.ServeHTTP(w, r)
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

func (srv *Server) handleLivez(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, "alive")
}

// handleReadyz reports ready only while the server is not draining and the
// service routes are installed.
func (srv *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if srv.isReady.Load() && srv.api.Load() != nil {
		writeStatus(w, http.StatusOK, "ready")
		return
	}
	writeStatus(w, http.StatusServiceUnavailable, "not ready")
}

func (srv *Server) handleDrain(w http.ResponseWriter, _ *http.Request) {
	if wasReady := srv.isReady.Swap(false); !wasReady {
		writeStatus(w, http.StatusOK, "already draining")
		return
	}
	srv.log.Info("draining, readiness withdrawn", "drainDuration", srv.cfg.DrainDuration)
	time.AfterFunc(srv.cfg.DrainDuration, func() {
		srv.log.Info("drain period elapsed")
	})
	writeStatus(w, http.StatusOK, "draining")
}

func (srv *Server) handleUndrain(w http.ResponseWriter, _ *http.Request) {
	if wasReady := srv.isReady.Swap(true); wasReady {
		writeStatus(w, http.StatusOK, "already ready")
		return
	}
	srv.log.Info("readiness restored")
	writeStatus(w, http.StatusOK, "ready")
}

// RunInBackground starts the service listener and, when configured, the
// metrics listener. Listener failures are logged, not returned.
func (srv *Server) RunInBackground() {
	if srv.cfg.MetricsAddr != "" {
		go srv.serve("metrics", srv.cfg.MetricsAddr, srv.metricsSrv.ListenAndServe)
	}
	go srv.serve("registry", srv.cfg.ListenAddr, srv.srv.ListenAndServe)
}

func (srv *Server) serve(name, addr string, listen func() error) {
	srv.log.Info("listener starting", "listener", name, "addr", addr)
	if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		srv.log.Error("listener failed", "listener", name, "err", err)
	}
}

// Shutdown stops both listeners, giving each up to GracefulShutdownDuration
// to finish in-flight requests.
func (srv *Server) Shutdown() {
	srv.shutdown("registry", srv.srv.Shutdown)
	if srv.cfg.MetricsAddr != "" {
		srv.shutdown("metrics", srv.metricsSrv.Shutdown)
	}
}

func (srv *Server) shutdown(name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := stop(ctx); err != nil {
		srv.log.Error("graceful shutdown failed", "listener", name, "err", err)
		return
	}
	srv.log.Info("listener stopped", "listener", name)
}
