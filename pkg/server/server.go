// Package server hosts the map viewer for browsers.
//
// GET / serves a self-contained page. The page opens a websocket on /ws;
// each connection mounts its own [viewer.Viewer], registered as a live
// session, and exchanges JSON: the browser sends [viewer.Event] values and
// receives a [viewer.Frame] whenever the viewer state changes. The session
// ends with the connection and nothing about it is kept.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/mapimage"
	"github.com/matzehuels/ecomap/pkg/plants"
	"github.com/matzehuels/ecomap/pkg/session"
	"github.com/matzehuels/ecomap/pkg/viewer"
	"github.com/matzehuels/ecomap/pkg/viewer/detail"
	"github.com/matzehuels/ecomap/pkg/viewer/geometry"
	"github.com/matzehuels/ecomap/pkg/viewer/marker"
)

// DefaultTitle is the page title when Config.Title is empty.
const DefaultTitle = "학교 생태지도"

// Site is everything a viewer session is mounted with.
type Site struct {
	Plants   []plants.Record
	Photos   map[string]string
	Map      *mapimage.Image
	Messages detail.Messages
}

// MountOptions are the host settings a site is mounted with.
type MountOptions struct {
	Viewport geometry.Size
	Messages detail.Messages // used when the site carries none
	Logger   *log.Logger
}

// Mount creates a viewer for the site. Base map metadata already known on
// the host is applied right away, so markers do not wait for the client to
// report the image load.
func (site *Site) Mount(ctx context.Context, opts MountOptions) (*viewer.Viewer, error) {
	if site.Map == nil {
		return nil, errors.New(errors.ErrCodeInternal, "site has no base map")
	}
	msgs := opts.Messages
	if site.Messages != (detail.Messages{}) {
		msgs = site.Messages
	}

	v, err := viewer.Mount(viewer.Config{
		Plants:   site.Plants,
		Photos:   site.Photos,
		MapImage: site.Map.Ref,
		Viewport: opts.Viewport,
		Messages: msgs,
		Logger:   opts.Logger,
		Context:  ctx,
	})
	if err != nil {
		return nil, err
	}
	switch info := site.Map.Info(); info.State {
	case marker.ImageReady:
		v.ImageLoaded(info.Width, info.Height)
	case marker.ImageFailed:
		v.ImageFailed()
	}
	return v, nil
}

// Loader produces the site for a new session. It runs once per connection,
// so edits to the plant list show up on the next page load.
type Loader func(ctx context.Context) (*Site, error)

// StaticLoader returns a Loader that always serves site.
func StaticLoader(site *Site) Loader {
	return func(context.Context) (*Site, error) { return site, nil }
}

// Config holds server configuration.
type Config struct {
	Addr           string
	Title          string
	AllowedOrigins []string // "*" allows any origin
	MaxSessions    int      // 0: unlimited
	Viewport       geometry.Size
	Messages       detail.Messages
	Logger         *log.Logger
}

// Server is the live viewer host.
type Server struct {
	cfg        Config
	load       Loader
	logger     *log.Logger
	sessions   *session.Registry
	router     chi.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server that mounts sessions from load.
func New(cfg Config, load Loader) *Server {
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	cfg.Messages = cfg.Messages.WithDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:      cfg,
		load:     load,
		logger:   logger,
		sessions: session.NewRegistry(cfg.MaxSessions),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  s.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handlePage)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", s.handleHealth)
	return r
}

// Router returns the chi router, for tests and for mounting extra routes.
func (s *Server) Router() chi.Router { return s.router }

// Sessions returns the live session registry.
func (s *Server) Sessions() *session.Registry { return s.sessions }

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.logger.Info("ecomap viewer listening", "addr", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes every live session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if n := s.sessions.CloseAll(ctx); n > 0 {
		s.logger.Info("closed live sessions", "count", n)
	}
	return err
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Max      int    `json:"maxSessions,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: s.sessions.Len(),
		Max:      s.sessions.Max(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
