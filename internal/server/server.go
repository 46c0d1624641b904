// Package server exposes one sheet view over a JSON HTTP API.
//
// All requests are serialized on a single mutex: the view itself is not safe
// for concurrent use. Every state change is pushed to /api/events listeners
// as a server-sent event so clients know when to re-fetch /api/view.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sheetview/internal/source"
	"github.com/leapstack-labs/sheetview/pkg/cell"
	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

// View is the engine type the server drives. Handlers pass a fresh *Call as
// the callback context so the events a request triggers come back in its
// response.
type View = sheet.View[cell.Value, *Call]

// Call collects the events fired while handling one request.
type Call struct {
	Events []Event
}

// Event is one fired view event.
type Event struct {
	Kind     string          `json:"kind"`
	Column   string          `json:"column,omitempty"`
	Order    string          `json:"order,omitempty"`
	Position *sheet.Position `json:"position,omitempty"`
	Text     string          `json:"text,omitempty"`
}

// Config holds configuration for the server.
type Config struct {
	Addr string
	// Source is reloaded when Watch is set and the file changes.
	Source   source.Config
	Columns  []sheet.Column
	Watch    bool
	Debounce time.Duration
	Logger   *slog.Logger
}

// Server hosts one view.
type Server struct {
	mu      sync.Mutex
	view    *View
	version uint64

	cfg      Config
	logger   *slog.Logger
	notifier *notifier
}

// New creates a server over v and registers the view's event handlers.
func New(v *View, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}

	v.SetOnSort(func(c *Call, column string, order sheet.Order) {
		c.Events = append(c.Events, Event{Kind: "sort", Column: column, Order: order.String()})
	})
	v.SetOnSubmit(func(c *Call, row, column int) {
		c.Events = append(c.Events, Event{
			Kind:     "submit",
			Position: &sheet.Position{Column: column, Row: row},
			Text:     v.CellText(row, column),
		})
	})
	v.SetOnSelect(func(c *Call, row, column int) {
		c.Events = append(c.Events, Event{
			Kind:     "select",
			Position: &sheet.Position{Column: column, Row: row},
		})
	})

	return &Server{
		view:     v,
		cfg:      cfg,
		logger:   logger,
		notifier: newNotifier(),
	}
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(s.logger),
		middleware.Recoverer,
	)
	s.routes(r)
	return r
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully. The file watcher runs alongside when enabled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch && s.cfg.Source.IsFile() {
		eg.Go(func() error {
			return s.watchSource(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Reload reads the source again and replaces the view's columns and records.
// The current sort chain is re-applied to the new records.
func (s *Server) Reload(ctx context.Context) error {
	tbl, err := source.Load(ctx, s.cfg.Source, s.logger)
	if err != nil {
		return err
	}

	s.mu.Lock()
	chain := s.view.SortChain()
	source.Apply(s.view, tbl, s.cfg.Columns)
	for _, level := range chain {
		s.view.SortByColumn(level.Key, level.Order == sheet.Ascending)
	}
	change := s.bump("reload")
	s.mu.Unlock()

	s.notifier.broadcast(change)
	return nil
}

// bump advances the version. Callers hold s.mu.
func (s *Server) bump(kind string) Change {
	s.version++
	return Change{Version: s.version, Kind: kind}
}

// requestLogger logs each request through slog once it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug("request",
					slog.String("id", middleware.GetReqID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Duration("elapsed", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
