// Package web serves the weekly timetable UI on top of the store, the
// solver, and the optional assistant.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/gridplan-labs/gridplan/internal/assist"
	"github.com/gridplan-labs/gridplan/internal/seed"
	"github.com/gridplan-labs/gridplan/internal/solver"
	"github.com/gridplan-labs/gridplan/internal/store"
	"github.com/gridplan-labs/gridplan/internal/timetable"
)

// View is the cached result of the most recent solve. Handlers render from
// this snapshot instead of re-solving per request.
type View struct {
	Schedule    *timetable.Schedule
	Grids       []*timetable.GroupGrid
	Summary     timetable.Summary
	SolveStatus string
	GeneratedAt time.Time
}

// Config holds dependencies and settings for the web server.
type Config struct {
	Store         *store.Store
	Seeds         *seed.Loader
	Assistant     *assist.Assistant
	Host          string
	Port          int
	Watch         bool
	SeedsDir      string
	SessionSecret string
	SolveBudget   time.Duration
	Logger        *slog.Logger
}

// Server is the timetable web server.
type Server struct {
	store        *store.Store
	seeds        *seed.Loader
	assistant    *assist.Assistant
	sessionStore *sessions.CookieStore
	host         string
	port         int
	watch        bool
	seedsDir     string
	budget       time.Duration
	logger       *slog.Logger
	notifier     *Notifier

	// bgCtx bounds background solves triggered by POST /solve and the
	// seed watcher. Set once in Serve.
	bgCtx context.Context

	mu   sync.RWMutex
	view *View
}

// NewServer creates a web server. The assistant may be nil, in which case
// the question form is not rendered.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 7)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	return &Server{
		store:        cfg.Store,
		seeds:        cfg.Seeds,
		assistant:    cfg.Assistant,
		sessionStore: sessionStore,
		host:         cfg.Host,
		port:         cfg.Port,
		watch:        cfg.Watch,
		seedsDir:     cfg.SeedsDir,
		budget:       cfg.SolveBudget,
		logger:       cfg.Logger,
		notifier:     NewNotifier(),
		bgCtx:        context.Background(),
		view:         &View{Schedule: &timetable.Schedule{}},
	}
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
	s.logger.Info("starting web server", slog.String("addr", addr))

	eg, egctx := errgroup.WithContext(ctx)
	s.bgCtx = egctx

	// Seed and solve before accepting traffic. A failure here is logged
	// but not fatal: the page renders empty and recovers on the next
	// solve trigger.
	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("initial solve failed", slog.String("error", err.Error()))
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: s.routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchSeeds(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down web server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// routes builds the chi router.
func (s *Server) routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))

	r.Get("/", s.handleIndex)
	r.Post("/", s.handleAsk)
	r.Post("/solve", s.handleSolve)
	r.Get("/updates", s.handleUpdates)
	r.Get("/health", s.handleHealth)
	r.Handle("/assets/*", assetHandler())
	r.NotFound(s.handleNotFound)

	return r
}

// Refresh reloads seeds, solves, persists the run, and updates the cached
// view. Connected SSE clients are notified afterwards.
func (s *Server) Refresh(ctx context.Context) error {
	if s.seeds != nil {
		if err := s.seeds.Load(ctx); err != nil {
			return fmt.Errorf("failed to load seeds: %w", err)
		}
	}

	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}

	run, err := s.store.CreateRun(ctx)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	result, err := solver.Solve(ctx, courses, rooms, solver.Options{
		Budget: s.budget,
		Logger: s.logger,
	})
	if err != nil {
		_ = s.store.FailRun(ctx, run.ID, err.Error())
		return fmt.Errorf("solve failed: %w", err)
	}

	if err := s.store.CompleteRun(ctx, run.ID, string(result.Status), len(result.Schedule.Assignments), len(courses)); err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if err := s.store.SaveAssignments(ctx, run.ID, result.Schedule.Assignments); err != nil {
		return fmt.Errorf("failed to save assignments: %w", err)
	}

	s.setView(&View{
		Schedule:    result.Schedule,
		Grids:       timetable.BuildGrids(result.Schedule),
		Summary:     timetable.Summarize(result.Schedule),
		SolveStatus: string(result.Status),
		GeneratedAt: time.Now(),
	})

	s.logger.Info("solve complete",
		slog.String("run_id", run.ID),
		slog.String("status", string(result.Status)),
		slog.Int("assigned", len(result.Schedule.Assignments)),
		slog.Int("total", len(courses)))

	s.notifier.Broadcast()
	return nil
}

func (s *Server) setView(v *View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

// currentView returns the cached view snapshot.
func (s *Server) currentView() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// watchSeeds re-seeds and re-solves when CSV files under the seeds
// directory change. Events are debounced since editors fire several per
// save.
func (s *Server) watchSeeds(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.seedsDir); err != nil {
		s.logger.Error("failed to watch seeds directory", slog.String("error", err.Error()))
		return nil
	}

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".csv" {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Debug("seed file changed", slog.String("file", event.Name))
				if err := s.Refresh(ctx); err != nil {
					s.logger.Error("refresh failed", slog.String("error", err.Error()))
				}
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}
