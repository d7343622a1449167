// Package app wires all ReadAlong subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithListener). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/readalong/readalong/internal/capture"
	"github.com/readalong/readalong/internal/config"
	"github.com/readalong/readalong/internal/playback"
	"github.com/readalong/readalong/internal/reading"
	"github.com/readalong/readalong/internal/storystore"
	"github.com/readalong/readalong/pkg/provider/phonemes"
	"github.com/readalong/readalong/pkg/provider/storygen"
	"github.com/readalong/readalong/pkg/provider/stt"
	"github.com/readalong/readalong/pkg/provider/tts"
	"github.com/readalong/readalong/pkg/story"
)

// Providers holds one interface value per pipeline slot. Populated by
// main.go via the config registry; tests pass mocks directly.
type Providers struct {
	TTS      tts.Provider
	STT      stt.Provider
	Phonemes phonemes.Provider
	StoryGen storygen.Provider
}

// App owns all subsystem lifetimes and serves the ReadAlong HTTP API.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	store    storystore.Store
	pool     *pgxpool.Pool
	stories  *StoryService
	sessions *SessionManager
	srv      *http.Server
	listener net.Listener

	// readingMu guards reading, which the config watcher may swap at
	// runtime. New sessions pick the current values up on connect.
	readingMu sync.RWMutex
	reading   config.ReadingConfig

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a story store instead of creating one from config.
func WithStore(s storystore.Store) Option {
	return func(a *App) { a.store = s }
}

// WithListener serves on an existing listener instead of binding
// cfg.Server.ListenAddr. Useful for tests that need an ephemeral port.
func WithListener(l net.Listener) Option {
	return func(a *App) { a.listener = l }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		reading:   cfg.Reading,
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	a.stories = NewStoryService(a.store, providers.StoryGen, cfg.Storage.InitialCredits)
	a.sessions = NewSessionManager()
	a.closers = append(a.closers, func() error {
		a.sessions.CloseAll()
		return nil
	})

	a.srv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initStore connects to PostgreSQL when a DSN is configured and falls back
// to the in-memory store otherwise.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil // injected
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Warn("no postgres_dsn configured, stories are lost on restart")
		a.store = storystore.NewMemStore()
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	pg := storystore.NewPostgresStore(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return err
	}

	a.pool = pool
	a.store = pg
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	return nil
}

// Store exposes the story store, mainly for tests.
func (a *App) Store() storystore.Store { return a.store }

// ApplyReadingConfig swaps the reading tunables. Sessions already in flight
// keep their values; new connections use the updated ones.
func (a *App) ApplyReadingConfig(rc config.ReadingConfig) {
	rc.ApplyDefaults()
	a.readingMu.Lock()
	a.reading = rc
	a.readingMu.Unlock()
	slog.Info("reading config updated",
		"accept_threshold", rc.AcceptThreshold,
		"slow_rate", rc.SlowRate)
}

func (a *App) readingConfig() config.ReadingConfig {
	a.readingMu.RLock()
	defer a.readingMu.RUnlock()
	return a.reading
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
// Returns nil on a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		tls := a.cfg.Server.TLS
		switch {
		case a.listener != nil && tls != nil:
			err = a.srv.ServeTLS(a.listener, tls.CertFile, tls.KeyFile)
		case a.listener != nil:
			err = a.srv.Serve(a.listener)
		case tls != nil:
			err = a.srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		default:
			err = a.srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		drain, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.srv.Shutdown(drain)
	})

	slog.Info("app running", "addr", a.cfg.Server.ListenAddr, "tls", a.cfg.Server.TLS != nil)
	return g.Wait()
}

// newSession builds one reading session for an accepted gateway connection.
// It implements gateway.SessionFunc.
func (a *App) newSession(ctx context.Context, learnerID, storyID string,
	sink playback.Sink, source capture.Source,
	notify func(reading.Snapshot)) (*reading.Controller, func(), error) {

	st, err := a.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, nil, fmt.Errorf("load story: %w", err)
	}
	if st == nil {
		return nil, nil, fmt.Errorf("story %q not found", storyID)
	}
	if st.OwnerID != learnerID {
		return nil, nil, fmt.Errorf("story %q does not belong to learner %q", storyID, learnerID)
	}

	rc := a.readingConfig()
	player := playback.New(a.providers.TTS, sink)
	tail := time.Duration(rc.CaptureTailMs) * time.Millisecond
	recorder := capture.New(source, capture.WithStopTail(tail))

	// Quiz completions are persisted as they happen; the once guard keeps a
	// repeated final snapshot from overwriting the recorded attempt.
	var saveOnce sync.Once
	wrapped := func(s reading.Snapshot) {
		if s.Finished && s.Mode == reading.ModeQuiz {
			saveOnce.Do(func() { a.saveQuizResult(storyID, s) })
		}
		notify(s)
	}

	ctrl := reading.NewController(*st, reading.Deps{
		Player:   player,
		Recorder: recorder,
		STT:      a.providers.STT,
		Phonemes: a.providers.Phonemes,
	}, rc, reading.WithNotify(wrapped))

	release := a.sessions.Replace(learnerID, ctrl)
	return ctrl, release, nil
}

// saveQuizResult records a finished quiz attempt. Runs off the notify path
// so a slow store cannot stall the session.
func (a *App) saveQuizResult(storyID string, s reading.Snapshot) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		res := storystore.QuizResult{
			Correct:    s.QuizCorrect,
			Total:      s.QuizIndex,
			AnsweredAt: time.Now().UTC(),
		}
		if err := a.store.SaveQuizResult(ctx, storyID, res); err != nil {
			slog.Warn("failed to save quiz result", "story", storyID, "error", err)
			return
		}
		slog.Info("quiz result saved", "story", storyID,
			"correct", res.Correct, "total", res.Total)
	}()
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.srv.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "error", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "error", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// lengthOrDefault normalises a requested tier, defaulting to short.
func lengthOrDefault(l story.LengthTier) story.LengthTier {
	switch l {
	case story.LengthShort, story.LengthMedium, story.LengthLong:
		return l
	}
	return story.LengthShort
}
