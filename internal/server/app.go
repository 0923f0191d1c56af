// Package server initializes and runs the threads API server. It opens the
// database, applies migrations, wires the services and runs the HTTP server
// and keep-alive job until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/threads/internal/logging"
	"github.com/dmitrijs2005/threads/internal/server/config"
	"github.com/dmitrijs2005/threads/internal/server/httpapi"
	"github.com/dmitrijs2005/threads/internal/server/keepalive"
	"github.com/dmitrijs2005/threads/internal/server/media"
	"github.com/dmitrijs2005/threads/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/threads/internal/server/services"
)

var (
	openDB = repomanager.OpenDB

	newMediaStore = func(ctx context.Context, cfg *config.Config, l logging.Logger) (media.Store, error) {
		return media.NewS3Store(ctx, cfg, l)
	}
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	postService *services.PostService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	store, err := newMediaStore(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("media init error: %w", err)
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: services.NewUserService(db, rm, store, c, logger),
		postService: services.NewPostService(db, rm, store, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(httpapi.Options{
		Address:      app.config.EndpointAddrHTTP,
		SecretKey:    app.config.SecretKey,
		CookieSecure: app.config.CookieSecure,
		BodyLimit:    app.config.BodyLimit,
	}, app.logger, app.userService, app.postService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startKeepAlive(ctx context.Context) {
	job := keepalive.NewJob(app.config.KeepAliveURL, app.config.KeepAliveSchedule, app.logger)
	if err := job.Run(ctx); err != nil {
		app.logger.Error(ctx, "keep-alive", "error", err)
	}
}

// Run blocks until ctx is cancelled, a shutdown signal arrives or the HTTP
// server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startKeepAlive(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
