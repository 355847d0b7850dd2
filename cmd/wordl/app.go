package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/wordl-bot/wordl/internal/cache"
	"github.com/wordl-bot/wordl/internal/config"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/domain/srs"
	"github.com/wordl-bot/wordl/internal/events"
	"github.com/wordl-bot/wordl/internal/platform/postgres"
	"github.com/wordl-bot/wordl/internal/platform/sqlite"
	"github.com/wordl-bot/wordl/internal/service/picker"
	"github.com/wordl-bot/wordl/internal/service/session"
	"github.com/wordl-bot/wordl/internal/service/stats"
	"github.com/wordl-bot/wordl/internal/service/vocabulary"
	"github.com/wordl-bot/wordl/internal/store"
	"github.com/wordl-bot/wordl/internal/task"
)

// shutdownTimeout bounds how long cleanup waits for background tasks.
const shutdownTimeout = 10 * time.Second

// database is an open connection together with its stores and migrator.
type database struct {
	db       *sql.DB
	stores   store.Stores
	migrator func() (*goose.Provider, error)
}

// openDatabase connects with the configured driver. SQLite databases are
// migrated on open; PostgreSQL schemas are managed with the migrate command.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger, autoMigrate bool) (*database, error) {
	switch cfg.Driver {
	case "sqlite":
		xdb, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if autoMigrate {
			if err := sqlite.Migrate(ctx, xdb, log); err != nil {
				_ = xdb.Close()
				return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
			}
		}
		return &database{
			db:       xdb.DB,
			stores:   sqlite.NewStores(xdb),
			migrator: func() (*goose.Provider, error) { return sqlite.NewMigrator(xdb) },
		}, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database %s: %w", postgres.MaskURL(cfg.URL), err)
		}
		return &database{
			db:       db,
			stores:   postgres.NewStores(db, log),
			migrator: func() (*goose.Provider, error) { return postgres.NewMigrator(db) },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// application holds the wired services of one command invocation and
// releases them in reverse order on close.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *database

	cache      *cache.WordCache
	recorder   *stats.Recorder
	vocabulary *vocabulary.Service
	emitter    *events.InMemoryEventEmitter
	taskRunner *task.TaskRunner
	engine     *session.Engine
	sweeper    *session.Sweeper
}

// newApplication opens the database and wires every service. The caller must
// call close.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	db, err := openDatabase(ctx, cfg.Database, log, true)
	if err != nil {
		return nil, err
	}

	clock := domain.SystemClock(cfg.App.Location())
	app := &application{
		config: cfg,
		logger: log,
		db:     db,
	}

	app.cache = cache.NewWordCache(db.stores.Words, clock, log)
	app.recorder = stats.NewRecorder(
		db.stores,
		srs.NewDefaultService(),
		app.cache,
		clock,
		stats.Points{
			Correct:      cfg.Scoring.Correct,
			BlitzCorrect: cfg.Scoring.BlitzCorrect,
			Wrong:        cfg.Scoring.Wrong,
			Added:        cfg.Scoring.Added,
		},
		log,
	)
	app.vocabulary = vocabulary.NewService(db.stores, app.recorder, app.cache, clock, log)

	app.emitter = events.NewInMemoryEventEmitter(log)
	app.taskRunner = task.NewTaskRunner(task.TaskRunnerConfig{
		WorkerCount: cfg.Tasks.WorkerCount,
		QueueSize:   cfg.Tasks.QueueSize,
	}, log)
	app.taskRunner.SetErrorHandler(func(t task.Task, err error) {
		log.Warn("background task failed, the sweeper retries expired sessions",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.String("error", err.Error()))
	})
	app.taskRunner.Start()

	questions := picker.NewPicker(app.cache, db.stores.Words, log,
		picker.WithDistractorPool(cfg.Quiz.DistractorPool))

	app.engine = session.NewEngine(questions, app.recorder, session.Config{
		DefaultQuestionCount: cfg.Quiz.DefaultQuestionCount,
		FinishedRetention:    cfg.Quiz.FinishedRetention,
		IdleTimeout:          cfg.Quiz.IdleTimeout,
	}, log,
		session.WithClock(clock),
		session.WithEmitter(app.emitter),
		session.WithTaskQueue(app.taskRunner.Queue()),
	)

	app.sweeper = session.NewSweeper(app.engine, cfg.Quiz.SweepInterval, log)
	if err := app.sweeper.Start(); err != nil {
		app.close()
		return nil, fmt.Errorf("failed to start session sweeper: %w", err)
	}

	log.Debug("application initialized",
		slog.String("database_driver", cfg.Database.Driver),
		slog.Int("task_workers", cfg.Tasks.WorkerCount))
	return app, nil
}

// close finalizes open sessions, drains background tasks and closes the database.
func (app *application) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if app.sweeper != nil {
		app.sweeper.Stop()
	}
	if app.engine != nil {
		if err := app.engine.Close(ctx); err != nil {
			app.logger.Error("failed to finalize sessions on shutdown", slog.String("error", err.Error()))
		}
	}
	if app.taskRunner != nil {
		app.taskRunner.Stop(ctx)
	}
	if err := app.db.db.Close(); err != nil {
		app.logger.Error("failed to close database", slog.String("error", err.Error()))
	}
}
