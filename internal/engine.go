package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/starford/mindpulse/internal/alarm"
	"github.com/starford/mindpulse/internal/eventloop"
	"github.com/starford/mindpulse/internal/notify"
	"github.com/starford/mindpulse/internal/reconcile"
	"github.com/starford/mindpulse/internal/reminderservice"
	"github.com/starford/mindpulse/internal/reminderstore"
	"github.com/starford/mindpulse/internal/schedule"
	"github.com/starford/mindpulse/internal/sse"
	"github.com/starford/mindpulse/internal/storage"
)

// queueBacklog bounds pending commands before callers block.
const queueBacklog = 64

// engine holds the wired reminder engine and everything it must release.
type engine struct {
	cfg      *Config
	logger   *slog.Logger
	provider storage.Provider
	journal  *alarm.SQLiteJournal
	alarms   *alarm.Service
	queue    *eventloop.Queue
	broker   *sse.Broker
	telegram *notify.Telegram
	svc      *reminderservice.Service
	// watchPath is the collection file to watch, empty when not watching.
	watchPath string
}

func openProvider(cfg *Config, logger *slog.Logger) (storage.Provider, string, error) {
	sc := cfg.Storage
	switch sc.Backend {
	case BackendFile:
		fs, err := storage.NewFS(sc.Path)
		if err != nil {
			return nil, "", err
		}
		path, err := fs.Path(sc.Key)
		if err != nil {
			return nil, "", err
		}
		return fs, path, nil
	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
			return nil, "", fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := storage.OpenSQLite(sc.Path)
		return db, "", err
	case BackendBadger:
		db, err := storage.OpenBadger(storage.BadgerConfig{
			Path:       sc.Path,
			SyncWrites: true,
			Logger:     logger,
		})
		return db, "", err
	case BackendMemory:
		return storage.NewMemory(), "", nil
	default:
		return nil, "", fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}

// newEngine wires storage, timers, scheduling, notifiers and the service.
func newEngine(ctx context.Context, cfg *Config, logger *slog.Logger) (*engine, error) {
	e := &engine{cfg: cfg, logger: logger}

	provider, filePath, err := openProvider(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	e.provider = provider
	if cfg.Reconcile.Watch {
		if filePath == "" {
			logger.Warn("reconcile.watch needs the file backend, ignoring",
				slog.String("backend", cfg.Storage.Backend))
		}
		e.watchPath = filePath
	}

	alarmOpts := []alarm.Option{alarm.WithLogger(logger)}
	if cfg.Alarms.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Alarms.SQLitePath), 0o755); err != nil {
			e.Close()
			return nil, fmt.Errorf("create alarms dir: %w", err)
		}
		j, err := alarm.OpenSQLiteJournal(cfg.Alarms.SQLitePath)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("init alarm journal: %w", err)
		}
		e.journal = j
		alarmOpts = append(alarmOpts, alarm.WithJournal(j))
	}
	e.alarms, err = alarm.New(ctx, alarmOpts...)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("init alarms: %w", err)
	}

	store := reminderstore.New(provider, cfg.Storage.Key, logger)
	mgr := schedule.NewManager(e.alarms, cfg.Schedule.Grace, logger)
	e.queue = eventloop.New(queueBacklog)
	e.broker = sse.NewBroker()

	notifiers := notify.Multi{notify.NewBroker(e.broker)}
	if cfg.Notify.Log {
		notifiers = append(notifiers, notify.NewLog(logger))
	}
	if cfg.Notify.Telegram.Enabled() {
		tg := cfg.Notify.Telegram
		e.telegram = notify.NewTelegram(tg.BaseURL, tg.Token, tg.ChatID, logger)
		notifiers = append(notifiers, e.telegram)
	}

	e.svc = reminderservice.New(store, mgr, e.queue,
		reminderservice.WithNotifier(notifiers),
		reminderservice.WithEvents(e.broker),
		reminderservice.WithLogger(logger),
	)
	return e, nil
}

func (e *engine) reconcileOptions() reconcile.Options {
	return reconcile.Options{PruneOrphans: e.cfg.Reconcile.PruneOrphans}
}

// start reconciles once and then runs the timer loop and the optional file
// watcher until ctx is done. It blocks.
func (e *engine) start(ctx context.Context) error {
	if _, err := e.svc.Reconcile(ctx, e.reconcileOptions()); err != nil {
		e.logger.Warn("initial reconcile failed", slog.String("error", err.Error()))
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.alarms.Run(gCtx, e.svc.HandleWakeup)
	})
	if e.watchPath != "" {
		g.Go(func() error {
			err := storage.WatchFile(gCtx, e.watchPath, 0, e.logger, func() {
				e.logger.Info("collection changed on disk, reconciling", slog.String("path", e.watchPath))
				if _, err := e.svc.Reconcile(gCtx, e.reconcileOptions()); err != nil {
					e.logger.Warn("reconcile after change failed", slog.String("error", err.Error()))
				}
			})
			if err != nil {
				e.logger.Error("collection watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases every resource newEngine acquired.
func (e *engine) Close() {
	if e.queue != nil {
		e.queue.Close()
	}
	if e.telegram != nil {
		e.telegram.Close()
	}
	if e.broker != nil {
		e.broker.Close()
	}
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			e.logger.Warn("close alarm journal", slog.String("error", err.Error()))
		}
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Warn("close storage", slog.String("error", err.Error()))
		}
	}
}
