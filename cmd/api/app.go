package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeengine/internal/config"
	"github.com/hamed0406/uptimeengine/internal/evaluator"
	"github.com/hamed0406/uptimeengine/internal/logging"
	"github.com/hamed0406/uptimeengine/internal/maintenance"
	"github.com/hamed0406/uptimeengine/internal/metrics"
	"github.com/hamed0406/uptimeengine/internal/notify"
	"github.com/hamed0406/uptimeengine/internal/probe"
	"github.com/hamed0406/uptimeengine/internal/proxy"
	"github.com/hamed0406/uptimeengine/internal/repo"
	"github.com/hamed0406/uptimeengine/internal/repo/memory"
	"github.com/hamed0406/uptimeengine/internal/repo/postgres"
	"github.com/hamed0406/uptimeengine/internal/repo/redis"
	"github.com/hamed0406/uptimeengine/internal/scheduler"
	"github.com/hamed0406/uptimeengine/internal/statuspage"
	"github.com/hamed0406/uptimeengine/internal/store"
)

// app is everything one process runs, wired from env and the config file.
type app struct {
	cfg        config.Config
	file       *config.File
	log        *zap.Logger
	metrics    *metrics.Metrics
	backend    repo.Backend
	prober     *probe.Prober
	dispatcher *notify.Dispatcher
	engine     *scheduler.Engine
	page       *statuspage.Builder

	logFile io.Closer
}

func newApp(ctx context.Context, cfg config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.log, a.logFile, err = logging.NewLogger(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Stderr: os.Stderr})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a.file, err = config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	a.metrics = metrics.New()

	a.backend, err = openBackend(ctx, cfg, a.log)
	if err != nil {
		return nil, err
	}
	st := store.New(a.backend, a.file.WriteCooldown(), a.log.Named("store"), store.WithMetrics(a.metrics))
	n, err := st.Warm(ctx)
	if err != nil {
		// not fatal: states hydrate lazily on first use
		a.log.Warn("store_warm_failed", zap.Error(err))
	}

	sink, err := buildNotifier(a.file)
	if err != nil {
		return nil, err
	}
	a.dispatcher = notify.NewDispatcher(sink, a.log.Named("notify"), a.metrics)

	specs := a.file.Specs()
	windows := maintenance.NewFilter(a.file.Windows())
	loc := a.file.Location()
	threshold := evaluator.Threshold(a.file.GracePeriod(), cfg.TickInterval)

	a.prober = probe.NewProber(proxy.NewResolver(a.file.Worker.CheckProxy.Channels), a.log.Named("probe"))
	alerter := scheduler.NewAlerter(a.dispatcher, windows, a.backend, a.log.Named("alerter"), a.metrics,
		scheduler.AlerterConfig{Location: loc, RepeatInterval: a.file.RepeatInterval()})
	env := notify.HookEnv{
		Logger:   a.log.Named("hook"),
		Location: loc,
		Notify: func(ctx context.Context, title, body string) {
			a.dispatcher.Dispatch(ctx, notify.Message{Title: title, Body: body})
		},
	}
	a.engine = scheduler.NewEngine(a.log.Named("engine"), specs, a.prober, st, evaluator.New(threshold),
		alerter, buildHooks(a.file, a.log), env, a.metrics, cfg.MaxChecks)
	a.page = statuspage.NewBuilder(a.file.Page, specs, st, windows)

	a.log.Info("app_ready",
		zap.Int("monitors", len(specs)),
		zap.String("store", cfg.StoreDriver),
		zap.Int("warmed", n),
		zap.Int("grace_ticks", threshold),
		zap.Duration("tick", cfg.TickInterval))
	return a, nil
}

func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.Backend, error) {
	switch cfg.StoreDriver {
	case "memory":
		return memory.New(), nil
	case "redis":
		return redis.New(ctx, cfg.RedisURL, log.Named("redis"))
	case "postgres":
		pg, err := postgres.New(ctx, cfg.DatabaseURL, log.Named("postgres"))
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// buildNotifier fans out to every configured sink. A tgram:// recipient is
// delivered directly only when no Apprise server is configured.
func buildNotifier(f *config.File) (notify.Notifier, error) {
	n := f.Notification
	sinks := []notify.Notifier{
		notify.NewSlack(n.SlackWebhook),
		notify.NewApprise(n.AppriseAPIServer, n.RecipientURL),
	}
	if n.AppriseAPIServer == "" {
		tg, err := notify.NewTelegram(n.RecipientURL)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, tg)
	}
	m := notify.Compact(sinks...)
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

func buildHooks(f *config.File, log *zap.Logger) *notify.Hooks {
	h := &notify.Hooks{Logger: log.Named("hooks")}
	if w := notify.NewWebhookHook(f.Callbacks.OnStatusChangeWebhook); w != nil {
		h.StatusChange = append(h.StatusChange, w)
	}
	if w := notify.NewWebhookHook(f.Callbacks.OnIncidentWebhook); w != nil {
		h.Incident = append(h.Incident, w)
	}
	return h
}

// Close waits for in-flight notifications, then releases the backend and
// the log file.
func (a *app) Close() error {
	var err error
	a.dispatcher.Wait()
	if a.backend != nil {
		err = multierr.Append(err, a.backend.Close())
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.logFile != nil {
		err = multierr.Append(err, a.logFile.Close())
	}
	return err
}
