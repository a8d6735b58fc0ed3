package daemon

import (
	"context"

	"github.com/matheus3301/msana/internal/api"
	"github.com/matheus3301/msana/internal/billingapi"
	"github.com/matheus3301/msana/internal/bus"
	"github.com/matheus3301/msana/internal/catalog"
	"github.com/matheus3301/msana/internal/config"
	"github.com/matheus3301/msana/internal/drafts"
	"github.com/matheus3301/msana/internal/lease"
	"github.com/matheus3301/msana/internal/liveness"
	"github.com/matheus3301/msana/internal/lock"
	"github.com/matheus3301/msana/internal/logging"
	"github.com/matheus3301/msana/internal/metrics"
	"github.com/matheus3301/msana/internal/outbox"
	"github.com/matheus3301/msana/internal/store"
	intsync "github.com/matheus3301/msana/internal/sync"
	"github.com/matheus3301/msana/internal/tab"
	"github.com/matheus3301/msana/internal/tabstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved tab configuration passed to the fx module.
type Params struct {
	TabName    string
	Navigation lease.NavigationType
	SocketPath string         // optional override for testing; empty = use default
	Config     *config.Config // optional; nil = load config.toml
}

// Module returns the fx module for a tab process, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideTabStore,
			metrics.New,
			provideLeaseManager,
			provideMachine,
			provideAPIClient,
			provideMonitor,
			provideSubmitter,
			provideReconciler,
			provideSyncEngine,
			provideDrafts,
			provideCatalog,
			provideConsoleService,
			NewServer,
			NewMetricsServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, p.Config.Validate()
	}
	return config.LoadOrDefault(tab.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(tab.LogPath(p.TabName), p.TabName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := tab.EnsureDir(p.TabName); err != nil {
		return nil, err
	}
	logger.Info("acquiring tab lock", zap.String("tab", p.TabName))
	l, err := lock.Acquire(tab.Dir(p.TabName))
	if err != nil {
		return nil, err
	}
	logger.Info("tab lock acquired")
	return l, nil
}

// provideStore opens the database shared by every tab. It takes the lock so
// a second process for the same tab fails before touching shared state.
func provideStore(_ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := tab.DBPath()
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideTabStore(p Params, _ *lock.Lock, logger *zap.Logger) (*tabstore.File, error) {
	ts, err := tabstore.OpenFile(tab.StatePath(p.TabName))
	if err != nil {
		return nil, err
	}
	if ts.Exists() {
		logger.Info("tab state found", zap.String("path", tab.StatePath(p.TabName)))
	}
	return ts, nil
}

func provideLeaseManager(cfg *config.Config, db *store.DB, ts *tabstore.File, b *bus.Bus, logger *zap.Logger, mt *metrics.Metrics) *lease.Manager {
	return lease.NewManager(db, ts, lease.Config{
		LeaseTTL:                       cfg.LeaseTTL.Duration,
		HeartbeatInterval:              cfg.HeartbeatInterval.Duration,
		ClearIdentityOnFreshNavigation: cfg.ClearIdentityOnFreshNavigation,
	}, b, logger.Named("lease"), lease.WithMetrics(mt))
}

func provideMachine(b *bus.Bus) *liveness.Machine {
	return liveness.NewMachine(b)
}

// provideAPIClient authenticates with the active account's token. A rejected
// token makes the tab forget that account.
func provideAPIClient(cfg *config.Config, leases *lease.Manager, logger *zap.Logger) *billingapi.Client {
	return billingapi.New(cfg.APIURL, cfg.RequestTimeout.Duration, leases, logger.Named("api"),
		billingapi.WithUnauthorizedHandler(leases.ForgetActive))
}

func provideMonitor(cfg *config.Config, m *liveness.Machine, client *billingapi.Client, logger *zap.Logger, mt *metrics.Metrics) *liveness.Monitor {
	return liveness.NewMonitor(m, client, cfg.ProbeInterval.Duration, logger.Named("liveness"), mt)
}

func provideSubmitter(client *billingapi.Client, db *store.DB, monitor *liveness.Monitor, b *bus.Bus, logger *zap.Logger, mt *metrics.Metrics) *outbox.Submitter {
	return outbox.NewSubmitter(client, db, monitor, b, logger.Named("outbox"), mt)
}

func provideReconciler(db *store.DB, logger *zap.Logger) *intsync.Reconciler {
	return intsync.NewReconciler(db, logger.Named("reconciler"))
}

func provideSyncEngine(cfg *config.Config, db *store.DB, client *billingapi.Client, leases *lease.Manager, monitor *liveness.Monitor, rec *intsync.Reconciler, b *bus.Bus, logger *zap.Logger, mt *metrics.Metrics) *intsync.Engine {
	return intsync.NewEngine(db, client, leases, monitor, rec, b, logger.Named("sync"), mt, intsync.Config{
		StartupDelay:  cfg.SyncStartupDelay.Duration,
		OnlineDelay:   cfg.SyncOnlineDelay.Duration,
		RatePerSecond: cfg.SyncRatePerSecond,
	})
}

func provideDrafts(db *store.DB, logger *zap.Logger) *drafts.Service {
	return drafts.NewService(db, logger.Named("drafts"))
}

func provideCatalog(client *billingapi.Client, db *store.DB, monitor *liveness.Monitor, logger *zap.Logger) *catalog.Service {
	return catalog.NewService(client, db, monitor, logger.Named("catalog"))
}

func provideConsoleService(p Params, leases *lease.Manager, monitor *liveness.Monitor, client *billingapi.Client, sub *outbox.Submitter, engine *intsync.Engine, d *drafts.Service, c *catalog.Service, logger *zap.Logger) *api.ConsoleService {
	return api.NewConsoleService(api.Deps{
		TabName:   p.TabName,
		Leases:    leases,
		Monitor:   monitor,
		Auth:      client,
		Submitter: sub,
		Engine:    engine,
		Drafts:    d,
		Catalog:   c,
		Logger:    logger.Named("api"),
	})
}

type lifecycleDeps struct {
	fx.In

	Params   Params
	Server   *Server
	Metrics  *MetricsServer
	Lock     *lock.Lock
	DB       *store.DB
	TabStore *tabstore.File
	Leases   *lease.Manager
	Monitor  *liveness.Monitor
	Engine   *intsync.Engine
	Bus      *bus.Bus
	Logger   *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleDeps) {
	var stopNotices func()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Restore or pick this tab's session before anything can use the token.
			if err := d.Leases.Init(ctx, d.Params.Navigation); err != nil {
				return err
			}

			stopNotices = logNotices(d.Bus, d.Logger)

			d.Leases.Start(context.Background())
			d.Monitor.Start(context.Background())
			d.Engine.Start(context.Background())

			go func() {
				if err := d.Server.Start(); err != nil {
					d.Logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			d.Metrics.Start()

			d.Logger.Info("tab started",
				zap.String("tab_id", d.Leases.TabID()),
				zap.String("account", d.Leases.ActiveEmail()),
				zap.String("navigation", string(d.Params.Navigation)))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Metrics.Stop(ctx)
			d.Server.Stop(ctx)
			d.Engine.Stop()
			d.Monitor.Stop()
			d.Leases.Stop()
			if stopNotices != nil {
				stopNotices()
			}

			// A clean shutdown is a tab close: free the lease and drop tab state.
			if err := d.Leases.Release(ctx); err != nil {
				d.Logger.Warn("error releasing lease", zap.Error(err))
			}
			if err := d.TabStore.Clear(); err != nil {
				d.Logger.Warn("error clearing tab state", zap.Error(err))
			}
			if err := d.DB.Close(); err != nil {
				d.Logger.Warn("error closing store", zap.Error(err))
			}
			if err := d.Lock.Release(); err != nil {
				d.Logger.Warn("error releasing lock", zap.Error(err))
			}
			d.Logger.Info("tab stopped")
			_ = d.Logger.Sync()
			return nil
		},
	})
}

// logNotices writes user-facing notices to the log until the returned stop func runs.
func logNotices(b *bus.Bus, logger *zap.Logger) func() {
	ch, unsubscribe := b.Subscribe("notify.", 32)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case evt := <-ch:
				text := ""
				if n, ok := evt.Payload.(bus.Notice); ok {
					text = n.Text
				}
				if evt.Kind == bus.NotifyError {
					logger.Warn("notice", zap.String("text", text))
				} else {
					logger.Info("notice", zap.String("text", text))
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		unsubscribe()
		close(done)
	}
}
