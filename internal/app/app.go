// Package app wires configuration, stores and services into the pieces the
// server and the command line tool run.
package app

import (
	"context"
	"fmt"
	"time"

	"invplan-backend/internal/audit"
	"invplan-backend/internal/auth"
	"invplan-backend/internal/cache"
	"invplan-backend/internal/clients/redis"
	"invplan-backend/internal/config"
	"invplan-backend/internal/database"
	"invplan-backend/internal/flow"
	"invplan-backend/internal/logger"
	"invplan-backend/internal/merger"
	"invplan-backend/internal/pipeline"
	"invplan-backend/internal/planning"
	"invplan-backend/internal/report"
	"invplan-backend/internal/rollup"
	"invplan-backend/internal/runlock"
	"invplan-backend/internal/scheduler"
	"invplan-backend/internal/source"
	"invplan-backend/internal/store"
	"invplan-backend/internal/velocity"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Repos struct {
	Facts     store.FactRepo
	Snapshots store.SnapshotRepo
	Upcoming  store.UpcomingRepo
}

type App struct {
	Cfg      *config.Config
	Log      *logger.Logger
	DB       *gorm.DB
	OpsDB    *gorm.DB
	Redis    *goredis.Client
	Repos    Repos
	Sources  *source.Registry
	Runner   *pipeline.Runner
	Reports  *report.Service
	Recorder *audit.Recorder
}

// New opens both databases, migrates the planning schema and wires the
// pipeline. Redis is optional.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN, log)
	if err != nil {
		return nil, err
	}
	opsDB := db
	if cfg.OperationsDSN != cfg.DatabaseDSN {
		if opsDB, err = database.Open(cfg.DBDriver, cfg.OperationsDSN, log.With("db", "operations")); err != nil {
			database.Close(db)
			return nil, err
		}
	}
	if err := database.Migrate(db); err != nil {
		closeDBs(db, opsDB)
		return nil, err
	}

	rdb, err := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, log)
	if err != nil {
		closeDBs(db, opsDB)
		return nil, err
	}

	a, err := Wire(cfg, db, opsDB, rdb, log)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		closeDBs(db, opsDB)
		return nil, err
	}
	return a, nil
}

// Wire builds every component on top of already opened handles. rdb may
// be nil.
func Wire(cfg *config.Config, db, opsDB *gorm.DB, rdb *goredis.Client, log *logger.Logger) (*App, error) {
	loc := cfg.Location()

	rules, err := flow.LoadRules(cfg.FlowRulesPath)
	if err != nil {
		return nil, err
	}
	order, policies, err := pipeline.Policies(cfg)
	if err != nil {
		return nil, err
	}

	log.Info("Wiring repos...")
	repos := Repos{
		Facts:     store.NewFactRepo(db, log),
		Snapshots: store.NewSnapshotRepo(db, log),
		Upcoming:  store.NewUpcomingRepo(db, log),
	}

	log.Info("Wiring services...")
	policy := planning.Policy{SafetyStockDays: cfg.SafetyStockDays, POBufferDays: cfg.POBufferDays}
	reportCache := cache.New(rdb, "invplan:report", cfg.ReportCacheTTL, log)
	recorder := audit.NewRecorder(db, log)
	registry := source.NewRegistry(opsDB, loc, cfg.InventoryXLSX, log)

	runner := pipeline.New(pipeline.Options{
		Order:    order,
		Policies: policies,
		Sources:  registry,
		Orders:   registry.Orders(),
		Rules:    rules,
		Merger:   merger.New(repos.Facts, loc, log),
		Upcoming: repos.Upcoming,
		Rollup:   rollup.New(repos.Facts, velocity.NewCalculator(repos.Facts), cfg.RollingWindows, log),
		Engine:   planning.NewEngine(repos.Facts, repos.Upcoming, repos.Snapshots, policy, log),
		Lock:     runlock.New(rdb),
		LockTTL:  cfg.RunLockTTL,
		Cache:    reportCache,
		Audit:    recorder,
		Ping:     func(ctx context.Context) error { return database.Ping(ctx, db) },
		Location: loc,
	}, log)

	return &App{
		Cfg:      cfg,
		Log:      log,
		DB:       db,
		OpsDB:    opsDB,
		Redis:    rdb,
		Repos:    repos,
		Sources:  registry,
		Runner:   runner,
		Reports:  report.NewService(repos.Facts, repos.Snapshots, repos.Upcoming, policy, reportCache, log),
		Recorder: recorder,
	}, nil
}

// AuthHandler builds the login and user handlers.
func (a *App) AuthHandler() *auth.Handler {
	return auth.NewHandler(a.DB, a.Cfg.JWTSecret, a.Log)
}

// Scheduler runs the full pipeline on the configured cron spec. Each tick
// may use at most the run lock TTL.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	return scheduler.New(a.Cfg.SyncCron, a.Cfg.Location(), a.Cfg.RunLockTTL, a.Runner.Run, a.Log)
}

// Ping checks the planning database.
func (a *App) Ping(ctx context.Context) error {
	return database.Ping(ctx, a.DB)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn("redis close failed", "error", err)
		}
	}
	closeDBs(a.DB, a.OpsDB)
}

func closeDBs(db, opsDB *gorm.DB) {
	if opsDB != nil && opsDB != db {
		database.Close(opsDB)
	}
	database.Close(db)
}

// ParseDate reads a YYYY-MM-DD flag value; empty means today in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return store.DateOnly(time.Now().In(loc)), nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", s)
	}
	return d, nil
}
