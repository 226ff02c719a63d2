package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Open connects to a postgres or mysql database. Handles are built once at
// process start and passed to every component that needs them.
func Open(driver, dsn string, logg *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		dialector = postgres.Open(postgresDSN(dsn))
	case "mysql":
		dialector = mysql.Open(mysqlDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, Config())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logg.Info("database connected", "driver", driver)
	return db, nil
}

// Config is the gorm configuration shared by every connection, tests included.
func Config() *gorm.Config {
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             1 * time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// postgresDSN pins the session time zone to UTC so date columns compare
// cleanly against UTC timestamps.
func postgresDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.Contains(lower, "timezone=") {
		return dsn
	}
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		if strings.Contains(dsn, "?") {
			return dsn + "&timezone=UTC"
		}
		return dsn + "?timezone=UTC"
	}
	return strings.TrimSpace(dsn) + " TimeZone=UTC"
}

// mysqlDSN makes sure times come back as time.Time in UTC.
func mysqlDSN(dsn string) string {
	params := []string{"parseTime=true", "loc=UTC"}
	for _, p := range params {
		key := strings.SplitN(p, "=", 2)[0] + "="
		if strings.Contains(dsn, key) {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + p
		} else {
			dsn += "?" + p
		}
	}
	return dsn
}

// Migrate creates or updates every table the pipeline owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.SKUFact{},
		&models.PlanningSnapshot{},
		&models.UpcomingStock{},
		&models.SyncRun{},
		&models.User{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Ping fails when the database cannot be reached.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
