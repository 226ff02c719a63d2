package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"invplan-backend/internal/audit"
	"invplan-backend/internal/config"
	"invplan-backend/internal/database"
	"invplan-backend/internal/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Timezone:        "Asia/Kolkata",
		SyncCron:        "0 */30 * * * *",
		RunLockTTL:      time.Hour,
		ReportCacheTTL:  time.Minute,
		SafetyStockDays: 40,
		POBufferDays:    15,
		RollingWindows:  []int{7, 15, 30},
		JWTSecret:       "0123456789abcdef0123456789abcdef",
		Sources:         map[string]config.SourceConfig{},
	}
	for _, name := range config.SourceNames {
		cfg.Sources[name] = config.SourceConfig{Name: name, Enabled: true, Window: "12h"}
	}
	return cfg
}

func TestWireAndRun(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), database.Config())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	a, err := Wire(testConfig(), db, db, nil, logger.Nop())
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	if a.Runner == nil || a.Reports == nil || a.Recorder == nil || a.AuthHandler() == nil {
		t.Fatalf("incomplete app: %+v", a)
	}
	if err := a.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	s, err := a.Scheduler()
	if err != nil || s == nil {
		t.Fatalf("scheduler: %v", err)
	}

	// Source tables do not exist here, so every fetch fails and the run
	// ends partial with an empty snapshot.
	rep, err := a.Runner.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Status != "partial" || rep.Snapshot.Processed != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	runs, err := a.Recorder.List(context.Background(), audit.RunFilter{RunID: rep.RunID})
	if err != nil || len(runs) == 0 {
		t.Fatalf("runs not recorded: %v %d", err, len(runs))
	}
}

func TestWireRejectsBadWindow(t *testing.T) {
	cfg := testConfig()
	cfg.Sources["zepto"] = config.SourceConfig{Name: "zepto", Enabled: true, Window: "fortnight"}
	if _, err := Wire(cfg, nil, nil, nil, logger.Nop()); err == nil {
		t.Fatal("bad window must fail")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-01", time.UTC)
	if err != nil || d.Format("2006-01-02") != "2026-03-01" {
		t.Fatalf("parse: %v %v", d, err)
	}
	if _, err := ParseDate("01/03/2026", time.UTC); err == nil {
		t.Fatal("bad date must fail")
	}
	if d, err := ParseDate("", time.UTC); err != nil || d.IsZero() {
		t.Fatalf("empty date: %v %v", d, err)
	}
}
