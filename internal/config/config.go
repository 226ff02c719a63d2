package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=invplan port=5432 sslmode=disable"

// Source names known to the pipeline, in run order.
var SourceNames = []string{
	"catalog",
	"inventory_details",
	"channel_drr",
	"blinkit_marketplace",
	"blinkit_b2b",
	"zepto",
	"swiggy",
	"b2b_orders",
}

type SourceConfig struct {
	Name      string
	Enabled   bool
	Window    string
	Originate bool
}

type Config struct {
	AppEnv          string
	HTTPPort        string
	DBDriver        string
	DatabaseDSN     string
	OperationsDSN   string
	JWTSecret       string
	CORSOrigins     string
	RedisAddr       string
	RedisPassword   string
	Timezone        string
	SyncCron        string
	SchedulerOn     bool
	RunLockTTL      time.Duration
	ReportCacheTTL  time.Duration
	SafetyStockDays float64
	POBufferDays    float64
	RollingWindows  []int
	FlowRulesPath   string
	InventoryXLSX   string
	Sources         map[string]SourceConfig
}

// defaults per source: recency window and whether the source may create
// the first fact row for an EAN.
var sourceDefaults = map[string]SourceConfig{
	"catalog":             {Window: "calendar-day", Originate: true},
	"inventory_details":   {Window: "12h", Originate: true},
	"channel_drr":         {Window: "12h"},
	"blinkit_marketplace": {Window: "12h"},
	"blinkit_b2b":         {Window: "12h"},
	"zepto":               {Window: "calendar-day"},
	"swiggy":              {Window: "24h", Originate: true},
	"b2b_orders":          {Window: "12h"},
}

// Load reads an optional .env file and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Println("[WARN] .env could not be read:", err)
	}

	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseDSN:   getEnv("DATABASE_DSN", defaultDSN),
		OperationsDSN: getEnv("OPERATIONS_DB_DSN", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		CORSOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		Timezone:      getEnv("TIMEZONE", "Asia/Kolkata"),
		SyncCron:      getEnv("SYNC_CRON", "0 */30 * * * *"),
		FlowRulesPath: getEnv("FLOW_RULES_PATH", ""),
		InventoryXLSX: getEnv("INVENTORY_DETAILS_XLSX", ""),
		Sources:       make(map[string]SourceConfig, len(SourceNames)),
	}

	var err error
	if cfg.SchedulerOn, err = getBool("SCHEDULER_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.RunLockTTL, err = getDuration("RUN_LOCK_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReportCacheTTL, err = getDuration("REPORT_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SafetyStockDays, err = getFloat("SAFETY_STOCK_DAYS", 40); err != nil {
		return nil, err
	}
	if cfg.POBufferDays, err = getFloat("PO_BUFFER_DAYS", 15); err != nil {
		return nil, err
	}
	if cfg.RollingWindows, err = parseWindows(getEnv("ROLLING_WINDOWS", "7,15,30")); err != nil {
		return nil, err
	}

	for _, name := range SourceNames {
		def := sourceDefaults[name]
		key := strings.ToUpper(name)
		sc := SourceConfig{
			Name:   name,
			Window: getEnv("WINDOW_"+key, def.Window),
		}
		if sc.Enabled, err = getBool("ENABLE_"+key, true); err != nil {
			return nil, err
		}
		if sc.Originate, err = getBool("ORIGINATE_"+key, def.Originate); err != nil {
			return nil, err
		}
		cfg.Sources[name] = sc
	}

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "mysql" {
		return nil, fmt.Errorf("DB_DRIVER must be postgres or mysql, got %q", cfg.DBDriver)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the default value, set it for production.")
	}
	if cfg.OperationsDSN == "" {
		log.Println("[WARN] OPERATIONS_DB_DSN is empty, source readers will use DATABASE_DSN.")
		cfg.OperationsDSN = cfg.DatabaseDSN
	}

	return cfg, nil
}

// ValidateHTTP checks the settings only the API server needs.
func (c *Config) ValidateHTTP() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is using the default value, set your own domain for production.")
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseWindows(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("ROLLING_WINDOWS: invalid window %q", part)
		}
		out = append(out, n)
	}
	if len(out) != 3 {
		return nil, fmt.Errorf("ROLLING_WINDOWS must list three windows (short, medium, long), got %d", len(out))
	}
	return out, nil
}
