package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invplan-backend/internal/api"
	"invplan-backend/internal/app"
	"invplan-backend/internal/config"
	"invplan-backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("config:", err)
		os.Exit(1)
	}
	if err := cfg.ValidateHTTP(); err != nil {
		fmt.Println("config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.SchedulerOn {
		sched, err := a.Scheduler()
		if err != nil {
			log.Error("scheduler could not be configured", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	} else {
		log.Warn("scheduler disabled, runs only start from the API or CLI")
	}

	server := api.NewApp(api.Deps{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Auth:        a.AuthHandler(),
		Reports:     a.Reports,
		Facts:       a.Repos.Facts,
		Runner:      a.Runner,
		Runs:        a.Recorder,
		Ping:        a.Ping,
		Log:         log,
	})

	go func() {
		log.Info("server listening", "port", cfg.HTTPPort)
		if err := server.Listen(":" + cfg.HTTPPort); err != nil {
			log.Error("server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
}
