package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	clientDir := flag.String("client", "", "Path to client directory (overrides config)")
	dbPath := flag.String("db", "", "SQLite event log path (overrides config)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *clientDir != "" {
		cfg.Server.ClientDir = *clientDir
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	log, err := NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var db *DB
	if cfg.Database.Path != "" {
		db, err = OpenDB(cfg.Database.Path)
		if err != nil {
			log.Fatal("open database", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		defer db.Close()
	}

	analytics := NewAnalytics(db, log)
	hub := NewHub(cfg.Server, log)
	app := &App{
		Config:    cfg,
		Hub:       hub,
		Session:   NewSession(cfg.Game, hub, analytics, nil, log),
		Auth:      NewAuth(cfg.Auth, db, log),
		Analytics: analytics,
		DB:        db,
		Log:       log,
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Server.Addr, Handler: SetupRoutes(app)}

	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.String("client_dir", cfg.Server.ClientDir),
			zap.Bool("event_log", db != nil))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-stop
	log.Info("shutting down")
	server.Close()
	app.Session.Close()
	analytics.Stop()
}
