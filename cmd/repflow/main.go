package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/repflow/internal/config"
	"github.com/claude/repflow/internal/engine"
	"github.com/claude/repflow/internal/localstore"
	"github.com/claude/repflow/internal/mcp"
	"github.com/claude/repflow/internal/server"
	"github.com/claude/repflow/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("RepFlow starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Open the session store
	var (
		engineStore engine.SessionStore
		readStore   server.Store
		dataSource  mcp.DataSource
	)
	switch cfg.Database.Driver {
	case "postgres":
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}

		db, err := storage.New(context.Background(), dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected", "driver", "postgres")
		engineStore, readStore, dataSource = db, db, db

	case "sqlite":
		db, err := localstore.Open(cfg.Database.Path)
		if err != nil {
			log.Error("failed to open local store", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected", "driver", "sqlite", "path", cfg.Database.Path)
		if *migrateOnly {
			// The sqlite schema is applied on open.
			log.Info("migrate-only: exiting")
			return
		}
		engineStore, readStore, dataSource = db, db, db
	}

	// Create the workout engine with the SSE stream on its notifier chain
	stream := server.NewBroadcaster(log)
	eng := engine.New(engineStore, stream, engine.LogFeedback{Log: log}, log,
		engine.WithDefaultRest(time.Duration(cfg.Engine.DefaultRestSeconds)*time.Second),
	)
	defer eng.Close()

	// Create server
	srv := server.New(eng, readStore, stream, cfg.Auth.APIKey, log)

	if cfg.MCP.Enabled {
		m := mcp.New(eng, dataSource, Version, log)
		srv.Mount("/mcp", mcpserver.NewStreamableHTTPServer(m))
		log.Info("mcp endpoint mounted", "path", "/mcp")
	}

	// Start server — tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	// Pause rather than lose an in-flight workout on restart.
	if eng.Pause() {
		log.Info("active session paused and saved")
	}
	log.Info("server stopped")
}
