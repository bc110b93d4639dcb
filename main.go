package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nstehr/vimy/vimy-nav/agent"
	"github.com/nstehr/vimy/vimy-nav/config"
	"github.com/nstehr/vimy/vimy-nav/httpapi"
	"github.com/nstehr/vimy/vimy-nav/ipc"
	"github.com/nstehr/vimy/vimy-nav/rules"
)

const banner = `
██╗   ██╗██╗███╗   ███╗██╗   ██╗
██║   ██║██║████╗ ████║╚██╗ ██╔╝
██║   ██║██║██╔████╔██║ ╚████╔╝
╚██╗ ██╔╝██║██║╚██╔╝██║  ╚██╔╝
 ╚████╔╝ ██║██║ ╚═╝ ██║   ██║
  ╚═══╝  ╚═╝╚═╝     ╚═╝   ╚═╝

Grid Navigation Sidecar`

func main() {
	configPath := flag.String("config", "vimy-nav.yaml", "path to the YAML config file")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	fmt.Println(banner)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if lvl, err := cfg.Level(); err == nil {
		level.Set(lvl)
	}
	ruleSet, err := cfg.RuleSet()
	if err != nil {
		slog.Error("failed to compile rules", "error", err)
		os.Exit(1)
	}

	slog.Info("starting vimy-nav", "config", *configPath, "walk", cfg.Rules.Walk, "place", cfg.Rules.Place)

	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(cfg.Socket); err != nil {
		slog.Error("failed to clean up socket", "path", cfg.Socket, "error", err)
		os.Exit(1)
	}

	listener, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		slog.Error("failed to listen on socket", "path", cfg.Socket, "error", err)
		os.Exit(1)
	}
	defer listener.Close()
	defer os.Remove(cfg.Socket)

	slog.Info("listening on domain socket", "path", cfg.Socket)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := agent.NewRegistry()

	if cfg.HTTP != "" {
		srv := &http.Server{Addr: cfg.HTTP, Handler: httpapi.NewServer(registry)}
		go func() {
			slog.Info("debug http listening", "addr", cfg.HTTP)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("debug http failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	go watchConfig(ctx, *configPath, ruleSet, registry, level)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					if errors.Is(err, net.ErrClosed) {
						return
					}
					slog.Error("failed to accept connection", "error", err)
					continue
				}
			}
			slog.Info("new connection accepted")
			go handleConn(conn, ruleSet, registry)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}

func handleConn(conn net.Conn, ruleSet *rules.RuleSet, registry *agent.Registry) {
	c := ipc.NewConnection(conn, nil)
	a := agent.New(c, ruleSet, registry)
	a.Serve()
}

// watchConfig reloads the config file on change. Rules are swapped into the
// shared rule set and every live grid is refreshed; an invalid file keeps
// the previous config.
func watchConfig(ctx context.Context, path string, ruleSet *rules.RuleSet, registry *agent.Registry, level *slog.LevelVar) {
	w, err := config.NewWatcher(path)
	if err != nil {
		slog.Warn("config hot reload disabled", "path", path, "error", err)
		return
	}
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		case _, ok := <-w.Events:
			if !ok {
				return
			}
			cfg, err := config.Load(path)
			if err != nil {
				slog.Error("config reload rejected", "path", path, "error", err)
				continue
			}
			if lvl, err := cfg.Level(); err == nil {
				level.Set(lvl)
			}
			if err := ruleSet.Swap(cfg.Rules.Walk, cfg.Rules.Place); err != nil {
				slog.Error("rule reload rejected", "error", err)
				continue
			}
			changed := registry.Refresh()
			slog.Info("config reloaded", "path", path, "level", level.Level(), "cellsChanged", changed)
		}
	}
}
