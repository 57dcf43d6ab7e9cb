package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/ongaku/external/audio"
	configloader "github.com/foxseedlab/ongaku/external/config"
	"github.com/foxseedlab/ongaku/external/discord"
	"github.com/foxseedlab/ongaku/external/logging"
	metricsimpl "github.com/foxseedlab/ongaku/external/metrics"
	spotifyimpl "github.com/foxseedlab/ongaku/external/spotify"
	"github.com/foxseedlab/ongaku/external/youtube"
	"github.com/foxseedlab/ongaku/external/ytdlp"
	"github.com/foxseedlab/ongaku/internal/config"
	discordpkg "github.com/foxseedlab/ongaku/internal/discord"
	"github.com/foxseedlab/ongaku/internal/playback"
	"github.com/foxseedlab/ongaku/internal/resolver"
	"github.com/samber/do/v2"
)

const (
	discordConnectTimeout = 20 * time.Second
	shutdownTimeout       = 10 * time.Second
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	logging.Init(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "search_providers", cfg.SearchProviders)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching discord bot")
	runBot(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load(".env")
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	metricsimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	ytdlp.RegisterDI(injector)
	youtube.RegisterDI(injector)
	if cfg.SpotifyEnabled() {
		spotifyimpl.RegisterDI(injector)
	}
	audioimpl.RegisterDI(injector)
	resolver.RegisterDI(injector)
	playback.RegisterDI(injector)

	return injector
}

func runBot(cfg *config.Config, injector do.Injector) {
	dc, err := do.Invoke[discordpkg.Client](injector)
	if err != nil {
		slog.Error("failed to resolve discord client", "error", err)
		os.Exit(1)
	}
	handler, err := do.Invoke[*playback.CommandHandler](injector)
	if err != nil {
		slog.Error("failed to resolve command handler", "error", err)
		os.Exit(1)
	}
	controller := do.MustInvoke[*playback.Controller](injector)

	if cfg.MetricsAddr != "" {
		srv := do.MustInvoke[*metricsimpl.Server](injector)
		srv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), discordConnectTimeout)
	defer cancel()

	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(ctx); err != nil {
		slog.Error("discord connect failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: discord connected")

	botUserID, err := dc.GetBotUserID()
	if err != nil {
		slog.Error("failed to resolve bot user id", "error", err)
		os.Exit(1)
	}
	handler.SetBotUserID(botUserID)

	dc.RegisterVoiceStateUpdateHandler(handler.HandleVoiceStateUpdate)
	dc.RegisterMessageCommandHandler(cfg.CommandPrefix, handler.HandleMessageCommand)
	slog.Info("discord handlers registered", "prefix", cfg.CommandPrefix)

	if err := dc.UpdateListeningStatus(fmt.Sprintf("%splay", cfg.CommandPrefix)); err != nil {
		slog.Warn("failed to set presence", "error", err)
	}

	defer func() {
		controller.Shutdown()
		if err := dc.Close(); err != nil {
			slog.Error("discord close failed", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		slog.Info("startup: entering discord run loop")
		if err := dc.Run(); err != nil {
			slog.Error("discord run failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}
}
