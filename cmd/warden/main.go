// cmd/warden/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keshon/server-warden/datastore"
	"github.com/keshon/server-warden/internal/config"
	"github.com/keshon/server-warden/internal/discord"
	"github.com/keshon/server-warden/internal/host"
	"github.com/keshon/server-warden/internal/perm"
	"github.com/keshon/server-warden/internal/permission"
	"github.com/keshon/server-warden/internal/webui"
)

func main() {
	log.Printf("[INFO] Starting server-warden...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	ds, err := datastore.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer ds.Close()

	reg := host.NewRegistry()
	store := permission.NewStore(ds)
	svc := permission.NewService(reg, store, cfg.DefaultTier(), cfg.LogPermissionChanges)
	web := webui.New(cfg.WebUI.Host, cfg.WebUI.Port, cfg.WebUI.SecretKey, svc)
	permCmd := perm.New(svc, web, cfg)

	perm.RegisterSelf(reg)

	if cfg.AutoApplyOnLoad {
		rc := permission.DefaultReconcilerConfig()
		rc.CheckInterval = cfg.CheckInterval
		rc.ApplyInterval = cfg.ApplyInterval
		rc.LogChanges = cfg.LogPermissionChanges
		go permission.NewReconciler(reg, store, rc).Run(ctx)
	}

	if cfg.WebUI.Enabled {
		go func() {
			if err := web.Start(ctx); err != nil {
				log.Printf("[WARN] Web UI autostart failed: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	if cfg.DiscordToken != "" {
		go func() {
			errCh <- discord.StartBot(ctx, cfg.DiscordToken, cfg.CommandPrefix, permCmd)
		}()
	} else {
		log.Println("[INFO] DISCORD_TOKEN not set, chat adapter disabled")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord adapter error:", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := web.Stop(shutdownCtx); err != nil && err != webui.ErrNotRunning {
		log.Printf("[WARN] Web UI shutdown: %v", err)
	}

	log.Println("[INFO] server-warden exited cleanly")
}
