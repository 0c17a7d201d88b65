package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/reelcut/reelcut-agent/internal/api"
	"github.com/reelcut/reelcut-agent/internal/asset"
	"github.com/reelcut/reelcut-agent/internal/config"
	"github.com/reelcut/reelcut-agent/internal/db"
	"github.com/reelcut/reelcut-agent/internal/engine"
	"github.com/reelcut/reelcut-agent/internal/export"
	"github.com/reelcut/reelcut-agent/internal/logging"
	"github.com/reelcut/reelcut-agent/internal/playback"
	"github.com/reelcut/reelcut-agent/internal/project"
	"github.com/reelcut/reelcut-agent/internal/render"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.RenderDir(), 0755); err != nil {
		return fmt.Errorf("failed to create render dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting reelcut agent", "version", Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	deviceID, err := ensureDeviceID(database)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(database)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                    REELCUT AGENT v0.1.0                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	var eng engine.Engine
	if _, err := exec.LookPath(cfg.FFmpegPath()); err != nil {
		logger.Warn("ffmpeg not found, rendering runs in stub mode", "path", cfg.FFmpegPath())
		eng = engine.NewStub(logger)
	} else {
		eng = engine.NewFFmpeg(cfg.FFmpegPath(), cfg.FFprobePath(), cfg.ProbeTimeout(), logger)
		logger.Info("ffmpeg engine ready",
			"ffmpeg", logging.SanitizePath(cfg.FFmpegPath()),
			"ffprobe", logging.SanitizePath(cfg.FFprobePath()))
	}

	projectSvc := project.NewService(project.NewRepository(database.Conn()), logger)
	assetSvc := asset.NewService(asset.NewRepository(database.Conn()), eng, logger)

	var previewSvc playback.PreviewService
	if cfg.Headless() {
		logger.Info("running headless, preview serving disabled")
	} else {
		previewSvc = playback.NewServer(logger)
	}

	renderMgr := render.NewManager(render.NewRepository(database.Conn()),
		projectSvc, assetSvc, eng, cfg.RenderDir(), cfg.RenderTimeout(), logger)
	exporter := export.NewExporter(assetSvc, logger)

	eventHub := api.NewEventHub(logger)
	renderMgr.Subscribe(eventHub.HandleEvent)
	defer eventHub.Close()

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		ProjectService: projectSvc,
		AssetService:   assetSvc,
		RenderManager:  renderMgr,
		Exporter:       exporter,
		PreviewServer:  previewSvc,
		EventHub:       eventHub,
		TokenStore:     database,
		Logger:         logger,
		StartTime:      startTime,
		DeviceID:       deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(database *db.DB) (string, error) {
	ctx := context.Background()

	existing, err := database.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := database.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(database *db.DB) (string, error) {
	ctx := context.Background()

	existing, err := database.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := database.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
