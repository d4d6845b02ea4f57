// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/analyzer"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/config"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/db"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/dnsclient"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/handlers"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/metrics"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/middleware"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/telemetry"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	dnsclient.SetUserAgentVersion(cfg.AppVersion)

	var database *db.Database
	if cfg.DatabaseURL != "" {
		database, err = db.Connect(cfg.DatabaseURL)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := database.EnsureSchema(ctx); err != nil {
			cancel()
			slog.Error("Failed to ensure database schema", "error", err)
			os.Exit(1)
		}
		cancel()
	} else {
		slog.Info("DATABASE_URL not set, analysis history disabled")
	}

	registry := telemetry.NewRegistry()

	dnsOpts := []dnsclient.Option{dnsclient.WithTelemetry(registry)}
	if cfg.DoHURL != "" {
		dnsOpts = append(dnsOpts, dnsclient.WithDoHURL(cfg.DoHURL))
	}
	dns := dnsclient.New(dnsOpts...)

	analyzerOpts := []analyzer.Option{analyzer.WithDNS(dns)}
	if cfg.TargetInclude != "" {
		analyzerOpts = append(analyzerOpts, analyzer.WithTargetInclude(cfg.TargetInclude))
	}
	if cfg.DefaultSelector != "" {
		analyzerOpts = append(analyzerOpts, analyzer.WithDefaultSelector(cfg.DefaultSelector))
	}
	if len(cfg.ExtraProviders) > 0 {
		providers := append([]analyzer.Provider{}, analyzer.DefaultProviders...)
		for _, p := range cfg.ExtraProviders {
			providers = append(providers, analyzer.Provider{Name: p.Name, Substring: p.Substring})
		}
		analyzerOpts = append(analyzerOpts, analyzer.WithProviders(providers))
	}
	domainAnalyzer := analyzer.New(analyzerOpts...)
	slog.Info("Domain analyzer initialized", "providers", len(cfg.ExtraProviders))

	exporter := metrics.NewExporter()
	rateLimiter := middleware.NewInMemoryRateLimiter()
	reportCache := telemetry.NewTTLCache[string]("reports", 500, 1*time.Hour)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(middleware.RequestContext())
	router.Use(middleware.SecurityHeaders())

	analysisHandler := handlers.NewAnalysisHandler(domainAnalyzer, database, rateLimiter, exporter, reportCache)
	historyHandler := handlers.NewHistoryHandler(database, reportCache)
	healthHandler := handlers.NewHealthHandler(database, registry, cfg.AppVersion)

	router.POST("/analyze", analysisHandler.Analyze)
	router.GET("/history", historyHandler.History)
	router.GET("/report/:id", historyHandler.Report)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/metrics", gin.WrapH(exporter.Handler()))

	addr := fmt.Sprintf("0.0.0.0:%s", cfg.Port)
	slog.Info("Starting LearnEmailAuth checker", "address", addr, "version", cfg.AppVersion)

	if err := router.Run(addr); err != nil {
		slog.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
