// Package main runs the link rule service: an HTTP endpoint that reconciles
// externally authenticated identities with internal users and issues tokens.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-linkrule/pkg/config"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(-1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: false,
		Level:     cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(-1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler, closeBackend, err := buildReconciler(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize link flow", "store", cfg.Store.Kind, "issuer", cfg.Store.TokenIssuer, "error", err)
		os.Exit(-1)
	}
	defer closeBackend()

	server := app.DefaultApp()
	mountRoutes(ctx, server.R, cfg, reconciler)

	slog.Info("Link rule service ready",
		"prefix", cfg.RoutePrefix,
		"store", cfg.Store.Kind,
		"issuer", cfg.Store.TokenIssuer,
		"token_claim", cfg.Rule.TokenClaim)

	server.Run()
}
