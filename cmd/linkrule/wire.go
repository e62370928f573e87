package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-linkrule/pkg/config"
	"github.com/tendant/simple-linkrule/pkg/emailvalidator"
	"github.com/tendant/simple-linkrule/pkg/graphcool"
	"github.com/tendant/simple-linkrule/pkg/linkflow"
	"github.com/tendant/simple-linkrule/pkg/store"
	"github.com/tendant/simple-linkrule/pkg/tokengenerator"
)

// newGraphcoolClient returns nil unless the store or the issuer is Graphcool
func newGraphcoolClient(cfg *config.Config) *graphcool.Client {
	if cfg.Store.Kind != config.StoreGraphcool && cfg.Store.TokenIssuer != config.IssuerGraphcool {
		return nil
	}
	return graphcool.NewClient(
		cfg.Graphcool.SimpleAPIURL,
		cfg.Graphcool.SystemAPIURL,
		cfg.Graphcool.ServiceID,
		cfg.Graphcool.RootTokenValue(),
		graphcool.WithTimeout(cfg.Graphcool.Timeout),
	)
}

// newBackend opens the configured store. The returned func releases it.
func newBackend(ctx context.Context, cfg *config.Config, gc *graphcool.Client) (linkflow.Backend, func(), error) {
	noop := func() {}

	switch cfg.Store.Kind {
	case config.StoreMemory:
		slog.Warn("Using in-memory store, links are lost on restart")
		return store.NewInMemoryRepository(), noop, nil
	case config.StoreFile:
		repo, err := store.NewFileRepository(cfg.Store.DataDir)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open file store: %w", err)
		}
		slog.Info("Using file store", "dir", cfg.Store.DataDir)
		return repo, noop, nil
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.Database.ToDatabaseURL())
		if err != nil {
			return nil, noop, fmt.Errorf("failed creating dbpool: %w", err)
		}
		repo := store.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("failed to migrate schema: %w", err)
		}
		slog.Info("Using postgres store", "host", cfg.Database.Host, "database", cfg.Database.Database, "schema", cfg.Database.Schema)
		return repo, pool.Close, nil
	case config.StoreGraphcool:
		slog.Info("Using graphcool store", "service_id", cfg.Graphcool.ServiceID)
		return gc, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store %q", cfg.Store.Kind)
	}
}

func newIssuer(cfg *config.Config, gc *graphcool.Client) (linkflow.TokenIssuer, error) {
	switch cfg.Store.TokenIssuer {
	case config.IssuerJwt:
		generator := tokengenerator.NewJwtTokenGenerator(cfg.Jwt.Secret, cfg.Jwt.Issuer, cfg.Jwt.Audience)
		return tokengenerator.NewIssuer(generator, tokengenerator.WithExpiry(cfg.Jwt.Expiry)), nil
	case config.IssuerGraphcool:
		return gc, nil
	default:
		return nil, fmt.Errorf("unknown token issuer %q", cfg.Store.TokenIssuer)
	}
}

// buildReconciler assembles the reconciler for cfg
func buildReconciler(ctx context.Context, cfg *config.Config) (*linkflow.Reconciler, func(), error) {
	gc := newGraphcoolClient(cfg)

	backend, closeBackend, err := newBackend(ctx, cfg, gc)
	if err != nil {
		return nil, closeBackend, err
	}
	issuer, err := newIssuer(cfg, gc)
	if err != nil {
		closeBackend()
		return nil, func() {}, err
	}

	reconciler := linkflow.NewReconciler(linkflow.Config{
		RedirectURL: cfg.Rule.RedirectURL,
		TokenClaim:  cfg.Rule.TokenClaim,
	}, backend, issuer, emailvalidator.New())
	return reconciler, closeBackend, nil
}
