package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-linkrule/pkg/config"
	"github.com/tendant/simple-linkrule/pkg/graphcool"
	"github.com/tendant/simple-linkrule/pkg/linkflow"
	"github.com/tendant/simple-linkrule/pkg/store"
	"github.com/tendant/simple-linkrule/pkg/tokengenerator"
)

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Kind: config.StoreMemory, TokenIssuer: config.IssuerJwt},
		Graphcool: config.GraphcoolConfig{
			SimpleAPIURL: "http://localhost/simple/v1",
			SystemAPIURL: "http://localhost/system",
			ServiceID:    "svc",
			RootToken:    "root",
			Timeout:      time.Second,
		},
		Jwt:  config.JwtConfig{Secret: "0123456789abcdef0123", Issuer: "i", Audience: "a", Expiry: time.Hour},
		Rule: config.RuleConfig{RedirectURL: "https://app.example.com/email", TokenClaim: linkflow.DefaultTokenClaim},
	}
}

func TestNewBackend(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	backend, closeFn, err := newBackend(ctx, cfg, nil)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &store.InMemoryRepository{}, backend)

	cfg.Store.Kind = config.StoreFile
	cfg.Store.DataDir = t.TempDir()
	backend, _, err = newBackend(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &store.FileRepository{}, backend)

	cfg.Store.Kind = config.StoreGraphcool
	gc := newGraphcoolClient(cfg)
	require.NotNil(t, gc)
	backend, _, err = newBackend(ctx, cfg, gc)
	require.NoError(t, err)
	assert.Same(t, gc, backend)

	cfg.Store.Kind = "redis"
	_, _, err = newBackend(ctx, cfg, nil)
	assert.Error(t, err)
}

func TestNewIssuer(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, newGraphcoolClient(cfg))

	issuer, err := newIssuer(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &tokengenerator.Issuer{}, issuer)

	cfg.Store.TokenIssuer = config.IssuerGraphcool
	gc := newGraphcoolClient(cfg)
	issuer, err = newIssuer(cfg, gc)
	require.NoError(t, err)
	assert.IsType(t, &graphcool.Client{}, issuer)

	cfg.Store.TokenIssuer = "opaque"
	_, err = newIssuer(cfg, nil)
	assert.Error(t, err)
}

func TestBuildReconciler_FileStoreWithGraphcoolTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.True(t, strings.Contains(string(body), "generateNodeToken"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"generateNodeToken":{"token":"gc-node-token"}}}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Store.Kind = config.StoreFile
	cfg.Store.DataDir = t.TempDir()
	cfg.Store.TokenIssuer = config.IssuerGraphcool
	cfg.Graphcool.SystemAPIURL = server.URL + "/system"

	reconciler, closeFn, err := buildReconciler(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	ictx := &linkflow.InvocationContext{}
	outcome, err := reconciler.Reconcile(context.Background(), &linkflow.Principal{ExternalID: "auth0|1", Email: "a@example.com"}, ictx)
	require.NoError(t, err)
	assert.Equal(t, linkflow.StateTokenIssued, outcome.State)
	assert.Equal(t, "gc-node-token", ictx.IDToken[linkflow.DefaultTokenClaim])
}
