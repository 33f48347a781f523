package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv1 "flagfold/api/v1"
	"flagfold/internal/config"
	et "flagfold/internal/estree/esttest"
	"flagfold/internal/registry"
	"flagfold/internal/transform"
)

func TestEngine_ServesUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := Bootstrap(ctx, Config{
		Serve:   config.ServeCfg{Addr: "127.0.0.1:0", CacheSize: 4},
		Options: registry.Options{"observerCache": true},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	c, err := transform.NewGRPCClient(e.transport.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	cctx, ccancel := context.WithTimeout(ctx, 5*time.Second)
	defer ccancel()
	resp, err := c.Transform(cctx, &apiv1.Request{
		Filename: "a.js",
		Tree: et.Program(
			et.ImportDefault("cacheEnabled", registry.CacheEnabledModule),
			et.Expr(et.Ident("cacheEnabled")),
		),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Rewritten)
	assert.Equal(t, map[string]int{registry.CacheEnabledModule: 1}, resp.BySpecifier)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestBootstrap_RejectsUnknownDialect(t *testing.T) {
	_, err := Bootstrap(context.Background(), Config{Dialect: "swc"})
	assert.Error(t, err)
}
