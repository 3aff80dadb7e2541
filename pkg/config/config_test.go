package config_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	scoped "github.com/goliatone/go-scoped"
	"github.com/goliatone/go-scoped/pkg/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Empty(t, cfg.Kinds)
}

func TestLoadFile(t *testing.T) {
	cfg, err := config.Load(config.WithFiles(filepath.Join("testdata", "kinds.yaml")))
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
	require.Equal(t, []string{"request", "session"}, cfg.KindNames())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("SCOPED_KINDS_SESSION_MAX_NESTING", "8")
	t.Setenv("SCOPED_LOG_LEVEL", "warn")

	cfg, err := config.Load(config.WithFiles(filepath.Join("testdata", "kinds.yaml")))
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)

	opts, err := cfg.KindOptions("session")
	require.NoError(t, err)

	kind, err := scoped.Define[string]("session", opts...)
	require.NoError(t, err)
	require.Equal(t, 8, kind.Options().MaxNesting)
	require.True(t, kind.Options().AllowReuse)
}

func TestLoadCustomEnvPrefix(t *testing.T) {
	t.Setenv("APP_LOG_FORMAT", "text")

	cfg, err := config.Load(config.WithEnvPrefix("APP_"))
	require.NoError(t, err)
	require.Equal(t, "text", cfg.Log.Format)
}

func TestKindOptionsBuildsGuardAndMetadata(t *testing.T) {
	cfg, err := config.Load(config.WithFiles(filepath.Join("testdata", "kinds.yaml")))
	require.NoError(t, err)

	opts, err := cfg.KindOptions("session")
	require.NoError(t, err)

	kind, err := scoped.Define[string]("session", opts...)
	require.NoError(t, err)
	require.Equal(t, 4, kind.Options().MaxNesting)
	require.Equal(t, "identity", kind.Metadata()["team"])

	ctx := scoped.Bind(context.Background())
	var opened []*scoped.Scope[string]
	for i := 0; i < 4; i++ {
		scope, err := kind.New("user").Open(ctx)
		require.NoError(t, err)
		opened = append(opened, scope)
	}
	require.Len(t, opened, 4)
	require.Equal(t, 4, kind.Depth(ctx))
}

func TestKindOptionsGuardString(t *testing.T) {
	cfg, err := config.Load(config.WithFiles(filepath.Join("testdata", "kinds.yaml")))
	require.NoError(t, err)

	opts, err := cfg.KindOptions("request")
	require.NoError(t, err)

	kind, err := scoped.Define[any]("request", opts...)
	require.NoError(t, err)

	ctx := scoped.Bind(context.Background())
	_, err = kind.New(nil).Open(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, scoped.ErrGuardRejected))
	require.True(t, errors.Is(err, kind.ErrLifecycle()))

	scope, err := kind.New(map[string]any{"path": "/"}).Open(ctx)
	require.NoError(t, err)
	require.NoError(t, scope.Close(ctx))
}

func TestKindOptionsUnknownKind(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	opts, err := cfg.KindOptions("missing")
	require.NoError(t, err)
	require.Nil(t, opts)
}

func TestValidateAggregatesErrors(t *testing.T) {
	_, err := config.Load(config.WithFiles(filepath.Join("testdata", "invalid.yaml")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "log.level")
	require.Contains(t, err.Error(), "kinds.broken")
	require.True(t, errors.Is(err, scoped.ErrInvalidOptions))
}

func TestValidateRejectsBadGuard(t *testing.T) {
	cfg := &config.Config{
		Log:   config.LogConfig{Level: "info", Format: "json"},
		Kinds: map[string]map[string]any{"bad": {"guard": 42}},
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "kinds.bad.guard")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(config.WithFiles(filepath.Join("testdata", "nope.yaml")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "loading config")
}
