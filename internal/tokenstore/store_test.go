package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Tuhin-SnapD/pricepilot/internal/config"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

// Общий контракт проверяется для всех backend'ов:
// — пустое хранилище: ok=false;
// — Save/Load: round-trip, повторный Save перезаписывает пару целиком;
// — Clear: идемпотентен, после него ok=false.

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	p1 := models.TokenPair{Access: "a1", Refresh: "r1"}
	require.NoError(t, s.Save(ctx, p1))

	got, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, p1, got)

	p2 := models.TokenPair{Access: "a2", Refresh: "r1"}
	require.NoError(t, s.Save(ctx, p2))

	got, ok, err = s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, p2, got)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	got, ok, err = s.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, got.Empty())
}

func TestMemory_Contract(t *testing.T) {
	t.Parallel()

	exerciseStore(t, NewMemory())
}

func TestFile_Contract(t *testing.T) {
	t.Parallel()

	s, err := NewFile(filepath.Join(t.TempDir(), "nested", "tokens.json"))
	require.NoError(t, err)

	exerciseStore(t, s)
}

func TestFile_SurvivesReopen_AndUsesFixedKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	s1, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save(ctx, models.TokenPair{Access: "acc", Refresh: "ref"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"access_token":"acc","refresh_token":"ref"}`, string(raw))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	s2, err := NewFile(path)
	require.NoError(t, err)

	got, ok, err := s2.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "acc", got.Access)
	require.Equal(t, "ref", got.Refresh)

	// Временных файлов после записи не остаётся.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFile_CorruptDocument(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewFile(path)
	require.NoError(t, err)

	_, ok, err := s.Load(context.Background())
	require.Error(t, err)
	require.False(t, ok)
}

func TestNewFile_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewFile("")
	require.Error(t, err)
}

func TestRedis_Contract_Miniredis(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)

	s, err := NewRedis(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)
}

func TestRedis_KeysUnderPrefix(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := NewRedis(ctx, "redis://"+mr.Addr()+"/0", "pp:test:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Save(ctx, models.TokenPair{Access: "acc", Refresh: "ref"}))

	v, err := mr.Get("pp:test:access_token")
	require.NoError(t, err)
	require.Equal(t, "acc", v)

	v, err = mr.Get("pp:test:refresh_token")
	require.NoError(t, err)
	require.Equal(t, "ref", v)

	require.NoError(t, s.Clear(ctx))
	require.False(t, mr.Exists("pp:test:access_token"))
	require.False(t, mr.Exists("pp:test:refresh_token"))
}

func TestRedis_DefaultPrefix(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := NewRedis(ctx, "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Save(ctx, models.TokenPair{Access: "acc"}))
	require.True(t, mr.Exists(DefaultRedisPrefix+KeyAccess))
}

func TestNewRedis_Unreachable(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), "redis://"+addr+"/0", "")
	require.Error(t, err)
}

func TestOpen_Drivers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := Open(ctx, config.TokensConfig{Driver: "memory"})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)

	s, err = Open(ctx, config.TokensConfig{Driver: "file", FilePath: filepath.Join(t.TempDir(), "t.json")})
	require.NoError(t, err)
	require.IsType(t, &File{}, s)

	mr := miniredis.RunT(t)
	s, err = Open(ctx, config.TokensConfig{Driver: "redis", RedisURL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	require.IsType(t, &Redis{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.TokensConfig{Driver: "sqlite"})
	require.ErrorIs(t, err, ErrUnknownDriver)
}
