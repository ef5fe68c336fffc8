package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"teamsemu/internal/config"
	"teamsemu/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOpenStore_Memory(t *testing.T) {
	s, err := OpenStore(context.Background(), &config.Config{StoreDriver: config.DriverMemory})
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))

	inst, ok := s.(*store.Instrumented)
	require.True(t, ok)
	_, ok = inst.Unwrap().(*store.Memory)
	assert.True(t, ok)
}

func TestOpenStore_SQLitePersists(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		StoreDriver: config.DriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "teams.db"),
	}

	s, err := OpenStore(ctx, cfg)
	require.NoError(t, err)
	p, err := s.CreatePost(ctx, store.NewPost{User: "Cristina M.", Role: "Program Manager", Message: "hello"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenStore(ctx, cfg)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Message)

	next, err := reopened.CreatePost(ctx, store.NewPost{User: "u", Role: "r", Message: "later"})
	require.NoError(t, err)
	assert.True(t, next.Timestamp.After(p.Timestamp))
}

func TestDialector_UnknownDriver(t *testing.T) {
	_, err := Dialector(&config.Config{StoreDriver: config.DriverMemory})
	assert.Error(t, err)
}

func TestCustomGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(context.Background(), time.Now(), sql, errors.New("syntax error"))
	assert.Contains(t, buf.String(), "GORM query error")

	buf.Reset()
	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "GORM slow query")

	buf.Reset()
	silent := l.LogMode(logger.Silent)
	silent.Trace(context.Background(), time.Now(), sql, errors.New("ignored"))
	assert.Empty(t, buf.String())
}
