package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"teamsemu/internal/config"
	"teamsemu/internal/seed"
	"teamsemu/internal/server"
	"teamsemu/internal/store"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (string, store.Store) {
	t.Helper()
	st := store.NewMemory()
	_, err := seed.SeedIfEmpty(context.Background(), st)
	require.NoError(t, err)

	srv, err := server.NewServerWithDeps(&config.Config{Port: "0", Env: "test", StoreDriver: config.DriverMemory}, st, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(adaptor.FiberApp(srv.App()))
	t.Cleanup(ts.Close)
	return ts.URL, st
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPostsCommand(t *testing.T) {
	url, _ := newService(t)

	out, err := run(t, "posts", "--server", url)
	require.NoError(t, err)
	assert.Contains(t, out, "[M190.0.0 Google Vertex AI Release]")
	assert.Contains(t, out, "Alexa A. (SCRUM Master)")

	out, err = run(t, "posts", "--summary", "--server", url)
	require.NoError(t, err)
	assert.Contains(t, out, "M190.0.0 Google Vertex AI Release\tHello everyone")
}

func TestServerFromEnvironment(t *testing.T) {
	url, _ := newService(t)
	t.Setenv("TEAMS_SERVER", url)

	out, err := run(t, "posts")
	require.NoError(t, err)
	assert.Contains(t, out, "Cristina M.")
}

func TestPostAndReplyCommands(t *testing.T) {
	url, st := newService(t)
	ctx := context.Background()

	out, err := run(t, "post", "create", "--server", url,
		"--title", "M191.0.0 Release", "--user", "Cristina M.", "--role", "Program Manager", "--message", "Plan")
	require.NoError(t, err)
	assert.Contains(t, out, "Created post ")

	posts, err := st.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	newest := posts[0]
	assert.Equal(t, "M191.0.0 Release", newest.TitleOrEmpty())

	out, err = run(t, "post", "update", newest.ID, "--server", url, "--message", "Plan v2")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated post "+newest.ID)

	out, err = run(t, "reply", "create", newest.ID, "--server", url, "--user", "Alexa A.", "--role", "SCRUM Master", "--message", "validated")
	require.NoError(t, err)
	assert.Contains(t, out, "Created reply ")

	replies, err := st.ListReplies(ctx, newest.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)

	_, err = run(t, "reply", "update", replies[0].ID, "--server", url, "--message", "approved")
	require.NoError(t, err)
	_, err = run(t, "reply", "delete", replies[0].ID, "--server", url)
	require.NoError(t, err)

	out, err = run(t, "post", "delete", newest.ID, "--server", url)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted post "+newest.ID)

	posts, err = st.ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestReplyToUnknownPostFails(t *testing.T) {
	url, _ := newService(t)

	out, err := run(t, "reply", "create", "missing", "--server", url, "--user", "u", "--role", "r", "--message", "m")
	require.Error(t, err)
	assert.Contains(t, out, "Failed to create reply")
}

func TestWatchStopsWithContext(t *testing.T) {
	url, _ := newService(t)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"watch", "--server", url, "--interval", "10ms"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "Cristina M.")
}
