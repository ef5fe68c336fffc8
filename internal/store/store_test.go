package store

import (
	"context"
	"testing"
	"time"

	"teamsemu/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func strPtr(s string) *string { return &s }

func newSQLiteStore(t *testing.T, opts ...Option) (*Gorm, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every pooled connection to :memory: would see its own database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s, err := NewGorm(context.Background(), db, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, db
}

// backends returns one constructor per Store implementation so the
// behavioural tests below run against each of them.
func backends() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"sqlite": func(t *testing.T) Store {
			s, _ := newSQLiteStore(t)
			return s
		},
		"instrumented": func(t *testing.T) Store { return NewInstrumented(NewMemory(), nil) },
	}
}

func seedPost(t *testing.T, s Store, msg string) *models.Post {
	t.Helper()
	p, err := s.CreatePost(context.Background(), NewPost{User: "Cristina M.", Role: "Program Manager", Message: msg})
	require.NoError(t, err)
	return p
}

func TestStore_CreatePost(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			p, err := s.CreatePost(ctx, NewPost{
				Title:   strPtr("M190.0.0 Google Vertex AI Release"),
				User:    "Cristina M.",
				Role:    "Program Manager",
				Message: "Release is ready",
			})
			require.NoError(t, err)
			assert.NotEmpty(t, p.ID)
			assert.False(t, p.Timestamp.IsZero())
			assert.Nil(t, p.UpdatedAt)
			assert.Equal(t, "M190.0.0 Google Vertex AI Release", p.TitleOrEmpty())

			got, err := s.GetPost(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, p.ID, got.ID)
			assert.Equal(t, "Release is ready", got.Message)
			assert.NotNil(t, got.Replies)
			assert.Empty(t, got.Replies)

			untitled, err := s.CreatePost(ctx, NewPost{Title: strPtr(" "), User: "u", Role: "r", Message: "m"})
			require.NoError(t, err)
			assert.Nil(t, untitled.Title)
		})
	}
}

func TestStore_CreatePostValidation(t *testing.T) {
	tests := []struct {
		name    string
		in      NewPost
		message string
	}{
		{"missing user", NewPost{Role: "PM", Message: "m"}, "user is required"},
		{"missing role", NewPost{User: "u", Message: "m"}, "role is required"},
		{"missing message", NewPost{User: "u", Role: "PM"}, "message is required"},
		{"blank message", NewPost{User: "u", Role: "PM", Message: "   "}, "message is required"},
	}

	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					_, err := s.CreatePost(context.Background(), tt.in)
					require.Error(t, err)
					assert.True(t, models.IsValidation(err))

					var appErr *models.AppError
					require.ErrorAs(t, err, &appErr)
					assert.Equal(t, tt.message, appErr.Message)
				})
			}

			posts, err := s.ListPosts(context.Background())
			require.NoError(t, err)
			assert.Empty(t, posts)
		})
	}
}

func TestStore_IDsUniqueAndTimestampsIncreasing(t *testing.T) {
	const n = 50
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			seen := make(map[string]bool)
			var last time.Time
			post := seedPost(t, s, "root")
			seen[post.ID] = true
			last = post.Timestamp

			for i := 0; i < n; i++ {
				r, err := s.CreateReply(ctx, post.ID, NewReply{User: "Alexa A.", Role: "SCRUM Master", Message: "ack"})
				require.NoError(t, err)
				assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
				seen[r.ID] = true
				assert.True(t, r.Timestamp.After(last), "timestamp %v not after %v", r.Timestamp, last)
				last = r.Timestamp

				p := seedPost(t, s, "another")
				assert.False(t, seen[p.ID])
				seen[p.ID] = true
				assert.True(t, p.Timestamp.After(last))
				last = p.Timestamp
			}
		})
	}
}

func TestStore_Listings(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			first := seedPost(t, s, "first")
			second := seedPost(t, s, "second")
			for _, msg := range []string{"one", "two", "three"} {
				_, err := s.CreateReply(ctx, first.ID, NewReply{User: "Alexa A.", Role: "SCRUM Master", Message: msg})
				require.NoError(t, err)
			}

			summaries, err := s.ListPosts(ctx)
			require.NoError(t, err)
			require.Len(t, summaries, 2)
			assert.Equal(t, second.ID, summaries[0].ID)
			assert.Equal(t, first.ID, summaries[1].ID)
			assert.Empty(t, summaries[1].Replies)

			full, err := s.ListPostsFull(ctx)
			require.NoError(t, err)
			require.Len(t, full, 2)
			assert.Equal(t, second.ID, full[0].ID)
			assert.NotNil(t, full[0].Replies)
			assert.Empty(t, full[0].Replies)
			require.Len(t, full[1].Replies, 3)
			assert.Equal(t, "one", full[1].Replies[0].Message)
			assert.Equal(t, "three", full[1].Replies[2].Message)

			replies, err := s.ListReplies(ctx, first.ID)
			require.NoError(t, err)
			require.Len(t, replies, 3)
			for i := 1; i < len(replies); i++ {
				assert.True(t, replies[i].Timestamp.After(replies[i-1].Timestamp))
			}

			replies, err = s.ListReplies(ctx, second.ID)
			require.NoError(t, err)
			assert.NotNil(t, replies)
			assert.Empty(t, replies)
		})
	}
}

func TestStore_UpdatePost(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()
			p := seedPost(t, s, "original")

			t.Run("no fields is a no-op", func(t *testing.T) {
				got, err := s.UpdatePost(ctx, p.ID, PostUpdate{})
				require.NoError(t, err)
				assert.Equal(t, "original", got.Message)
				assert.Nil(t, got.UpdatedAt)
			})

			t.Run("empty message rejected", func(t *testing.T) {
				_, err := s.UpdatePost(ctx, p.ID, PostUpdate{Message: strPtr("")})
				assert.True(t, models.IsValidation(err))
			})

			t.Run("message and title change", func(t *testing.T) {
				got, err := s.UpdatePost(ctx, p.ID, PostUpdate{Message: strPtr("edited"), Title: strPtr("New title")})
				require.NoError(t, err)
				assert.Equal(t, "edited", got.Message)
				assert.Equal(t, "New title", got.TitleOrEmpty())
				require.NotNil(t, got.UpdatedAt)
				assert.True(t, got.UpdatedAt.After(p.Timestamp))
				assert.True(t, got.Timestamp.Equal(p.Timestamp), "creation timestamp must not change")
			})

			t.Run("blank title clears it", func(t *testing.T) {
				got, err := s.UpdatePost(ctx, p.ID, PostUpdate{Title: strPtr("  ")})
				require.NoError(t, err)
				assert.Nil(t, got.Title)

				stored, err := s.GetPost(ctx, p.ID)
				require.NoError(t, err)
				assert.Nil(t, stored.Title)
			})

			t.Run("unknown id", func(t *testing.T) {
				_, err := s.UpdatePost(ctx, "missing", PostUpdate{Message: strPtr("x")})
				assert.True(t, models.IsNotFound(err))
			})
		})
	}
}

func TestStore_DeletePostCascades(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()
			p := seedPost(t, s, "to delete")
			keep := seedPost(t, s, "to keep")

			var replyIDs []string
			for i := 0; i < 4; i++ {
				r, err := s.CreateReply(ctx, p.ID, NewReply{User: "u", Role: "r", Message: "m"})
				require.NoError(t, err)
				replyIDs = append(replyIDs, r.ID)
			}
			kept, err := s.CreateReply(ctx, keep.ID, NewReply{User: "u", Role: "r", Message: "m"})
			require.NoError(t, err)

			require.NoError(t, s.DeletePost(ctx, p.ID))

			_, err = s.GetPost(ctx, p.ID)
			assert.True(t, models.IsNotFound(err))
			_, err = s.ListReplies(ctx, p.ID)
			assert.True(t, models.IsNotFound(err))
			for _, id := range replyIDs {
				_, err := s.GetReply(ctx, id)
				assert.True(t, models.IsNotFound(err))
			}

			_, err = s.GetReply(ctx, kept.ID)
			assert.NoError(t, err)

			assert.True(t, models.IsNotFound(s.DeletePost(ctx, p.ID)))
		})
	}
}

func TestStore_Replies(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()
			p := seedPost(t, s, "root")

			t.Run("unknown post leaves store unchanged", func(t *testing.T) {
				_, err := s.CreateReply(ctx, "missing", NewReply{User: "u", Role: "r", Message: "m"})
				assert.True(t, models.IsNotFound(err))

				full, err := s.ListPostsFull(ctx)
				require.NoError(t, err)
				require.Len(t, full, 1)
				assert.Empty(t, full[0].Replies)
			})

			t.Run("validation", func(t *testing.T) {
				_, err := s.CreateReply(ctx, p.ID, NewReply{User: "u", Role: "r"})
				assert.True(t, models.IsValidation(err))
			})

			r, err := s.CreateReply(ctx, p.ID, NewReply{User: "Alexa A.", Role: "SCRUM Master", Message: "validated"})
			require.NoError(t, err)
			assert.Equal(t, p.ID, r.PostID)

			t.Run("update", func(t *testing.T) {
				got, err := s.UpdateReply(ctx, r.ID, ReplyUpdate{})
				require.NoError(t, err)
				assert.Nil(t, got.UpdatedAt)

				got, err = s.UpdateReply(ctx, r.ID, ReplyUpdate{Message: strPtr("approved")})
				require.NoError(t, err)
				assert.Equal(t, "approved", got.Message)
				require.NotNil(t, got.UpdatedAt)
				assert.True(t, got.Timestamp.Equal(r.Timestamp))

				_, err = s.UpdateReply(ctx, r.ID, ReplyUpdate{Message: strPtr(" ")})
				assert.True(t, models.IsValidation(err))

				_, err = s.UpdateReply(ctx, "missing", ReplyUpdate{Message: strPtr("x")})
				assert.True(t, models.IsNotFound(err))
			})

			t.Run("delete", func(t *testing.T) {
				require.NoError(t, s.DeleteReply(ctx, r.ID))
				assert.True(t, models.IsNotFound(s.DeleteReply(ctx, r.ID)))

				got, err := s.GetPost(ctx, p.ID)
				require.NoError(t, err)
				assert.Empty(t, got.Replies)
			})
		})
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	p := seedPost(t, s, "original")

	p.Message = "mutated by caller"
	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Message)
}

func TestClock_StrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := fixed
	c := newClock(func() time.Time { return now })

	a := c.next()
	b := c.next()
	assert.Equal(t, fixed, a)
	assert.Equal(t, fixed.Add(time.Microsecond), b)

	now = fixed.Add(-time.Hour)
	assert.True(t, c.next().After(b))

	c.observe(fixed.Add(time.Hour))
	assert.True(t, c.next().After(fixed.Add(time.Hour)))
}

func TestSortHelpers(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	replies := []models.Reply{
		{ID: "c", Timestamp: base.Add(3 * time.Second)},
		{ID: "a", Timestamp: base.Add(1 * time.Second)},
		{ID: "b", Timestamp: base.Add(2 * time.Second)},
	}
	SortRepliesOldestFirst(replies)
	assert.Equal(t, []string{"a", "b", "c"}, []string{replies[0].ID, replies[1].ID, replies[2].ID})

	posts := []*models.Post{
		{ID: "old", Timestamp: base},
		{ID: "new", Timestamp: base.Add(time.Minute)},
	}
	SortPostsNewestFirst(posts)
	assert.Equal(t, "new", posts[0].ID)
}
