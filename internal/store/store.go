// Package store holds posts and replies behind a backend-neutral interface.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"teamsemu/internal/models"

	"github.com/google/uuid"
)

// Store defines the operations the API service needs. Every implementation
// assigns identifiers and timestamps itself, validates required fields and
// cascades post deletion to replies.
type Store interface {
	CreatePost(ctx context.Context, in NewPost) (*models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context) ([]*models.Post, error)
	ListPostsFull(ctx context.Context) ([]*models.Post, error)
	UpdatePost(ctx context.Context, id string, in PostUpdate) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error

	CreateReply(ctx context.Context, postID string, in NewReply) (*models.Reply, error)
	GetReply(ctx context.Context, id string) (*models.Reply, error)
	ListReplies(ctx context.Context, postID string) ([]*models.Reply, error)
	UpdateReply(ctx context.Context, id string, in ReplyUpdate) (*models.Reply, error)
	DeleteReply(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}

// NewPost carries the caller-supplied fields of a post.
type NewPost struct {
	Title   *string
	User    string
	Role    string
	Message string
}

// PostUpdate lists the mutable post fields. Nil fields are left untouched; a
// blank Title clears the title.
type PostUpdate struct {
	Title   *string
	Message *string
}

// NewReply carries the caller-supplied fields of a reply.
type NewReply struct {
	User    string
	Role    string
	Message string
}

// ReplyUpdate lists the mutable reply fields. Nil fields are left untouched.
type ReplyUpdate struct {
	Message *string
}

func (in NewPost) validate() error {
	return requireFields(map[string]string{
		"user":    in.User,
		"role":    in.Role,
		"message": in.Message,
	}, "user", "role", "message")
}

func (in NewReply) validate() error {
	return requireFields(map[string]string{
		"user":    in.User,
		"role":    in.Role,
		"message": in.Message,
	}, "user", "role", "message")
}

func (in PostUpdate) validate() error {
	if in.Message != nil && strings.TrimSpace(*in.Message) == "" {
		return models.NewValidationError("message must not be empty")
	}
	return nil
}

func (in ReplyUpdate) validate() error {
	if in.Message != nil && strings.TrimSpace(*in.Message) == "" {
		return models.NewValidationError("message must not be empty")
	}
	return nil
}

// requireFields checks fields in the given order so the first missing one is
// reported deterministically.
func requireFields(values map[string]string, order ...string) error {
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			return models.NewValidationError(name + " is required")
		}
	}
	return nil
}

// titleOrNil copies title, mapping a blank one to nil so create and update
// store "no title" the same way.
func titleOrNil(title *string) *string {
	if title == nil || strings.TrimSpace(*title) == "" {
		return nil
	}
	v := *title
	return &v
}

func newID() string {
	return uuid.NewString()
}

// clock hands out strictly increasing instants so creation order and
// timestamp order always agree, even when the wall clock stalls or steps back.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newClock(now func() time.Time) *clock {
	if now == nil {
		now = time.Now
	}
	return &clock{now: now}
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

// observe moves the clock past t. Persistent backends call it with the newest
// stored timestamp so restarts keep the ordering.
func (c *clock) observe(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.last) {
		c.last = t.UTC()
	}
}

// SortPostsNewestFirst orders posts by creation timestamp, newest first.
func SortPostsNewestFirst(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Timestamp.After(posts[j].Timestamp)
	})
}

// SortRepliesOldestFirst orders replies by creation timestamp, oldest first.
func SortRepliesOldestFirst(replies []models.Reply) {
	sort.SliceStable(replies, func(i, j int) bool {
		return replies[i].Timestamp.Before(replies[j].Timestamp)
	})
}
