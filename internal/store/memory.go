package store

import (
	"context"
	"sync"
	"time"

	"teamsemu/internal/models"
)

// Option configures a store implementation.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Memory is an in-process Store. Records are kept in maps keyed by id with
// slices recording insertion order; all mutations hold the write lock.
type Memory struct {
	mu         sync.RWMutex
	clock      *clock
	posts      map[string]*models.Post
	postOrder  []string
	replies    map[string]*models.Reply
	replyOrder []string
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{
		clock:   newClock(o.now),
		posts:   make(map[string]*models.Post),
		replies: make(map[string]*models.Reply),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreatePost(_ context.Context, in NewPost) (*models.Post, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	post := &models.Post{
		ID:        newID(),
		Title:     titleOrNil(in.Title),
		User:      in.User,
		Role:      in.Role,
		Message:   in.Message,
		Timestamp: m.clock.next(),
	}
	m.posts[post.ID] = post
	m.postOrder = append(m.postOrder, post.ID)

	out := copyPost(post)
	out.Replies = []models.Reply{}
	return out, nil
}

func (m *Memory) GetPost(_ context.Context, id string) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	post, ok := m.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	out := copyPost(post)
	out.Replies = m.repliesFor(id)
	return out, nil
}

func (m *Memory) ListPosts(_ context.Context) ([]*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := make([]*models.Post, 0, len(m.postOrder))
	for _, id := range m.postOrder {
		posts = append(posts, copyPost(m.posts[id]))
	}
	SortPostsNewestFirst(posts)
	return posts, nil
}

func (m *Memory) ListPostsFull(_ context.Context) ([]*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := make([]*models.Post, 0, len(m.postOrder))
	for _, id := range m.postOrder {
		p := copyPost(m.posts[id])
		p.Replies = m.repliesFor(id)
		posts = append(posts, p)
	}
	SortPostsNewestFirst(posts)
	return posts, nil
}

func (m *Memory) UpdatePost(_ context.Context, id string, in PostUpdate) (*models.Post, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}

	changed := false
	if in.Title != nil {
		post.Title = titleOrNil(in.Title)
		changed = true
	}
	if in.Message != nil {
		post.Message = *in.Message
		changed = true
	}
	if changed {
		now := m.clock.next()
		post.UpdatedAt = &now
	}

	out := copyPost(post)
	out.Replies = m.repliesFor(id)
	return out, nil
}

func (m *Memory) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[id]; !ok {
		return models.NewNotFoundError("Post", id)
	}
	delete(m.posts, id)
	m.postOrder = removeID(m.postOrder, id)

	kept := m.replyOrder[:0]
	for _, rid := range m.replyOrder {
		if m.replies[rid].PostID == id {
			delete(m.replies, rid)
			continue
		}
		kept = append(kept, rid)
	}
	m.replyOrder = kept
	return nil
}

func (m *Memory) CreateReply(_ context.Context, postID string, in NewReply) (*models.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[postID]; !ok {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	reply := &models.Reply{
		ID:        newID(),
		PostID:    postID,
		User:      in.User,
		Role:      in.Role,
		Message:   in.Message,
		Timestamp: m.clock.next(),
	}
	m.replies[reply.ID] = reply
	m.replyOrder = append(m.replyOrder, reply.ID)

	out := *reply
	return &out, nil
}

func (m *Memory) GetReply(_ context.Context, id string) (*models.Reply, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reply, ok := m.replies[id]
	if !ok {
		return nil, models.NewNotFoundError("Reply", id)
	}
	out := *reply
	return &out, nil
}

func (m *Memory) ListReplies(_ context.Context, postID string) ([]*models.Reply, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.posts[postID]; !ok {
		return nil, models.NewNotFoundError("Post", postID)
	}
	replies := m.repliesFor(postID)
	out := make([]*models.Reply, len(replies))
	for i := range replies {
		out[i] = &replies[i]
	}
	return out, nil
}

func (m *Memory) UpdateReply(_ context.Context, id string, in ReplyUpdate) (*models.Reply, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	reply, ok := m.replies[id]
	if !ok {
		return nil, models.NewNotFoundError("Reply", id)
	}
	if in.Message != nil {
		reply.Message = *in.Message
		now := m.clock.next()
		reply.UpdatedAt = &now
	}

	out := *reply
	return &out, nil
}

func (m *Memory) DeleteReply(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.replies[id]; !ok {
		return models.NewNotFoundError("Reply", id)
	}
	delete(m.replies, id)
	m.replyOrder = removeID(m.replyOrder, id)
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// repliesFor returns copies of the post's replies, oldest first. Callers must
// hold the lock.
func (m *Memory) repliesFor(postID string) []models.Reply {
	replies := []models.Reply{}
	for _, rid := range m.replyOrder {
		if r := m.replies[rid]; r.PostID == postID {
			replies = append(replies, *r)
		}
	}
	SortRepliesOldestFirst(replies)
	return replies
}

func copyPost(p *models.Post) *models.Post {
	out := *p
	out.Title = cloneString(p.Title)
	out.Replies = nil
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
