package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"teamsemu/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	byTimestampAsc  = clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}
	byTimestampDesc = clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}
)

// Gorm is a Store backed by a relational database through gorm. It runs
// against the sqlite and postgres dialectors alike.
type Gorm struct {
	db    *gorm.DB
	clock *clock
	// writes serializes mutations so id/cascade bookkeeping never interleaves.
	writes sync.Mutex
}

var _ Store = (*Gorm)(nil)

// NewGorm migrates the posts and replies tables and returns a store using db.
func NewGorm(ctx context.Context, db *gorm.DB, opts ...Option) (*Gorm, error) {
	if err := db.WithContext(ctx).AutoMigrate(&models.Post{}, &models.Reply{}); err != nil {
		return nil, fmt.Errorf("failed to migrate store tables: %w", err)
	}

	o := buildOptions(opts)
	g := &Gorm{db: db, clock: newClock(o.now)}

	// Keep timestamps increasing across restarts.
	var lastPost models.Post
	if err := db.WithContext(ctx).Order(byTimestampDesc).Take(&lastPost).Error; err == nil {
		g.clock.observe(lastPost.Timestamp)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to read latest post: %w", err)
	}
	var lastReply models.Reply
	if err := db.WithContext(ctx).Order(byTimestampDesc).Take(&lastReply).Error; err == nil {
		g.clock.observe(lastReply.Timestamp)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to read latest reply: %w", err)
	}

	return g, nil
}

func (g *Gorm) CreatePost(ctx context.Context, in NewPost) (*models.Post, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	g.writes.Lock()
	defer g.writes.Unlock()

	post := &models.Post{
		ID:        newID(),
		Title:     titleOrNil(in.Title),
		User:      in.User,
		Role:      in.Role,
		Message:   in.Message,
		Timestamp: g.clock.next(),
	}
	if err := g.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	post.Replies = []models.Reply{}
	return post, nil
}

func (g *Gorm) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return g.loadPost(g.db.WithContext(ctx), id, true)
}

func (g *Gorm) ListPosts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	if err := g.db.WithContext(ctx).Order(byTimestampDesc).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	SortPostsNewestFirst(posts)
	return posts, nil
}

func (g *Gorm) ListPostsFull(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := g.db.WithContext(ctx).
		Preload("Replies", orderRepliesAsc).
		Order(byTimestampDesc).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, p := range posts {
		if p.Replies == nil {
			p.Replies = []models.Reply{}
		}
		SortRepliesOldestFirst(p.Replies)
	}
	SortPostsNewestFirst(posts)
	return posts, nil
}

func (g *Gorm) UpdatePost(ctx context.Context, id string, in PostUpdate) (*models.Post, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	g.writes.Lock()
	defer g.writes.Unlock()

	var out *models.Post
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := g.loadPost(tx, id, false); err != nil {
			return err
		}

		updates := map[string]any{}
		if in.Title != nil {
			if title := titleOrNil(in.Title); title != nil {
				updates["title"] = *title
			} else {
				updates["title"] = nil
			}
		}
		if in.Message != nil {
			updates["message"] = *in.Message
		}
		if len(updates) > 0 {
			updates["updated_at"] = g.clock.next()
			if err := tx.Model(&models.Post{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return models.NewInternalError(err)
			}
		}

		post, err := g.loadPost(tx, id, true)
		out = post
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gorm) DeletePost(ctx context.Context, id string) error {
	g.writes.Lock()
	defer g.writes.Unlock()

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := g.loadPost(tx, id, false); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Reply{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (g *Gorm) CreateReply(ctx context.Context, postID string, in NewReply) (*models.Reply, error) {
	g.writes.Lock()
	defer g.writes.Unlock()

	var reply *models.Reply
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := g.loadPost(tx, postID, false); err != nil {
			return err
		}
		if err := in.validate(); err != nil {
			return err
		}

		reply = &models.Reply{
			ID:        newID(),
			PostID:    postID,
			User:      in.User,
			Role:      in.Role,
			Message:   in.Message,
			Timestamp: g.clock.next(),
		}
		if err := tx.Create(reply).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (g *Gorm) GetReply(ctx context.Context, id string) (*models.Reply, error) {
	return g.loadReply(g.db.WithContext(ctx), id)
}

func (g *Gorm) ListReplies(ctx context.Context, postID string) ([]*models.Reply, error) {
	db := g.db.WithContext(ctx)
	if _, err := g.loadPost(db, postID, false); err != nil {
		return nil, err
	}

	replies := []*models.Reply{}
	if err := db.Where("post_id = ?", postID).Order(byTimestampAsc).Find(&replies).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	sort.SliceStable(replies, func(i, j int) bool {
		return replies[i].Timestamp.Before(replies[j].Timestamp)
	})
	return replies, nil
}

func (g *Gorm) UpdateReply(ctx context.Context, id string, in ReplyUpdate) (*models.Reply, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	g.writes.Lock()
	defer g.writes.Unlock()

	var out *models.Reply
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reply, err := g.loadReply(tx, id)
		if err != nil {
			return err
		}
		if in.Message != nil {
			now := g.clock.next()
			err := tx.Model(&models.Reply{}).Where("id = ?", id).Updates(map[string]any{
				"message":    *in.Message,
				"updated_at": now,
			}).Error
			if err != nil {
				return models.NewInternalError(err)
			}
			reply.Message = *in.Message
			reply.UpdatedAt = &now
		}
		out = reply
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gorm) DeleteReply(ctx context.Context, id string) error {
	g.writes.Lock()
	defer g.writes.Unlock()

	res := g.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Reply{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Reply", id)
	}
	return nil
}

// Ping checks the underlying connection.
func (g *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *Gorm) loadPost(db *gorm.DB, id string, withReplies bool) (*models.Post, error) {
	q := db
	if withReplies {
		q = q.Preload("Replies", orderRepliesAsc)
	}
	var post models.Post
	if err := q.Where("id = ?", id).Take(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	if withReplies {
		if post.Replies == nil {
			post.Replies = []models.Reply{}
		}
		SortRepliesOldestFirst(post.Replies)
	}
	return &post, nil
}

func (g *Gorm) loadReply(db *gorm.DB, id string) (*models.Reply, error) {
	var reply models.Reply
	if err := db.Where("id = ?", id).Take(&reply).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Reply", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &reply, nil
}

func orderRepliesAsc(db *gorm.DB) *gorm.DB {
	return db.Order(byTimestampAsc)
}
