package store

import (
	"context"
	"log/slog"

	"teamsemu/internal/models"
	"teamsemu/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Instrumented decorates a Store with latency metrics, a debug log line and a
// tracing span per operation.
type Instrumented struct {
	next   Store
	logger *slog.Logger
}

var _ Store = (*Instrumented)(nil)

// NewInstrumented wraps next. A nil logger falls back to slog.Default.
func NewInstrumented(next Store, logger *slog.Logger) *Instrumented {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumented{next: next, logger: logger}
}

// Unwrap returns the decorated store.
func (s *Instrumented) Unwrap() Store { return s.next }

func (s *Instrumented) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := observability.StartStoreSpan(ctx, op, attrs...)
	var err error
	done := observability.TrackStoreOperation(op, &err)
	return ctx, func(errp *error) {
		if errp != nil {
			err = *errp
		}
		done()
		observability.EndSpan(span, err)
		if err != nil {
			s.logger.DebugContext(ctx, "store operation failed",
				slog.String("operation", op),
				slog.String("code", models.ErrorCode(err)),
				slog.String("error", err.Error()))
			return
		}
		s.logger.DebugContext(ctx, "store operation", slog.String("operation", op))
	}
}

func (s *Instrumented) CreatePost(ctx context.Context, in NewPost) (post *models.Post, err error) {
	ctx, done := s.observe(ctx, "create_post")
	defer func() { done(&err) }()

	post, err = s.next.CreatePost(ctx, in)
	if err == nil {
		observability.EntitiesCreated.WithLabelValues("post").Inc()
	}
	return post, err
}

func (s *Instrumented) GetPost(ctx context.Context, id string) (post *models.Post, err error) {
	ctx, done := s.observe(ctx, "get_post", attribute.String("post.id", id))
	defer func() { done(&err) }()
	return s.next.GetPost(ctx, id)
}

func (s *Instrumented) ListPosts(ctx context.Context) (posts []*models.Post, err error) {
	ctx, done := s.observe(ctx, "list_posts")
	defer func() { done(&err) }()
	return s.next.ListPosts(ctx)
}

func (s *Instrumented) ListPostsFull(ctx context.Context) (posts []*models.Post, err error) {
	ctx, done := s.observe(ctx, "list_posts_full")
	defer func() { done(&err) }()
	return s.next.ListPostsFull(ctx)
}

func (s *Instrumented) UpdatePost(ctx context.Context, id string, in PostUpdate) (post *models.Post, err error) {
	ctx, done := s.observe(ctx, "update_post", attribute.String("post.id", id))
	defer func() { done(&err) }()
	return s.next.UpdatePost(ctx, id, in)
}

func (s *Instrumented) DeletePost(ctx context.Context, id string) (err error) {
	ctx, done := s.observe(ctx, "delete_post", attribute.String("post.id", id))
	defer func() { done(&err) }()

	err = s.next.DeletePost(ctx, id)
	if err == nil {
		observability.EntitiesDeleted.WithLabelValues("post").Inc()
	}
	return err
}

func (s *Instrumented) CreateReply(ctx context.Context, postID string, in NewReply) (reply *models.Reply, err error) {
	ctx, done := s.observe(ctx, "create_reply", attribute.String("post.id", postID))
	defer func() { done(&err) }()

	reply, err = s.next.CreateReply(ctx, postID, in)
	if err == nil {
		observability.EntitiesCreated.WithLabelValues("reply").Inc()
	}
	return reply, err
}

func (s *Instrumented) GetReply(ctx context.Context, id string) (reply *models.Reply, err error) {
	ctx, done := s.observe(ctx, "get_reply", attribute.String("reply.id", id))
	defer func() { done(&err) }()
	return s.next.GetReply(ctx, id)
}

func (s *Instrumented) ListReplies(ctx context.Context, postID string) (replies []*models.Reply, err error) {
	ctx, done := s.observe(ctx, "list_replies", attribute.String("post.id", postID))
	defer func() { done(&err) }()
	return s.next.ListReplies(ctx, postID)
}

func (s *Instrumented) UpdateReply(ctx context.Context, id string, in ReplyUpdate) (reply *models.Reply, err error) {
	ctx, done := s.observe(ctx, "update_reply", attribute.String("reply.id", id))
	defer func() { done(&err) }()
	return s.next.UpdateReply(ctx, id, in)
}

func (s *Instrumented) DeleteReply(ctx context.Context, id string) (err error) {
	ctx, done := s.observe(ctx, "delete_reply", attribute.String("reply.id", id))
	defer func() { done(&err) }()

	err = s.next.DeleteReply(ctx, id)
	if err == nil {
		observability.EntitiesDeleted.WithLabelValues("reply").Inc()
	}
	return err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}
