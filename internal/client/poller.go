package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"teamsemu/internal/models"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 2 * time.Second

// ErrAlreadyStarted is returned by Start on every call after the first.
var ErrAlreadyStarted = errors.New("poller already started")

// State is the phase of the polling state machine.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateChanged
	StateUnchanged
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateChanged:
		return "changed"
	case StateUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Renderer draws a snapshot. Posts arrive in display order.
type Renderer interface {
	Render(posts []models.Post) error
}

// NoticeFunc receives user-facing messages about failed fetches and
// mutations.
type NoticeFunc func(msg string)

// Poller keeps a rendered view in sync with the service by polling the full
// listing and re-rendering only when the snapshot fingerprint changes.
type Poller struct {
	api      *API
	renderer Renderer
	interval time.Duration
	notice   NoticeFunc
	logger   *slog.Logger

	state    atomic.Int32
	inFlight atomic.Bool

	// mu serializes renders and guards baseline.
	mu       sync.Mutex
	baseline string

	startOnce sync.Once
	done      chan struct{}
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the polling period.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithNotice routes user-facing notices to fn.
func WithNotice(fn NoticeFunc) PollerOption {
	return func(p *Poller) { p.notice = fn }
}

// WithLogger sets the logger for fetch failures.
func WithLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// NewPoller returns an idle poller drawing through r.
func NewPoller(api *API, r Renderer, opts ...PollerOption) *Poller {
	p := &Poller{
		api:      api,
		renderer: r,
		interval: DefaultInterval,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notice == nil {
		p.notice = func(msg string) { p.logger.Warn(msg) }
	}
	return p
}

// State returns the current phase.
func (p *Poller) State() State { return State(p.state.Load()) }

// Interval returns the polling period.
func (p *Poller) Interval() time.Duration { return p.interval }

// Start performs the initial fetch and render, then polls every interval
// until ctx is cancelled. The ticker runs even when the initial fetch fails;
// that failure is returned after being reported as a notice. A poller runs
// one loop; later calls return ErrAlreadyStarted.
func (p *Poller) Start(ctx context.Context) error {
	first := false
	p.startOnce.Do(func() { first = true })
	if !first {
		return ErrAlreadyStarted
	}

	err := p.Refresh(ctx)

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = p.Poll(ctx)
			}
		}
	}()
	return err
}

// Done is closed once the polling loop started by Start has exited.
func (p *Poller) Done() <-chan struct{} { return p.done }

// Poll runs one tick: fetch, compare with the baseline and render on change.
// It returns false without fetching when another fetch is still in flight.
func (p *Poller) Poll(ctx context.Context) (changed bool, err error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("poll skipped, fetch in flight")
		return false, nil
	}
	defer p.inFlight.Store(false)

	p.state.Store(int32(StatePolling))
	posts, err := p.api.ListPostsFull(ctx)
	if err != nil {
		p.state.Store(int32(StateIdle))
		p.reportFetchError(err)
		return false, err
	}

	fp := Fingerprint(posts)

	p.mu.Lock()
	defer p.mu.Unlock()
	if fp == p.baseline {
		p.state.Store(int32(StateUnchanged))
		p.state.Store(int32(StateIdle))
		return false, nil
	}

	p.state.Store(int32(StateChanged))
	err = p.render(posts)
	p.baseline = fp
	p.state.Store(int32(StateIdle))
	return true, err
}

// Refresh fetches and renders unconditionally, bypassing the diff. It does
// not wait for nor block a tick-triggered fetch.
func (p *Poller) Refresh(ctx context.Context) error {
	posts, err := p.api.ListPostsFull(ctx)
	if err != nil {
		p.reportFetchError(err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseline = Fingerprint(posts)
	return p.render(posts)
}

// CreatePost creates a post and refreshes the view on success.
func (p *Poller) CreatePost(ctx context.Context, in NewPost) (*models.Post, error) {
	post, err := p.api.CreatePost(ctx, in)
	if err != nil {
		p.notice(fmt.Sprintf("Failed to create post: %v", err))
		return nil, err
	}
	p.afterMutation(ctx)
	return post, nil
}

// UpdatePost edits a post and refreshes the view on success.
func (p *Poller) UpdatePost(ctx context.Context, id string, in PostUpdate) (*models.Post, error) {
	post, err := p.api.UpdatePost(ctx, id, in)
	if err != nil {
		p.notice(fmt.Sprintf("Failed to update post: %v", err))
		return nil, err
	}
	p.afterMutation(ctx)
	return post, nil
}

// DeletePost deletes a post and refreshes the view on success.
func (p *Poller) DeletePost(ctx context.Context, id string) error {
	if err := p.api.DeletePost(ctx, id); err != nil {
		p.notice(fmt.Sprintf("Failed to delete post: %v", err))
		return err
	}
	p.afterMutation(ctx)
	return nil
}

// CreateReply adds a reply to postID and refreshes the view on success.
func (p *Poller) CreateReply(ctx context.Context, postID string, in NewReply) (*models.Reply, error) {
	reply, err := p.api.CreateReply(ctx, postID, in)
	if err != nil {
		p.notice(fmt.Sprintf("Failed to create reply: %v", err))
		return nil, err
	}
	p.afterMutation(ctx)
	return reply, nil
}

// UpdateReply edits a reply and refreshes the view on success.
func (p *Poller) UpdateReply(ctx context.Context, id string, in ReplyUpdate) (*models.Reply, error) {
	reply, err := p.api.UpdateReply(ctx, id, in)
	if err != nil {
		p.notice(fmt.Sprintf("Failed to update reply: %v", err))
		return nil, err
	}
	p.afterMutation(ctx)
	return reply, nil
}

// DeleteReply deletes a reply and refreshes the view on success.
func (p *Poller) DeleteReply(ctx context.Context, id string) error {
	if err := p.api.DeleteReply(ctx, id); err != nil {
		p.notice(fmt.Sprintf("Failed to delete reply: %v", err))
		return err
	}
	p.afterMutation(ctx)
	return nil
}

func (p *Poller) afterMutation(ctx context.Context) {
	// Refresh reports its own fetch failures.
	_ = p.Refresh(ctx)
}

// render must be called with mu held.
func (p *Poller) render(posts []models.Post) error {
	if err := p.renderer.Render(SortForDisplay(posts)); err != nil {
		p.logger.Error("render failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (p *Poller) reportFetchError(err error) {
	p.logger.Warn("fetch failed", slog.String("server", p.api.BaseURL()), slog.String("error", err.Error()))
	p.notice(fmt.Sprintf("Could not load posts: %v", err))
}
