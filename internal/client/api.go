// Package client is the presentation side of the emulator: a typed HTTP
// client for the posts API, snapshot fingerprinting, the polling state
// machine and a terminal renderer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"teamsemu/internal/models"

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds every request unless overridden with WithTimeout.
const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// NewPost is the body of a post creation.
type NewPost struct {
	Title   *string `json:"title,omitempty"`
	User    string  `json:"user"`
	Role    string  `json:"role"`
	Message string  `json:"message"`
}

// PostUpdate is the body of a post update. Nil fields are left untouched.
type PostUpdate struct {
	Title   *string `json:"title,omitempty"`
	Message *string `json:"message,omitempty"`
}

// NewReply is the body of a reply creation.
type NewReply struct {
	PostID  string `json:"post_id,omitempty"`
	User    string `json:"user"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

// ReplyUpdate is the body of a reply update.
type ReplyUpdate struct {
	Message *string `json:"message,omitempty"`
}

// API talks to the posts service. Concurrent identical reads share one
// request; a successful mutation makes later reads start fresh.
type API struct {
	baseURL string
	http    *http.Client

	reads      singleflight.Group
	generation atomic.Uint64
}

// APIOption configures an API.
type APIOption func(*API)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) APIOption {
	return func(a *API) { a.http = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) APIOption {
	return func(a *API) { a.http.Timeout = d }
}

// NewAPI returns a client for the service at baseURL, e.g. http://localhost:8000.
func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BaseURL returns the service root the client talks to.
func (a *API) BaseURL() string { return a.baseURL }

func (a *API) ListPosts(ctx context.Context) ([]models.PostSummary, error) {
	var out []models.PostSummary
	if err := a.get(ctx, "/api/posts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) ListPostsFull(ctx context.Context) ([]models.Post, error) {
	var out []models.Post
	if err := a.get(ctx, "/api/posts/full", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var out models.Post
	if err := a.get(ctx, "/api/posts/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ListReplies(ctx context.Context, postID string) ([]models.Reply, error) {
	var out []models.Reply
	if err := a.get(ctx, "/api/posts/"+url.PathEscape(postID)+"/replies", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) CreatePost(ctx context.Context, in NewPost) (*models.Post, error) {
	var out models.Post
	if err := a.mutate(ctx, http.MethodPost, "/api/posts", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) UpdatePost(ctx context.Context, id string, in PostUpdate) (*models.Post, error) {
	var out models.Post
	if err := a.mutate(ctx, http.MethodPut, "/api/posts/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) DeletePost(ctx context.Context, id string) error {
	return a.mutate(ctx, http.MethodDelete, "/api/posts/"+url.PathEscape(id), nil, nil)
}

// CreateReply posts a reply under postID through the post's replies route.
func (a *API) CreateReply(ctx context.Context, postID string, in NewReply) (*models.Reply, error) {
	in.PostID = ""
	var out models.Reply
	if err := a.mutate(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(postID)+"/replies", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitReply posts a reply through the flat replies route; in.PostID names
// the parent.
func (a *API) SubmitReply(ctx context.Context, in NewReply) (*models.Reply, error) {
	var out models.Reply
	if err := a.mutate(ctx, http.MethodPost, "/api/replies", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) UpdateReply(ctx context.Context, id string, in ReplyUpdate) (*models.Reply, error) {
	var out models.Reply
	if err := a.mutate(ctx, http.MethodPut, "/api/replies/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) DeleteReply(ctx context.Context, id string) error {
	return a.mutate(ctx, http.MethodDelete, "/api/replies/"+url.PathEscape(id), nil, nil)
}

func (a *API) get(ctx context.Context, path string, out any) error {
	key := fmt.Sprintf("%d %s", a.generation.Load(), path)
	// The shared request must not die with whichever caller started it; it is
	// still bounded by the http.Client timeout.
	ch := a.reads.DoChan(key, func() (any, error) {
		return a.do(context.WithoutCancel(ctx), http.MethodGet, path, nil)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return fmt.Errorf("GET %s: %w", path, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return res.Err
	}
	if err := json.Unmarshal(res.Val.([]byte), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (a *API) mutate(ctx context.Context, method, path string, in, out any) error {
	data, err := a.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	a.generation.Add(1)
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (a *API) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func decodeAPIError(status int, data []byte) error {
	apiErr := &APIError{Status: status}
	var body models.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Code = body.Code
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	}
	return apiErr
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
