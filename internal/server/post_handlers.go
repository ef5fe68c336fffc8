package server

import (
	"teamsemu/internal/models"
	"teamsemu/internal/store"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Title   *string `json:"title"`
	User    *string `json:"user"`
	Role    *string `json:"role"`
	Message *string `json:"message"`
}

type updatePostRequest struct {
	Title   *string `json:"title"`
	Message *string `json:"message"`
}

type deleteResponse struct {
	Message string `json:"message"`
}

// ListPosts returns the summary of every post, newest first.
func (s *Server) ListPosts(c *fiber.Ctx) error {
	posts, err := s.store.ListPosts(c.UserContext())
	if err != nil {
		return respondStoreError(c, err)
	}

	summaries := make([]models.PostSummary, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, p.Summary())
	}
	return c.JSON(summaries)
}

// ListPostsFull returns every post with its replies attached.
func (s *Server) ListPostsFull(c *fiber.Ctx) error {
	posts, err := s.store.ListPostsFull(c.UserContext())
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(posts)
}

// GetPost returns one post with its replies.
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.store.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(post)
}

// CreatePost creates a top-level post.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if !parseBody(c, &req) {
		return nil
	}
	if !requireKeys(c, field{"user", req.User}, field{"role", req.Role}, field{"message", req.Message}) {
		return nil
	}

	post, err := s.store.CreatePost(c.UserContext(), store.NewPost{
		Title:   req.Title,
		User:    *req.User,
		Role:    *req.Role,
		Message: *req.Message,
	})
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost edits the title and/or message of a post. A blank title clears it.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	var req updatePostRequest
	if !parseBody(c, &req) {
		return nil
	}

	post, err := s.store.UpdatePost(c.UserContext(), c.Params("id"), store.PostUpdate{
		Title:   req.Title,
		Message: req.Message,
	})
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(post)
}

// DeletePost removes a post and all of its replies.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.store.DeletePost(c.UserContext(), c.Params("id")); err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(deleteResponse{Message: "Post deleted successfully"})
}
