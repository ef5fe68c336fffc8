package server

import (
	"strings"

	"teamsemu/internal/models"
	"teamsemu/internal/store"

	"github.com/gofiber/fiber/v2"
)

type createReplyRequest struct {
	PostID  *string `json:"post_id"`
	User    *string `json:"user"`
	Role    *string `json:"role"`
	Message *string `json:"message"`
}

type updateReplyRequest struct {
	Message *string `json:"message"`
}

// ListReplies returns the replies of a post, oldest first.
func (s *Server) ListReplies(c *fiber.Ctx) error {
	replies, err := s.store.ListReplies(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(replies)
}

// CreatePostReply creates a reply under the post named in the path.
func (s *Server) CreatePostReply(c *fiber.Ctx) error {
	var req createReplyRequest
	if !parseBody(c, &req) {
		return nil
	}
	return s.createReply(c, c.Params("id"), req)
}

// CreateReply creates a reply under the post named by post_id in the body.
func (s *Server) CreateReply(c *fiber.Ctx) error {
	var req createReplyRequest
	if !parseBody(c, &req) {
		return nil
	}
	if req.PostID == nil || strings.TrimSpace(*req.PostID) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("post_id is required"))
	}
	return s.createReply(c, *req.PostID, req)
}

func (s *Server) createReply(c *fiber.Ctx, postID string, req createReplyRequest) error {
	if !requireKeys(c, field{"user", req.User}, field{"role", req.Role}, field{"message", req.Message}) {
		return nil
	}

	reply, err := s.store.CreateReply(c.UserContext(), postID, store.NewReply{
		User:    deref(req.User),
		Role:    deref(req.Role),
		Message: deref(req.Message),
	})
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}

// UpdateReply edits the message of a reply.
func (s *Server) UpdateReply(c *fiber.Ctx) error {
	var req updateReplyRequest
	if !parseBody(c, &req) {
		return nil
	}

	reply, err := s.store.UpdateReply(c.UserContext(), c.Params("id"), store.ReplyUpdate{Message: req.Message})
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(reply)
}

// DeleteReply removes a single reply.
func (s *Server) DeleteReply(c *fiber.Ctx) error {
	if err := s.store.DeleteReply(c.UserContext(), c.Params("id")); err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(deleteResponse{Message: "Reply deleted successfully"})
}
