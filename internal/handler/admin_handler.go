package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anongrove/grove-backend/internal/common"
	"github.com/anongrove/grove-backend/internal/domain"
	"github.com/anongrove/grove-backend/internal/service"
	"github.com/anongrove/grove-backend/pkg/ginutil"
)

// AdminHandler handles the moderation surface
type AdminHandler struct {
	service service.PostService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service service.PostService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListPosts pages the moderation queue. Without a status filter the queue
// runs oldest-first; filtering to a decided status flips to newest-first.
func (h *AdminHandler) ListPosts(c *gin.Context) {
	posts, next, err := h.service.List(c.Request.Context(), service.ListOptions{
		Count:     ginutil.QueryInt(c, "count", service.DefaultPageSize),
		Cursor:    c.Query("cursor"),
		Moderator: true,
		Status:    domain.PostStatus(c.Query("status")),
	})
	if err != nil {
		serviceError(c, err, "Failed to fetch posts")
		return
	}

	common.SuccessResponse(c, posts, &common.Meta{Count: len(posts), NextCursor: next})
}

// GetPost returns the full record, rejection reason and all
func (h *AdminHandler) GetPost(c *gin.Context) {
	id, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid post ID", err)
		return
	}

	post, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err, "Failed to fetch post")
		return
	}

	common.SuccessResponse(c, post, nil)
}

// AcceptPost publishes a pending submission and assigns its number
func (h *AdminHandler) AcceptPost(c *gin.Context) {
	id, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid post ID", err)
		return
	}

	var req domain.AcceptPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	post, err := h.service.Accept(c.Request.Context(), id, req.FbLink)
	if err != nil {
		serviceError(c, err, "Failed to accept post")
		return
	}

	common.SuccessResponse(c, post, nil)
}

// RejectPost declines a pending submission with a reason
func (h *AdminHandler) RejectPost(c *gin.Context) {
	id, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid post ID", err)
		return
	}

	var req domain.RejectPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	post, err := h.service.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		serviceError(c, err, "Failed to reject post")
		return
	}

	common.SuccessResponse(c, post, nil)
}

// DeletePost soft-deletes a post; the record and its edit ledger survive
func (h *AdminHandler) DeletePost(c *gin.Context) {
	id, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid post ID", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		serviceError(c, err, "Failed to delete post")
		return
	}

	common.SuccessResponse(c, gin.H{"deleted": true}, nil)
}

// GetHistory returns the edit ledger in chronological order
func (h *AdminHandler) GetHistory(c *gin.Context) {
	id, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid post ID", err)
		return
	}

	entries, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err, "Failed to fetch history")
		return
	}

	common.SuccessResponse(c, entries, &common.Meta{Count: len(entries)})
}
