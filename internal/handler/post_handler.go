package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anongrove/grove-backend/internal/common"
	"github.com/anongrove/grove-backend/internal/domain"
	"github.com/anongrove/grove-backend/internal/service"
	"github.com/anongrove/grove-backend/pkg/ginutil"
)

// PostHandler handles the public HTTP surface: submissions, the published
// feed and author self-service lookups
type PostHandler struct {
	service service.PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{service: service}
}

// serviceError maps typed service errors onto HTTP statuses
func serviceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, common.ErrPostNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "Post not found", err)
	case errors.Is(err, common.ErrForbidden):
		common.ErrorResponse(c, http.StatusForbidden, "Not authorized for this post", err)
	case errors.Is(err, common.ErrInvalidTransition):
		common.ErrorResponse(c, http.StatusConflict, "Post status does not permit this operation", err)
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrInvalidCursor):
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, common.ErrNumberingConflict), errors.Is(err, common.ErrConcurrentModified):
		common.ErrorResponse(c, http.StatusConflict, "Concurrent modification, retry", err)
	case errors.Is(err, common.ErrStoreUnavailable):
		common.ErrorResponse(c, http.StatusServiceUnavailable, "Store unavailable, retry later", err)
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, message, err)
	}
}

// SubmitPost godoc
// @Summary      글 제보
// @Description  새 글을 제보합니다. 응답의 hash로 나중에 본인 글을 확인할 수 있습니다
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        request  body  domain.SubmitPostRequest  true  "제보 내용"
// @Success      201  {object}  common.APIResponse{data=domain.AuthorView}
// @Failure      400  {object}  common.APIResponse
// @Router       /posts [post]
func (h *PostHandler) SubmitPost(c *gin.Context) {
	var req domain.SubmitPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.service.Submit(c.Request.Context(), &req)
	if err != nil {
		serviceError(c, err, "Failed to submit post")
		return
	}

	common.CreatedResponse(c, view)
}

// ListFeed godoc
// @Summary      공개 피드
// @Description  채택된 글을 번호 내림차순으로 조회합니다. cursor는 마지막으로 본 글의 번호
// @Tags         posts
// @Produce      json
// @Param        count   query  int     false  "페이지 크기 (기본값: 10)"
// @Param        cursor  query  string  false  "마지막으로 본 번호"
// @Param        tag     query  string  false  "태그 필터"
// @Success      200  {object}  common.APIResponse{data=[]domain.PublicView}
// @Failure      400  {object}  common.APIResponse
// @Router       /posts [get]
func (h *PostHandler) ListFeed(c *gin.Context) {
	posts, next, err := h.service.List(c.Request.Context(), service.ListOptions{
		Count:  ginutil.QueryInt(c, "count", service.DefaultPageSize),
		Cursor: c.Query("cursor"),
		Tag:    c.Query("tag"),
	})
	if err != nil {
		serviceError(c, err, "Failed to fetch feed")
		return
	}

	views := make([]*domain.PublicView, len(posts))
	for i, post := range posts {
		views[i] = post.ToPublic()
	}

	common.SuccessResponse(c, views, &common.Meta{Count: len(views), NextCursor: next})
}

// GetPost godoc
// @Summary      글 조회
// @Description  채택되어 공개된 글 하나를 조회합니다
// @Tags         posts
// @Produce      json
// @Param        id  path  int  true  "글 ID"
// @Success      200  {object}  common.APIResponse{data=domain.PublicView}
// @Failure      404  {object}  common.APIResponse
// @Router       /posts/{id} [get]
func (h *PostHandler) GetPost(c *gin.Context) {
	id, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid post ID", err)
		return
	}

	view, err := h.service.GetPublic(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err, "Failed to fetch post")
		return
	}
	// only published posts are publicly addressable; authors use their hash
	if view.Status != domain.StatusAccepted {
		common.ErrorResponse(c, http.StatusNotFound, "Post not found", nil)
		return
	}

	common.SuccessResponse(c, view, nil)
}

// GetMyPost godoc
// @Summary      내 글 확인
// @Description  제보 시 받은 hash로 본인 글과 처리 상태를 확인합니다
// @Tags         posts
// @Produce      json
// @Param        hash  path  string  true  "작성자 해시"
// @Success      200  {object}  common.APIResponse{data=domain.AuthorView}
// @Failure      404  {object}  common.APIResponse
// @Router       /posts/author/{hash} [get]
func (h *PostHandler) GetMyPost(c *gin.Context) {
	view, err := h.service.GetByAuthorHash(c.Request.Context(), c.Param("hash"))
	if err != nil {
		serviceError(c, err, "Failed to fetch post")
		return
	}

	common.SuccessResponse(c, view, nil)
}

// EditPost godoc
// @Summary      글 수정
// @Description  hash로 본인 확인 후 내용을 수정합니다. 이전 내용은 수정 이력에 보존됩니다
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        id       path  int                     true  "글 ID"
// @Param        request  body  domain.EditPostRequest  true  "수정 내용"
// @Success      200  {object}  common.APIResponse{data=domain.AuthorView}
// @Failure      403  {object}  common.APIResponse
// @Failure      409  {object}  common.APIResponse
// @Router       /posts/{id} [patch]
func (h *PostHandler) EditPost(c *gin.Context) {
	id, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid post ID", err)
		return
	}

	var req domain.EditPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := h.service.Edit(c.Request.Context(), id, req.Hash, req.Content)
	if err != nil {
		serviceError(c, err, "Failed to edit post")
		return
	}

	common.SuccessResponse(c, view, nil)
}
