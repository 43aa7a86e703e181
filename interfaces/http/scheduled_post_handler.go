package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"social-scheduler/domain/dto"
	"social-scheduler/domain/model"
	"social-scheduler/infrastructure/logger"
	"social-scheduler/usecase"
)

type IScheduledPostHandler interface {
	CreatePost(ctx *gin.Context)
	GetPost(ctx *gin.Context)
	ListPosts(ctx *gin.Context)
	UpdatePost(ctx *gin.Context)
	DeletePost(ctx *gin.Context)
	PublishNow(ctx *gin.Context)
	CancelPost(ctx *gin.Context)
	GetPlatforms(ctx *gin.Context)
	GetPlatformLimits(ctx *gin.Context)
	GetStats(ctx *gin.Context)
	GetHistory(ctx *gin.Context)
	ProcessJobs(ctx *gin.Context)
}

type ScheduledPostHandler struct {
	postUsecase usecase.IScheduledPostUsecase
}

func NewScheduledPostHandler(uc usecase.IScheduledPostUsecase) IScheduledPostHandler {
	return &ScheduledPostHandler{postUsecase: uc}
}

func (h *ScheduledPostHandler) CreatePost(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return
	}
	var req dto.CreatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	post, err := h.postUsecase.CreateJob(ctx.Request.Context(), userID, req)
	if err != nil {
		logger.GetLogger().WithField("user_id", userID).WithField("error", err.Error()).Warn("create post failed")
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, post)
}

func (h *ScheduledPostHandler) GetPost(ctx *gin.Context) {
	id, ok := postID(ctx)
	if !ok {
		return
	}
	post, err := h.postUsecase.GetJob(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if post.OwnerID != ctx.GetString("user_id") {
		ctx.JSON(http.StatusForbidden, gin.H{"error": usecase.ErrNotOwner.Error()})
		return
	}
	ctx.JSON(http.StatusOK, post)
}

func (h *ScheduledPostHandler) ListPosts(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	var req dto.ListPostsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}
	posts, total, err := h.postUsecase.ListJobs(ctx.Request.Context(), userID, req)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if posts == nil {
		posts = []*model.ScheduledPost{}
	}
	ctx.JSON(http.StatusOK, gin.H{"posts": posts, "total": total})
}

func (h *ScheduledPostHandler) UpdatePost(ctx *gin.Context) {
	id, ok := postID(ctx)
	if !ok {
		return
	}
	var req dto.UpdatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	post, err := h.postUsecase.UpdateJob(ctx.Request.Context(), id, ctx.GetString("user_id"), req)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, post)
}

func (h *ScheduledPostHandler) DeletePost(ctx *gin.Context) {
	id, ok := postID(ctx)
	if !ok {
		return
	}
	if err := h.postUsecase.DeleteJob(ctx.Request.Context(), id, ctx.GetString("user_id")); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *ScheduledPostHandler) PublishNow(ctx *gin.Context) {
	id, ok := postID(ctx)
	if !ok {
		return
	}
	result, err := h.postUsecase.PublishNow(ctx.Request.Context(), id, ctx.GetString("user_id"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (h *ScheduledPostHandler) CancelPost(ctx *gin.Context) {
	id, ok := postID(ctx)
	if !ok {
		return
	}
	cancelled, err := h.postUsecase.CancelJob(ctx.Request.Context(), id, ctx.GetString("user_id"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if !cancelled {
		ctx.JSON(http.StatusConflict, gin.H{"cancelled": false, "error": "post is not cancellable in its current status"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (h *ScheduledPostHandler) GetPlatforms(ctx *gin.Context) {
	platforms := h.postUsecase.Platforms()
	caps := make([]gin.H, 0, len(platforms))
	for _, p := range platforms {
		caps = append(caps, gin.H{"platform": p, "supported": true})
	}
	ctx.JSON(http.StatusOK, gin.H{"platforms": caps})
}

func (h *ScheduledPostHandler) GetPlatformLimits(ctx *gin.Context) {
	platform := ctx.Param("platform")
	limits, err := h.postUsecase.PlatformLimits(ctx.Request.Context(), platform)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, limits)
}

func (h *ScheduledPostHandler) GetHistory(ctx *gin.Context) {
	platform := ctx.Param("platform")
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	entries, err := h.postUsecase.RecentHistory(ctx.Request.Context(), platform, limit)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"platform": strings.ToLower(platform), "history": entries})
}

func (h *ScheduledPostHandler) GetStats(ctx *gin.Context) {
	stats, err := h.postUsecase.Stats(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

// ProcessJobs allows manual triggering of a dispatch sweep (admin/dev utility)
func (h *ScheduledPostHandler) ProcessJobs(ctx *gin.Context) {
	result, err := h.postUsecase.ProcessPending(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"processed": false, "error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"processed": true, "result": result})
}

func postID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrPostNotEditable):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrUnsupportedPlatform):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
