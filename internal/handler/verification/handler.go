package verification

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lifetag/lifetag-api/internal/handler"
	"github.com/lifetag/lifetag-api/internal/middleware"
	"github.com/lifetag/lifetag-api/internal/service/verification"
)

type Handler struct {
	svc verification.Servicer
}

func NewHandler(svc verification.Servicer) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the admin verification dashboard. The group is
// expected to already carry Authenticate and RequireAdmin.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	professionals := r.Group("/professionals")
	{
		professionals.GET("", h.ListProfessionals)
		professionals.GET("/:id", h.GetProfessional)
		professionals.GET("/:id/history", h.GetHistory)
		professionals.POST("/:id/approve", h.Approve)
		professionals.POST("/:id/reject", h.Reject)
		professionals.POST("/:id/revoke", h.Revoke)
	}

	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.POST("/:id/read", h.MarkNotificationRead)
	}
}

func (h *Handler) ListProfessionals(c *gin.Context) {
	var (
		list interface{}
		err  error
	)
	switch c.DefaultQuery("filter", "pending") {
	case "pending":
		list, err = h.svc.GetPendingProfessionals(c.Request.Context())
	case "verified":
		list, err = h.svc.GetVerifiedProfessionals(c.Request.Context())
	case "all":
		list, err = h.svc.GetAllProfessionals(c.Request.Context())
	default:
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("filter must be pending, verified or all"))
		return
	}
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}

func (h *Handler) GetProfessional(c *gin.Context) {
	p, err := h.svc.GetProfessionalByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

type decisionRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) Approve(c *gin.Context) {
	// Notes are optional; an empty body is fine.
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	err := h.svc.ApproveProfessional(c.Request.Context(), c.Param("id"),
		c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextUserEmail), req.Notes)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "approved"}))
}

type rejectionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) Reject(c *gin.Context) {
	var req rejectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("reason is required"))
		return
	}

	err := h.svc.RejectProfessional(c.Request.Context(), c.Param("id"),
		c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextUserEmail), req.Reason)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "rejected"}))
}

func (h *Handler) Revoke(c *gin.Context) {
	var req rejectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("reason is required"))
		return
	}

	err := h.svc.RevokeProfessional(c.Request.Context(), c.Param("id"),
		c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextUserEmail), req.Reason)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "revoked"}))
}

func (h *Handler) GetHistory(c *gin.Context) {
	history, err := h.svc.GetApprovalHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(history))
}

func (h *Handler) ListNotifications(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid limit"))
		return
	}
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.svc.GetApprovalNotifications(c.Request.Context(), limit, unreadOnly)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(notifications))
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.svc.MarkNotificationAsRead(c.Request.Context(), c.Param("id")); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "read"}))
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.svc.GetVerificationStats(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}
