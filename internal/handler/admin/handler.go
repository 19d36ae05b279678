package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifetag/lifetag-api/internal/handler"
	"github.com/lifetag/lifetag-api/internal/middleware"
	"github.com/lifetag/lifetag-api/internal/model"
	"github.com/lifetag/lifetag-api/internal/service/admin"
)

type Handler struct {
	svc *admin.Service
}

func NewHandler(svc *admin.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts admin management. The group is expected to already
// carry Authenticate and RequireAdmin; the service re-verifies the caller's
// admin profile against the store on every mutation.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admins := r.Group("/admins")
	{
		admins.POST("", h.CreateAdmin)
		admins.PUT("/:id/permissions", h.UpdatePermissions)
		admins.DELETE("/:id", h.RemoveAdmin)
	}
	r.GET("/stats/system", h.GetSystemStats)
}

func (h *Handler) CreateAdmin(c *gin.Context) {
	var req model.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.svc.CreateAdmin(c.Request.Context(), &req, c.GetString(middleware.ContextUserID))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) UpdatePermissions(c *gin.Context) {
	var req model.UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	err := h.svc.UpdateAdminPermissions(c.Request.Context(), c.Param("id"), req.Permissions,
		c.GetString(middleware.ContextUserID))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "updated"}))
}

func (h *Handler) RemoveAdmin(c *gin.Context) {
	err := h.svc.RemoveAdmin(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "removed"}))
}

func (h *Handler) GetSystemStats(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.svc.GetSystemStats(c.Request.Context())))
}
