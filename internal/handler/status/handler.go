package status

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifetag/lifetag-api/internal/handler"
	"github.com/lifetag/lifetag-api/internal/middleware"
	"github.com/lifetag/lifetag-api/internal/repository"
	"github.com/lifetag/lifetag-api/internal/service/statustrack"
	"github.com/lifetag/lifetag-api/pkg/logger"
)

// Handler exposes a professional's own verification status: a one-shot
// snapshot and a server-sent-events stream backed by store subscriptions.
type Handler struct {
	professionals repository.ProfessionalRepository
	updates       repository.StatusUpdateRepository
	logger        *logger.Logger
}

func NewHandler(professionals repository.ProfessionalRepository, updates repository.StatusUpdateRepository, logger *logger.Logger) *Handler {
	return &Handler{
		professionals: professionals,
		updates:       updates,
		logger:        logger,
	}
}

// RegisterRoutes mounts the self-status endpoints. The group is expected to
// already carry Authenticate; the subject is always the caller.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	status := r.Group("/status")
	{
		status.GET("", h.GetStatus)
		status.GET("/stream", h.StreamStatus)
	}
}

func (h *Handler) GetStatus(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	snapshot, err := statustrack.Resolve(c.Request.Context(), h.professionals, h.updates, userID)
	if err != nil {
		h.logger.Error(err, "status snapshot failed", "user_id", userID)
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("Unable to load your verification status"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(snapshot))
}

// StreamStatus pushes a fresh snapshot to the client on every change until
// the client disconnects.
func (h *Handler) StreamStatus(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	tracker := statustrack.NewTracker(h.professionals, h.updates, h.logger)
	tracker.Start(c.Request.Context(), userID)
	defer tracker.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-store")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case snapshot, ok := <-tracker.Changes():
			if !ok {
				return false
			}
			c.SSEvent("status", snapshot)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
