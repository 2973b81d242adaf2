package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hostwarden/backend/internal/api/middleware"
	"github.com/hostwarden/backend/internal/daemon"
	"github.com/hostwarden/backend/internal/plugin"
)

type PluginHandler struct {
	manager  *plugin.Manager
	notifier func() daemon.Notifier
}

func NewPluginHandler(manager *plugin.Manager, notifier func() daemon.Notifier) *PluginHandler {
	return &PluginHandler{manager: manager, notifier: notifier}
}

func (h *PluginHandler) List(c *gin.Context) {
	rows, err := h.manager.List()
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("failed to list plugins")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Run performs the :action lifecycle operation on the :name plugin.
func (h *PluginHandler) Run(c *gin.Context) {
	name := c.Param("name")
	err := h.manager.Run(name, plugin.Action(c.Param("action")))
	if h.manager.TakeBackendRequest() && h.notifier != nil {
		daemon.Notify(c.Request.Context(), h.notifier())
	}
	switch {
	case err == nil:
	case errors.Is(err, plugin.ErrUnknownPlugin):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, plugin.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, plugin.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status, err := h.manager.Status(name)
	if errors.Is(err, plugin.ErrUnknownPlugin) {
		c.JSON(http.StatusOK, gin.H{"name": name, "status": "deleted"})
		return
	}
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("failed to read plugin status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "status": status})
}
