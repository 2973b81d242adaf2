package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hostwarden/backend/internal/api/middleware"
	"github.com/hostwarden/backend/internal/services"
	"github.com/hostwarden/backend/internal/util"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a token. Attempts refused by the
// bruteforce plugin get 429 with the plugin's message.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.authService.Login(c.ClientIP(), req.Username, req.Password)
	var throttled *services.ThrottledError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"token": token})
	case errors.As(err, &throttled):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": throttled.Message})
	case errors.Is(err, services.ErrInvalidCredentials):
		middleware.GetRequestLogger(c).
			WithField("username", util.SanitizeForLog(req.Username)).
			Warn("failed login")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	default:
		middleware.GetRequestLogger(c).WithError(err).Error("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (h *AuthHandler) Me(c *gin.Context) {
	admin, err := h.authService.GetAdminByID(c.GetUint(middleware.UserIDKey))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":    admin.ID,
		"role":       admin.AdminType,
		"admin_name": admin.AdminName,
		"email":      admin.Email,
		"created_by": admin.CreatedBy,
	})
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.authService.ChangePassword(c.GetUint(middleware.UserIDKey), req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "current password is wrong"})
	case errors.Is(err, services.ErrAdminNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	default:
		middleware.GetRequestLogger(c).WithError(err).Error("password change failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
