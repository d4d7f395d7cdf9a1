package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthtracker/internal/models"
)

type Accounts interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*models.User, error)
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

type UserHandler struct {
	users Accounts
	log   *slog.Logger
}

func NewUserHandler(users Accounts, log *slog.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// @Summary      Current user
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	u, err := h.users.GetMe(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary      Delete account
// @Description  Removes the account with its sessions, profile and measurements
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /users/me [delete]
func (h *UserHandler) DeleteMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.users.DeleteAccount(c.Request.Context(), userID); err != nil {
		writeError(c, h.log, err)
		return
	}
	message(c, http.StatusOK, "Account deleted")
}
