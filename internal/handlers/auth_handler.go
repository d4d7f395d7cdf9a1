package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthtracker/internal/models"
	"healthtracker/internal/services"
)

// AuthFlow is the credential lifecycle as seen by the HTTP layer.
type AuthFlow interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	SendConfirmation(ctx context.Context, email string) error
	Confirm(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error
	UpdateCredentials(ctx context.Context, userID uuid.UUID, currentPassword, newEmail, newPassword string) (*models.User, error)
	RequestReset(ctx context.Context, email string) error
	ConfirmReset(ctx context.Context, email, code, newPassword string) error
	Sessions(ctx context.Context, userID uuid.UUID) ([]*models.RefreshToken, error)
}

type AuthHandler struct {
	auth AuthFlow
	log  *slog.Logger
}

func NewAuthHandler(auth AuthFlow, log *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

// @Summary      Register
// @Description  Creates an unverified account and emails a confirmation link
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.RegisterRequest  true  "Credentials"
// @Success      201   {object}  models.User
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /users [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// @Summary      Resend confirmation email
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.EmailRequest  true  "Email"
// @Success      200   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/resend-confirmation [post]
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	var req models.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := h.auth.SendConfirmation(c.Request.Context(), req.Email)
	// nothing left to confirm for this address
	if errors.Is(err, services.ErrAlreadyConfirmed) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	message(c, http.StatusOK, "Confirmation email sent")
}

// @Summary      Confirm email
// @Tags         Auth
// @Produce      json
// @Param        token  path      string  true  "Confirmation token"
// @Success      200    {object}  map[string]string
// @Failure      400    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Router       /auth/confirmation/{token} [get]
func (h *AuthHandler) Confirm(c *gin.Context) {
	if err := h.auth.Confirm(c.Request.Context(), c.Param("token")); err != nil {
		writeError(c, h.log, err)
		return
	}
	message(c, http.StatusOK, "Email confirmed")
}

// @Summary      Login
// @Description  Returns a new access/refresh token pair
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequest  true  "Credentials"
// @Success      201   {object}  models.TokenPair
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, pair)
}

// @Summary      Logout
// @Description  Revokes the given refresh token of the caller; other sessions stay open
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.RefreshRequest  true  "Refresh token"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth [patch]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), userID, req.RefreshToken); err != nil {
		writeError(c, h.log, err)
		return
	}
	message(c, http.StatusOK, "Logged out")
}

// @Summary      Refresh tokens
// @Description  Rotates the refresh token and issues a new access token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.RefreshRequest  true  "Refresh token"
// @Success      200   {object}  models.TokenPair
// @Failure      400   {object}  map[string]string
// @Router       /auth/tokens [patch]
func (h *AuthHandler) RefreshTokens(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// @Summary      Active sessions
// @Description  Unexpired refresh tokens of the caller, oldest first
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.RefreshToken
// @Failure      401  {object}  map[string]string
// @Router       /auth/sessions [get]
func (h *AuthHandler) Sessions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.auth.Sessions(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary      Update email and/or password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.UpdateCredentialsRequest  true  "New credentials"
// @Success      200   {object}  models.User
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/credentials [patch]
func (h *AuthHandler) UpdateCredentials(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.UpdateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.auth.UpdateCredentials(c.Request.Context(), userID, req.CurrentPassword, req.Email, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary      Request password reset
// @Description  Emails a one-time verification code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.EmailRequest  true  "Email"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/reset-password [patch]
func (h *AuthHandler) RequestReset(c *gin.Context) {
	var req models.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.auth.RequestReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.log, err)
		return
	}
	message(c, http.StatusOK, "Verification code sent")
}

// @Summary      Confirm password reset
// @Description  Each emailed code allows a few attempts; the address is also throttled
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ResetConfirmRequest  true  "Code and new password"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/reset-password-confirm [patch]
func (h *AuthHandler) ConfirmReset(c *gin.Context) {
	var req models.ResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.auth.ConfirmReset(c.Request.Context(), req.Email, req.Code, req.Password); err != nil {
		writeError(c, h.log, err)
		return
	}
	message(c, http.StatusOK, "Password updated")
}
