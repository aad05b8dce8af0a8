package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-facade/internal/infrastructure/local"
	"github.com/oksasatya/go-auth-facade/internal/interface/middleware"
	"github.com/oksasatya/go-auth-facade/pkg/helpers"
	"github.com/oksasatya/go-auth-facade/pkg/response"
	"github.com/oksasatya/go-auth-facade/pkg/validation"
)

// LinkService is what the email-link endpoints need from the local provider.
type LinkService interface {
	ConfirmEmail(ctx context.Context, token string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	SendPasswordResetEmail(ctx context.Context, email string) error
	SendVerificationFor(ctx context.Context, uid string) error
}

type AuthHandler struct {
	Links  LinkService
	Logger *logrus.Logger
}

func NewAuthHandler(links LinkService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Links: links, Logger: helpers.OrStandard(logger)}
}

// VerifyInit POST /api/auth/verify/init (auth required)
func (h *AuthHandler) VerifyInit(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Links.SendVerificationFor(c.Request.Context(), uid); err != nil {
		h.Logger.WithError(err).WithField("uid", uid).Error("verify init failed")
		response.Error[any](c, http.StatusInternalServerError, "could not send verification email", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"sent": true}, "verification email sent", nil)
}

// VerifyConfirm POST /api/auth/verify/confirm {token}
func (h *AuthHandler) VerifyConfirm(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Links.ConfirmEmail(c.Request.Context(), req.Token); err != nil {
		h.fail(c, err, "verify confirm")
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"verified": true}, "email verified", nil)
}

// ResetInit POST /api/auth/reset/init {email}
// Always answers OK so the endpoint cannot be used to probe for accounts.
func (h *AuthHandler) ResetInit(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Links.SendPasswordResetEmail(c.Request.Context(), req.Email); err != nil {
		entry := h.Logger.WithField("ip", c.GetString("real_ip"))
		if errors.Is(err, local.ErrAccountNotFound) {
			entry.Info("reset requested for unknown email")
		} else {
			entry.WithError(err).Error("reset init failed")
		}
	}
	response.Success[any](c, http.StatusOK, gin.H{"requested": true}, "if the account exists a reset email was sent", nil)
}

// ResetConfirm POST /api/auth/reset/confirm {token, new_password}
func (h *AuthHandler) ResetConfirm(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,pwd"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Links.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		h.fail(c, err, "reset confirm")
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"reset": true}, "password updated", nil)
}

// Session GET /api/auth/session (auth required)
func (h *AuthHandler) Session(c *gin.Context) {
	response.Success[any](c, http.StatusOK, gin.H{
		"uid":   c.GetString(middleware.CtxUserIDKey),
		"email": c.GetString(middleware.CtxUserEmailKey),
	}, "session active", nil)
}

func (h *AuthHandler) fail(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, local.ErrInvalidToken):
		response.Error[any](c, http.StatusBadRequest, "invalid or expired token", nil)
	case errors.Is(err, local.ErrWeakPassword):
		response.Error[any](c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, local.ErrAccountNotFound):
		response.Error[any](c, http.StatusNotFound, "account not found", nil)
	default:
		h.Logger.WithError(err).WithField("op", op).Error("link confirmation failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}
