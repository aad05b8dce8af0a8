package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	"github.com/oksasatya/go-auth-facade/pkg/helpers"
	"github.com/oksasatya/go-auth-facade/pkg/response"
)

// ProfileSearcher queries indexed profiles.
type ProfileSearcher interface {
	Search(ctx context.Context, q string, size int) ([]entity.UserProfile, error)
}

type UserHandler struct {
	Search ProfileSearcher
	Logger *logrus.Logger
}

func NewUserHandler(s ProfileSearcher, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Search: s, Logger: helpers.OrStandard(logger)}
}

// SearchUsers GET /api/users/search?q=...&size=10 (auth required)
func (h *UserHandler) SearchUsers(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	out, err := h.Search.Search(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Error("profile search failed")
		response.Error[any](c, http.StatusBadGateway, "search unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, out, "ok", gin.H{"count": len(out)})
}
