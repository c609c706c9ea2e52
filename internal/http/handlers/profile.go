package handlers

import (
	"net/http"

	"booker/internal/domain/models"
	"booker/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// GET /api/profile
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.Profiles.Get(middleware.UserID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// PUT /api/profile
func (h *Handlers) PutProfile(c *gin.Context) {
	var in models.PassengerProfile
	if !BindJSONOrError(c, &in) {
		return
	}
	p, err := h.Profiles.Save(middleware.UserID(c), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
