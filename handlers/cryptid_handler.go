package handlers

import (
	"log/slog"
	"net/http"

	"cryptid-vote-backend/models"
	"cryptid-vote-backend/repository"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the read-only cryptid catalog
type CatalogHandler struct {
	gateway repository.Gateway
	log     *slog.Logger
}

func NewCatalogHandler(gateway repository.Gateway, log *slog.Logger) *CatalogHandler {
	return &CatalogHandler{gateway: gateway, log: log}
}

func (h *CatalogHandler) RegisterRoutes(api gin.IRouter) {
	api.GET("/cryptids", h.ListCryptids)
}

// ListCryptids returns every cryptid, newest created first
func (h *CatalogHandler) ListCryptids(c *gin.Context) {
	cryptids, err := h.gateway.ListCryptids(c.Request.Context())
	if err != nil {
		h.log.Error("list cryptids failed", "error", err)
		abort(c, http.StatusInternalServerError, "Failed to fetch cryptids")
		return
	}
	if cryptids == nil {
		cryptids = []models.Cryptid{}
	}
	c.JSON(http.StatusOK, cryptids)
}
