package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"cryptid-vote-backend/models"
	"cryptid-vote-backend/repository"
	"cryptid-vote-backend/service"

	"github.com/gin-gonic/gin"
)

// SubmissionHandler accepts sighting reports into the moderation queue
type SubmissionHandler struct {
	gateway repository.Gateway
	metrics *Metrics
	log     *slog.Logger
}

func NewSubmissionHandler(gateway repository.Gateway, metrics *Metrics, log *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{gateway: gateway, metrics: metrics, log: log}
}

func (h *SubmissionHandler) RegisterRoutes(api gin.IRouter) {
	api.POST("/submissions", h.CreateSubmission)
}

// CreateSubmission stores a report with status pending
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var input models.SubmissionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	form := service.SightingForm{
		CryptidName: input.CryptidName,
		Platform:    input.Platform,
		PlatformURL: input.PlatformURL,
		Lore:        input.Lore,
	}
	if input.ImageURL != nil {
		form.ImageURL = *input.ImageURL
	}
	if err := form.Validate(); err != nil {
		abort(c, http.StatusBadRequest, strings.TrimPrefix(err.Error(), service.ErrInvalidSighting.Error()+": "))
		return
	}
	if _, err := base64.StdEncoding.DecodeString(input.Signature); err != nil {
		abort(c, http.StatusBadRequest, "Signature must be base64")
		return
	}

	input.CryptidName = form.CryptidName
	input.Platform = form.Platform
	input.PlatformURL = form.PlatformURL
	input.Lore = form.Lore
	input.ImageURL = nil
	if form.ImageURL != "" {
		input.ImageURL = &form.ImageURL
	}

	sub, err := h.gateway.InsertSubmission(c.Request.Context(), input)
	if err != nil {
		h.log.Error("insert submission failed", "wallet", input.Wallet, "error", err)
		abort(c, http.StatusInternalServerError, "Failed to store submission")
		return
	}
	h.metrics.SubmissionStored()
	c.JSON(http.StatusCreated, sub)
}
