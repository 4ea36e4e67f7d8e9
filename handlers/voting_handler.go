package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cryptid-vote-backend/models"
	"cryptid-vote-backend/repository"
	"cryptid-vote-backend/service"

	"github.com/gin-gonic/gin"
)

// VotingHandler exposes voting events, votes and tallies
type VotingHandler struct {
	store    service.EventStore
	recorder *service.VoteRecorder
	metrics  *Metrics
	log      *slog.Logger
}

func NewVotingHandler(store service.EventStore, recorder *service.VoteRecorder, metrics *Metrics, log *slog.Logger) *VotingHandler {
	return &VotingHandler{store: store, recorder: recorder, metrics: metrics, log: log}
}

func (h *VotingHandler) RegisterRoutes(api gin.IRouter) {
	events := api.Group("/voting-events")
	{
		events.GET("/active", h.ActiveEvents)
		events.GET("/:id/votes", h.EventVotes)
		events.GET("/:id/tally", h.EventTally)
	}
	api.POST("/votes", h.CastVote)
}

// ActiveEvents lists events whose window contains ?at= (RFC3339, default now)
func (h *VotingHandler) ActiveEvents(c *gin.Context) {
	at := time.Now()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abort(c, http.StatusBadRequest, "Invalid at parameter, expected RFC3339")
			return
		}
		at = parsed
	}

	events, err := h.store.ListActiveVotingEvents(c.Request.Context(), at)
	if err != nil {
		h.log.Error("list active voting events failed", "error", err)
		abort(c, http.StatusInternalServerError, "Failed to fetch voting events")
		return
	}
	if events == nil {
		events = []models.VotingEvent{}
	}
	c.JSON(http.StatusOK, events)
}

// EventVotes lists the votes of an event, optionally only those of ?wallet=
func (h *VotingHandler) EventVotes(c *gin.Context) {
	eventID := c.Param("id")
	ctx := c.Request.Context()

	var (
		votes []models.Vote
		err   error
	)
	if wallet := c.Query("wallet"); wallet != "" {
		votes, err = h.store.ListUserVotesForEvent(ctx, wallet, eventID)
	} else {
		votes, err = h.store.ListVotesForEvent(ctx, eventID)
	}
	if err != nil {
		h.log.Error("list votes failed", "event", eventID, "error", err)
		abort(c, http.StatusInternalServerError, "Failed to fetch votes")
		return
	}
	if votes == nil {
		votes = []models.Vote{}
	}
	c.JSON(http.StatusOK, votes)
}

// EventTally returns card id -> vote count; cards without votes are absent
func (h *VotingHandler) EventTally(c *gin.Context) {
	eventID := c.Param("id")
	tally, err := h.store.CountVotesForEvent(c.Request.Context(), eventID)
	if err != nil {
		h.log.Error("count votes failed", "event", eventID, "error", err)
		abort(c, http.StatusInternalServerError, "Failed to fetch vote counts")
		return
	}
	if tally == nil {
		tally = models.Tally{}
	}
	c.JSON(http.StatusOK, tally)
}

// CastVote inserts one vote. A second vote for the same wallet, event and
// card is answered with 409 and the unique_violation code.
func (h *VotingHandler) CastVote(c *gin.Context) {
	var input models.VoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	vote, err := h.recorder.Record(c.Request.Context(), input)
	switch {
	case err == nil:
		h.metrics.VoteInserted()
		c.JSON(http.StatusCreated, vote)
	case errors.Is(err, service.ErrEventNotFound):
		abort(c, http.StatusNotFound, "Voting event not found")
	case errors.Is(err, service.ErrEventClosed):
		abort(c, http.StatusForbidden, "Voting event is not active")
	case errors.Is(err, service.ErrRateLimited):
		abort(c, http.StatusTooManyRequests, "Too many votes, slow down")
	case errors.Is(err, repository.ErrUniqueViolation):
		h.metrics.VoteConflict()
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{
			Error: "duplicate key value violates unique constraint " + models.VoteUniqueIndex,
			Code:  repository.CodeUniqueViolation,
		})
	default:
		h.log.Error("insert vote failed", "wallet", input.Wallet, "card", input.CardID, "event", input.VotingEventID, "error", err)
		abort(c, http.StatusInternalServerError, "Failed to record vote")
	}
}
