package api

import (
	"net/http"

	"candidate-portal/internal/candidates"
	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/common/validation"
	"candidate-portal/internal/models"
	"candidate-portal/internal/search"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	deps Deps
	log  logger.Logger
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Service candidates.Health `json:"service"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Version: h.deps.Version,
		Service: h.deps.Candidates.Health(),
	})
}

// ready reports 503 while the connectivity signal is offline so a load
// balancer can drain the instance.
func (h *handlers) ready(c *gin.Context) {
	state := h.deps.Candidates.Health()
	if !state.Online {
		c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "offline", Service: state})
		return
	}
	c.JSON(http.StatusOK, healthResponse{Status: "ready", Service: state})
}

// listCandidates never fails: fallbacks are reported via source and notice.
func (h *handlers) listCandidates(c *gin.Context) {
	success(c, http.StatusOK, h.deps.Candidates.Load(c.Request.Context()))
}

func (h *handlers) getCandidate(c *gin.Context) {
	id := c.Param("id")
	candidate, ok := h.deps.Candidates.FetchByID(c.Request.Context(), id)
	if !ok {
		respondError(c, apperrors.NewNotFoundError("candidate", id))
		return
	}
	success(c, http.StatusOK, candidate)
}

type addResponse struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
}

func (h *handlers) addCandidate(c *gin.Context) {
	var candidate models.Candidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		respondError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}

	outcome, err := h.deps.Candidates.Add(c.Request.Context(), candidate)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if outcome == candidates.AddQueued {
		status = http.StatusAccepted
	}
	success(c, status, addResponse{ID: candidates.NormalizeID(candidate.ID), Outcome: string(outcome)})
}

func (h *handlers) removeCandidate(c *gin.Context) {
	if err := h.deps.Candidates.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) search(c *gin.Context) {
	var q search.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	success(c, http.StatusOK, h.deps.Search.Search(c.Request.Context(), q))
}

func (h *handlers) recordActivity(c *gin.Context) {
	if h.deps.Activity == nil {
		respondError(c, apperrors.NewConfigMissingError("activity", "enable activity tracking"))
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}
	if res := validation.Validate(validation.EventSchema, body); !res.Valid {
		respondError(c, res.Err())
		return
	}

	data, _ := body["data"].(map[string]interface{})
	event := h.deps.Activity.Record(c.Request.Context(), models.EventType(body["type"].(string)), data)
	success(c, http.StatusAccepted, event)
}

func (h *handlers) requestResume(c *gin.Context) {
	if h.deps.Resume == nil {
		respondError(c, apperrors.NewConfigMissingError("notifications", "configure resume delivery"))
		return
	}

	var req models.ResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}

	result, err := h.deps.Resume.RequestResume(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

func (h *handlers) resetSession(c *gin.Context) {
	h.deps.Candidates.ResetSession(c.Request.Context())
	h.log.Info("Session reset via API", map[string]interface{}{"requestId": requestID(c)})
	c.Status(http.StatusNoContent)
}
