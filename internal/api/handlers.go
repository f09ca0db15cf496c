package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/feedback"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/query"
)

type Handler struct {
	service *feedback.Service
	logger  *zap.Logger
}

func NewHandler(service *feedback.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createFeedbackRequest struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

type updateFeedbackRequest struct {
	Addressed *bool `json:"addressed"`
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) CreateFeedback(c *gin.Context) {
	var req createFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "Request body must be JSON with string content and source")
		return
	}

	fb, err := h.service.Submit(c.Request.Context(), req.Content, req.Source)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (h *Handler) ListFeedback(c *gin.Context) {
	raw := query.RawParams{
		Source:    c.Query("source"),
		Sentiment: c.Query("sentiment"),
		Category:  c.Query("category"),
		Priority:  c.Query("priority"),
		DateRange: c.Query("dateRange"),
		Page:      c.Query("page"),
		Limit:     c.Query("limit"),
	}

	result, err := h.service.List(c.Request.Context(), raw)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetFeedback(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	fb, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (h *Handler) UpdateFeedback(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Addressed == nil {
		respondError(c, http.StatusBadRequest, codeValidation, "addressed must be a boolean")
		return
	}

	fb, err := h.service.SetAddressed(c.Request.Context(), id, *req.Addressed)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetInsights(c *gin.Context) {
	insights, err := h.service.Insights(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}

func (h *Handler) GetThemes(c *gin.Context) {
	groups, err := h.service.ThemeGroups(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"themes": groups})
}

func (h *Handler) Reseed(c *gin.Context) {
	n, err := h.service.Reseed(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Database seeded",
		"count":   n,
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		respondError(c, http.StatusBadRequest, codeValidation, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
