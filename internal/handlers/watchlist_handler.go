package handlers

import (
	"net/http"

	"cosmicwatch/internal/middleware"
	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
)

type WatchlistHandler struct {
	service service.WatchlistService
}

func NewWatchlistHandler(service service.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{service: service}
}

type WatchlistCreateRequest struct {
	AsteroidID      string   `json:"asteroid_id" binding:"required,neoid"`
	AlertDistanceKm *float64 `json:"alert_distance_km" binding:"omitempty,gt=0"`
}

type WatchlistUpdateRequest struct {
	AlertDistanceKm *float64 `json:"alert_distance_km" binding:"required,gt=0"`
}

func (h *WatchlistHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	entries, err := h.service.List(ctx, user.ID)
	if err != nil {
		respondError(c, err, "failed to get watchlist")
		return
	}

	resp := make([]WatchlistResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, newWatchlistResponse(entry))
	}
	c.JSON(http.StatusOK, resp)
}

// Add godoc
// @Summary Добавить объект в watchlist
// @Description alert_distance_km по умолчанию 1 000 000
// @Tags Watchlist
// @Accept json
// @Produce json
// @Success 201 {object} WatchlistResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /watchlist [post]
func (h *WatchlistHandler) Add(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	var req WatchlistCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	entry, err := h.service.Add(ctx, user.ID, req.AsteroidID, req.AlertDistanceKm)
	if err != nil {
		respondError(c, err, "failed to add to watchlist")
		return
	}

	c.JSON(http.StatusCreated, newWatchlistResponse(*entry))
}

func (h *WatchlistHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	var req WatchlistUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	entry, err := h.service.UpdateThreshold(ctx, user.ID, c.Param("asteroid_id"), *req.AlertDistanceKm)
	if err != nil {
		respondError(c, err, "failed to update watchlist entry")
		return
	}

	c.JSON(http.StatusOK, newWatchlistResponse(*entry))
}

func (h *WatchlistHandler) Remove(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	if err := h.service.Remove(ctx, user.ID, c.Param("asteroid_id")); err != nil {
		respondError(c, err, "failed to remove from watchlist")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *WatchlistHandler) Count(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	count, err := h.service.Count(ctx, user.ID)
	if err != nil {
		respondError(c, err, "failed to count watchlist")
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}
