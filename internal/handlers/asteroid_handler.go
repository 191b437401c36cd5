package handlers

import (
	"net/http"
	"time"

	"cosmicwatch/internal/repository"
	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
)

type AsteroidHandler struct {
	service service.AsteroidService
}

func NewAsteroidHandler(service service.AsteroidService) *AsteroidHandler {
	return &AsteroidHandler{service: service}
}

type feedQuery struct {
	StartDate   string   `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate     string   `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	IsHazardous *bool    `form:"is_hazardous"`
	MinDiameter *float64 `form:"min_diameter" binding:"omitempty,gte=0"`
	MaxDiameter *float64 `form:"max_diameter" binding:"omitempty,gte=0"`
	SortBy      string   `form:"sort_by" binding:"omitempty,oneof=approach_date diameter velocity"`
	Limit       int      `form:"limit,default=50" binding:"gte=1,lte=100"`
	Offset      int      `form:"offset,default=0" binding:"gte=0"`
}

type searchQuery struct {
	Query string `form:"q" binding:"required,min=2"`
	Limit int    `form:"limit,default=20" binding:"gte=1,lte=50"`
}

type upcomingQuery struct {
	Days  int `form:"days,default=7" binding:"gte=1,lte=30"`
	Limit int `form:"limit,default=50" binding:"gte=1,lte=100"`
}

type syncQuery struct {
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// GetFeed godoc
// @Summary Лента сближений за период
// @Description Фильтры: is_hazardous, min_diameter, max_diameter; сортировка approach_date|diameter|velocity
// @Tags Asteroids
// @Produce json
// @Success 200 {object} FeedResponse
// @Failure 400 {object} ErrorResponse
// @Router /asteroids/feed [get]
func (h *AsteroidHandler) GetFeed(c *gin.Context) {
	ctx := c.Request.Context()

	var query feedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindingError(c, err)
		return
	}

	filter := repository.FeedFilter{
		StartDate:   parseDate(query.StartDate),
		EndDate:     parseDate(query.EndDate),
		IsHazardous: query.IsHazardous,
		MinDiameter: query.MinDiameter,
		MaxDiameter: query.MaxDiameter,
		SortBy:      query.SortBy,
		Limit:       query.Limit,
		Offset:      query.Offset,
	}

	views, err := h.service.GetFeed(ctx, filter)
	if err != nil {
		respondError(c, err, "failed to get asteroid feed")
		return
	}

	c.JSON(http.StatusOK, FeedResponse{
		Count:     len(views),
		Asteroids: newAsteroidList(views),
	})
}

func (h *AsteroidHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	var query searchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindingError(c, err)
		return
	}

	views, err := h.service.Search(ctx, query.Query, query.Limit)
	if err != nil {
		respondError(c, err, "failed to search asteroids")
		return
	}

	c.JSON(http.StatusOK, newAsteroidList(views))
}

func (h *AsteroidHandler) GetHazardous(c *gin.Context) {
	ctx := c.Request.Context()

	limit, ok := queryInt(c, "limit", 50, 1, 100)
	if !ok {
		return
	}

	views, err := h.service.GetHazardous(ctx, limit)
	if err != nil {
		respondError(c, err, "failed to get hazardous asteroids")
		return
	}

	c.JSON(http.StatusOK, newAsteroidList(views))
}

func (h *AsteroidHandler) GetUpcoming(c *gin.Context) {
	ctx := c.Request.Context()

	var query upcomingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindingError(c, err)
		return
	}

	upcoming, err := h.service.GetUpcoming(ctx, query.Days, query.Limit)
	if err != nil {
		respondError(c, err, "failed to get upcoming approaches")
		return
	}

	resp := make([]UpcomingApproachResponse, 0, len(upcoming))
	for _, item := range upcoming {
		resp = append(resp, newUpcomingResponse(item))
	}
	c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary Объект по id NeoWs
// @Description Если объекта нет в базе, он запрашивается у NeoWs и сохраняется
// @Tags Asteroids
// @Produce json
// @Success 200 {object} AsteroidResponse
// @Failure 404 {object} ErrorResponse
// @Router /asteroids/{id} [get]
func (h *AsteroidHandler) GetByID(c *gin.Context) {
	ctx := c.Request.Context()

	id := c.Param("id")
	if !IsNEOID(id) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation error",
			"message": "asteroid id must be numeric",
		})
		return
	}

	view, err := h.service.GetByID(ctx, id)
	if err != nil {
		respondError(c, err, "failed to get asteroid")
		return
	}

	c.JSON(http.StatusOK, newAsteroidResponse(*view))
}

// Sync запускает синхронизацию вручную; без параметров берется неделя от сегодня.
func (h *AsteroidHandler) Sync(c *gin.Context) {
	ctx := c.Request.Context()

	var query syncQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindingError(c, err)
		return
	}

	start := parseDate(query.StartDate)
	if start.IsZero() {
		start = time.Now().UTC()
	}
	end := parseDate(query.EndDate)
	if end.IsZero() {
		end = start.AddDate(0, 0, 7)
	}

	result, err := h.service.SyncFeed(ctx, start, end)
	if err != nil {
		respondError(c, err, "failed to sync NEO feed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "NEO feed synced",
		"start_date": result.StartDate.Format(dateLayout),
		"end_date":   result.EndDate.Format(dateLayout),
		"fetched":    result.Fetched,
		"synced":     result.Synced,
		"failed":     result.Failed,
	})
}

// parseDate ожидает строку, уже проверенную тегом datetime.
func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
