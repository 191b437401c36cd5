package handlers

import (
	"context"
	"net/http"
	"time"

	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
)

// HealthCheck: проверка одной зависимости (база, Redis).
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type SystemInfo struct {
	Name    string
	Version string
}

type SystemHandler struct {
	systemService   service.SystemService
	asteroidService service.AsteroidService
	checks          []HealthCheck
	redisStats      func(ctx context.Context) (map[string]string, error)
	info            SystemInfo
}

func NewSystemHandler(
	systemService service.SystemService,
	asteroidService service.AsteroidService,
	info SystemInfo,
	checks []HealthCheck,
	redisStats func(ctx context.Context) (map[string]string, error),
) *SystemHandler {
	return &SystemHandler{
		systemService:   systemService,
		asteroidService: asteroidService,
		checks:          checks,
		redisStats:      redisStats,
		info:            info,
	}
}

func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    h.info.Name,
		"version": h.info.Version,
		"docs":    "/api/v1",
		"status":  "running",
	})
}

// HealthCheck godoc
// @Summary Проверка здоровья сервиса
// @Description Проверяет доступность базы и Redis
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *SystemHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Version:   h.info.Version,
		Services:  map[string]string{"api": "running"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			resp.Services[check.Name] = "unavailable: " + err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Services[check.Name] = "connected"
	}

	c.JSON(status, resp)
}

func (h *SystemHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.systemService.Stats(ctx)
	if err != nil {
		respondError(c, err, "failed to get system stats")
		return
	}

	resp := gin.H{
		"success": true,
		"stats":   stats,
	}

	// Статистика из Redis
	if h.redisStats != nil {
		if redisStats, err := h.redisStats(ctx); err == nil {
			resp["redis"] = redisStats
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetDashboardData godoc
// @Summary Получить данные для дашборда
// @Description Сводка, ближайшие сближения и опасные объекты одним запросом
// @Tags Dashboard
// @Produce json
// @Success 200 {object} DashboardResponse
// @Router /dashboard [get]
func (h *SystemHandler) GetDashboardData(c *gin.Context) {
	ctx := c.Request.Context()

	data := DashboardResponse{Success: true}
	var errs []string

	stats, err := h.systemService.Stats(ctx)
	if err != nil {
		errs = append(errs, "stats: "+err.Error())
	} else {
		data.Stats = stats
	}

	upcoming, err := h.asteroidService.GetUpcoming(ctx, 7, 10)
	if err != nil {
		errs = append(errs, "upcoming: "+err.Error())
	} else {
		data.Upcoming = make([]UpcomingApproachResponse, 0, len(upcoming))
		for _, item := range upcoming {
			data.Upcoming = append(data.Upcoming, newUpcomingResponse(item))
		}
	}

	hazardous, err := h.asteroidService.GetHazardous(ctx, 10)
	if err != nil {
		errs = append(errs, "hazardous: "+err.Error())
	} else {
		data.Hazardous = newAsteroidList(hazardous)
	}

	data.Errors = errs
	c.JSON(http.StatusOK, data)
}

type DashboardResponse struct {
	Success   bool                       `json:"success"`
	Stats     *service.SystemStats       `json:"stats,omitempty"`
	Upcoming  []UpcomingApproachResponse `json:"upcoming"`
	Hazardous []AsteroidResponse         `json:"hazardous"`
	Errors    []string                   `json:"errors,omitempty"`
}

// HealthResponse структура ответа для health check
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
	Timestamp string            `json:"timestamp"`
}

// ErrorResponse структура для ошибок
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
