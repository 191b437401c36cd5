package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"cosmicwatch/internal/middleware"
	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	service    service.AlertService
	windowDays int
}

func NewAlertHandler(service service.AlertService, windowDays int) *AlertHandler {
	return &AlertHandler{service: service, windowDays: windowDays}
}

type alertListQuery struct {
	UnreadOnly bool `form:"unread_only"`
	Limit      int  `form:"limit,default=50" binding:"gte=1,lte=100"`
	Offset     int  `form:"offset,default=0" binding:"gte=0"`
}

func (h *AlertHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	var query alertListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindingError(c, err)
		return
	}

	alerts, err := h.service.ListAlerts(ctx, user.ID, query.UnreadOnly, query.Limit, query.Offset)
	if err != nil {
		respondError(c, err, "failed to get alerts")
		return
	}

	resp := make([]AlertResponse, 0, len(alerts))
	for _, alert := range alerts {
		resp = append(resp, newAlertResponse(alert))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AlertHandler) UnreadCount(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	count, err := h.service.CountUnread(ctx, user.ID)
	if err != nil {
		respondError(c, err, "failed to count unread alerts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *AlertHandler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	alertID, ok := pathUint(c, "id")
	if !ok {
		return
	}

	alert, err := h.service.MarkRead(ctx, user.ID, alertID)
	if err != nil {
		respondError(c, err, "failed to mark alert as read")
		return
	}

	c.JSON(http.StatusOK, newAlertResponse(*alert))
}

func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	updated, err := h.service.MarkAllRead(ctx, user.ID)
	if err != nil {
		respondError(c, err, "failed to mark alerts as read")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"updated": updated,
	})
}

func (h *AlertHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	alertID, ok := pathUint(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteAlert(ctx, user.ID, alertID); err != nil {
		respondError(c, err, "failed to delete alert")
		return
	}

	c.Status(http.StatusNoContent)
}

// Export godoc
// @Summary Выгрузка алертов пользователя
// @Tags Alerts
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param format query string false "xlsx или csv"
// @Router /alerts/export [get]
func (h *AlertHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	format := c.DefaultQuery("format", service.ExportFormatXLSX)
	if format == "excel" {
		format = service.ExportFormatXLSX
	}

	var buf bytes.Buffer
	if err := h.service.ExportAlerts(ctx, user.ID, format, &buf); err != nil {
		respondError(c, err, "failed to export alerts")
		return
	}

	var contentType string
	switch format {
	case service.ExportFormatCSV:
		contentType = "text/csv; charset=utf-8"
	default:
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	filename := fmt.Sprintf("alerts_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Generate запускает генерацию алертов вне расписания.
func (h *AlertHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	created, err := h.service.GenerateAlerts(ctx, h.windowDays)
	if err != nil && created == 0 {
		respondError(c, err, "failed to generate alerts")
		return
	}

	resp := gin.H{
		"success": true,
		"created": created,
	}
	if err != nil {
		resp["message"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
