package handler

import (
	"net/http"

	"spazatrack/internal/apierror"
	"spazatrack/internal/dto"
	"spazatrack/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	stats    service.StatsService
	activity service.ActivityService
}

func NewDashboardHandler(stats service.StatsService, activity service.ActivityService) *DashboardHandler {
	return &DashboardHandler{stats: stats, activity: activity}
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	resp, err := h.stats.ComputeStats(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DashboardHandler) Activity(c *gin.Context) {
	var filter dto.ActivityFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, "limit must be an integer"))
		return
	}
	resp, err := h.activity.List(c.Request.Context(), principal(c), filter.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
