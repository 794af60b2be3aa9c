package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/nsvirk/hrassistapi/internal/service"
	"github.com/nsvirk/hrassistapi/pkg/utils/response"
	"github.com/nsvirk/hrassistapi/pkg/utils/zaplogger"
)

const (
	defaultSummaryDays = 7
	maxSummaryDays     = 365
)

// MetricsSummaryResponseData is the response data for the summary endpoint
type MetricsSummaryResponseData struct {
	Since  time.Time                   `json:"since"`
	Counts map[models.MetricType]int64 `json:"counts"`
}

type MetricsHandler struct {
	service *service.MetricsService
	NowFunc func() time.Time
}

func NewMetricsHandler(service *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: service, NowFunc: time.Now}
}

// Summary returns metric counts for the last `days` days
func (h *MetricsHandler) Summary(c echo.Context) error {
	days := defaultSummaryDays
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxSummaryDays {
			return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "`days` must be between 1 and 365")
		}
		days = n
	}

	since := h.NowFunc().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	counts, err := h.service.Summary(c.Request().Context(), since)
	if err != nil {
		zaplogger.Error("metrics summary failed", zaplogger.Fields{"error": err.Error()})
		return response.ServerError(c)
	}
	return response.SuccessResponse(c, MetricsSummaryResponseData{Since: since, Counts: counts})
}
