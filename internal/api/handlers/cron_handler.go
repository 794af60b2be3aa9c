package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/nsvirk/hrassistapi/internal/service"
	"github.com/nsvirk/hrassistapi/pkg/utils/response"
)

type CronHandler struct {
	CronService *service.CronService
}

func NewCronHandler(cronService *service.CronService) *CronHandler {
	return &CronHandler{CronService: cronService}
}

// Sweep runs the retention sweep now
func (h *CronHandler) Sweep(c echo.Context) error {
	result := h.CronService.RunSweep(c.Request().Context())
	return response.SuccessResponse(c, result)
}
