// Package handlers contains the handlers for the API
package handlers

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/hrassistapi/pkg/utils/response"
)

// IndexHandler serves the unauthenticated informational routes
type IndexHandler struct {
	name    string
	version string
}

func NewIndexHandler(name, version string) *IndexHandler {
	return &IndexHandler{name: name, version: version}
}

// Index returns the API name and version
func (h *IndexHandler) Index(c echo.Context) error {
	return response.SuccessResponse(c, fmt.Sprintf("%s %s", h.name, h.version))
}

// Health is the liveness probe
func (h *IndexHandler) Health(c echo.Context) error {
	return response.SuccessResponse(c, map[string]string{"status": "ok"})
}
