package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/hrassistapi/internal/api/middleware"
	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/service"
	"github.com/nsvirk/hrassistapi/pkg/utils/response"
	"github.com/nsvirk/hrassistapi/pkg/utils/zaplogger"
)

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	ThreadID string `json:"thread_id" form:"thread_id"`
	Message  string `json:"message" form:"message"`
}

// ChatHandler feeds chat messages to the workflow engine
type ChatHandler struct {
	service *service.FlowService
}

func NewChatHandler(service *service.FlowService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Chat handles one message and returns the bot reply
func (h *ChatHandler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "`message` is required")
	}

	resp, err := h.service.Handle(c.Request().Context(), service.ChatRequest{
		ThreadID: strings.TrimSpace(req.ThreadID),
		UserID:   middleware.Username(c),
		Message:  req.Message,
	})
	if errors.Is(err, apperr.ErrForbidden) {
		return forbiddenThread(c)
	}
	if err != nil {
		zaplogger.Error("chat failed", zaplogger.Fields{
			"thread_id": req.ThreadID,
			"error":     err.Error(),
		})
		return response.ServerError(c)
	}
	return response.SuccessResponse(c, resp)
}

// Clear drops the thread's session
func (h *ChatHandler) Clear(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid request body")
	}
	if req.ThreadID == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "`thread_id` is required")
	}

	err := h.service.Clear(c.Request().Context(), req.ThreadID, middleware.Username(c))
	if errors.Is(err, apperr.ErrForbidden) {
		return forbiddenThread(c)
	}
	if err != nil {
		zaplogger.Error("clear thread failed", zaplogger.Fields{
			"thread_id": req.ThreadID,
			"error":     err.Error(),
		})
		return response.ServerError(c)
	}
	return response.SuccessResponse(c, true)
}

func forbiddenThread(c echo.Context) error {
	return response.ErrorResponse(c, http.StatusForbidden, response.AuthorizationException, "This conversation belongs to another user")
}
