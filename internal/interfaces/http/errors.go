package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

// Response is the standard API response envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// statusFor maps a service error to its HTTP status and error code
func statusFor(err error) (int, string) {
	var verr *workflow.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, workflow.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, workflow.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, workflow.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, "invalid_state"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	h.respondErrorWith(c, op, err, nil)
}

// respondErrorWith reports err and still returns data the request produced
func (h *Handlers) respondErrorWith(c *gin.Context, op string, err error, data interface{}) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(op+" failed", "error", err, "path", c.Request.URL.Path)
		msg = "internal error"
	} else {
		h.logger.Info(op+" refused", "code", code, "error", err)
	}
	c.JSON(status, Response{
		Success: false,
		Data:    data,
		Code:    code,
		Error:   msg,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Code:    "validation",
		Error:   msg,
	})
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}
