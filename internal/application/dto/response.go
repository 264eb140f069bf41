package dto

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/keygate/pkg/errors"
	"github.com/turtacn/keygate/pkg/logger"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO 错误信息 DTO
type ErrorDTO struct {
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Description string            `json:"description,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// SendSuccess writes a success envelope with the given status and payload.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().Unix(),
	})
}

// SendError writes an error envelope, mapping the AppError code to an HTTP
// status. Unknown errors degrade to an internal error without leaking detail.
func SendError(c *gin.Context, err error) {
	appErr := errors.FromError(err)
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		logger.GetGlobalLogger().Error(c.Request.Context(), "request failed", appErr,
			logger.String("path", c.FullPath()),
			logger.String("request_id", c.GetString("request_id")))
	}
	c.JSON(appErr.HTTPStatus(), &APIResponse{
		Success: false,
		Error: &ErrorDTO{
			Code:        string(appErr.Code),
			Message:     appErr.Message,
			Description: appErr.Description,
			Details:     appErr.Details,
		},
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().Unix(),
	})
}

// SendCreated writes a success envelope with 201 Created.
func SendCreated(c *gin.Context, data interface{}) {
	SendSuccess(c, http.StatusCreated, data)
}
