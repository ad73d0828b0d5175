package api

import (
	"net/http"

	apperrors "candidate-portal/internal/common/errors"

	"github.com/gin-gonic/gin"
)

const requestIDKey = "X-Request-ID"

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func requestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	return c.GetHeader(requestIDKey)
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func failure(c *gin.Context, status int, code apperrors.ErrorCode, message, details string) {
	c.JSON(status, Response{
		Success: false,
		Error: &ErrorBody{
			Code:      string(code),
			Message:   message,
			Details:   details,
			RequestID: requestID(c),
		},
	})
}

// respondError maps err onto a status code and error envelope.
func respondError(c *gin.Context, err error) {
	se, ok := apperrors.AsStandard(err)
	if !ok {
		se = apperrors.NewInternalError(err)
	}
	failure(c, statusFor(se.Code), se.Code, se.Message, se.Details)
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidationFailed, apperrors.ErrCodeMapping:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeThrottled:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeConfigMissing, apperrors.ErrCodeNetwork:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeAuthFailed, apperrors.ErrCodeRemoteAPI,
		apperrors.ErrCodeStoreFailed, apperrors.ErrCodeSearchFailed,
		apperrors.ErrCodeNotificationSendFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
