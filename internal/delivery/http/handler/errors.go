package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"iot-posture-monitor/internal/logger"
	"iot-posture-monitor/internal/middleware"
	appErrors "iot-posture-monitor/pkg/errors"
	"iot-posture-monitor/pkg/utils"
)

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, appErrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, appErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appErrors.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope for err. Backend details are
// logged, not returned.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	code := appErrors.Code(err)

	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		message = "Device store unavailable"
	case http.StatusInternalServerError:
		message = "Internal server error"
	}

	if status >= http.StatusInternalServerError {
		logger.WithRequestID(middleware.GetRequestID(c)).Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", code),
			zap.Error(err),
		)
		_ = c.Error(err)
	}

	utils.ErrorResponseWithCode(c, status, code, message)
}

func parseDeviceID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, appErrors.NewAppError("VALIDATION_ERROR", "Invalid device ID", appErrors.ErrInvalidDevice)
	}
	return uint(id), nil
}
