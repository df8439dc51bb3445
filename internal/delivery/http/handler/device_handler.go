package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"iot-posture-monitor/internal/metrics"
	"iot-posture-monitor/internal/usecase/device"
	appErrors "iot-posture-monitor/pkg/errors"
	"iot-posture-monitor/pkg/utils"
)

type DeviceHandler struct {
	service *device.Service
}

func NewDeviceHandler(service *device.Service) *DeviceHandler {
	return &DeviceHandler{service: service}
}

func (h *DeviceHandler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.GET("", h.ListDevices)
		devices.POST("", h.CreateDevice)
		devices.POST("/remediate", h.RemediateOutdated)
		devices.GET("/:id", h.GetDevice)
		devices.GET("/:id/posture", h.GetPosture)
		devices.PUT("/:id/firmware", h.UpdateFirmware)
		devices.POST("/:id/heartbeat", h.RecordHeartbeat)
	}
}

func (h *DeviceHandler) CreateDevice(c *gin.Context) {
	var req device.CreateDeviceRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithCode(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	created, err := h.service.CreateDevice(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Device created successfully", created)
}

func (h *DeviceHandler) GetDevice(c *gin.Context) {
	deviceID, err := parseDeviceID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	d, err := h.service.GetDevice(c.Request.Context(), deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device retrieved successfully", d)
}

func (h *DeviceHandler) ListDevices(c *gin.Context) {
	devices, err := h.service.ListDevices(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", devices)
}

func (h *DeviceHandler) GetPosture(c *gin.Context) {
	deviceID, err := parseDeviceID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	verdict, err := h.service.GetPosture(c.Request.Context(), deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device posture evaluated", verdict)
}

// UpdateFirmware accepts an empty body, which moves the device to the reference firmware.
func (h *DeviceHandler) UpdateFirmware(c *gin.Context) {
	deviceID, err := parseDeviceID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req device.UpdateFirmwareRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ErrorResponseWithCode(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	updated, err := h.service.UpdateFirmware(c.Request.Context(), deviceID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Firmware updated successfully", updated)
}

func (h *DeviceHandler) RecordHeartbeat(c *gin.Context) {
	deviceID, err := parseDeviceID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req device.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ErrorResponseWithCode(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	var at time.Time
	if req.Timestamp != nil {
		at = *req.Timestamp
	}

	if err := h.service.RecordHeartbeat(c.Request.Context(), deviceID, at); err != nil {
		result := "failed"
		if errors.Is(err, appErrors.ErrNotFound) || errors.Is(err, appErrors.ErrValidation) {
			result = "rejected"
		}
		metrics.HeartbeatsTotal.WithLabelValues("http", result).Inc()
		respondError(c, err)
		return
	}
	metrics.HeartbeatsTotal.WithLabelValues("http", "applied").Inc()

	c.Status(http.StatusNoContent)
}

func (h *DeviceHandler) RemediateOutdated(c *gin.Context) {
	result, err := h.service.RemediateOutdated(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Outdated firmware remediated", result)
}
