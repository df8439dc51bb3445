package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainDevice "iot-posture-monitor/internal/domain/device"
	"iot-posture-monitor/internal/domain/posture"
	"iot-posture-monitor/internal/logger"
	"iot-posture-monitor/internal/metrics"
	"iot-posture-monitor/internal/report"
	"iot-posture-monitor/internal/usecase/dashboard"
	"iot-posture-monitor/pkg/utils"
)

const (
	reportFilename    = "iot_report.xlsx"
	reportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type DashboardHandler struct {
	service    *dashboard.Service
	deviceRepo domainDevice.Repository
	policies   *posture.PolicyProvider
}

func NewDashboardHandler(service *dashboard.Service, deviceRepo domainDevice.Repository, policies *posture.PolicyProvider) *DashboardHandler {
	return &DashboardHandler{service: service, deviceRepo: deviceRepo, policies: policies}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard", h.GetDashboard)
	router.GET("/kpis", h.GetKPIs)
	router.GET("/report", h.DownloadReport)
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	snapshot, err := h.service.Snapshot(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Dashboard retrieved successfully"
	if snapshot.Empty {
		message = dashboard.NoDataLabel
	}
	utils.SuccessResponse(c, http.StatusOK, message, snapshot)
}

func (h *DashboardHandler) GetKPIs(c *gin.Context) {
	kpis, err := h.service.KPIs(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "KPIs retrieved successfully", kpis)
}

// DownloadReport streams the security report for every stored device.
func (h *DashboardHandler) DownloadReport(c *gin.Context) {
	devices, err := h.deviceRepo.List(c.Request.Context())
	if err != nil {
		metrics.ReportsTotal.WithLabelValues("failed").Inc()
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if _, err := report.Write(&buf, devices, h.policies.Current()); err != nil {
		metrics.ReportsTotal.WithLabelValues("failed").Inc()
		respondError(c, err)
		return
	}
	metrics.ReportsTotal.WithLabelValues("success").Inc()

	logger.Info("Report downloaded",
		zap.Int("rows", len(devices)),
		zap.Int("bytes", buf.Len()),
	)

	c.Header("Content-Disposition", `attachment; filename="`+reportFilename+`"`)
	c.Data(http.StatusOK, reportContentType, buf.Bytes())
}
