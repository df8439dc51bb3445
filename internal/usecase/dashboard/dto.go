package dashboard

import (
	"time"

	"iot-posture-monitor/internal/domain/posture"
)

// NoDataLabel names the single firmware bucket shown for an empty device set.
const NoDataLabel = "No data"

type DeviceRow struct {
	ID             uint           `json:"id"`
	Name           string         `json:"name"`
	IP             string         `json:"ip"`
	Firmware       string         `json:"firmware"`
	StrongPassword bool           `json:"strong_password"`
	UpToDate       bool           `json:"up_to_date"`
	Status         posture.Status `json:"status"`
	LastSeen       *time.Time     `json:"last_seen"`
}

type FirmwareBucket struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

type ScorePoint struct {
	Date  time.Time `json:"date"`
	Score int       `json:"score"`
}

// Snapshot is everything one dashboard refresh renders.
type Snapshot struct {
	Query                string           `json:"query"`
	Devices              []DeviceRow      `json:"devices"`
	KPIs                 posture.Summary  `json:"kpis"`
	FirmwareDistribution []FirmwareBucket `json:"firmware_distribution"`
	ScoreTimeline        []ScorePoint     `json:"score_timeline"`
	PageSize             int              `json:"page_size"`
	Empty                bool             `json:"empty"`
	GeneratedAt          time.Time        `json:"generated_at"`
}
