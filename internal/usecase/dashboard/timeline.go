package dashboard

import (
	"sort"
	"time"

	"iot-posture-monitor/internal/domain/device"
)

// mockScores is the placeholder security score series, oldest first.
var mockScores = [...]int{100, 90, 95, 85, 80, 90, 88}

// minPageSize is the smallest table page the dashboard asks for.
const minPageSize = 3

// ScoreTimeline returns one point per day ending at now.
func ScoreTimeline(now time.Time) []ScorePoint {
	points := make([]ScorePoint, len(mockScores))
	last := len(mockScores) - 1
	for i, score := range mockScores {
		points[i] = ScorePoint{
			Date:  now.AddDate(0, 0, i-last),
			Score: score,
		}
	}
	return points
}

// FirmwareDistribution counts devices per firmware version, sorted by version.
// An empty set yields a single NoDataLabel bucket.
func FirmwareDistribution(devices []*device.Device) []FirmwareBucket {
	if len(devices) == 0 {
		return []FirmwareBucket{{Version: NoDataLabel, Count: 0}}
	}

	counts := make(map[string]int)
	for _, d := range devices {
		counts[d.FirmwareVersion]++
	}

	buckets := make([]FirmwareBucket, 0, len(counts))
	for version, n := range counts {
		buckets = append(buckets, FirmwareBucket{Version: version, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Version < buckets[j].Version })
	return buckets
}

func PageSize(n int) int {
	return max(n, minPageSize)
}
