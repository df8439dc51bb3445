package dashboard

import (
	"strings"

	"iot-posture-monitor/internal/domain/device"
)

// Filter keeps the devices whose name or IP contains query, ignoring case.
// The query is matched as given; only an empty query returns devices unchanged.
func Filter(devices []*device.Device, query string) []*device.Device {
	if query == "" {
		return devices
	}
	q := strings.ToLower(query)

	matched := make([]*device.Device, 0, len(devices))
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.IP), q) {
			matched = append(matched, d)
		}
	}
	return matched
}
