package device

import (
	"fmt"

	appErrors "iot-posture-monitor/pkg/errors"
)

var (
	ErrDeviceNotFound = fmt.Errorf("%w: device not found", appErrors.ErrNotFound)
)
