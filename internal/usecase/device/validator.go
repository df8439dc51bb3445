package device

import (
	"time"

	appErrors "iot-posture-monitor/pkg/errors"
	"iot-posture-monitor/pkg/utils"
)

// maxClockSkew bounds how far in the future a heartbeat timestamp may lie.
const maxClockSkew = 5 * time.Minute

func validateCreate(req *CreateDeviceRequest) error {
	if req == nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", appErrors.ErrInvalidInput)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}
	return validateFirmwareVersion(req.FirmwareVersion)
}

// validateFirmwareVersion rejects control characters. The version is otherwise
// kept byte for byte.
func validateFirmwareVersion(version string) error {
	if utils.HasControlChars(version) {
		return appErrors.NewAppError("VALIDATION_ERROR", "Firmware version contains control characters", appErrors.ErrInvalidInput)
	}
	return nil
}

// sanitizeCreate normalizes the name and IP of a create request in place.
// The firmware version and password are left untouched.
func sanitizeCreate(req *CreateDeviceRequest) {
	req.Name = utils.SanitizeString(req.Name)
	req.IP = utils.SanitizeAddress(req.IP)
}

func validateDeviceID(id uint) error {
	if id == 0 {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid device id", appErrors.ErrInvalidDevice)
	}
	return nil
}

func validateHeartbeatTime(at, now time.Time) error {
	if at.After(now.Add(maxClockSkew)) {
		return appErrors.NewAppError("VALIDATION_ERROR", "Heartbeat timestamp is in the future", appErrors.ErrInvalidInput)
	}
	return nil
}
