package ingestion

import (
	"fmt"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [%s]: %s", e.Field, e.Message)
}

// ValidateHeartbeat validates heartbeat message
func ValidateHeartbeat(msg *HeartbeatMessage) error {
	if msg.DeviceID == 0 {
		return &ValidationError{Field: "device_id", Message: "device_id is required"}
	}
	if msg.Timestamp != nil && msg.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "timestamp must not be zero"}
	}
	return nil
}
