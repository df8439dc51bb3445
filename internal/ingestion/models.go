package ingestion

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HeartbeatMessage is the payload a device publishes on devices/<id>/heartbeat.
type HeartbeatMessage struct {
	DeviceID  uint       `json:"device_id"`
	Timestamp *time.Time `json:"timestamp"`
}

// ParseHeartbeat decodes a heartbeat and fills the device id from the topic
// when the payload omits it.
func ParseHeartbeat(topic string, payload []byte) (*HeartbeatMessage, error) {
	msg := &HeartbeatMessage{}
	if len(strings.TrimSpace(string(payload))) > 0 {
		if err := json.Unmarshal(payload, msg); err != nil {
			return nil, &ValidationError{Field: "payload", Message: fmt.Sprintf("invalid JSON: %v", err)}
		}
	}

	topicID, ok := deviceIDFromTopic(topic)
	switch {
	case msg.DeviceID == 0 && ok:
		msg.DeviceID = topicID
	case msg.DeviceID != 0 && ok && msg.DeviceID != topicID:
		return nil, &ValidationError{Field: "device_id", Message: fmt.Sprintf("payload id %d does not match topic id %d", msg.DeviceID, topicID)}
	}

	if err := ValidateHeartbeat(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// deviceIDFromTopic extracts <id> from devices/<id>/heartbeat.
func deviceIDFromTopic(topic string) (uint, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "devices" {
		return 0, false
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
