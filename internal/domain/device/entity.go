package device

import (
	"time"
)

// DefaultStatus is the label every device carries when it is first stored.
const DefaultStatus = "unknown"

// Device is a stored device record.
//
// PasswordHash holds a salted hash of the credential supplied at intake and
// StrongPassword its strength classification; the raw secret is never kept.
// Status is a free-text label; the security posture is always derived from
// the other fields and never read back from it.
type Device struct {
	ID              uint
	Name            string
	IP              string
	FirmwareVersion string
	PasswordHash    string
	StrongPassword  bool
	Status          string
	LastSeenAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
