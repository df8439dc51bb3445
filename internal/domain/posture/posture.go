// Package posture derives the security classification of a device from its
// credential strength and firmware currency, and reduces a set of those
// classifications into dashboard KPIs.
package posture

import (
	"unicode/utf8"

	"iot-posture-monitor/internal/domain/device"
)

type Status string

const (
	StatusSecure     Status = "Secure"
	StatusVulnerable Status = "Vulnerable"
)

const (
	DefaultReferenceFirmware = "1.2.0"
	DefaultMinPasswordLength = 8
)

// Policy holds the thresholds a device is evaluated against.
type Policy struct {
	ReferenceFirmware string
	// MinPasswordLength classifies a credential when the device is stored.
	// Analyze reads the stored classification, so a new minimum only affects
	// devices created afterwards.
	MinPasswordLength int
}

func DefaultPolicy() Policy {
	return Policy{
		ReferenceFirmware: DefaultReferenceFirmware,
		MinPasswordLength: DefaultMinPasswordLength,
	}
}

// Verdict is the posture of one device. It is recomputed on every request.
type Verdict struct {
	DeviceID       uint   `json:"id"`
	Name           string `json:"name"`
	IP             string `json:"ip"`
	StrongPassword bool   `json:"strong_password"`
	UpToDate       bool   `json:"up_to_date"`
	Status         Status `json:"status"`
}

// PasswordStrong reports whether password has at least minLength characters.
// Length is counted in runes; no character-class or entropy rules apply.
func PasswordStrong(password string, minLength int) bool {
	return utf8.RuneCountInString(password) >= minLength
}

// FirmwareCurrent compares versions byte for byte: "1.2.0" and "1.2.0 " differ,
// and there is no ordering between versions.
func FirmwareCurrent(version, reference string) bool {
	return version == reference
}

// StatusOf maps the two checks to a posture status.
func StatusOf(strongPassword, upToDate bool) Status {
	if strongPassword && upToDate {
		return StatusSecure
	}
	return StatusVulnerable
}

// Analyze evaluates d against policy. The credential strength was classified
// when the device was stored, since only a hash of the secret is kept.
func Analyze(d *device.Device, policy Policy) Verdict {
	upToDate := FirmwareCurrent(d.FirmwareVersion, policy.ReferenceFirmware)
	return Verdict{
		DeviceID:       d.ID,
		Name:           d.Name,
		IP:             d.IP,
		StrongPassword: d.StrongPassword,
		UpToDate:       upToDate,
		Status:         StatusOf(d.StrongPassword, upToDate),
	}
}

// AnalyzeAll evaluates every device in order.
func AnalyzeAll(devices []*device.Device, policy Policy) []Verdict {
	verdicts := make([]Verdict, 0, len(devices))
	for _, d := range devices {
		verdicts = append(verdicts, Analyze(d, policy))
	}
	return verdicts
}
