package posture

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"iot-posture-monitor/internal/domain/device"
)

func TestPasswordStrong(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"empty", "", false},
		{"seven chars", "1234567", false},
		{"eight chars", "12345678", true},
		{"long", "password123", true},
		{"multibyte counted as runes", "pässwörd", true},
		{"seven multibyte runes", "ääääääa", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PasswordStrong(tt.password, DefaultMinPasswordLength))
		})
	}
}

func TestPasswordStrongMatchesLength(t *testing.T) {
	for n := 0; n <= 16; n++ {
		p := strings.Repeat("x", n)
		assert.Equal(t, n >= 8, PasswordStrong(p, 8), "length %d", n)
	}
}

func TestFirmwareCurrent(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		reference string
		want      bool
	}{
		{"equal", "1.2.0", "1.2.0", true},
		{"older", "1.0.0", "1.2.0", false},
		{"extra component", "1.2.0.1", "1.2.0", false},
		{"trailing space", "1.2.0 ", "1.2.0", false},
		{"case sensitive", "v1.2.0", "V1.2.0", false},
		{"empty version", "", "1.2.0", false},
		{"both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirmwareCurrent(tt.version, tt.reference))
		})
	}
}

func TestStatusTruthTable(t *testing.T) {
	tests := []struct {
		strong   bool
		upToDate bool
		want     Status
	}{
		{true, true, StatusSecure},
		{true, false, StatusVulnerable},
		{false, true, StatusVulnerable},
		{false, false, StatusVulnerable},
	}

	for _, tt := range tests {
		d := &device.Device{StrongPassword: tt.strong, FirmwareVersion: "1.0.0"}
		if tt.upToDate {
			d.FirmwareVersion = DefaultReferenceFirmware
		}
		v := Analyze(d, DefaultPolicy())
		assert.Equal(t, tt.want, v.Status, "strong=%v upToDate=%v", tt.strong, tt.upToDate)
		assert.Equal(t, tt.want, StatusOf(tt.strong, tt.upToDate))
	}
}

func TestAnalyzeCopiesIdentity(t *testing.T) {
	d := &device.Device{
		ID:              1,
		Name:            "Sensor1",
		IP:              "192.168.1.2",
		FirmwareVersion: "1.0.0",
		StrongPassword:  PasswordStrong("12345678", DefaultMinPasswordLength),
	}

	v := Analyze(d, DefaultPolicy())

	assert.Equal(t, Verdict{
		DeviceID:       1,
		Name:           "Sensor1",
		IP:             "192.168.1.2",
		StrongPassword: true,
		UpToDate:       false,
		Status:         StatusVulnerable,
	}, v)
}

func TestAnalyzeUsesPolicyReference(t *testing.T) {
	d := &device.Device{FirmwareVersion: "2.0.0", StrongPassword: true}

	assert.False(t, Analyze(d, DefaultPolicy()).UpToDate)
	assert.True(t, Analyze(d, Policy{ReferenceFirmware: "2.0.0", MinPasswordLength: 8}).UpToDate)
}

func TestPolicyProviderSwap(t *testing.T) {
	pp := NewPolicyProvider(DefaultPolicy())
	assert.Equal(t, "1.2.0", pp.Current().ReferenceFirmware)

	pp.Swap(Policy{ReferenceFirmware: "1.3.0", MinPasswordLength: 10})
	assert.Equal(t, "1.3.0", pp.Current().ReferenceFirmware)
	assert.Equal(t, 10, pp.Current().MinPasswordLength)
}
