package dashboard

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	domainDevice "iot-posture-monitor/internal/domain/device"
	"iot-posture-monitor/internal/domain/posture"
	"iot-posture-monitor/internal/logger"
	"iot-posture-monitor/internal/metrics"
)

// Service builds dashboard snapshots from the device store.
type Service struct {
	deviceRepo domainDevice.Repository
	policies   *posture.PolicyProvider
	options    atomic.Pointer[posture.AggregateOptions]
	now        func() time.Time
}

func NewService(deviceRepo domainDevice.Repository, policies *posture.PolicyProvider, opts posture.AggregateOptions) *Service {
	s := &Service{
		deviceRepo: deviceRepo,
		policies:   policies,
		now:        time.Now,
	}
	s.SetAggregateOptions(opts)
	return s
}

// SetAggregateOptions replaces the stale window and alert counting used by later snapshots.
func (s *Service) SetAggregateOptions(opts posture.AggregateOptions) {
	s.options.Store(&opts)
}

func (s *Service) AggregateOptions() posture.AggregateOptions {
	return *s.options.Load()
}

// Snapshot evaluates the devices matching query in one pass.
func (s *Service) Snapshot(ctx context.Context, query string) (*Snapshot, error) {
	devices, err := s.deviceRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	devices = Filter(devices, query)
	verdicts := posture.AnalyzeAll(devices, s.policies.Current())
	summary := posture.Aggregate(verdicts, posture.LastSeenIndex(devices), now, s.AggregateOptions())
	observeFleet(query, summary)

	rows := make([]DeviceRow, len(devices))
	for i, d := range devices {
		v := verdicts[i]
		rows[i] = DeviceRow{
			ID:             d.ID,
			Name:           d.Name,
			IP:             d.IP,
			Firmware:       d.FirmwareVersion,
			StrongPassword: v.StrongPassword,
			UpToDate:       v.UpToDate,
			Status:         v.Status,
			LastSeen:       d.LastSeenAt,
		}
	}

	logger.Debug("Dashboard snapshot built",
		zap.String("query", query),
		zap.Int("devices", len(rows)),
		zap.Int("alerts_today", summary.AlertsToday),
	)

	return &Snapshot{
		Query:                query,
		Devices:              rows,
		KPIs:                 summary,
		FirmwareDistribution: FirmwareDistribution(devices),
		ScoreTimeline:        ScoreTimeline(now),
		PageSize:             PageSize(len(rows)),
		Empty:                len(rows) == 0,
		GeneratedAt:          now,
	}, nil
}

// KPIs returns only the summary for the devices matching query.
func (s *Service) KPIs(ctx context.Context, query string) (*posture.Summary, error) {
	devices, err := s.deviceRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	devices = Filter(devices, query)
	verdicts := posture.AnalyzeAll(devices, s.policies.Current())
	summary := posture.Aggregate(verdicts, posture.LastSeenIndex(devices), s.now(), s.AggregateOptions())
	observeFleet(query, summary)
	return &summary, nil
}

// observeFleet publishes the KPI gauges for unfiltered evaluations only, so a
// search never overwrites the fleet-wide values.
func observeFleet(query string, summary posture.Summary) {
	if query == "" {
		metrics.ObserveSummary(summary)
	}
}
