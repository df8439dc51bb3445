package ingestion

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"iot-posture-monitor/internal/logger"
	"iot-posture-monitor/internal/metrics"
	appErrors "iot-posture-monitor/pkg/errors"
)

// HeartbeatRecorder applies a heartbeat to the device store.
type HeartbeatRecorder interface {
	RecordHeartbeat(ctx context.Context, deviceID uint, at time.Time) error
}

type ProcessorConfig struct {
	Workers        int
	BufferSize     int
	ProcessTimeout time.Duration
}

func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{Workers: 2, BufferSize: 256, ProcessTimeout: 5 * time.Second}
}

// Processor queues heartbeats and applies them with a fixed set of workers.
type Processor struct {
	recorder HeartbeatRecorder
	cfg      ProcessorConfig

	heartbeats chan *HeartbeatMessage

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool

	metrics *MetricsTracker
	log     *zap.Logger
}

// NewProcessor creates a new heartbeat processor
func NewProcessor(recorder HeartbeatRecorder, cfg ProcessorConfig) *Processor {
	def := DefaultProcessorConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = def.ProcessTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		recorder:   recorder,
		cfg:        cfg,
		heartbeats: make(chan *HeartbeatMessage, cfg.BufferSize),
		ctx:        ctx,
		cancel:     cancel,
		metrics:    NewMetricsTracker(),
		log:        logger.Named("ingestion"),
	}
}

// Start starts the processor workers
func (p *Processor) Start() {
	p.log.Info("Starting heartbeat processor",
		zap.Int("workers", p.cfg.Workers),
		zap.Int("buffer_size", p.cfg.BufferSize),
	)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains queued heartbeats and waits for the workers.
func (p *Processor) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.heartbeats)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	p.log.Info("Heartbeat processor stopped")
}

// Enqueue queues a heartbeat. It reports false when the message was dropped
// because the buffer is full or the processor is stopped.
func (p *Processor) Enqueue(msg *HeartbeatMessage) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return false
	}

	select {
	case p.heartbeats <- msg:
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesReceived++
			m.BufferSize = len(p.heartbeats)
		})
		return true
	default:
		p.log.Warn("Heartbeat buffer full, dropping message", zap.Uint("device_id", msg.DeviceID))
		p.metrics.Update(func(m *IngestMetrics) { m.MessagesDropped++ })
		metrics.HeartbeatsTotal.WithLabelValues("mqtt", "dropped").Inc()
		return false
	}
}

func (p *Processor) worker(id int) {
	defer p.wg.Done()

	for msg := range p.heartbeats {
		p.process(msg)
	}
	p.log.Debug("Heartbeat worker exiting", zap.Int("worker", id))
}

func (p *Processor) process(msg *HeartbeatMessage) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.ProcessTimeout)
	defer cancel()

	var at time.Time
	if msg.Timestamp != nil {
		at = *msg.Timestamp
	}

	err := p.recorder.RecordHeartbeat(ctx, msg.DeviceID, at)
	result := "applied"
	switch {
	case err == nil:
	case errors.Is(err, appErrors.ErrNotFound), errors.Is(err, appErrors.ErrValidation):
		result = "rejected"
		p.log.Warn("Heartbeat rejected", zap.Uint("device_id", msg.DeviceID), zap.Error(err))
	default:
		result = "failed"
		p.log.Error("Failed to record heartbeat", zap.Uint("device_id", msg.DeviceID), zap.Error(err))
	}

	metrics.HeartbeatsTotal.WithLabelValues("mqtt", result).Inc()
	p.metrics.Update(func(m *IngestMetrics) {
		switch result {
		case "applied":
			m.MessagesApplied++
		case "rejected":
			m.MessagesRejected++
		default:
			m.MessagesFailed++
		}
		m.LastProcessedAt = time.Now()
		m.BufferSize = len(p.heartbeats)
	})
}

// Metrics returns a snapshot of the ingestion counters.
func (p *Processor) Metrics() IngestMetrics {
	return p.metrics.Snapshot()
}
