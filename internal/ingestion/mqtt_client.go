package ingestion

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"iot-posture-monitor/internal/logger"
	"iot-posture-monitor/internal/metrics"
	pkgmqtt "iot-posture-monitor/pkg/mqtt"
)

// MQTTIngestionConfig describes the heartbeat topic and QoS.
type MQTTIngestionConfig struct {
	HeartbeatTopic string
	QoS            byte
}

// MQTTIngestionClient wires MQTT heartbeats into the processor.
type MQTTIngestionClient struct {
	cfg       *MQTTIngestionConfig
	client    pkgmqtt.Subscriber
	processor *Processor
	log       *zap.Logger

	mu            sync.Mutex
	started       bool
	subscriptions []string
}

// NewMQTTIngestionClient builds a new MQTT client for ingestion.
func NewMQTTIngestionClient(cfg *MQTTIngestionConfig, client pkgmqtt.Subscriber, processor *Processor) (*MQTTIngestionClient, error) {
	if cfg == nil || cfg.HeartbeatTopic == "" {
		return nil, errors.New("mqtt heartbeat topic is not configured")
	}
	if client == nil {
		return nil, errors.New("mqtt client is required")
	}
	if processor == nil {
		return nil, errors.New("processor is required")
	}

	return &MQTTIngestionClient{
		cfg:       cfg,
		client:    client,
		processor: processor,
		log:       logger.Named("mqtt"),
	}, nil
}

// Start establishes the MQTT connection and subscribes to the heartbeat topic.
func (c *MQTTIngestionClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	if err := c.client.Subscribe(c.cfg.HeartbeatTopic, c.cfg.QoS, c.handleHeartbeatMessage); err != nil {
		c.client.Disconnect()
		return fmt.Errorf("subscribe failed for topic %s: %w", c.cfg.HeartbeatTopic, err)
	}
	c.subscriptions = append(c.subscriptions, c.cfg.HeartbeatTopic)
	c.log.Info("Listening for heartbeats", zap.String("topic", c.cfg.HeartbeatTopic))

	c.started = true
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (c *MQTTIngestionClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}

	if len(c.subscriptions) > 0 {
		if err := c.client.Unsubscribe(c.subscriptions...); err != nil {
			c.log.Warn("Failed to unsubscribe from MQTT topics", zap.Error(err))
		}
	}

	c.client.Disconnect()
	c.started = false
	c.subscriptions = nil
}

// handleHeartbeatMessage decodes a heartbeat and hands it to the processor.
func (c *MQTTIngestionClient) handleHeartbeatMessage(topic string, payload []byte) {
	msg, err := ParseHeartbeat(topic, payload)
	if err != nil {
		c.log.Warn("Invalid heartbeat payload", zap.String("topic", topic), zap.Error(err))
		metrics.HeartbeatsTotal.WithLabelValues("mqtt", "invalid").Inc()
		return
	}

	c.processor.Enqueue(msg)
}
