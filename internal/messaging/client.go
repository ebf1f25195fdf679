// Package messaging publishes scan summaries to an MQTT broker or a Kafka topic.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	"miner-scanner/config"
)

// ErrNotConnected is returned by Publish before Connect succeeded or after Close.
var ErrNotConnected = errors.New("messaging client not connected")

const (
	connectAttempts = 5
	initialBackoff  = time.Second
	maxBackoff      = 30 * time.Second
)

// Client is the unified messaging client (MQTT or Kafka).
type Client struct {
	mu       sync.RWMutex
	cfg      *config.MessagingConfig
	backend  string
	mqttConn mqtt.Client
	kafkaW   *kafkago.Writer
}

// NewClient creates a messaging client based on config.
func NewClient(cfg *config.MessagingConfig) *Client {
	return &Client{
		cfg:     cfg,
		backend: cfg.Backend,
	}
}

// Connect establishes the messaging connection, retrying with backoff.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.backend {
	case "mqtt":
		return retry.Do(c.connectMQTT, retry.Attempts(connectAttempts), retry.Delay(initialBackoff), retry.MaxDelay(maxBackoff))
	case "kafka":
		return c.connectKafka()
	default:
		return fmt.Errorf("unknown messaging backend: %q", c.backend)
	}
}

func (c *Client) connectMQTT() error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.MQTT.Broker).
		SetClientID(c.cfg.MQTT.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	if c.cfg.MQTT.Username != "" {
		opts.SetUsername(c.cfg.MQTT.Username)
		opts.SetPassword(c.cfg.MQTT.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		log.Warn().Err(err).Str("broker", c.cfg.MQTT.Broker).Msg("mqtt connect failed")
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.mqttConn = client
	log.Info().Str("broker", c.cfg.MQTT.Broker).Msg("mqtt connected")
	return nil
}

func (c *Client) connectKafka() error {
	if len(c.cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	c.kafkaW = &kafkago.Writer{
		Addr:         kafkago.TCP(c.cfg.Kafka.Brokers...),
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
	}
	return nil
}

// Publish sends payload to topic. key is used as the Kafka message key.
func (c *Client) Publish(ctx context.Context, topic, key string, payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.backend {
	case "mqtt":
		if c.mqttConn == nil || !c.mqttConn.IsConnected() {
			return ErrNotConnected
		}
		token := c.mqttConn.Publish(topic, c.cfg.MQTT.QoS, false, payload)
		select {
		case <-token.Done():
			return token.Error()
		case <-ctx.Done():
			return ctx.Err()
		}
	case "kafka":
		if c.kafkaW == nil {
			return ErrNotConnected
		}
		return c.kafkaW.WriteMessages(ctx, kafkago.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: payload,
		})
	default:
		return fmt.Errorf("unknown messaging backend: %q", c.backend)
	}
}

// Close shuts down the messaging connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mqttConn != nil {
		c.mqttConn.Disconnect(1000)
		c.mqttConn = nil
	}
	if c.kafkaW != nil {
		if err := c.kafkaW.Close(); err != nil {
			log.Warn().Err(err).Msg("kafka writer close failed")
		}
		c.kafkaW = nil
	}
}
