package mqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/observability/metrics"
)

// client implements Client on top of paho. Reconnects are left to paho's
// auto reconnect.
type client struct {
	config         Config
	internalClient pahomqtt.Client
	mu             sync.Mutex
	metrics        *metrics.MQTTMetrics
	log            logger.Logger
}

// NewClient creates an unconnected client from settings. m may be nil.
func NewClient(settings *conf.Settings, m *metrics.MQTTMetrics) Client {
	cfg := DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.ClientID = settings.MQTT.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = settings.Main.Name
	}
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	cfg.Topic = settings.MQTT.Topic
	cfg.Retain = settings.MQTT.Retain
	return &client{config: cfg, metrics: m, log: GetLogger()}
}

// Connect resolves the broker host and connects.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return mqttError(fmt.Errorf("invalid broker URL: %w", err), errors.CategoryConfiguration)
	}
	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return mqttError(fmt.Errorf("failed to resolve hostname %s: %w", host, err), errors.CategoryNetwork)
		}
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(c.config.MaxReconnect)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.internalClient = pahomqtt.NewClient(opts)
	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return mqttError(fmt.Errorf("connection timeout"), errors.CategoryMQTTConnect)
	}
	if err := token.Error(); err != nil {
		return mqttError(fmt.Errorf("connection error: %w", err), errors.CategoryMQTTConnect)
	}
	return nil
}

// Publish sends payload with QoS 1.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected() {
		return mqttError(fmt.Errorf("not connected to MQTT broker"), errors.CategoryMQTTPublish)
	}

	start := time.Now()
	token := c.internalClient.Publish(topic, 1, c.config.Retain, payload)
	select {
	case <-token.Done():
	case <-time.After(c.config.PublishTimeout):
		c.recordError()
		return mqttError(fmt.Errorf("publish timeout for topic %s", topic), errors.CategoryTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		c.recordError()
		return mqttError(err, errors.CategoryMQTTPublish)
	}

	if c.metrics != nil {
		c.metrics.ObservePublishLatency(time.Since(start).Seconds())
		c.metrics.IncrementMessagesDelivered()
		c.metrics.ObserveMessageSize(len(payload))
	}
	return nil
}

// IsConnected returns true if the client is currently connected.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected()
}

func (c *client) isConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internalClient != nil {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.updateStatus(false)
	}
}

func (c *client) onConnect(_ pahomqtt.Client) {
	c.log.Info("connected to MQTT broker", logger.String("broker", c.config.Broker))
	c.updateStatus(true)
}

func (c *client) onConnectionLost(_ pahomqtt.Client, err error) {
	c.log.Warn("connection to MQTT broker lost", logger.String("broker", c.config.Broker), logger.Error(err))
	c.updateStatus(false)
	c.recordError()
}

func (c *client) onReconnecting(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
	if c.metrics != nil {
		c.metrics.IncrementReconnectAttempts()
	}
}

func (c *client) updateStatus(connected bool) {
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(connected)
	}
}

func (c *client) recordError() {
	if c.metrics != nil {
		c.metrics.IncrementErrors()
	}
}

func mqttError(err error, category errors.ErrorCategory) error {
	return errors.New(err).Component("mqtt").Category(category).Build()
}
