package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/sweeney/ledring/internal/config"
)

// inboundCapacity bounds the messages held between loop ticks. Commands
// arrive at human rates; the loop drains every 50ms.
const inboundCapacity = 64

// RealClient is a broker session backed by paho. Inbound messages land in
// a bounded buffer drained by the orchestration loop, so the paho receive
// goroutine never blocks on the loop and the loop never blocks on the wire.
type RealClient struct {
	client paho.Client
	log    zerolog.Logger

	mu       sync.Mutex
	inbound  *ringBuffer
	overflow bool
}

// NewRealClient connects to the configured broker. Auto-reconnect is off:
// the orchestration loop owns the reconnect policy.
func NewRealClient(cfg config.MQTT, clientID string, log zerolog.Logger) (*RealClient, error) {
	c := &RealClient{
		inbound: newRingBuffer(inboundCapacity),
		log:     log,
	}

	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)).
		SetClientID(clientID).
		SetKeepAlive(60 * time.Second).
		SetAutoReconnect(false).
		SetConnectTimeout(10 * time.Second).
		SetDefaultPublishHandler(c.onMessage)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

func (c *RealClient) onMessage(_ paho.Client, msg paho.Message) {
	c.mu.Lock()
	dropped := c.inbound.push(Message{Topic: msg.Topic(), Payload: msg.Payload()})
	overflow := dropped && !c.overflow
	c.overflow = dropped
	c.mu.Unlock()
	if overflow {
		c.log.Warn().Int("capacity", inboundCapacity).Msg("inbound buffer full, dropping oldest")
	}
}

// Subscribe registers a topic filter at QoS 0.
func (c *RealClient) Subscribe(topic string) error {
	token := c.client.Subscribe(topic, 0, nil)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout: %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Publish sends a message at QoS 0, not retained.
func (c *RealClient) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout: %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Drain returns buffered inbound messages, oldest first.
func (c *RealClient) Drain() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overflow = false
	return c.inbound.drainAll()
}

// IsConnected reports whether the session is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Reconnect makes one bounded attempt to re-establish the session.
// Subscriptions survive because paho keeps session state client-side.
func (c *RealClient) Reconnect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("reconnect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
