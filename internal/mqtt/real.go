package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/iobeam-bridge/internal/bus"
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. While the broker is
// unreachable, messages are kept in a ring buffer and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topic  string

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. A broker that is
// down at startup is not an error: paho keeps retrying and messages are
// buffered meanwhile.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	p := &RealPublisher{
		topic: Topic,
		buf:   newRingBuffer(o.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(30 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost, buffering until reconnect: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, will keep retrying", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// onConnect replays whatever was buffered while offline. It runs on a
// separate goroutine because paho callbacks must not block on tokens.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	msgs, dropped := p.buf.drainAll()
	p.mu.Unlock()

	log.Printf("mqtt: connected, replaying %d buffered messages", len(msgs))
	if dropped > 0 {
		log.Printf("mqtt: %d messages were dropped while offline", dropped)
	}
	if len(msgs) == 0 {
		return
	}
	go func() {
		for _, m := range msgs {
			if err := p.send(m); err != nil {
				log.Printf("mqtt: replay to %s: %v", m.topic, err)
			}
		}
	}()
}

// Publish sends an iobeam event. QoS 1: interlock edges must not be lost.
func (p *RealPublisher) Publish(event bus.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(bufferedMsg{topic: p.topic, payload: payload, qos: 1})
}

// PublishSystem sends a lifecycle event.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(m bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(m)
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for the broker.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
