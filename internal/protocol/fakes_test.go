package protocol

import (
	"context"
	"errors"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goburrow/modbus"

	"gateway-service/internal/config"
)

// fakeLink overrides the Modbus calls the drivers make
type fakeLink struct {
	modbus.Client
	mu            sync.Mutex
	livenessErr   error
	livenessReads int
	closed        int
}

func (l *fakeLink) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.livenessReads++
	if l.livenessErr != nil {
		return nil, l.livenessErr
	}
	return make([]byte, 2*quantity), nil
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed++
	return nil
}

type fakeDialer struct {
	link     *fakeLink
	err      error
	rtuCalls int
	tcpCalls int
	address  string
}

func (d *fakeDialer) DialRTU(ctx context.Context, cfg config.ModbusConfig) (ModbusLink, error) {
	d.rtuCalls++
	if d.err != nil {
		return nil, d.err
	}
	return d.link, nil
}

func (d *fakeDialer) DialTCP(ctx context.Context, address string, cfg config.ModbusConfig) (ModbusLink, error) {
	d.tcpCalls++
	d.address = address
	if d.err != nil {
		return nil, d.err
	}
	return d.link, nil
}

type failingTelemetry struct{}

func (failingTelemetry) Sample(context.Context, ModbusLink) (*TelemetrySample, error) {
	return nil, errors.New("register read failed")
}

func (failingTelemetry) Network(context.Context, ModbusLink) (*NetworkSample, error) {
	return nil, errors.New("register read failed")
}

// fakeToken completes when done is closed
type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	done := make(chan struct{})
	close(done)
	return &fakeToken{done: done, err: err}
}

func pendingToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} {
	return t.done
}

func (t *fakeToken) Error() error {
	return t.err
}

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string {
	return m.topic
}

func (m *fakeMessage) Payload() []byte {
	return m.payload
}

type published struct {
	topic   string
	payload []byte
}

// fakeMQTTClient records calls and hands every delivered message to
// every registered handler, whatever the topic
type fakeMQTTClient struct {
	mqtt.Client

	mu           sync.Mutex
	connectToken mqtt.Token
	handlers     map[string]mqtt.MessageHandler
	published    []published
	disconnects  int
	unsubscribed []string
	onPublish    func(c *fakeMQTTClient, topic string, payload []byte)
}

func newFakeMQTTClient() *fakeMQTTClient {
	return &fakeMQTTClient{
		connectToken: completedToken(nil),
		handlers:     make(map[string]mqtt.MessageHandler),
	}
}

func (c *fakeMQTTClient) factory() MQTTClientFactory {
	return func(*mqtt.ClientOptions) mqtt.Client {
		return c
	}
}

func (c *fakeMQTTClient) Connect() mqtt.Token {
	return c.connectToken
}

func (c *fakeMQTTClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	c.disconnects++
	c.mu.Unlock()
}

func (c *fakeMQTTClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.handlers[topic] = callback
	c.mu.Unlock()
	return completedToken(nil)
}

func (c *fakeMQTTClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	for _, topic := range topics {
		delete(c.handlers, topic)
	}
	c.mu.Unlock()
	return completedToken(nil)
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	body, _ := payload.([]byte)
	c.mu.Lock()
	c.published = append(c.published, published{topic: topic, payload: body})
	hook := c.onPublish
	c.mu.Unlock()

	if hook != nil {
		go hook(c, topic, body)
	}
	return completedToken(nil)
}

func (c *fakeMQTTClient) deliver(topic string, payload []byte) {
	c.mu.Lock()
	handlers := make([]mqtt.MessageHandler, 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(c, &fakeMessage{topic: topic, payload: payload})
	}
}

func (c *fakeMQTTClient) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}
