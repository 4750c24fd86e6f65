// internal/protocol/mqtt.go
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gateway-service/internal/config"
	"gateway-service/internal/model"
)

// MQTTClientFactory builds a paho client from options
type MQTTClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

// request/response topic suffixes under the configured prefix
const (
	topicSystemInfo    = "system/info"
	topicNetworkConfig = "network/config"
	requestSuffix      = "/get"
)

type pendingRequest struct {
	correlationID string
	response      chan []byte
}

// correlationEnvelope is the request payload and the optional response key
type correlationEnvelope struct {
	CorrelationID string `json:"correlationId,omitempty"`
}

// MQTTDriver queries the gateway over topic pairs on a broker.
// Response subscriptions live as long as the driver.
type MQTTDriver struct {
	cfg       config.MQTTConfig
	newClient MQTTClientFactory
	logger    *zap.Logger

	mu         sync.Mutex
	client     mqtt.Client
	pending    map[string][]*pendingRequest
	subscribed map[string]bool
}

// NewMQTTDriver creates an MQTT driver
func NewMQTTDriver(cfg config.MQTTConfig, newClient MQTTClientFactory, logger *zap.Logger) *MQTTDriver {
	if newClient == nil {
		newClient = mqtt.NewClient
	}
	return &MQTTDriver{
		cfg:        cfg,
		newClient:  newClient,
		logger:     logger.With(zap.String("driver", string(model.DriverMQTT))),
		pending:    make(map[string][]*pendingRequest),
		subscribed: make(map[string]bool),
	}
}

// Open connects to the broker. A connect that does not complete within
// ConnectTimeout is abandoned and the client is disconnected.
func (d *MQTTDriver) Open(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(d.cfg.BrokerURL).
		SetClientID(d.cfg.ClientID).
		SetConnectTimeout(d.cfg.ConnectTimeout).
		SetAutoReconnect(false).
		SetOrderMatters(false)
	if d.cfg.Username != "" {
		opts.SetUsername(d.cfg.Username)
		opts.SetPassword(d.cfg.Password)
	}

	client := d.newClient(opts)
	token := client.Connect()

	timer := time.NewTimer(d.cfg.ConnectTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return connectError(err, "Impossible de se connecter au broker MQTT %s", d.cfg.BrokerURL)
		}
	case <-timer.C:
		client.Disconnect(0)
		return connectError(fmt.Errorf("%w after %s", ErrConnectTimeout, d.cfg.ConnectTimeout),
			"Impossible de se connecter au broker MQTT %s", d.cfg.BrokerURL)
	case <-ctx.Done():
		client.Disconnect(0)
		return connectError(ctx.Err(), "Impossible de se connecter au broker MQTT %s", d.cfg.BrokerURL)
	}

	d.mu.Lock()
	d.client = client
	d.mu.Unlock()

	d.logger.Info("Connected to MQTT broker",
		zap.String("broker", d.cfg.BrokerURL),
		zap.String("client_id", d.cfg.ClientID),
	)
	return nil
}

// Close drops the response subscriptions and disconnects
func (d *MQTTDriver) Close() error {
	d.mu.Lock()
	client := d.client
	topics := make([]string, 0, len(d.subscribed))
	for topic := range d.subscribed {
		topics = append(topics, topic)
	}
	d.client = nil
	d.subscribed = make(map[string]bool)
	d.mu.Unlock()

	if client == nil {
		return nil
	}

	if len(topics) > 0 {
		token := client.Unsubscribe(topics...)
		if token.WaitTimeout(d.cfg.RequestTimeout) && token.Error() != nil {
			d.logger.Warn("Unsubscribe failed", zap.Strings("topics", topics), zap.Error(token.Error()))
		}
	}
	client.Disconnect(250)
	return nil
}

func (d *MQTTDriver) SystemInfo(ctx context.Context) (*model.SystemInfo, error) {
	var info model.SystemInfo
	if err := d.request(ctx, topicSystemInfo, &info); err != nil {
		return nil, err
	}
	if info.Protocol == "" {
		info.Protocol = labelMQTT
	}
	return &info, nil
}

func (d *MQTTDriver) NetworkConfig(ctx context.Context) (*model.NetworkConfig, error) {
	var network model.NetworkConfig
	if err := d.request(ctx, topicNetworkConfig, &network); err != nil {
		return nil, err
	}
	if network.Protocol == "" {
		network.Protocol = labelMQTT
	}
	return &network, nil
}

func (d *MQTTDriver) Kind() model.DriverKind {
	return model.DriverMQTT
}

// request publishes a correlated request on {prefix}/{topic}/get and waits
// for the matching response on {prefix}/{topic}
func (d *MQTTDriver) request(ctx context.Context, topic string, out interface{}) error {
	d.mu.Lock()
	client := d.client
	d.mu.Unlock()
	if client == nil {
		return fmt.Errorf("%w: mqtt client closed", ErrConnectFailed)
	}

	responseTopic := d.cfg.TopicPrefix + "/" + topic
	requestTopic := responseTopic + requestSuffix

	if err := d.ensureSubscribed(client, responseTopic); err != nil {
		return err
	}

	req := &pendingRequest{
		correlationID: uuid.NewString(),
		response:      make(chan []byte, 1),
	}
	d.addPending(responseTopic, req)
	defer d.removePending(responseTopic, req)

	payload, err := json.Marshal(correlationEnvelope{CorrelationID: req.correlationID})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	timer := time.NewTimer(d.cfg.RequestTimeout)
	defer timer.Stop()

	token := client.Publish(requestTopic, 1, false, payload)
	if token.WaitTimeout(d.cfg.RequestTimeout) && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", requestTopic, token.Error())
	}

	select {
	case body := <-req.response:
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, responseTopic, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: no response on %s within %s", ErrRequestTimeout, responseTopic, d.cfg.RequestTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *MQTTDriver) ensureSubscribed(client mqtt.Client, topic string) error {
	d.mu.Lock()
	done := d.subscribed[topic]
	d.mu.Unlock()
	if done {
		return nil
	}

	token := client.Subscribe(topic, 1, d.route)
	if !token.WaitTimeout(d.cfg.RequestTimeout) {
		return fmt.Errorf("%w: subscribe %s", ErrRequestTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	d.mu.Lock()
	d.subscribed[topic] = true
	d.mu.Unlock()
	return nil
}

// route hands a response to the pending request it answers. A response
// without a correlation id goes to the oldest request on its topic.
func (d *MQTTDriver) route(_ mqtt.Client, msg mqtt.Message) {
	var envelope correlationEnvelope
	_ = json.Unmarshal(msg.Payload(), &envelope)

	d.mu.Lock()
	defer d.mu.Unlock()

	queue := d.pending[msg.Topic()]
	for i, req := range queue {
		if envelope.CorrelationID != "" && envelope.CorrelationID != req.correlationID {
			continue
		}
		d.pending[msg.Topic()] = append(queue[:i:i], queue[i+1:]...)
		req.response <- msg.Payload()
		return
	}

	d.logger.Debug("Dropping unmatched MQTT message",
		zap.String("topic", msg.Topic()),
		zap.String("correlation_id", envelope.CorrelationID),
	)
}

func (d *MQTTDriver) addPending(topic string, req *pendingRequest) {
	d.mu.Lock()
	d.pending[topic] = append(d.pending[topic], req)
	d.mu.Unlock()
}

func (d *MQTTDriver) removePending(topic string, req *pendingRequest) {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue := d.pending[topic]
	for i, r := range queue {
		if r == req {
			d.pending[topic] = append(queue[:i:i], queue[i+1:]...)
			break
		}
	}
	if len(d.pending[topic]) == 0 {
		delete(d.pending, topic)
	}
}
