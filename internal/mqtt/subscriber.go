package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"rectifier-monitor/internal/models"
)

// Handlers contains the callbacks for the push side of the backend. Each
// telemetry message is one newly inserted row; a work-log event only signals
// that the table changed.
type Handlers struct {
	OnTelemetry     func(models.TelemetryRow)
	OnWorkLogChange func()
}

// Subscriber holds the MQTT connection and the change-notification
// subscriptions for the monitor.
type Subscriber struct {
	client mqtt.Client

	telemetryTopic string
	workLogTopic   string

	handlers Handlers
}

// Config holds MQTT subscriber configuration
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string

	TelemetryTopic string // e.g. "rectifier/telemetry"
	WorkLogTopic   string // e.g. "worklog/events"
}

// NewSubscriber connects to the broker. Subscriptions are established
// separately via SubscribeAll so handlers can be wired first.
func NewSubscriber(config Config) (*Subscriber, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetOnConnectHandler(connectHandler)
	opts.SetConnectionLostHandler(connectLostHandler)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Println("Connected to MQTT broker:", config.Broker)

	return &Subscriber{
		client:         client,
		telemetryTopic: config.TelemetryTopic,
		workLogTopic:   config.WorkLogTopic,
	}, nil
}

// SetHandlers sets the message handlers. Must be called before SubscribeAll.
func (s *Subscriber) SetHandlers(handlers Handlers) {
	s.handlers = handlers
}

// SubscribeAll subscribes to all configured topics.
func (s *Subscriber) SubscribeAll() error {
	if s.telemetryTopic != "" {
		if err := s.subscribeToTopic(s.telemetryTopic, s.handleTelemetry); err != nil {
			return fmt.Errorf("failed to subscribe to telemetry topic: %w", err)
		}
		log.Printf("Subscribed to telemetry topic: %s", s.telemetryTopic)
	}

	if s.workLogTopic != "" {
		if err := s.subscribeToTopic(s.workLogTopic, s.handleWorkLogEvent); err != nil {
			return fmt.Errorf("failed to subscribe to work-log topic: %w", err)
		}
		log.Printf("Subscribed to work-log topic: %s", s.workLogTopic)
	}

	return nil
}

// Unsubscribe drops all active subscriptions. Called before re-subscribing
// with a changed topic set and on shutdown, so no stale channel keeps
// delivering.
func (s *Subscriber) Unsubscribe() error {
	topics := make([]string, 0, 2)
	if s.telemetryTopic != "" {
		topics = append(topics, s.telemetryTopic)
	}
	if s.workLogTopic != "" {
		topics = append(topics, s.workLogTopic)
	}
	if len(topics) == 0 {
		return nil
	}

	token := s.client.Unsubscribe(topics...)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe: %w", token.Error())
	}
	log.Printf("Unsubscribed from topics: %v", topics)
	return nil
}

// subscribeToTopic is a helper function to subscribe to a topic with a handler
func (s *Subscriber) subscribeToTopic(topic string, handler mqtt.MessageHandler) error {
	token := s.client.Subscribe(topic, 1, handler)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// handleTelemetry parses one inserted telemetry row and hands it to the
// view models.
func (s *Subscriber) handleTelemetry(client mqtt.Client, msg mqtt.Message) {
	var payload struct {
		ID         int64    `json:"id"`
		SlaveID    int      `json:"slave_id"`
		Voltage    *float64 `json:"voltage"`
		Current    *float64 `json:"current"`
		StatusCode *string  `json:"status_code"`
		Timestamp  string   `json:"timestamp"`
	}

	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		log.Printf("Error unmarshaling telemetry row: %v", err)
		return
	}

	// Rows arrive with ISO-8601 timestamps; fall back to receive time when
	// the field is missing or malformed.
	timestamp, err := time.Parse(time.RFC3339, payload.Timestamp)
	if err != nil {
		timestamp = time.Now()
	}

	row := models.TelemetryRow{
		ID:         payload.ID,
		SlaveID:    payload.SlaveID,
		Voltage:    payload.Voltage,
		Current:    payload.Current,
		StatusCode: payload.StatusCode,
		Timestamp:  timestamp,
	}

	if s.handlers.OnTelemetry != nil {
		s.handlers.OnTelemetry(row)
	}
}

// handleWorkLogEvent signals a work-log table change; the payload is not
// inspected.
func (s *Subscriber) handleWorkLogEvent(client mqtt.Client, msg mqtt.Message) {
	if s.handlers.OnWorkLogChange != nil {
		s.handlers.OnWorkLogChange()
	}
}

// Close closes the MQTT client connection
func (s *Subscriber) Close() {
	s.client.Disconnect(250)
	log.Println("MQTT subscriber disconnected")
}

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Println("MQTT client connected")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Printf("MQTT connection lost: %v", err)
}
