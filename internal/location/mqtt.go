package location

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/goldenhour/internal/events"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
)

// MQTTName is the source name of MQTTSource.
const MQTTName = "mqtt"

const (
	mqttTimeout          = 10 * time.Second
	publishTimeout       = 5 * time.Second
	connectRetryInterval = 30 * time.Second
)

// MQTTConfig describes the broker and topics of an OwnTracks device.
type MQTTConfig struct {
	Broker       string
	Topic        string
	CommandTopic string
	ClientID     string
	Username     string
	Password     string
}

// MQTTSource subscribes to OwnTracks location messages.
type MQTTSource struct {
	cfg   MQTTConfig
	bus   Publisher
	clock clockwork.Clock

	// connectWait bounds how long Start waits for the first connection.
	connectWait time.Duration

	mu     sync.Mutex
	client mqtt.Client
	ctx    context.Context
}

// NewMQTTSource returns an unconnected source.
func NewMQTTSource(cfg MQTTConfig, bus Publisher, clock clockwork.Clock) *MQTTSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "goldenhour"
	}
	return &MQTTSource{cfg: cfg, bus: bus, clock: clock, connectWait: mqttTimeout, ctx: context.Background()}
}

func (s *MQTTSource) Name() string { return MQTTName }

// Authorized reports whether the broker connection is up.
func (s *MQTTSource) Authorized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && s.client.IsConnectionOpen()
}

// Start connects to the broker and subscribes on every (re)connect. An
// unreachable broker is not an error: the client keeps retrying in the
// background and the source becomes authorized once it connects.
func (s *MQTTSource) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetConnectTimeout(mqttTimeout).
		SetOnConnectHandler(s.subscribe).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("MQTT connection lost", logfields.Source(MQTTName), logfields.Error(err))
			s.publish(events.AuthorizationChanged{Source: MQTTName, Authorized: false})
		})
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	client := mqtt.NewClient(opts)
	s.mu.Lock()
	s.client = client
	s.ctx = ctx
	s.mu.Unlock()

	token := client.Connect()
	if !token.WaitTimeout(s.connectWait) {
		slog.Warn("MQTT broker unreachable, retrying in background",
			slog.String("broker", s.cfg.Broker),
			slog.Duration("retry_interval", connectRetryInterval))
		return nil
	}
	if err := token.Error(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryLocation, "failed to connect to MQTT broker").
			WithContext("broker", s.cfg.Broker).
			NextCycle().
			Build()
	}
	slog.Info("MQTT location source connected",
		slog.String("broker", s.cfg.Broker),
		slog.String("topic", s.cfg.Topic))
	return nil
}

func (s *MQTTSource) subscribe(c mqtt.Client) {
	token := c.Subscribe(s.cfg.Topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		s.handle(msg.Payload())
	})
	if !token.WaitTimeout(mqttTimeout) || token.Error() != nil {
		slog.Error("MQTT subscribe failed",
			slog.String("topic", s.cfg.Topic),
			logfields.Error(token.Error()))
		return
	}
	s.publish(events.AuthorizationChanged{Source: MQTTName, Authorized: true})
}

// handle turns a raw payload into a bus event.
func (s *MQTTSource) handle(payload []byte) {
	coord, ok, err := parseOwnTracks(payload)
	switch {
	case err != nil:
		s.publish(events.LocationFailed{Source: MQTTName, Err: err})
	case ok:
		s.publish(events.LocationUpdated{Coordinate: coord, Source: MQTTName, ReceivedAt: s.clock.Now()})
	}
}

func (s *MQTTSource) publish(evt any) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, publishTimeout)
	defer cancel()
	if err := s.bus.Publish(ctx, evt); err != nil {
		slog.Warn("Dropping location event", logfields.Source(MQTTName), logfields.Error(err))
	}
}

// Request publishes the OwnTracks reportLocation command.
func (s *MQTTSource) Request(context.Context) error {
	if s.cfg.CommandTopic == "" {
		// The device reports on its own schedule.
		return nil
	}
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil || !client.IsConnectionOpen() {
		return ferrors.LocationError("MQTT source not connected").NextCycle().Build()
	}

	data, err := json.Marshal(reportLocation)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode location command").Build()
	}
	token := client.Publish(s.cfg.CommandTopic, 1, false, data)
	if !token.WaitTimeout(mqttTimeout) {
		return ferrors.LocationError("timed out requesting location").NextCycle().Build()
	}
	if err := token.Error(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryLocation, "failed to request location").
			WithContext("topic", s.cfg.CommandTopic).
			NextCycle().
			Build()
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client != nil {
		client.Disconnect(250)
	}
	return nil
}
