package mqttingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/aquasense/tds-monitor/internal/pkg/config"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/logging"
	"github.com/aquasense/tds-monitor/internal/pkg/ingest"
	"github.com/aquasense/tds-monitor/pkg/types"
)

// DeviceIPSentinel marks readings that arrived over the broker, where
// no peer address is observable.
const DeviceIPSentinel = "mqtt"

// Subscriber ingests readings published to a broker topic. The
// payload is the same JSON body the HTTP transport accepts.
type Subscriber interface {
	Start(ctx context.Context) error
	Stop()
}

func New(cfg config.MQTTConfig, appender ingest.Appender) Subscriber {
	return &subscriber{
		cfg:      cfg,
		appender: appender,
	}
}

type subscriber struct {
	cfg      config.MQTTConfig
	appender ingest.Appender
	client   mqtt.Client
}

func (s *subscriber) Start(ctx context.Context) error {
	log := logging.GetLoggerFromContext(ctx)

	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetKeepAlive(30 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	}

	opts.OnConnect = func(c mqtt.Client) {
		log.Info().Str("topic", s.cfg.Topic).Msg("mqtt connected, subscribing")
		token := c.Subscribe(s.cfg.Topic, 1, s.messageHandler(ctx))
		if token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", s.cfg.Topic).Msg("mqtt subscribe failed")
		}
	}

	s.client = mqtt.NewClient(opts)

	token := s.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to mqtt broker %s: %w", s.cfg.Broker, token.Error())
	}

	return nil
}

func (s *subscriber) Stop() {
	if s.client != nil {
		s.client.Disconnect(250)
	}
}

// messageHandler handles one published payload. A malformed payload
// is logged and dropped; the subscription stays alive.
func (s *subscriber) messageHandler(ctx context.Context) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		log := logging.GetLoggerFromContext(ctx)

		payload := types.IngestPayload{}
		err := json.Unmarshal(msg.Payload(), &payload)
		if err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("skipping malformed mqtt payload")
			return
		}

		obs, err := ingest.FromPayload(payload, DeviceIPSentinel)
		if err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("skipping invalid mqtt payload")
			return
		}

		err = obs.Store(ctx, s.appender)
		if err != nil {
			log.Error().Err(err).Str("device_id", obs.DeviceID).Msg("failed to store mqtt reading")
		}
	}
}
