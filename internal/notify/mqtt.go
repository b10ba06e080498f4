package notify

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const publishWait = 5 * time.Second

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// MQTTPublisher publishes events to {topic}/{flow}.
type MQTTPublisher struct {
	conn      mqtt.Client
	topic     string
	connected atomic.Bool
	log       zerolog.Logger
}

type Options struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Username  string
	Password  string
	Log       zerolog.Logger
}

func Connect(opts Options) (*MQTTPublisher, error) {
	p := &MQTTPublisher{
		topic: strings.TrimRight(opts.Topic, "/"),
		log:   opts.Log,
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	p.conn = mqtt.NewClient(clientOpts)
	token := p.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *MQTTPublisher) onConnect(_ mqtt.Client) {
	p.connected.Store(true)
	p.log.Info().Str("topic", p.topic).Msg("mqtt connected")
}

func (p *MQTTPublisher) onConnectionLost(_ mqtt.Client, err error) {
	p.connected.Store(false)
	p.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

// Publish sends ev with QoS 1 and waits for the broker ack, bounded by ctx
// and a fixed ceiling.
func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := ev.payload()
	if err != nil {
		return err
	}
	token := p.conn.Publish(p.Topic(ev.Flow), 1, false, payload)

	wait := publishWait
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < wait {
		wait = time.Until(dl)
	}
	if !token.WaitTimeout(wait) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// Topic returns the topic a flow's events go to.
func (p *MQTTPublisher) Topic(flow string) string {
	if flow == "" {
		return p.topic
	}
	return p.topic + "/" + flow
}

func (p *MQTTPublisher) IsConnected() bool {
	return p.connected.Load()
}

func (p *MQTTPublisher) Close() {
	p.log.Info().Msg("disconnecting mqtt client")
	p.conn.Disconnect(1000)
}
