// Package mqtt adapts the broker topics carrying prices, forecasts and
// sensor state into the provider interfaces the planner consumes, and
// exposes the inverter mode command channel.
package mqtt

import (
	"encoding/json"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/infra/logger"
	"github.com/kilianp07/hems/internal/eventbus"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Client maintains the broker connection and the latest retained telemetry.
// It implements the planner's price, forecast and sensor providers plus the
// executor's mode applier.
type Client struct {
	cfg Config
	cli pahoClient
	bus *eventbus.Bus[eventbus.Event]
	log logger.Logger

	mu          sync.RWMutex
	buy         []model.PricePoint
	sell        []model.PricePoint
	forecast    []model.ForecastPoint
	batterySoC  float64
	batterySeen bool
	evSoC       float64
	evConnected bool
	evSeen      bool
	currentMode string

	baseBattery model.BatteryState
	baseEV      model.EVState

	ackMu    sync.Mutex
	ackChans map[string]chan struct{}
}

// New connects to the broker and subscribes to the telemetry topics.
// baseBattery and baseEV carry the static ratings from configuration; the
// broker only delivers the live readings.
func New(cfg Config, baseBattery model.BatteryState, baseEV model.EVState, bus *eventbus.Bus[eventbus.Event]) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt")
	c := &Client{
		cfg:         cfg,
		bus:         bus,
		log:         log,
		baseBattery: baseBattery,
		baseEV:      baseEV,
		ackChans:    make(map[string]chan struct{}),
	}

	opts.OnConnect = func(pc paho.Client) {
		log.Infof("MQTT connected")
		c.subscribeAll(pc)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	c.cli = cli
	return c, nil
}

// NewClientOptions builds paho client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

func (c *Client) subscribeAll(pc paho.Client) {
	subs := []struct {
		topic   string
		role    string
		handler paho.MessageHandler
	}{
		{c.cfg.Topics.BuyPrices, "telemetry", c.onBuyPrices},
		{c.cfg.Topics.SellPrices, "telemetry", c.onSellPrices},
		{c.cfg.Topics.Forecast, "telemetry", c.onForecast},
		{c.cfg.Topics.Battery, "telemetry", c.onBattery},
		{c.cfg.Topics.EV, "telemetry", c.onEV},
		{c.cfg.Topics.ModeState, "mode", c.onModeState},
		{c.cfg.Topics.ModeAck, "ack", c.onModeAck},
	}
	for _, s := range subs {
		if token := pc.Subscribe(s.topic, c.cfg.qosFor(s.role), s.handler); token.Wait() && token.Error() != nil {
			c.log.Errorf("subscribe %s: %v", s.topic, token.Error())
		}
	}
}

func (c *Client) onBuyPrices(_ paho.Client, msg paho.Message) {
	var points []model.PricePoint
	if err := json.Unmarshal(msg.Payload(), &points); err != nil {
		c.log.Errorf("decode buy prices: %v", err)
		return
	}
	c.mu.Lock()
	c.buy = points
	c.mu.Unlock()
	c.log.Debugf("received %d buy price points", len(points))
	c.publishEvent(eventbus.PricesUpdated, "buy")
}

func (c *Client) onSellPrices(_ paho.Client, msg paho.Message) {
	var points []model.PricePoint
	if err := json.Unmarshal(msg.Payload(), &points); err != nil {
		c.log.Errorf("decode sell prices: %v", err)
		return
	}
	c.mu.Lock()
	c.sell = points
	c.mu.Unlock()
	c.log.Debugf("received %d sell price points", len(points))
	c.publishEvent(eventbus.PricesUpdated, "sell")
}

func (c *Client) onForecast(_ paho.Client, msg paho.Message) {
	var points []model.ForecastPoint
	if err := json.Unmarshal(msg.Payload(), &points); err != nil {
		c.log.Errorf("decode forecast: %v", err)
		return
	}
	c.mu.Lock()
	c.forecast = points
	c.mu.Unlock()
	c.publishEvent(eventbus.ForecastUpdated, "")
}

func (c *Client) onBattery(_ paho.Client, msg paho.Message) {
	var p struct {
		SoC float64 `json:"soc"`
	}
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		c.log.Errorf("decode battery state: %v", err)
		return
	}
	c.mu.Lock()
	c.batterySoC = p.SoC
	c.batterySeen = true
	c.mu.Unlock()
}

func (c *Client) onEV(_ paho.Client, msg paho.Message) {
	var p struct {
		Connected bool    `json:"connected"`
		SoC       float64 `json:"soc"`
	}
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		c.log.Errorf("decode ev state: %v", err)
		return
	}
	c.mu.Lock()
	plugChanged := c.evSeen && c.evConnected != p.Connected
	first := !c.evSeen
	c.evConnected = p.Connected
	c.evSoC = p.SoC
	c.evSeen = true
	c.mu.Unlock()
	if plugChanged || (first && p.Connected) {
		c.log.Infof("ev plug state: connected=%v", p.Connected)
		c.publishEvent(eventbus.EVPlugChanged, "")
	}
}

func (c *Client) onModeState(_ paho.Client, msg paho.Message) {
	c.mu.Lock()
	c.currentMode = string(msg.Payload())
	c.mu.Unlock()
}

func (c *Client) publishEvent(kind eventbus.EventKind, detail string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(eventbus.Event{Kind: kind, Time: time.Now(), Detail: detail})
}

// Disconnect gracefully closes the MQTT connection.
func (c *Client) Disconnect() {
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
}
