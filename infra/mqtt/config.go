package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Topics names the broker topics the service listens and publishes on.
type Topics struct {
	BuyPrices   string `json:"buy_prices"`
	SellPrices  string `json:"sell_prices"`
	Forecast    string `json:"forecast"`
	Battery     string `json:"battery"`
	EV          string `json:"ev"`
	ModeCommand string `json:"mode_command"`
	ModeState   string `json:"mode_state"`
	ModeAck     string `json:"mode_ack"`
}

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker       string          `json:"broker"`
	ClientID     string          `json:"client_id"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	UseTLS       bool            `json:"use_tls"`
	ClientCert   string          `json:"client_cert"`
	ClientKey    string          `json:"client_key"`
	CABundle     string          `json:"ca_bundle"`
	QoS          map[string]byte `json:"qos"`
	AckTimeoutMS int             `json:"ack_timeout_ms"`
	Topics       Topics          `json:"topics"`
	TLSConfig    *tls.Config     `json:"-"`
}

// SetDefaults fills the topic namespace and connection defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "hems"
	}
	if c.AckTimeoutMS <= 0 {
		c.AckTimeoutMS = 5000
	}
	t := &c.Topics
	if t.BuyPrices == "" {
		t.BuyPrices = "hems/prices/buy"
	}
	if t.SellPrices == "" {
		t.SellPrices = "hems/prices/sell"
	}
	if t.Forecast == "" {
		t.Forecast = "hems/forecast/solar"
	}
	if t.Battery == "" {
		t.Battery = "hems/battery/state"
	}
	if t.EV == "" {
		t.EV = "hems/ev/state"
	}
	if t.ModeCommand == "" {
		t.ModeCommand = "hems/inverter/mode/set"
	}
	if t.ModeState == "" {
		t.ModeState = "hems/inverter/mode"
	}
	if t.ModeAck == "" {
		t.ModeAck = "hems/inverter/mode/ack"
	}
}

// Validate checks the connection parameters.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	if c.UseTLS && c.TLSConfig == nil {
		if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
			return fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
		}
	}
	return nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (c Config) qosFor(role string) byte {
	if q, ok := c.QoS[role]; ok {
		return q
	}
	return 0
}
