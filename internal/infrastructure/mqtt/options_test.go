package mqtt

import (
	"strings"
	"testing"

	"github.com/bluetracehq/bluetrace/internal/infrastructure/config"
)

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "broker.local",
			Port:     1883,
			ClientID: "bluetrace-core",
		},
		Auth: config.MQTTAuthConfig{
			Username: "core",
			Password: "secret",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://broker.local:1883" {
		t.Errorf("broker URL = %v, want tcp://broker.local:1883", opts.Servers)
	}
	if opts.ClientID != "bluetrace-core" {
		t.Errorf("ClientID = %q, want bluetrace-core", opts.ClientID)
	}
	if opts.Username != "core" {
		t.Errorf("Username = %q, want core", opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect not enabled")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host: "broker.local",
			Port: 8883,
			TLS:  true,
		},
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].Scheme != "ssl" {
		t.Errorf("broker scheme = %v, want ssl", opts.Servers)
	}
	if opts.TLSConfig == nil {
		t.Fatal("TLSConfig not set for TLS broker")
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 1883, ClientID: "bluetrace-core"},
	}
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	if !opts.WillEnabled {
		t.Fatal("LWT not enabled")
	}
	if opts.WillTopic != "bluetrace/system/status" {
		t.Errorf("will topic = %q, want bluetrace/system/status", opts.WillTopic)
	}
	if !strings.Contains(string(opts.WillPayload), `"status":"offline"`) {
		t.Errorf("will payload = %s, want offline status", opts.WillPayload)
	}
	if !opts.WillRetained {
		t.Error("will message not retained")
	}
}
