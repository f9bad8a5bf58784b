package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/nais/kafka-topic-backup/internal/apperr"
)

// BrokerConfig carries the broker bootstrap list, consumer group identity,
// and mutual-TLS material paths for the Kafka connection.
type BrokerConfig struct {
	BootstrapServers []string
	GroupID          string
	SSLCertPath      string
	SSLKeyPath       string
	SSLRootCertPath  string
}

// LoadBrokerConfig reads broker connection settings from environment
// variables named "<prefix>_<VAR>".
func LoadBrokerConfig(prefix string) (BrokerConfig, error) {
	get := func(name string) (string, error) {
		key := prefix + "_" + name
		v, ok := os.LookupEnv(key)
		if !ok {
			return "", apperr.New(apperr.DomainConfig, name, fmt.Errorf("environment variable %s is not set", key))
		}
		return v, nil
	}

	var cfg BrokerConfig
	var err error

	bootstrap, err := get("BROKERS")
	if err != nil {
		return BrokerConfig{}, err
	}
	for _, s := range strings.Split(bootstrap, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			cfg.BootstrapServers = append(cfg.BootstrapServers, s)
		}
	}
	if len(cfg.BootstrapServers) == 0 {
		return BrokerConfig{}, apperr.New(apperr.DomainConfig, "BROKERS", fmt.Errorf("no bootstrap servers configured"))
	}

	if cfg.GroupID, err = get("GROUP_ID"); err != nil {
		return BrokerConfig{}, err
	}
	if cfg.SSLCertPath, err = get("SSLCERT"); err != nil {
		return BrokerConfig{}, err
	}
	if cfg.SSLKeyPath, err = get("SSLKEY"); err != nil {
		return BrokerConfig{}, err
	}
	if cfg.SSLRootCertPath, err = get("SSLROOTCERT"); err != nil {
		return BrokerConfig{}, err
	}
	return cfg, nil
}

// OTLPEndpoint returns the configured OTLP collector endpoint, defaulting to
// the local collector address per spec.
func OTLPEndpoint() string {
	if v, ok := os.LookupEnv("OTEL_EXPORTER_OTLP_ENDPOINT"); ok && v != "" {
		return v
	}
	return "http://localhost:4317"
}
