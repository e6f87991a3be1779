package config

import (
	"fmt"
	"time"
)

const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Config holds runtime settings for the HobbyVault CLI.
type Config struct {
	ServerEndpointAddr string
	ServerEndpointGRPC string
	Transport          string
	DatabaseDSN        string
	RequestTimeout     time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.ServerEndpointGRPC = "127.0.0.1:50051"
	c.Transport = TransportHTTP
	c.DatabaseDSN = "hobbyvault.db"
	c.RequestTimeout = 10 * time.Second
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportHTTP, TransportGRPC:
		return nil
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
}

// LoadConfig applies defaults, then JSON (if -c is given), then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
