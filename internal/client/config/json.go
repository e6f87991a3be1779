package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/hobbyvault/internal/flagx"
	"github.com/dmitrijs2005/hobbyvault/internal/timex"
)

// JsonConfig is the on-disk shape of the CLI configuration. Keys missing
// from the file keep their current values.
type JsonConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr"`
	ServerEndpointGRPC *string         `json:"server_endpoint_grpc"`
	Transport          *string         `json:"transport"`
	DatabaseDSN        *string         `json:"database_dsn"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
}

// parseJson panics on an unreadable file or invalid JSON.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JSONConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	for dst, src := range map[*string]*string{
		&cfg.ServerEndpointAddr: jc.ServerEndpointAddr,
		&cfg.ServerEndpointGRPC: jc.ServerEndpointGRPC,
		&cfg.Transport:          jc.Transport,
		&cfg.DatabaseDSN:        jc.DatabaseDSN,
	} {
		if src != nil {
			*dst = *src
		}
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
