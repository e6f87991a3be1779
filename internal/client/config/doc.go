// Package config loads runtime configuration for the HobbyVault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the HTTP API
//	-g string   host:port of the gRPC API
//	-t string   transport: http or grpc
//	-d string   SQLite file that keeps the token pair between runs
//	-o int      request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "http://127.0.0.1:8080",
//	  "server_endpoint_grpc": "127.0.0.1:50051",
//	  "transport": "grpc",
//	  "database_dsn": "hobbyvault.db",
//	  "request_timeout": "10s"
//	}
package config
