package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/flagx"
)

// parseFlags reads only the flags listed in the package doc; the rest of
// os.Args (the command itself, -c) is left to other parsers.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-t", "-d", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the HTTP API")
	fs.StringVar(&cfg.ServerEndpointGRPC, "g", cfg.ServerEndpointGRPC, "address and port of the gRPC API")
	fs.StringVar(&cfg.Transport, "t", cfg.Transport, "transport: http or grpc")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "local token database")
	timeout := fs.Int("o", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "o" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
}
