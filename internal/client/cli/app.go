package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrijs2005/hobbyvault/internal/client/client"
	"github.com/dmitrijs2005/hobbyvault/internal/client/config"
	"github.com/dmitrijs2005/hobbyvault/internal/client/credentials"
	"github.com/dmitrijs2005/hobbyvault/internal/logging"
)

type App struct {
	config *config.Config
	client client.Client
	db     *sql.DB
	reader *bufio.Reader
	out    io.Writer
	email  string
}

// NewApp opens the local token database and connects with the configured
// transport.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewJSONLogger(os.Stderr, slog.LevelWarn)

	db, err := client.OpenDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	store := credentials.NewMetadataStore(db)

	var api client.Client
	switch c.Transport {
	case config.TransportGRPC:
		api, err = client.NewGRPCClient(ctx, c.ServerEndpointGRPC, store, logger)
	default:
		api, err = client.NewHTTPClient(ctx, c.ServerEndpointAddr, store, nil, c.RequestTimeout, logger)
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newApp(c, api, db, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, api client.Client, db *sql.DB, in io.Reader, out io.Writer) *App {
	return &App{config: c, client: api, db: db, reader: bufio.NewReader(in), out: out}
}

func (a *App) Close() error {
	err := a.client.Close()
	if a.db != nil {
		if cerr := a.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (a *App) isLoggedIn() bool {
	return a.client.LoggedIn()
}

// Run executes the first non-flag argument as a command, or starts the REPL
// when there is none.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.Close()

	if cmd := commandArg(args); cmd != "" {
		return a.exec(ctx, cmd)
	}

	fmt.Fprintln(a.out, "HobbyVault CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader, a.out)
	return nil
}

// commandArg skips flags and their values.
func commandArg(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) > 0 && arg[0] == '-' {
			if i+1 < len(args) && !strings.Contains(arg, "=") {
				i++
			}
			continue
		}
		return arg
	}
	return ""
}

func (a *App) status() string {
	if !a.isLoggedIn() {
		return "(logged out)"
	}
	if a.email != "" {
		return "(" + a.email + ")"
	}
	return "(logged in)"
}
