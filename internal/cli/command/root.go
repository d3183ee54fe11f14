// Package command provides CLI command definitions for keyforge-admin.
//
// It uses urfave/cli/v2 for command parsing and supports both
// single-command mode and interactive REPL mode.
package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/keyforge/keyforge-go/internal/cli/connection"
	"github.com/keyforge/keyforge-go/internal/cli/repl"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:    "keyforge-admin",
		Usage:   "Keyforge command-line management tool",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			AuthCommand(),
			UserCommand(),
			CreditsCommand(),
			ProductCommand(),
			KeyCommand(),
			SystemCommand(),
			SecretCommand(),
			replCommand(),
		},
		Before: func(c *cli.Context) error {
			mgr, err := connection.NewManager(c.String("config"))
			if err != nil {
				return err
			}
			c.App.Metadata["connMgr"] = mgr
			return nil
		},
	}

	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Keyforge server address (e.g., localhost:5090)",
			EnvVars: []string{"KEYFORGE_SERVER"},
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "Login token (overrides the saved one)",
			EnvVars: []string{"KEYFORGE_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "root-secret",
			Usage:   "Root capability secret for gated operations",
			EnvVars: []string{"KEYFORGE_ROOT_SECRET"},
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI config file path",
			EnvVars: []string{"KEYFORGE_CLI_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "socket",
			Usage:   "Local management socket path",
			EnvVars: []string{"KEYFORGE_SOCKET"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server     string
	Token      string
	RootSecret string

	Output string // table, json, yaml
	Wide   bool
}

// ParseGlobalFlags extracts global flags from context, falling back to
// the saved session for server and token.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	flags := &GlobalFlags{
		Server:     c.String("server"),
		Token:      c.String("token"),
		RootSecret: c.String("root-secret"),
		Output:     c.String("output"),
		Wide:       c.Bool("wide"),
	}

	if mgr := GetConnectionManager(c); mgr != nil {
		cfg := mgr.Config()
		if flags.Server == "" {
			flags.Server = cfg.Server
		}
		if flags.Token == "" {
			flags.Token = cfg.Token
		}
		if flags.Output == "table" && cfg.Output != "" {
			flags.Output = cfg.Output
		}
	}

	return flags
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata["connMgr"].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// EnsureConnected builds the HTTP client from flags and the saved
// session.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, error) {
	flags := ParseGlobalFlags(c)
	if flags.Server == "" {
		return nil, fmt.Errorf("no server configured (use --server or auth login)")
	}
	return connection.NewHTTPClient(flags.Server, flags.Token, flags.RootSecret), nil
}

// socketPath resolves the local management socket path.
func socketPath(c *cli.Context) string {
	if path := c.String("socket"); path != "" {
		return path
	}
	if mgr := GetConnectionManager(c); mgr != nil && mgr.Config().Socket != "" {
		return mgr.Config().Socket
	}
	return "/var/run/keyforge-server/keyforge-server.sock"
}

// replCommand returns the interactive mode command.
func replCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Start interactive mode",
		Action: func(c *cli.Context) error {
			r := repl.New(func(args []string) error {
				return c.App.Run(append([]string{c.App.Name}, args...))
			})
			return r.Run()
		},
	}
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

// truncateID truncates long IDs for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:13] + "..."
}
