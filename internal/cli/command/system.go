package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/keyforge/keyforge-go/internal/cli/connection"
	"github.com/keyforge/keyforge-go/internal/cli/output"
)

// SystemCommand returns the system subcommand group. Most of these talk
// to the server's local admin socket and therefore only work on the
// host the server runs on.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:  "system",
		Usage: "Server health and maintenance",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check the HTTP health endpoint",
				Action: systemHealth,
			},
			{
				Name:   "status",
				Usage:  "Show server status via the admin socket",
				Action: systemStatus,
			},
			{
				Name:   "sweep",
				Usage:  "Run an expiry sweep now",
				Action: systemSweep,
			},
			{
				Name:   "gc",
				Usage:  "Run storage garbage collection now",
				Action: systemGC,
			},
			{
				Name:      "backup",
				Usage:     "Write an encrypted backup to a file on the server host",
				ArgsUsage: "PATH",
				Action:    systemBackup,
			},
			{
				Name:      "restore",
				Usage:     "Restore an encrypted backup from a file on the server host",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Skip confirmation"},
				},
				Action: systemRestore,
			},
		},
	}
}

func systemHealth(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Server is %s.\n", result.Status)
	return nil
}

// socketExec runs one admin-socket command, strips the OK prefix and
// returns the rest of the reply.
func socketExec(c *cli.Context, cmd string) (string, error) {
	client := connection.NewSocketClient(socketPath(c))
	reply, err := client.Execute(cmd)
	if err != nil {
		return "", fmt.Errorf("socket command failed: %w", err)
	}
	if rest, ok := strings.CutPrefix(reply, "ERR "); ok {
		return "", fmt.Errorf("server: %s", rest)
	}
	reply = strings.TrimPrefix(reply, "OK")
	return strings.TrimSpace(reply), nil
}

func systemStatus(c *cli.Context) error {
	reply, err := socketExec(c, "status")
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func systemSweep(c *cli.Context) error {
	spinner := output.NewSpinner(os.Stdout, "Sweeping expired keys")
	spinner.Start()
	reply, err := socketExec(c, "sweep")
	if err != nil {
		spinner.Fail("Sweep failed")
		return err
	}
	spinner.Success(reply)
	return nil
}

func systemGC(c *cli.Context) error {
	spinner := output.NewSpinner(os.Stdout, "Running garbage collection")
	spinner.Start()
	reply, err := socketExec(c, "gc")
	if err != nil {
		spinner.Fail("GC failed")
		return err
	}
	spinner.Success(reply)
	return nil
}

func systemBackup(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: system backup PATH")
	}

	spinner := output.NewSpinner(os.Stdout, "Writing backup")
	spinner.Start()
	reply, err := socketExec(c, "backup "+c.Args().First())
	if err != nil {
		spinner.Fail("Backup failed")
		return err
	}
	spinner.Success(reply)
	return nil
}

func systemRestore(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: system restore PATH")
	}

	if !c.Bool("force") {
		fmt.Print("Restoring replaces the live dataset. Continue? [y/N]: ")
		var answer string
		fmt.Scanln(&answer)
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	spinner := output.NewSpinner(os.Stdout, "Restoring backup")
	spinner.Start()
	reply, err := socketExec(c, "restore "+c.Args().First())
	if err != nil {
		spinner.Fail("Restore failed")
		return err
	}
	spinner.Success(reply)
	return nil
}
