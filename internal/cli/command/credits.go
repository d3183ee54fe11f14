// Package command provides CLI command definitions for keyforge-admin.
package command

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/keyforge/keyforge-go/internal/cli/connection"
	"github.com/keyforge/keyforge-go/internal/cli/output"
)

// CreditsCommand returns the credits subcommand group.
func CreditsCommand() *cli.Command {
	return &cli.Command{
		Name:  "credits",
		Usage: "Credit ledger operations",
		Subcommands: []*cli.Command{
			{
				Name:   "balance",
				Usage:  "Show the current balance",
				Action: creditsBalance,
			},
			{
				Name:  "buy",
				Usage: "Purchase credits for the logged-in account",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Credit amount"},
				},
				Action: creditsBuy,
			},
			{
				Name:  "grant",
				Usage: "Grant credits to an account (admin plus root secret)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user-id", Aliases: []string{"u"}, Required: true, Usage: "Target user ID"},
					&cli.Int64Flag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Credit amount"},
				},
				Action: creditsGrant,
			},
			{
				Name:  "transfer",
				Usage: "Move credits to another account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Required: true, Usage: "Recipient user ID"},
					&cli.Int64Flag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Credit amount"},
					&cli.StringFlag{Name: "from", Usage: "Source user ID (admin only, defaults to self)"},
				},
				Action: creditsTransfer,
			},
		},
	}
}

type balanceChange struct {
	UserID     string `json:"user_id"`
	OldBalance int64  `json:"old_balance"`
	NewBalance int64  `json:"new_balance"`
}

func creditsBalance(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Get(ctx, "/credits")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		UserID  string `json:"user_id"`
		Credits int64  `json:"credits"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) != output.FormatTable {
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, result)
	}
	fmt.Printf("Balance: %d credits\n", result.Credits)
	return nil
}

func creditsBuy(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Post(ctx, "/credits/buy", map[string]int64{
		"amount": c.Int64("amount"),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result balanceChange
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Balance: %d -> %d credits\n", result.OldBalance, result.NewBalance)
	return nil
}

func creditsGrant(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Post(ctx, "/credits/grant", map[string]any{
		"user_id": c.String("user-id"),
		"amount":  c.Int64("amount"),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result balanceChange
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Granted. %s now holds %d credits.\n", result.UserID, result.NewBalance)
	return nil
}

func creditsTransfer(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	body := map[string]any{
		"to_id":  c.String("to"),
		"amount": c.Int64("amount"),
	}
	if from := c.String("from"); from != "" {
		body["from_id"] = from
	}

	resp, err := client.Post(ctx, "/credits/transfer", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		From balanceChange `json:"from"`
		To   balanceChange `json:"to"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Transferred. %s: %d -> %d, %s: %d -> %d\n",
		result.From.UserID, result.From.OldBalance, result.From.NewBalance,
		result.To.UserID, result.To.OldBalance, result.To.NewBalance)
	return nil
}
