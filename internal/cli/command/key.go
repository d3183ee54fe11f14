package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/keyforge/keyforge-go/internal/cli/connection"
	"github.com/keyforge/keyforge-go/internal/cli/output"
)

// keyInfo mirrors the server's key envelope payload.
type keyInfo struct {
	ID            string    `json:"id" table:"KEY ID"`
	ProductID     string    `json:"product_id" table:"PRODUCT"`
	CreatorID     string    `json:"creator_id" table:"CREATOR,wide"`
	BeneficiaryID string    `json:"beneficiary_id" table:"BENEFICIARY,wide"`
	Used          bool      `json:"used" table:"USED"`
	Expired       bool      `json:"expired" table:"EXPIRED"`
	HWIDLocked    bool      `json:"hwid_locked" table:"-"`
	CreatedAt     time.Time `json:"created_at" table:"-"`
	ExpiresAt     time.Time `json:"expires_at" table:"EXPIRES,wide"`
}

// KeyCommand returns the key subcommand group.
func KeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "License key operations",
		Subcommands: []*cli.Command{
			{
				Name:      "issue",
				Usage:     "Issue a key under a product (costs credits)",
				ArgsUsage: "PRODUCT_ID",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Aliases: []string{"d"}, Usage: "Validity in days (default 7)"},
					&cli.StringFlag{Name: "for", Usage: "Beneficiary user ID (defaults to the issuer)"},
				},
				Action: keyIssue,
			},
			{
				Name:   "list",
				Usage:  "List keys you have issued",
				Action: keyList,
			},
			{
				Name:      "info",
				Usage:     "Show key details",
				ArgsUsage: "KEY_ID",
				Action:    keyInfoAction,
			},
			{
				Name:      "reveal",
				Usage:     "Reveal the redeemable form of a key",
				ArgsUsage: "KEY_ID",
				Action:    keyReveal,
			},
			{
				Name:      "activate",
				Usage:     "Redeem a key on this machine",
				ArgsUsage: "KEY",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "hwid", Required: true, Usage: "Hardware identifier to lock the key to"},
				},
				Action: keyActivate,
			},
			{
				Name:      "connect",
				Usage:     "Verify a connection token against the server",
				ArgsUsage: "TOKEN",
				Action:    keyConnect,
			},
			{
				Name:      "delete",
				Usage:     "Delete a key",
				ArgsUsage: "KEY_ID",
				Action:    keyDelete,
			},
		},
	}
}

func keyIssue(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: key issue PRODUCT_ID")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	body := map[string]any{}
	if days := c.Int("days"); days > 0 {
		body["days"] = days
	}
	if forID := c.String("for"); forID != "" {
		body["for_user_id"] = forID
	}

	resp, err := client.Post(ctx, "/products/"+c.Args().First()+"/keys", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Key     keyInfo `json:"key"`
		KeyForm string  `json:"key_form"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Key issued.\n  ID:  %s\n  Key: %s\n", result.Key.ID, result.KeyForm)
	fmt.Println("Store the key now; it is shown in full only here and via key reveal.")
	return nil
}

func keyList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Get(ctx, "/keys")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Keys []keyInfo `json:"keys"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	if err := formatter.Format(os.Stdout, result.Keys); err != nil {
		return err
	}
	if output.Format(flags.Output) == output.FormatTable {
		fmt.Printf("\nTotal: %d keys\n", len(result.Keys))
	}
	return nil
}

func keyInfoAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: key info KEY_ID")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Get(ctx, "/keys/"+c.Args().First())
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var key keyInfo
	if err := connection.ParseResponse(resp, &key); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) != output.FormatTable {
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, key)
	}

	fmt.Printf("Key:         %s\n", key.ID)
	fmt.Printf("Product:     %s\n", key.ProductID)
	fmt.Printf("Creator:     %s\n", key.CreatorID)
	fmt.Printf("Beneficiary: %s\n", key.BeneficiaryID)
	fmt.Printf("Used:        %t\n", key.Used)
	fmt.Printf("HWID locked: %t\n", key.HWIDLocked)
	if key.ExpiresAt.IsZero() {
		fmt.Println("Expires:     never")
	} else {
		fmt.Printf("Expires:     %s (expired: %t)\n", key.ExpiresAt.Format(time.RFC3339), key.Expired)
	}
	return nil
}

func keyReveal(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: key reveal KEY_ID")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Get(ctx, "/keys/"+c.Args().First()+"/reveal")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		KeyID   string `json:"key_id"`
		KeyForm string `json:"key_form"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Println(result.KeyForm)
	return nil
}

func keyActivate(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: key activate KEY --hwid HWID")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Post(ctx, "/keys/activate", map[string]string{
		"key":  c.Args().First(),
		"hwid": c.String("hwid"),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Key             keyInfo `json:"key"`
		ConnectionToken string  `json:"connection_token"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Key %s activated.\nConnection token: %s\n", truncateID(result.Key.ID), result.ConnectionToken)
	return nil
}

func keyConnect(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: key connect TOKEN")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Post(ctx, "/connect", map[string]string{
		"connection_token": c.Args().First(),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		KeyID     string `json:"key_id"`
		ProductID string `json:"product_id"`
		CreatorID string `json:"creator_id"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Token valid.\n  Key:     %s\n  Product: %s\n  Creator: %s\n",
		result.KeyID, result.ProductID, result.CreatorID)
	return nil
}

func keyDelete(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: key delete KEY_ID")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Delete(ctx, "/keys/"+c.Args().First())
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	fmt.Printf("Key %s deleted.\n", c.Args().First())
	return nil
}
