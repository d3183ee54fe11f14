package command

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/keyforge/keyforge-go/internal/cli/connection"
	"github.com/keyforge/keyforge-go/internal/cli/output"
)

// productInfo mirrors the server's product envelope payload.
type productInfo struct {
	ID          string    `json:"id" table:"PRODUCT ID"`
	Name        string    `json:"name" table:"NAME"`
	Description string    `json:"description" table:"DESCRIPTION,wide"`
	OwnerID     string    `json:"owner_id" table:"OWNER"`
	Members     []string  `json:"members" table:"-"`
	Keys        []string  `json:"keys" table:"-"`
	CreatedAt   time.Time `json:"created_at" table:"CREATED,wide"`
}

// ProductCommand returns the product subcommand group.
func ProductCommand() *cli.Command {
	return &cli.Command{
		Name:  "product",
		Usage: "Product management",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a product",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Product description"},
				},
				Action: productCreate,
			},
			{
				Name:      "info",
				Usage:     "Show product details",
				ArgsUsage: "PRODUCT_ID",
				Action:    productInfoAction,
			},
			{
				Name:      "rename",
				Usage:     "Rename a product",
				ArgsUsage: "PRODUCT_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "old", Required: true, Usage: "Current product name"},
					&cli.StringFlag{Name: "new", Required: true, Usage: "New product name"},
				},
				Action: productRename,
			},
			{
				Name:      "describe",
				Usage:     "Update the product description",
				ArgsUsage: "PRODUCT_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Required: true, Usage: "New description"},
				},
				Action: productDescribe,
			},
			{
				Name:      "invite",
				Usage:     "Invite a user into the product team",
				ArgsUsage: "PRODUCT_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user-id", Aliases: []string{"u"}, Required: true, Usage: "User to invite"},
				},
				Action: productInvite,
			},
			{
				Name:      "remove",
				Usage:     "Remove a member from the product team",
				ArgsUsage: "PRODUCT_ID USER_ID",
				Action:    productRemove,
			},
			{
				Name:      "transfer",
				Usage:     "Transfer product ownership",
				ArgsUsage: "PRODUCT_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Required: true, Usage: "New owner user ID"},
					&cli.StringFlag{Name: "from", Usage: "Current owner (admin only)"},
				},
				Action: productTransfer,
			},
			{
				Name:      "clear-keys",
				Usage:     "Delete every key issued under a product",
				ArgsUsage: "PRODUCT_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Skip confirmation"},
				},
				Action: productClearKeys,
			},
			{
				Name:      "delete",
				Usage:     "Delete a product and all of its keys",
				ArgsUsage: "PRODUCT_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Skip confirmation"},
				},
				Action: productDelete,
			},
		},
	}
}

func productCreate(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: product create NAME")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Post(ctx, "/products", map[string]string{
		"name":        c.Args().First(),
		"description": c.String("description"),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var product productInfo
	if err := connection.ParseResponse(resp, &product); err != nil {
		return err
	}

	fmt.Printf("Product created.\n  ID:   %s\n  Name: %s\n", product.ID, product.Name)
	return nil
}

func productInfoAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: product info PRODUCT_ID")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Get(ctx, "/products/"+c.Args().First())
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var product productInfo
	if err := connection.ParseResponse(resp, &product); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) != output.FormatTable {
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, product)
	}

	fmt.Printf("Product:     %s\n", product.ID)
	fmt.Printf("Name:        %s\n", product.Name)
	if product.Description != "" {
		fmt.Printf("Description: %s\n", product.Description)
	}
	fmt.Printf("Owner:       %s\n", product.OwnerID)
	fmt.Printf("Members:     %s\n", formatIDList(product.Members))
	fmt.Printf("Keys:        %d\n", len(product.Keys))
	fmt.Printf("Created:     %s\n", product.CreatedAt.Format(time.RFC3339))
	return nil
}

func productRename(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: product rename PRODUCT_ID --old NAME --new NAME")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Post(ctx, "/products/"+c.Args().First()+"/rename", map[string]string{
		"old_name": c.String("old"),
		"new_name": c.String("new"),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var product productInfo
	if err := connection.ParseResponse(resp, &product); err != nil {
		return err
	}

	fmt.Printf("Product %s renamed to %q.\n", truncateID(product.ID), product.Name)
	return nil
}

func productDescribe(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: product describe PRODUCT_ID --description TEXT")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Post(ctx, "/products/"+c.Args().First()+"/describe", map[string]string{
		"description": c.String("description"),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var product productInfo
	if err := connection.ParseResponse(resp, &product); err != nil {
		return err
	}

	fmt.Printf("Description updated for %s.\n", truncateID(product.ID))
	return nil
}

func productInvite(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: product invite PRODUCT_ID --user-id USER_ID")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Post(ctx, "/products/"+c.Args().First()+"/members", map[string]string{
		"user_id": c.String("user-id"),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var product productInfo
	if err := connection.ParseResponse(resp, &product); err != nil {
		return err
	}

	fmt.Printf("Invited. %s now has %d members.\n", truncateID(product.ID), len(product.Members))
	return nil
}

func productRemove(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: product remove PRODUCT_ID USER_ID")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Delete(ctx, "/products/"+c.Args().Get(0)+"/members/"+c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var product productInfo
	if err := connection.ParseResponse(resp, &product); err != nil {
		return err
	}

	fmt.Printf("Removed. %s now has %d members.\n", truncateID(product.ID), len(product.Members))
	return nil
}

func productTransfer(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: product transfer PRODUCT_ID --to USER_ID")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	body := map[string]string{"target_id": c.String("to")}
	if from := c.String("from"); from != "" {
		body["from_id"] = from
	}

	resp, err := client.Post(ctx, "/products/"+c.Args().First()+"/transfer", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var product productInfo
	if err := connection.ParseResponse(resp, &product); err != nil {
		return err
	}

	fmt.Printf("Ownership of %s transferred to %s.\n", truncateID(product.ID), product.OwnerID)
	return nil
}

func productClearKeys(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: product clear-keys PRODUCT_ID")
	}
	productID := c.Args().First()

	if !c.Bool("force") {
		fmt.Printf("Delete ALL keys under product %s? [y/N]: ", productID)
		var answer string
		fmt.Scanln(&answer)
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Delete(ctx, "/products/"+productID+"/keys")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Cleared int `json:"cleared"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Cleared %d keys.\n", result.Cleared)
	return nil
}

func productDelete(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: product delete PRODUCT_ID")
	}
	productID := c.Args().First()

	if !c.Bool("force") {
		fmt.Printf("Delete product %s and all of its keys? [y/N]: ", productID)
		var answer string
		fmt.Scanln(&answer)
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Delete(ctx, "/products/"+productID)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	fmt.Printf("Product %s deleted.\n", productID)
	return nil
}

// formatIDList renders a member list for the table view, truncating each ID.
func formatIDList(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	short := make([]string, len(ids))
	for i, id := range ids {
		short[i] = truncateID(id)
	}
	return strings.Join(short, ", ")
}
