// Package command provides CLI command definitions for keyforge-admin.
package command

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/keyforge/keyforge-go/internal/cli/connection"
	"github.com/keyforge/keyforge-go/internal/cli/output"
)

// UserCommand returns the user subcommand group.
func UserCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "User administration",
		Subcommands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Show a user record (self or admin)",
				ArgsUsage: "USER_ID",
				Action:    userInfoAction,
			},
			{
				Name:      "search",
				Usage:     "Search users by username or email",
				ArgsUsage: "QUERY",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum results"},
				},
				Action: userSearch,
			},
			{
				Name:      "elevate",
				Usage:     "Grant admin authority (admin only)",
				ArgsUsage: "USER_ID",
				Action:    userElevate,
			},
			{
				Name:      "demote",
				Usage:     "Revoke admin authority (admin plus root secret)",
				ArgsUsage: "USER_ID",
				Action:    userDemote,
			},
			{
				Name:      "delete",
				Usage:     "Delete an account and everything it owns",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Skip confirmation"},
				},
				Action: userDelete,
			},
		},
	}
}

func userInfoAction(c *cli.Context) error {
	userID := c.Args().First()
	if userID == "" {
		return fmt.Errorf("user ID required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Get(ctx, "/users/"+userID)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result userInfo
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, result)
}

func userSearch(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		return fmt.Errorf("search query required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	path := fmt.Sprintf("/users/search?q=%s&limit=%d", url.QueryEscape(query), c.Int("limit"))
	resp, err := client.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Users []userInfo `json:"users"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) != output.FormatTable {
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, result.Users)
	}

	table := &output.Table{
		Headers: []string{"USER ID", "USERNAME", "EMAIL", "AUTHORITY", "CREDITS"},
	}
	for _, u := range result.Users {
		table.Rows = append(table.Rows, []string{
			truncateID(u.ID),
			u.Username,
			u.Email,
			u.Authority,
			fmt.Sprintf("%d", u.Credits),
		})
	}
	if err := table.Render(os.Stdout); err != nil {
		return err
	}
	fmt.Printf("\nTotal: %d users\n", len(result.Users))
	return nil
}

func userElevate(c *cli.Context) error {
	return userAuthorityChange(c, "elevate")
}

func userDemote(c *cli.Context) error {
	return userAuthorityChange(c, "demote")
}

func userAuthorityChange(c *cli.Context, op string) error {
	userID := c.Args().First()
	if userID == "" {
		return fmt.Errorf("user ID required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Post(ctx, "/users/"+userID+"/"+op, nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result userInfo
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("User %s is now %s.\n", result.Username, result.Authority)
	return nil
}

func userDelete(c *cli.Context) error {
	userID := c.Args().First()
	if userID == "" {
		return fmt.Errorf("user ID required")
	}

	if !c.Bool("force") {
		fmt.Printf("Delete account %s and everything it owns? [y/N]: ", userID)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
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

	resp, err := client.Delete(ctx, "/users/"+userID)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	fmt.Printf("Account %s deleted.\n", userID)
	return nil
}
