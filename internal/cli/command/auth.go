// Package command provides CLI command definitions for keyforge-admin.
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

// requestTimeout bounds a single API call.
const requestTimeout = 30 * time.Second

// AuthCommand returns the auth subcommand group.
func AuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Account registration and login",
		Subcommands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Create a new account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true, Usage: "Account username"},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Account email"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, Usage: "Account password"},
				},
				Action: authRegister,
			},
			{
				Name:  "login",
				Usage: "Log in and save the token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "login", Aliases: []string{"l"}, Required: true, Usage: "Username or email"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, Usage: "Account password"},
				},
				Action: authLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the saved token",
				Action: authLogout,
			},
			{
				Name:   "whoami",
				Usage:  "Show the logged-in account",
				Action: authWhoami,
			},
		},
	}
}

// userInfo is the account shape shared by auth and user commands.
type userInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Authority string    `json:"authority"`
	Credits   int64     `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
}

type authResult struct {
	User  userInfo `json:"user"`
	Token string   `json:"token"`
}

func authRegister(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Post(ctx, "/auth/register", map[string]string{
		"username":              c.String("username"),
		"email":                 c.String("email"),
		"password":              c.String("password"),
		"password_confirmation": c.String("password"),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result authResult
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if mgr := GetConnectionManager(c); mgr != nil {
		if err := mgr.SetToken(result.Token); err != nil {
			PrintError("could not save token: %v", err)
		}
	}

	fmt.Printf("Account %s created and logged in.\n", result.User.Username)
	return nil
}

func authLogin(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Post(ctx, "/auth/login", map[string]string{
		"login":    c.String("login"),
		"password": c.String("password"),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result authResult
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if mgr := GetConnectionManager(c); mgr != nil {
		if server := c.String("server"); server != "" {
			if err := mgr.SetServer(server); err != nil {
				PrintError("could not save server: %v", err)
			}
		}
		if err := mgr.SetToken(result.Token); err != nil {
			PrintError("could not save token: %v", err)
		}
	}

	fmt.Printf("Logged in as %s.\n", result.User.Username)
	return nil
}

func authLogout(c *cli.Context) error {
	mgr := GetConnectionManager(c)
	if mgr == nil || !mgr.IsLoggedIn() {
		fmt.Println("Not logged in.")
		return nil
	}
	if err := mgr.ClearToken(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func authWhoami(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Get(ctx, "/users/me")
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
