package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/keyforge/keyforge-go/pkg/token"
)

// SecretCommand returns the secret subcommand group. These run fully
// offline; they exist so operators can mint signing and root secrets
// without reaching for openssl.
func SecretCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "Generate secrets for server configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate a random secret",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "length", Aliases: []string{"n"}, Value: token.DefaultLength, Usage: "Secret length in bytes"},
				},
				Action: secretGenerate,
			},
		},
	}
}

func secretGenerate(c *cli.Context) error {
	n := c.Int("length")
	if n < 16 {
		return fmt.Errorf("refusing to generate a secret shorter than 16 bytes")
	}

	secret, err := token.GenerateWithLength(n)
	if err != nil {
		return fmt.Errorf("generate secret: %w", err)
	}

	fmt.Println(secret)
	return nil
}
