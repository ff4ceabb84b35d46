package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/car-deal-tracker/internal/secrets"
)

func secretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage API tokens in the OS keychain",
		Long: "Tokens are looked up in the environment first and the OS keychain\n" +
			"second. Known names: " + strings.Join([]string{
			secrets.OpenAIAPIKey, secrets.AnthropicAPIKey, secrets.TelegramBotToken,
		}, ", ") + ".",
	}
	cmd.AddCommand(secretsSetCmd(), secretsDeleteCmd())
	return cmd
}

func secretsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME",
		Short: "Store a token read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			fmt.Fprintf(os.Stderr, "Enter value for %s: ", args[0])
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading value: %w", err)
			}
			if err := secrets.Set(args[0], strings.TrimSpace(line)); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "\n%s stored in keychain.\n", args[0])
			return nil
		},
	}
}

func secretsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a token from the keychain",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := secrets.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("%s removed from keychain.\n", args[0])
			return nil
		},
	}
}
