package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newSendCmd(c *cli) *cobra.Command {
	var account, to, subject string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a plain-text message read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading body: %w", err)
			}
			return c.withRuntime(func(rt *runtime) error {
				return rt.app.SendEmail(cmd.Context(), account, to, subject, string(body))
			})
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "ID of the sending account")
	cmd.Flags().StringVar(&to, "to", "", "comma-separated recipients")
	cmd.Flags().StringVar(&subject, "subject", "", "message subject")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSecretCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets kept in the system keyring",
		Long: `Secrets left blank in stored accounts and settings are read from the
keyring at sync time. Keys:
  account-<id>-password   IMAP/SMTP password
  account-<id>-refresh    OAuth2 refresh token
  ai-<provider>           classification API key (openai, anthropic, gemini)`,
	}

	set := &cobra.Command{
		Use:   "set KEY",
		Short: "Store a secret read from the first line of stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("reading secret: %w", err)
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return errors.New("empty secret")
			}
			return c.withRuntime(func(rt *runtime) error {
				if rt.ring == nil {
					return errors.New("keyring unavailable")
				}
				return rt.ring.Set(args[0], value)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove a secret from the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				if rt.ring == nil {
					return errors.New("keyring unavailable")
				}
				return rt.ring.Delete(args[0])
			})
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}
