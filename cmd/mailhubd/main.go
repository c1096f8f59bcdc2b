package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/mailhub/internal/model"
)

// cli carries the state shared by all commands.
type cli struct {
	open       func(configPath string) (*runtime, error)
	configPath string
}

// withRuntime opens the runtime for one command and closes it after fn.
func (c *cli) withRuntime(fn func(rt *runtime) error) error {
	rt, err := c.open(c.configPath)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func newRootCmd(open func(configPath string) (*runtime, error)) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "mailhubd",
		Short: "Mail ingestion and classification daemon",
		Long: `mailhubd polls the configured mail accounts, classifies new messages,
stores them and raises notifications for the ones that need attention.

Examples:
  mailhubd                                   # run the sync loop
  mailhubd account add --name Work --email me@example.com --host imap.example.com
  mailhubd secret set account-<id>-password  # store the password in the keyring
  mailhubd settings set --ai-enabled --ai-provider openai
  mailhubd watch --once                      # one pass, notifications as JSON lines
  mailhubd messages list --account <id>`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				return runDaemon(cmd.Context(), rt)
			})
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")

	root.AddCommand(newSyncCmd(c))
	root.AddCommand(newWatchCmd(c))
	root.AddCommand(newSendCmd(c))
	root.AddCommand(newSecretCmd(c))
	root.AddCommand(newAccountCmd(c))
	root.AddCommand(newSettingsCmd(c))
	root.AddCommand(newMessagesCmd(c))
	return root
}

func main() {
	if err := newRootCmd(newRuntime).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mailhubd:", err)
		os.Exit(1)
	}
}
