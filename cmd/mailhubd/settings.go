package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/mailhub/internal/model"
)

func newSettingsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change user settings",
	}
	cmd.AddCommand(newSettingsShowCmd(c), newSettingsSetCmd(c))
	return cmd
}

func newSettingsShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the settings as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				s, err := rt.app.GetSettings(cmd.Context())
				if err != nil {
					return err
				}
				if s.AIConfig != nil && s.AIConfig.APIKey != "" {
					masked := *s.AIConfig
					masked.APIKey = "********"
					s.AIConfig = &masked
				}

				out, err := json.MarshalIndent(s, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			})
		},
	}
}

func newSettingsSetCmd(c *cli) *cobra.Command {
	var (
		notifications bool
		theme         string
		aiEnabled     bool
		aiProvider    string
		aiEndpoint    string
		aiModel       string
		autoDelete    bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the given settings",
		Long: `Change the given settings. The classification API key is read from
the keyring entry ai-<provider>; set it with "mailhubd secret set".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := cmd.Flags().Changed

			return c.withRuntime(func(rt *runtime) error {
				s, err := rt.app.GetSettings(cmd.Context())
				if err != nil {
					return err
				}

				if changed("notifications") {
					s.Notifications = notifications
				}
				if changed("theme") {
					if !model.Theme(theme).Valid() {
						return fmt.Errorf("unknown theme %q", theme)
					}
					s.Theme = model.Theme(theme)
				}

				if changed("ai-enabled") || changed("ai-provider") || changed("ai-endpoint") ||
					changed("ai-model") || changed("auto-delete") {
					var cfg model.AIConfig
					if s.AIConfig != nil {
						cfg = *s.AIConfig
					}
					if changed("ai-enabled") {
						cfg.Enabled = aiEnabled
					}
					if changed("ai-provider") {
						if !model.AIProvider(aiProvider).Valid() {
							return fmt.Errorf("unknown AI provider %q", aiProvider)
						}
						cfg.Provider = model.AIProvider(aiProvider)
					}
					if changed("ai-endpoint") {
						cfg.APIEndpoint = aiEndpoint
					}
					if changed("ai-model") {
						cfg.Model = aiModel
					}
					if changed("auto-delete") {
						cfg.AutoDelete = autoDelete
					}
					if cfg.Enabled && !cfg.Provider.Valid() {
						return errors.New("classification needs --ai-provider")
					}
					s.AIConfig = &cfg
				}

				return rt.app.UpdateSettings(cmd.Context(), s)
			})
		},
	}

	fs := cmd.Flags()
	fs.BoolVar(&notifications, "notifications", true, "raise notifications for important messages")
	fs.StringVar(&theme, "theme", string(model.ThemeSystem), "light, dark or system")
	fs.BoolVar(&aiEnabled, "ai-enabled", false, "classify messages with an AI provider")
	fs.StringVar(&aiProvider, "ai-provider", "", "openai, anthropic or gemini")
	fs.StringVar(&aiEndpoint, "ai-endpoint", "", "override the provider endpoint")
	fs.StringVar(&aiModel, "ai-model", "", "override the provider model")
	fs.BoolVar(&autoDelete, "auto-delete", false, "drop promotional messages before storing them")
	return cmd
}
