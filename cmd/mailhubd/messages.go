package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mailhub/internal/model"
)

func newMessagesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"msg"},
		Short:   "List and change stored messages",
	}
	cmd.AddCommand(
		newMessagesListCmd(c),
		newMessagesReadCmd(c),
		newMessagesStarCmd(c),
		newMessagesLabelCmd(c),
		newMessagesDeleteCmd(c),
	)
	return cmd
}

func newMessagesListCmd(c *cli) *cobra.Command {
	var (
		account string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored messages, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				msgs, err := rt.app.GetEmails(cmd.Context(), account)
				if err != nil {
					return err
				}
				if limit > 0 && len(msgs) > limit {
					msgs = msgs[:limit]
				}

				rows := make([][]string, 0, len(msgs))
				for _, m := range msgs {
					rows = append(rows, messageRow(m))
				}
				renderTable(cmd.OutOrStdout(),
					[]string{"ID", "Date", "Category", "Flags", "From", "Subject", "Code"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "only messages of this account")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of messages (0 for all)")
	return cmd
}

func messageRow(m model.Message) []string {
	category, code := "-", ""
	if m.Classification != nil {
		category = string(m.Classification.Category)
		code = m.Classification.VerificationCode
	}

	var flags strings.Builder
	if !m.IsRead {
		flags.WriteString("N")
	}
	if m.IsStarred {
		flags.WriteString("*")
	}

	return []string{
		m.ID,
		m.Date.Format("2006-01-02 15:04"),
		category,
		flags.String(),
		m.From.String(),
		m.Subject,
		code,
	}
}

func newMessagesReadCmd(c *cli) *cobra.Command {
	var unread bool

	cmd := &cobra.Command{
		Use:   "read ID",
		Short: "Mark a message as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				return rt.app.MarkRead(cmd.Context(), args[0], !unread)
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "mark as unread instead")
	return cmd
}

func newMessagesStarCmd(c *cli) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "star ID",
		Short: "Star a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				return rt.app.SetStarred(cmd.Context(), args[0], !remove)
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the star instead")
	return cmd
}

func newMessagesLabelCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "label ID [LABEL...]",
		Short: "Replace the labels of a message; no labels clears them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				return rt.app.SetLabels(cmd.Context(), args[0], args[1:])
			})
		},
	}
}

func newMessagesDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				return rt.app.DeleteEmail(cmd.Context(), args[0])
			})
		},
	}
}
