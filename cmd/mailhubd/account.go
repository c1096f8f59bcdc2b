package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mailhub/internal/app"
	"github.com/nhle/mailhub/internal/model"
)

// accountFlags are shared by account add and account update. Only flags
// set on the command line are applied.
type accountFlags struct {
	name        string
	email       string
	displayName string
	protocol    string
	provider    string
	host        string
	port        int
	username    string
	smtpHost    string
	smtpPort    int
	startTLS    bool
	tags        []string
}

func (f *accountFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "account label")
	fs.StringVar(&f.email, "email", "", "mailbox address")
	fs.StringVar(&f.displayName, "display-name", "", "sender name for outgoing mail")
	fs.StringVar(&f.protocol, "protocol", string(model.ProtocolIMAP), "imap, pop3 or oauth2")
	fs.StringVar(&f.provider, "provider", string(model.MailProviderOther), "gmail, outlook or other")
	fs.StringVar(&f.host, "host", "", "incoming server host (provider default when empty)")
	fs.IntVar(&f.port, "port", 0, "incoming server port")
	fs.StringVar(&f.username, "username", "", "login name (defaults to the email)")
	fs.StringVar(&f.smtpHost, "smtp-host", "", "outgoing server host")
	fs.IntVar(&f.smtpPort, "smtp-port", 0, "outgoing server port")
	fs.BoolVar(&f.startTLS, "starttls", false, "use STARTTLS for IMAP")
	fs.StringSliceVar(&f.tags, "tag", nil, "account tag (repeatable)")
}

func (f *accountFlags) apply(cmd *cobra.Command, a *model.Account) error {
	changed := cmd.Flags().Changed

	if changed("name") {
		a.Name = f.name
	}
	if changed("email") {
		a.Email = f.email
	}
	if changed("display-name") {
		a.DisplayName = f.displayName
	}
	if changed("protocol") || a.Protocol == "" {
		a.Protocol = model.Protocol(f.protocol)
	}
	if changed("provider") || a.Provider == "" {
		a.Provider = model.MailProvider(f.provider)
	}
	if changed("host") {
		a.Config.Host = f.host
	}
	if changed("port") {
		a.Config.Port = f.port
	}
	if changed("username") {
		a.Config.Username = f.username
	}
	if changed("smtp-host") {
		a.Config.SMTPHost = f.smtpHost
	}
	if changed("smtp-port") {
		a.Config.SMTPPort = f.smtpPort
	}
	if changed("starttls") {
		a.Config.UseStartTLS = f.startTLS
	}
	if changed("tag") {
		a.Tags = slices.Clone(f.tags)
	}

	if !a.Protocol.Valid() {
		return fmt.Errorf("unknown protocol %q", a.Protocol)
	}
	if !a.Provider.Valid() {
		return fmt.Errorf("unknown provider %q", a.Provider)
	}
	return nil
}

func newAccountCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage mail accounts",
	}
	cmd.AddCommand(
		newAccountAddCmd(c),
		newAccountListCmd(c),
		newAccountUpdateCmd(c),
		newAccountDeleteCmd(c),
	)
	return cmd
}

func newAccountAddCmd(c *cli) *cobra.Command {
	var f accountFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account and print its ID",
		Long: `Add an account and print its ID. Secrets are not taken as flags; store
them with "mailhubd secret set account-<id>-password".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var a model.Account
			if err := f.apply(cmd, &a); err != nil {
				return err
			}
			return c.withRuntime(func(rt *runtime) error {
				added, err := rt.app.AddAccount(cmd.Context(), a)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), added.ID)
				return nil
			})
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAccountListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				accounts, err := rt.app.GetAccounts(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(accounts))
				for _, a := range accounts {
					host := a.Config.Host
					if a.Config.Port != 0 {
						host += ":" + strconv.Itoa(a.Config.Port)
					}
					rows = append(rows, []string{
						a.ID, a.Name, a.Email, string(a.Protocol), string(a.Provider), host,
						strings.Join(a.Tags, ","),
					})
				}
				renderTable(cmd.OutOrStdout(),
					[]string{"ID", "Name", "Email", "Protocol", "Provider", "Host", "Tags"}, rows)
				return nil
			})
		},
	}
}

func newAccountUpdateCmd(c *cli) *cobra.Command {
	var f accountFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the given fields of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				accounts, err := rt.app.GetAccounts(cmd.Context())
				if err != nil {
					return err
				}
				idx := slices.IndexFunc(accounts, func(a model.Account) bool { return a.ID == args[0] })
				if idx < 0 {
					return fmt.Errorf("%w: %s", app.ErrAccountNotFound, args[0])
				}

				a := accounts[idx]
				if err := f.apply(cmd, &a); err != nil {
					return err
				}
				return rt.app.UpdateAccount(cmd.Context(), a)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newAccountDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove an account; its stored messages are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				return rt.app.DeleteAccount(cmd.Context(), args[0])
			})
		},
	}
}
