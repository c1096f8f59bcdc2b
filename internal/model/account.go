package model

// Protocol identifies how an account's mailbox is reached.
type Protocol string

const (
	ProtocolIMAP   Protocol = "imap"
	ProtocolPOP3   Protocol = "pop3"
	ProtocolOAuth2 Protocol = "oauth2"
)

// Valid reports whether p is a known protocol.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolIMAP, ProtocolPOP3, ProtocolOAuth2:
		return true
	}
	return false
}

// MailProvider identifies the hosting service behind an account. It is
// used to pick default hosts and the OAuth2 token endpoint.
type MailProvider string

const (
	MailProviderGmail   MailProvider = "gmail"
	MailProviderOutlook MailProvider = "outlook"
	MailProviderOther   MailProvider = "other"
)

func (p MailProvider) Valid() bool {
	switch p {
	case MailProviderGmail, MailProviderOutlook, MailProviderOther:
		return true
	}
	return false
}

// Account is a user-configured mailbox. Messages reference it by ID but
// never own it.
type Account struct {
	// ID is the unique identifier for this account.
	ID string `json:"id"`

	// Name is the user-defined label for the account.
	Name string `json:"name"`

	// Email is the primary address of the mailbox.
	Email string `json:"email"`

	DisplayName string   `json:"display_name,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	Protocol Protocol     `json:"protocol"`
	Provider MailProvider `json:"provider,omitempty"`

	Config AccountConfig `json:"config"`
}

// AccountConfig holds connection settings and credentials. Secret fields
// may be left empty and resolved from the system keyring at sync time.
type AccountConfig struct {
	Host         string `json:"host,omitempty"`
	Port         int    `json:"port,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	OAuthToken   string `json:"oauth_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// SMTPHost and SMTPPort override the outgoing server. When empty the
	// provider default is used.
	SMTPHost string `json:"smtp_host,omitempty"`
	SMTPPort int    `json:"smtp_port,omitempty"`

	// UseStartTLS selects STARTTLS instead of implicit TLS for IMAP.
	UseStartTLS bool `json:"use_starttls,omitempty"`
}

// LoginName returns the username used to authenticate, falling back to
// the account address.
func (a Account) LoginName() string {
	if a.Config.Username != "" {
		return a.Config.Username
	}
	return a.Email
}
