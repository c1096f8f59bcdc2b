package email

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/nhle/mailhub/internal/model"
)

// endpoint is a resolved server address.
type endpoint struct {
	host     string
	port     int
	startTLS bool
}

func (e endpoint) addr() string {
	return net.JoinHostPort(e.host, strconv.Itoa(e.port))
}

// providerDefaults lists well-known hosts used when an account leaves
// its host blank.
var providerDefaults = map[model.MailProvider]struct {
	imap endpoint
	smtp endpoint
}{
	model.MailProviderGmail: {
		imap: endpoint{host: "imap.gmail.com", port: 993},
		smtp: endpoint{host: "smtp.gmail.com", port: 465},
	},
	model.MailProviderOutlook: {
		imap: endpoint{host: "outlook.office365.com", port: 993},
		smtp: endpoint{host: "smtp.office365.com", port: 587, startTLS: true},
	},
}

// imapEndpoint resolves the incoming server for an account. An explicit
// host wins; otherwise the provider default is used.
func imapEndpoint(a model.Account) (endpoint, error) {
	if a.Config.Host != "" {
		ep := endpoint{host: a.Config.Host, port: a.Config.Port, startTLS: a.Config.UseStartTLS}
		if ep.port == 0 {
			ep.port = 993
			if ep.startTLS {
				ep.port = 143
			}
		}
		return ep, nil
	}

	d, ok := providerDefaults[a.Provider]
	if !ok {
		return endpoint{}, fmt.Errorf("account %s has no IMAP host configured", a.ID)
	}
	ep := d.imap
	if a.Config.Port != 0 {
		ep.port = a.Config.Port
	}
	return ep, nil
}

// smtpEndpoint resolves the outgoing server for an account. Without an
// explicit SMTP host, the provider default is used, then the IMAP host
// with its "imap." prefix swapped for "smtp.".
func smtpEndpoint(a model.Account) (endpoint, error) {
	if a.Config.SMTPHost != "" {
		ep := endpoint{host: a.Config.SMTPHost, port: a.Config.SMTPPort}
		switch ep.port {
		case 0:
			ep.port = 465
		case 25, 587:
			ep.startTLS = true
		}
		return ep, nil
	}

	if d, ok := providerDefaults[a.Provider]; ok {
		ep := d.smtp
		if a.Config.SMTPPort != 0 {
			ep.port = a.Config.SMTPPort
			ep.startTLS = ep.port != 465
		}
		return ep, nil
	}

	if rest, ok := strings.CutPrefix(a.Config.Host, "imap."); ok && rest != "" {
		return endpoint{host: "smtp." + rest, port: 465}, nil
	}

	return endpoint{}, fmt.Errorf("account %s has no SMTP host configured", a.ID)
}
