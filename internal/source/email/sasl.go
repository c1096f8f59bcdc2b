package email

import (
	"fmt"

	"github.com/emersion/go-sasl"
)

// xoauth2Client implements the XOAUTH2 SASL mechanism used by Gmail and
// Outlook for OAuth2 IMAP and SMTP logins.
type xoauth2Client struct {
	username    string
	accessToken string
}

var _ sasl.Client = (*xoauth2Client)(nil)

func newXOAuth2Client(username, accessToken string) sasl.Client {
	return &xoauth2Client{username: username, accessToken: accessToken}
}

func (c *xoauth2Client) Start() (mech string, ir []byte, err error) {
	ir = []byte(fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", c.username, c.accessToken))
	return "XOAUTH2", ir, nil
}

// Next answers the JSON error challenge a server sends on failure with an
// empty response so that it completes the exchange with a NO.
func (c *xoauth2Client) Next(_ []byte) ([]byte, error) {
	return []byte{}, nil
}

// credentials is the resolved login material for one connection.
type credentials struct {
	username    string
	password    string
	accessToken string
}

// saslClient returns the SASL mechanism matching the credentials.
func (c credentials) saslClient() sasl.Client {
	if c.accessToken != "" {
		return newXOAuth2Client(c.username, c.accessToken)
	}
	return sasl.NewPlainClient("", c.username, c.password)
}
