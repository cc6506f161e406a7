// Package relay wraps the internal/smtpconn client in the minimal
// postconfirm.Relayer contract used to emit challenge mail and to release
// stashed messages.
package relay

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"

	"github.com/emersion/go-message/textproto"
	"github.com/emersion/go-smtp"
	"github.com/ietf-svn-conversion/postconfirm/framework/config"
	"github.com/ietf-svn-conversion/postconfirm/framework/log"
	"github.com/ietf-svn-conversion/postconfirm/internal/smtpconn"
	"github.com/ietf-svn-conversion/postconfirm/internal/smtpconn/pool"
)

// TLSConfigFunc builds the client tls.Config used to dial the relay
// endpoint, given the server name to verify against.
type TLSConfigFunc func(serverName string) *tls.Config

// Relayer submits outbound mail (challenges and stash releases) to a single
// SMTP submission endpoint, reusing connections through a small idle pool
// (a single key, since each Relayer has one endpoint) so concurrent milter
// sessions don't each pay for a fresh TCP+EHLO round trip.
type Relayer struct {
	endpoint  config.Endpoint
	hostname  string
	tlsConfig TLSConfigFunc
	pool      *pool.P
	log       log.Logger
}

// New constructs a Relayer targeting endpoint (the configured smtp_host).
// hostname is sent in the EHLO/HELO command. tlsConfig builds the client
// tls.Config for the connection; pass nil to use crypto/tls's defaults.
func New(endpoint config.Endpoint, hostname string, tlsConfig TLSConfigFunc, logger log.Logger) *Relayer {
	if tlsConfig == nil {
		tlsConfig = func(serverName string) *tls.Config { return &tls.Config{ServerName: serverName} }
	}
	r := &Relayer{endpoint: endpoint, hostname: hostname, tlsConfig: tlsConfig, log: logger}
	r.pool = pool.New(pool.Config{
		New:                 r.dial,
		MaxKeys:             1,
		MaxConnsPerKey:      4,
		MaxConnLifetimeSec:  300,
		StaleKeyLifetimeSec: 600,
	})
	return r
}

// conn adapts *smtpconn.C to the pool.Conn contract.
type conn struct {
	c      *smtpconn.C
	usable bool
}

func (c *conn) Usable() bool { return c.usable }
func (c *conn) Close() error { return c.c.Close() }

func (r *Relayer) dial(ctx context.Context, key string) (pool.Conn, error) {
	c := smtpconn.New()
	c.Hostname = r.hostname
	c.Log = r.log
	if _, err := c.Connect(ctx, r.endpoint, true, r.tlsConfig(r.endpoint.Host)); err != nil {
		return nil, err
	}
	return &conn{c: c, usable: true}, nil
}

// Sendmail implements postconfirm.Relayer. rawMessage is in the core's wire
// format (header-lines CRLF body, see postconfirm.ReformMessage); it is
// split back into a textproto.Header and body reader before being handed to
// the SMTP DATA command.
func (r *Relayer) Sendmail(ctx context.Context, from string, recipients []string, rawMessage []byte) error {
	pooled, err := r.pool.Get(ctx, "smtp")
	if err != nil {
		return fmt.Errorf("relay: dial %s: %w", r.endpoint, err)
	}
	c := pooled.(*conn)

	if err := r.deliver(ctx, c.c, from, recipients, rawMessage); err != nil {
		c.usable = false
		c.Close()
		return err
	}

	r.pool.Return("smtp", c)
	return nil
}

func (r *Relayer) deliver(ctx context.Context, c *smtpconn.C, from string, recipients []string, rawMessage []byte) error {
	if err := c.Mail(ctx, from, smtp.MailOptions{}); err != nil {
		return fmt.Errorf("relay: MAIL FROM: %w", err)
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(ctx, rcpt); err != nil {
			return fmt.Errorf("relay: RCPT TO %s: %w", rcpt, err)
		}
	}

	br := bufio.NewReader(bytes.NewReader(rawMessage))
	hdr, err := textproto.ReadHeader(br)
	if err != nil {
		return fmt.Errorf("relay: parsing stashed message: %w", err)
	}

	if err := c.Data(ctx, hdr, br); err != nil {
		return fmt.Errorf("relay: DATA: %w", err)
	}
	return nil
}

// Close releases every pooled connection.
func (r *Relayer) Close() {
	r.pool.Close()
}
