/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package mailbox

import (
	"crypto/tls"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/emersion/go-imap"
	idle "github.com/emersion/go-imap-idle"
	move "github.com/emersion/go-imap-move"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gologme "github.com/gologme/log"

	"github.com/craftwatch/mailgram/internal/alert"
)

// Config holds the connection parameters for one IMAP account.
type Config struct {
	Server   string
	Port     int
	Username string
	Password string
	Mailbox  string
	// Archive, when set, is the folder forwarded messages are moved to.
	Archive string
}

// Client fetches unseen messages over IMAP. The connection is established
// lazily and kept across polls; any protocol error drops it so that the
// next poll reconnects from scratch.
type Client struct {
	cfg         Config
	log         *gologme.Logger
	mutex       sync.Mutex
	conn        *client.Client
	uidValidity uint32
}

func NewClient(cfg Config, log *gologme.Logger) *Client {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &Client{
		cfg: cfg,
		log: log,
	}
}

// connectLocked dials, logs in and selects the configured mailbox. Caller
// must hold c.mutex.
func (c *Client) connectLocked() error {
	if c.conn != nil {
		return nil
	}

	address := fmt.Sprintf("%s:%d", c.cfg.Server, c.cfg.Port)
	conn, err := client.DialTLS(address, &tls.Config{
		ServerName: c.cfg.Server,
	})
	if err != nil {
		return fmt.Errorf("client.DialTLS: %w", err)
	}
	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		_ = conn.Logout()
		return fmt.Errorf("conn.Login: %w", err)
	}
	status, err := conn.Select(c.cfg.Mailbox, false)
	if err != nil {
		_ = conn.Logout()
		return fmt.Errorf("conn.Select: %w", err)
	}

	c.conn = conn
	c.uidValidity = status.UidValidity
	c.log.Infof("Connected to %s as %s, mailbox %q selected", address, c.cfg.Username, c.cfg.Mailbox)
	return nil
}

// dropLocked discards the connection after a protocol error. Caller must
// hold c.mutex.
func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Logout()
		c.conn = nil
	}
}

// FetchUnseen returns all unseen messages in the configured mailbox. The
// fetch reads BODY[] without PEEK, so the server flags returned messages
// as seen.
func (c *Client) FetchUnseen() ([]alert.RawEmail, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.connectLocked(); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.conn.UidSearch(criteria)
	if err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("conn.UidSearch: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchUid,
		section.FetchItem(),
	}
	messages := make(chan *imap.Message, len(uids))
	if err := c.conn.UidFetch(seqset, items, messages); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("conn.UidFetch: %w", err)
	}

	var results []alert.RawEmail
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			c.log.Warnf("Message %d has no body section", msg.Uid)
			continue
		}

		email := alert.RawEmail{
			ID: fmt.Sprintf("%d:%d", c.uidValidity, msg.Uid),
		}
		if msg.Envelope != nil {
			email.Subject = msg.Envelope.Subject
			email.Sender = formatSender(msg.Envelope.From)
		}
		email.Parts = parseParts(body, c.log)
		results = append(results, email)
	}
	return results, nil
}

// Archive moves a previously fetched message into the archive folder.
// The ID must be one produced by FetchUnseen against the current
// connection; a stale UIDVALIDITY means the mailbox was reset underneath
// us and the move is skipped.
func (c *Client) Archive(id string) error {
	if c.cfg.Archive == "" {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.connectLocked(); err != nil {
		return err
	}

	validity, uid, err := splitID(id)
	if err != nil {
		return err
	}
	if validity != c.uidValidity {
		c.log.Warnf("UIDVALIDITY changed, not archiving %s", id)
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	if err := move.NewClient(c.conn).UidMoveWithFallback(seqset, c.cfg.Archive); err != nil {
		c.dropLocked()
		return fmt.Errorf("move.UidMoveWithFallback: %w", err)
	}
	return nil
}

// Watch blocks in IMAP IDLE on a dedicated connection and signals on
// updates so the poller can react before its next scheduled tick. Servers
// without IDLE are handled by the fallback poll inside the extension.
// Watch returns when stop is closed or the connection fails.
func (c *Client) Watch(stop <-chan struct{}, updates chan<- struct{}) error {
	address := fmt.Sprintf("%s:%d", c.cfg.Server, c.cfg.Port)
	conn, err := client.DialTLS(address, &tls.Config{
		ServerName: c.cfg.Server,
	})
	if err != nil {
		return fmt.Errorf("client.DialTLS: %w", err)
	}
	defer conn.Logout() // nolint:errcheck

	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		return fmt.Errorf("conn.Login: %w", err)
	}
	if _, err := conn.Select(c.cfg.Mailbox, true); err != nil {
		return fmt.Errorf("conn.Select: %w", err)
	}

	mailboxUpdates := make(chan client.Update, 16)
	conn.Updates = mailboxUpdates

	idleStop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- idle.NewClient(conn).IdleWithFallback(idleStop, 0)
	}()

	for {
		select {
		case update := <-mailboxUpdates:
			if _, ok := update.(*client.MailboxUpdate); ok {
				select {
				case updates <- struct{}{}:
				default:
				}
			}
		case err := <-done:
			return err
		case <-stop:
			close(idleStop)
			return <-done
		}
	}
}

// Close logs out from the server.
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Logout()
	c.conn = nil
	return err
}

// parseParts decodes the MIME structure of a raw message into flat parts.
// Parse errors lose the faulty part only, never the whole message.
func parseParts(body io.Reader, log *gologme.Logger) []alert.Part {
	entity, err := message.Read(body)
	if err != nil && !message.IsUnknownCharset(err) {
		log.Warnf("Failed to parse MIME message: %v", err)
		return nil
	}
	return collectParts(entity, log)
}

func collectParts(entity *message.Entity, log *gologme.Logger) []alert.Part {
	mediaType, _, _ := entity.Header.ContentType()

	if strings.HasPrefix(mediaType, "multipart/") {
		var parts []alert.Part
		mr := entity.MultipartReader()
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) {
				log.Warnf("Failed to read MIME part: %v", err)
				break
			}
			parts = append(parts, collectParts(part, log)...)
		}
		return parts
	}

	payload, err := io.ReadAll(entity.Body)
	if err != nil {
		log.Warnf("Failed to read part body: %v", err)
		return nil
	}
	return []alert.Part{{
		ContentType: mediaType,
		Body:        payload,
	}}
}

// formatSender renders the first From address the way it appears in a
// mail header, with the display name when one is present.
func formatSender(from []*imap.Address) string {
	if len(from) == 0 {
		return ""
	}
	addr := from[0]
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", addr.PersonalName, addr.Address())
	}
	return addr.Address()
}

func splitID(id string) (uint32, uint32, error) {
	validity, uid, found := strings.Cut(id, ":")
	if !found {
		return 0, 0, fmt.Errorf("malformed message ID %q", id)
	}
	v, err := strconv.ParseUint(validity, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed message ID %q", id)
	}
	u, err := strconv.ParseUint(uid, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed message ID %q", id)
	}
	return uint32(v), uint32(u), nil
}
