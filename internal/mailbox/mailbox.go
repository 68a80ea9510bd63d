// Package mailbox fetches bank notification emails over IMAP and
// converts them into messages the extraction pipeline understands.
package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"

	"github.com/finrota/bankfeed/internal/email"
)

// Config holds the IMAP connection settings.
type Config struct {
	// Addr is the IMAP server address, host:port.
	Addr string

	// Username and Password authenticate the session.
	Username string
	Password string

	// Folder is the mailbox to read, INBOX when empty.
	Folder string

	// Sender restricts fetching to notifications from this address.
	// Empty fetches everything.
	Sender string
}

func (c Config) folder() string {
	if c.Folder == "" {
		return "INBOX"
	}
	return c.Folder
}

// Client reads notification emails from one IMAP account. A mutex
// serializes fetches so concurrent callers cannot interleave sessions
// against the same account.
type Client struct {
	mu  sync.Mutex
	cfg Config
	log zerolog.Logger
}

// NewClient creates a Client for the given account.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	return &Client{cfg: cfg, log: log}
}

// FetchSince downloads every message received on or after since and
// returns them cleaned, oldest first. Each call opens its own session
// and logs out when done.
func (c *Client) FetchSince(ctx context.Context, since time.Time) ([]email.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	client, err := imapclient.DialTLS(c.cfg.Addr, nil)
	if err != nil {
		return nil, fmt.Errorf("FetchSince: dialing %s: %w", c.cfg.Addr, err)
	}
	defer client.Close()

	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		return nil, fmt.Errorf("FetchSince: login: %w", err)
	}
	defer func() {
		_ = client.Logout().Wait()
	}()

	if _, err := client.Select(c.cfg.folder(), nil).Wait(); err != nil {
		return nil, fmt.Errorf("FetchSince: selecting %s: %w", c.cfg.folder(), err)
	}

	criteria := &imap.SearchCriteria{Since: since}
	if c.cfg.Sender != "" {
		criteria.Header = []imap.SearchCriteriaHeaderField{
			{Key: "From", Value: c.cfg.Sender},
		}
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("FetchSince: searching: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	var uidSet imap.UIDSet
	uidSet.AddNum(uids...)

	bodySection := &imap.FetchItemBodySection{}
	fetchOptions := &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}
	buffers, err := client.Fetch(uidSet, fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("FetchSince: fetching %d messages: %w", len(uids), err)
	}

	msgs := make([]email.Message, 0, len(buffers))
	for _, buf := range buffers {
		msg, err := decodeMessage(buf, bodySection)
		if err != nil {
			c.log.Warn().Err(err).Uint32("uid", uint32(buf.UID)).Msg("undecodable message skipped")
			continue
		}
		msgs = append(msgs, msg)
	}

	c.log.Debug().
		Int("matched", len(uids)).
		Int("decoded", len(msgs)).
		Time("since", since).
		Msg("mailbox fetch complete")

	return msgs, nil
}

// Watch blocks in IMAP IDLE and invokes handle with newly arrived
// messages until ctx is cancelled. Fetching reuses FetchSince, so the
// handler never runs concurrently with another fetch.
func (c *Client) Watch(ctx context.Context, handle func(context.Context, []email.Message) error) error {
	arrivals := make(chan struct{}, 1)

	options := &imapclient.Options{
		UnilateralDataHandler: &imapclient.UnilateralDataHandler{
			Mailbox: func(data *imapclient.UnilateralDataMailbox) {
				if data.NumMessages == nil {
					return
				}
				select {
				case arrivals <- struct{}{}:
				default:
				}
			},
		},
	}

	client, err := imapclient.DialTLS(c.cfg.Addr, options)
	if err != nil {
		return fmt.Errorf("Watch: dialing %s: %w", c.cfg.Addr, err)
	}
	defer client.Close()

	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		return fmt.Errorf("Watch: login: %w", err)
	}
	if _, err := client.Select(c.cfg.folder(), nil).Wait(); err != nil {
		return fmt.Errorf("Watch: selecting %s: %w", c.cfg.folder(), err)
	}

	lastFetch := time.Now()
	for {
		idle, err := client.Idle()
		if err != nil {
			return fmt.Errorf("Watch: entering idle: %w", err)
		}

		select {
		case <-ctx.Done():
			_ = idle.Close()
			_ = idle.Wait()
			return ctx.Err()
		case <-arrivals:
		}

		if err := idle.Close(); err != nil {
			return fmt.Errorf("Watch: leaving idle: %w", err)
		}
		if err := idle.Wait(); err != nil {
			return fmt.Errorf("Watch: idle terminated: %w", err)
		}

		since := lastFetch
		lastFetch = time.Now()
		msgs, err := c.FetchSince(ctx, since)
		if err != nil {
			return fmt.Errorf("Watch: %w", err)
		}
		if len(msgs) == 0 {
			continue
		}
		if err := handle(ctx, msgs); err != nil {
			return fmt.Errorf("Watch: handling batch: %w", err)
		}
	}
}

// decodeMessage turns one fetched buffer into a cleaned Message. The
// body is the first text part of the MIME tree, preferring text/plain.
func decodeMessage(buf *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) (email.Message, error) {
	raw := buf.FindBodySection(section)
	if len(raw) == 0 {
		return email.Message{}, fmt.Errorf("message has no body section")
	}

	msg := email.Message{}
	if env := buf.Envelope; env != nil {
		msg.Subject = decodeHeader(env.Subject)
		msg.MessageID = env.MessageID
		msg.Date = env.Date
		if len(env.From) > 0 {
			msg.From = env.From[0].Addr()
		}
	}

	body, err := extractTextPart(raw)
	if err != nil {
		return email.Message{}, err
	}
	msg.Body = email.CleanBody(body)
	return msg, nil
}

func extractTextPart(raw []byte) (string, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Not MIME, treat the whole payload as the body.
		return string(raw), nil
	}

	var htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading mime part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(part.Body)
		if err != nil {
			return "", fmt.Errorf("reading part body: %w", err)
		}
		switch contentType {
		case "text/plain":
			return string(data), nil
		case "text/html":
			htmlBody = string(data)
		}
	}

	if htmlBody != "" {
		return htmlBody, nil
	}
	return "", fmt.Errorf("message has no text part")
}

// decodeHeader unfolds RFC 2047 encoded words; Turkish subjects arrive
// as encoded UTF-8 more often than not.
func decodeHeader(s string) string {
	dec := mime.WordDecoder{}
	decoded, err := dec.DecodeHeader(s)
	if err != nil || strings.TrimSpace(decoded) == "" {
		return s
	}
	return decoded
}
