// Package email extracts transactions from bank notification emails by
// applying an ordered set of named-capture templates (FAST, HAVALE, EFT) to
// the cleaned plain-text body and inferring the transfer direction from the
// subject or body phrasing.
package email

import (
	"html"
	"io"
	"mime/quotedprintable"
	"regexp"
	"strings"
	"time"
)

// Message is a parsed email as delivered by the mailbox collaborator.
type Message struct {
	Subject   string
	Body      string
	MessageID string
	From      string
	Date      time.Time
}

var (
	htmlTagPattern   = regexp.MustCompile(`<[^>]*>`)
	bodyWhitespace   = regexp.MustCompile(`\s+`)
	softLineBreak    = regexp.MustCompile(`=\r?\n`)
	qpEscapePattern  = regexp.MustCompile(`=[0-9A-Fa-f]{2}`)
)

// CleanBody normalizes a raw email body into plain text suitable for
// template matching: quoted-printable unfolding, tag stripping, named-entity
// substitution and whitespace collapse.
func CleanBody(raw string) string {
	if qpEscapePattern.MatchString(raw) || softLineBreak.MatchString(raw) {
		decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(raw)))
		if err == nil {
			raw = string(decoded)
		}
	}

	raw = htmlTagPattern.ReplaceAllString(raw, " ")
	raw = html.UnescapeString(raw)
	raw = bodyWhitespace.ReplaceAllString(raw, " ")
	return strings.TrimSpace(raw)
}
