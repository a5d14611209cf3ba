// Package mailer sends generated files as email attachments over SMTP.
package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"path/filepath"
	"strings"
	"time"

	"github.com/draftmill/draftmill/config"
)

// Message is one outbound email with a single attachment.
type Message struct {
	To         []string
	Subject    string
	Body       string
	Filename   string
	Attachment []byte
}

// Mailer sends messages through one SMTP account.
type Mailer struct {
	cfg config.SMTPConfig
	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a Mailer for the given SMTP configuration.
func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// Configured reports whether the mailer can send at all.
func (m *Mailer) Configured() bool {
	return m.cfg.Configured()
}

// Send delivers the message. Returns an error when SMTP is not configured.
func (m *Mailer) Send(msg Message) error {
	if !m.Configured() {
		return fmt.Errorf("SMTP is not configured")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	port := m.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	return m.send(addr, auth, m.cfg.From, msg.To, m.encode(msg))
}

// encode renders the RFC 2045 multipart body: a text part plus one base64
// attachment.
func (m *Mailer) encode(msg Message) []byte {
	boundary := fmt.Sprintf("draftmill-%d", time.Now().UnixNano())

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")

	if len(msg.Attachment) > 0 {
		contentType := mime.TypeByExtension(filepath.Ext(msg.Filename))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", msg.Filename)

		encoded := base64.StdEncoding.EncodeToString(msg.Attachment)
		// 76-character lines per RFC 2045.
		for len(encoded) > 76 {
			b.WriteString(encoded[:76] + "\r\n")
			encoded = encoded[76:]
		}
		b.WriteString(encoded + "\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.Bytes()
}
