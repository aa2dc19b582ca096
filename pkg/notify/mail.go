package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Table is tabular data rendered into the mail body.
type Table struct {
	Header []string
	Rows   [][]any
}

// Email is one outgoing mail.
type Email struct {
	Server     string   `validate:"required,hostname_rfc1123|ip"`
	Port       int      `validate:"required,min=1,max=65535"`
	Sender     string   `validate:"required,email"`
	Receivers  []string `validate:"required,min=1,dive,email"`
	Subject    string   `validate:"required"`
	BodyText   string
	Attachment string // path of a file to attach
	Table      *Table
}

// SMTPConfig is what a Mailer needs besides the message content.
type SMTPConfig struct {
	Server     string
	Port       int
	Sender     string
	Receivers  []string
	Username   string
	Password   string
	RequireTLS bool
	Timeout    time.Duration
}

// Mailer sends mail through one SMTP relay.
type Mailer struct {
	cfg       SMTPConfig
	tlsConfig *tls.Config
}

var validate = validator.New()

// NewMailer creates a Mailer.
func NewMailer(cfg SMTPConfig) *Mailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Mailer{cfg: cfg, tlsConfig: &tls.Config{ServerName: cfg.Server, MinVersion: tls.VersionTLS12}}
}

// Notify mails msg to the configured receivers.
func (m *Mailer) Notify(ctx context.Context, msg Message) error {
	body := msg.Text
	detail := msg.Message
	if msg.Failed() {
		detail = msg.ErrorMessage
	}
	if detail != "" {
		body += " <br>" + detail
	}
	subject := msg.Title
	if msg.Status != "" {
		subject = fmt.Sprintf("[%s] %s", msg.Status, msg.Title)
	}
	return m.Send(ctx, Email{
		Server:    m.cfg.Server,
		Port:      m.cfg.Port,
		Sender:    m.cfg.Sender,
		Receivers: m.cfg.Receivers,
		Subject:   subject,
		BodyText:  body,
	})
}

// Send delivers e. STARTTLS is used whenever the server offers it.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	raw, err := e.compose()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(e.Server, strconv.Itoa(e.Port))
	dialer := net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, e.Server)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(m.tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	} else if m.cfg.RequireTLS {
		return fmt.Errorf("smtp server %s does not offer STARTTLS", addr)
	}
	if m.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, e.Server)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(e.Sender); err != nil {
		return fmt.Errorf("smtp MAIL: %w", err)
	}
	for _, r := range e.Receivers {
		if err := c.Rcpt(r); err != nil {
			return fmt.Errorf("smtp RCPT %s: %w", r, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	return c.Quit()
}

// compose renders the MIME message: an HTML part and an optional
// base64 attachment.
func (e Email) compose() ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "Subject: %s\r\n", e.Subject)
	fmt.Fprintf(&buf, "From: %s\r\n", e.Sender)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(e.Receivers, ", "))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	html, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := html.Write([]byte(e.htmlBody())); err != nil {
		return nil, err
	}

	if e.Attachment != "" {
		data, err := os.ReadFile(e.Attachment)
		if err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/octet-stream"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filepath.Base(e.Attachment))},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64Lines(part, data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e Email) htmlBody() string {
	var tbl string
	if e.Table != nil {
		tbl = e.Table.HTML()
	}
	return "<html>\n<body>\n<p>" + e.BodyText + " <br>\n" + tbl + "\n</p>\n</body>\n</html>\n"
}

// HTML renders the table with go-pretty.
func (t *Table) HTML() string {
	tw := table.NewWriter()
	header := make(table.Row, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, r := range t.Rows {
		tw.AppendRow(table.Row(r))
	}
	tw.Style().HTML = table.HTMLOptions{
		CSSClass:    "blux-table",
		EmptyColumn: "&nbsp;",
		EscapeText:  true,
		Newline:     "<br/>",
	}
	return tw.RenderHTML()
}

// writeBase64Lines writes data base64-encoded in 76 character lines.
func writeBase64Lines(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		if _, err := fmt.Fprintf(w, "%s\r\n", enc[:76]); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err := fmt.Fprintf(w, "%s\r\n", enc)
	return err
}
