package notify

import (
	"context"
	"encoding/base64"
	"net"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMail struct {
	from string
	rcpt []string
	data string
}

// startFakeSMTP accepts one session, records it and replies OK to
// everything. It never offers STARTTLS.
func startFakeSMTP(t *testing.T) (int, <-chan fakeMail) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	got := make(chan fakeMail, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP fake")

		var m fakeMail
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			upper := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(upper, "EHLO"):
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 8BITMIME")
			case strings.HasPrefix(upper, "MAIL FROM:"):
				m.from = line
				_ = tp.PrintfLine("250 OK")
			case strings.HasPrefix(upper, "RCPT TO:"):
				m.rcpt = append(m.rcpt, line)
				_ = tp.PrintfLine("250 OK")
			case upper == "DATA":
				_ = tp.PrintfLine("354 go ahead")
				data, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				m.data = string(data)
				_ = tp.PrintfLine("250 queued")
			case upper == "QUIT":
				_ = tp.PrintfLine("221 bye")
				got <- m
				return
			default:
				_ = tp.PrintfLine("250 OK")
			}
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, got
}

func receive(t *testing.T, got <-chan fakeMail) fakeMail {
	t.Helper()
	select {
	case m := <-got:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("fake smtp server received nothing")
		return fakeMail{}
	}
}

func TestMailer_Send(t *testing.T) {
	port, got := startFakeSMTP(t)

	attachment := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(attachment, []byte("id,name\n1,ada\n"), 0o600))

	err := NewMailer(SMTPConfig{}).Send(context.Background(), Email{
		Server:     "127.0.0.1",
		Port:       port,
		Sender:     "etl@example.com",
		Receivers:  []string{"a@example.com", "b@example.com"},
		Subject:    "Nightly load",
		BodyText:   "Loaded sales",
		Attachment: attachment,
		Table: &Table{
			Header: []string{"table", "rows"},
			Rows:   [][]any{{"sales", 42}},
		},
	})
	require.NoError(t, err)

	m := receive(t, got)
	assert.Contains(t, m.from, "<etl@example.com>")
	require.Len(t, m.rcpt, 2)
	assert.Contains(t, m.rcpt[1], "<b@example.com>")

	assert.Contains(t, m.data, "Subject: Nightly load")
	assert.Contains(t, m.data, "To: a@example.com, b@example.com")
	assert.Contains(t, m.data, "text/html; charset=utf-8")
	assert.Contains(t, m.data, "<p>Loaded sales <br>")
	assert.Contains(t, m.data, `class="blux-table"`)
	assert.Contains(t, m.data, "<td>sales</td>")
	assert.Contains(t, m.data, `attachment; filename="report.csv"`)
	assert.Contains(t, m.data, base64.StdEncoding.EncodeToString([]byte("id,name\n1,ada\n")))
}

func TestMailer_NotifyUsesConfig(t *testing.T) {
	port, got := startFakeSMTP(t)

	mailer := NewMailer(SMTPConfig{
		Server:    "127.0.0.1",
		Port:      port,
		Sender:    "etl@example.com",
		Receivers: []string{"ops@example.com"},
	})
	err := mailer.Notify(context.Background(), Message{
		Title:        "sales",
		Text:         "Load into sales",
		Status:       "FAILLED",
		ErrorMessage: "duplicate key",
	})
	require.NoError(t, err)

	m := receive(t, got)
	assert.Contains(t, m.data, "Subject: [FAILLED] sales")
	assert.Contains(t, m.data, "Load into sales <br>duplicate key")
}

func TestMailer_RequireTLS(t *testing.T) {
	port, _ := startFakeSMTP(t)

	err := NewMailer(SMTPConfig{RequireTLS: true}).Send(context.Background(), Email{
		Server:    "127.0.0.1",
		Port:      port,
		Sender:    "etl@example.com",
		Receivers: []string{"ops@example.com"},
		Subject:   "s",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STARTTLS")
}

func TestEmail_Validation(t *testing.T) {
	base := Email{
		Server:    "smtp.example.com",
		Port:      25,
		Sender:    "etl@example.com",
		Receivers: []string{"ops@example.com"},
		Subject:   "s",
	}
	tests := []struct {
		name   string
		mutate func(*Email)
	}{
		{"no receivers", func(e *Email) { e.Receivers = nil }},
		{"bad receiver", func(e *Email) { e.Receivers = []string{"not-an-address"} }},
		{"bad sender", func(e *Email) { e.Sender = "etl" }},
		{"no port", func(e *Email) { e.Port = 0 }},
		{"no subject", func(e *Email) { e.Subject = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			tt.mutate(&e)
			err := NewMailer(SMTPConfig{}).Send(context.Background(), e)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid email")
		})
	}
}

func TestWriteBase64Lines(t *testing.T) {
	var sb strings.Builder
	data := []byte(strings.Repeat("x", 200))
	require.NoError(t, writeBase64Lines(&sb, data))

	lines := strings.Split(strings.TrimSuffix(sb.String(), "\r\n"), "\r\n")
	for _, l := range lines[:len(lines)-1] {
		assert.Len(t, l, 76)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.Join(lines, ""))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}
