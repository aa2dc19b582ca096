// Package notify sends load outcomes to people: Teams-style webhooks and
// SMTP mail. Delivery is best effort and never part of a load's result.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/blux/pkg/core"
)

// Notifier delivers one message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Message is a notification about a finished job.
type Message struct {
	Title            string
	Text             string
	Status           string // core.StatusSuccess or core.StatusFailed
	Message          string
	ErrorMessage     string
	ActivitySubtitle string
	ActivityText     string
}

// Failed reports whether the message describes a failed job.
func (m Message) Failed() bool { return m.Status == core.StatusFailed }

// FromReport summarizes a load report.
func FromReport(title string, r *core.LoadReport) Message {
	msg := Message{
		Title:            title,
		Text:             fmt.Sprintf("Load into %s (%s)", r.Table, r.Dialect),
		Status:           r.Status(),
		ActivitySubtitle: r.StartedAt.UTC().Format("2006-01-02 15:04:05 MST"),
		ActivityText:     fmt.Sprintf("%d of %d rows loaded in %d chunks", r.Succeeded, r.Attempted, r.Chunks),
		Message:          fmt.Sprintf("load %s finished in %s", r.ID, r.Duration.Round(time.Millisecond)),
	}
	if msg.Failed() {
		var lines []string
		lines = append(lines, r.Errors...)
		lines = append(lines, r.Warnings...)
		msg.ErrorMessage = strings.Join(nonEmpty(lines), "\n")
	}
	return msg
}

func nonEmpty(ss []string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Multi fans a message out to every notifier concurrently.
type Multi []Notifier

// Notify delivers msg everywhere and joins the failures.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	errs := make([]error, len(m))
	var g errgroup.Group
	for i, n := range m {
		g.Go(func() error {
			errs[i] = n.Notify(ctx, msg)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
