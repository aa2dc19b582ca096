package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	sharedcfg "github.com/leapstack-labs/blux/internal/config"
	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/leapstack-labs/blux/pkg/notify"
)

const (
	notifyTimeout   = 2 * time.Minute
	defaultSMTPPort = 25
)

// NewNotifyCommand creates the notify command and its subcommands.
func NewNotifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send notifications",
		Long: `Send a webhook card or an email outside of a load, for example to
announce a job status from a scheduler script. Settings come from the
notify section of blux.yaml and may be overridden by flags.`,
	}

	cmd.AddCommand(newNotifyWebhookCommand())
	cmd.AddCommand(newNotifyEmailCommand())
	cmd.AddCommand(newNotifyReportCommand())
	return cmd
}

type webhookOptions struct {
	URL     string
	Title   string
	Text    string
	Status  string
	Message string
	Error   string
}

func newNotifyWebhookCommand() *cobra.Command {
	opts := &webhookOptions{}

	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Post a message card to an incoming webhook",
		Example: `  blux notify webhook --title "nightly sales" --text "stage.sales" --message "done"
  blux notify webhook --status FAILLED --error "ORA-00942: table or view does not exist"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			url := opts.URL
			if url == "" {
				url = cmdCtx.Cfg.Notify.Webhook
			}
			if url == "" {
				return fmt.Errorf("no webhook URL\nHint: Pass --url or set notify.webhook in blux.yaml")
			}
			msg := notify.Message{
				Title:        firstNonEmpty(opts.Title, notifyTitle(cmdCtx)),
				Text:         opts.Text,
				Status:       opts.Status,
				Message:      opts.Message,
				ErrorMessage: opts.Error,
			}
			if opts.Error != "" && opts.Status == "" {
				msg.Status = core.StatusFailed
			}

			ctx, cancel := notifyContext(cmd)
			defer cancel()
			if err := notify.NewWebhook(url, notify.WithWebhookLogger(cmdCtx.Logger)).Notify(ctx, msg); err != nil {
				return err
			}
			cmdCtx.Renderer.Println("webhook sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "Webhook URL (default: notify.webhook)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "Card title (default: notify.title)")
	cmd.Flags().StringVar(&opts.Text, "text", "", "Card text")
	cmd.Flags().StringVar(&opts.Status, "status", core.StatusSuccess, "Status shown on the card")
	cmd.Flags().StringVar(&opts.Message, "message", "", "Output message")
	cmd.Flags().StringVar(&opts.Error, "error", "", "Error message; marks the card as failed")
	return cmd
}

type emailOptions struct {
	To         []string
	Subject    string
	Body       string
	Attachment string
	TableFile  string
	Delimiter  string
}

func newNotifyEmailCommand() *cobra.Command {
	opts := &emailOptions{}

	cmd := &cobra.Command{
		Use:   "email",
		Short: "Send an HTML email through the configured SMTP relay",
		Example: `  blux notify email --subject "sales extract" --body "Attached." --attach out.csv
  blux notify email --subject "top regions" --table regions.csv --to ops@example.com`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			smtpCfg := mailerConfig(cmdCtx.Cfg.Notify.SMTP)
			if len(opts.To) > 0 {
				smtpCfg.Receivers = opts.To
			}

			e := notify.Email{
				Server:     smtpCfg.Server,
				Port:       smtpCfg.Port,
				Sender:     smtpCfg.Sender,
				Receivers:  smtpCfg.Receivers,
				Subject:    opts.Subject,
				BodyText:   opts.Body,
				Attachment: opts.Attachment,
			}
			if opts.TableFile != "" {
				delim, err := parseDelimiter(opts.Delimiter)
				if err != nil {
					return err
				}
				cols, rows, err := readCSV(opts.TableFile, delim)
				if err != nil {
					return err
				}
				e.Table = mailTable(cols, rows)
			}

			ctx, cancel := notifyContext(cmd)
			defer cancel()
			if err := notify.NewMailer(smtpCfg).Send(ctx, e); err != nil {
				return err
			}
			cmdCtx.Renderer.Printf("email sent to %d receivers\n", len(e.Receivers))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&opts.To, "to", nil, "Receivers (default: notify.smtp.receivers)")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "Mail subject (required)")
	cmd.Flags().StringVar(&opts.Body, "body", "", "Body text")
	cmd.Flags().StringVar(&opts.Attachment, "attach", "", "File to attach")
	cmd.Flags().StringVar(&opts.TableFile, "table", "", "Delimited file rendered as an HTML table in the body")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", ",", "Field delimiter of --table")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newNotifyReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report <load-id>",
		Short: "Re-send notifications for a journaled load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			notifier, err := buildNotifier(cmdCtx)
			if err != nil {
				return err
			}
			store, err := cmdCtx.OpenJournal()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := store.GetLoad(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ctx, cancel := notifyContext(cmd)
			defer cancel()
			if err := notifier.Notify(ctx, notify.FromReport(notifyTitle(cmdCtx), report)); err != nil {
				return err
			}
			cmdCtx.Renderer.Printf("notified load %s\n", report.ID)
			return nil
		},
	}
}

// buildNotifier assembles every notifier enabled in the configuration.
func buildNotifier(c *CommandContext) (notify.Notifier, error) {
	var multi notify.Multi
	if url := c.Cfg.Notify.Webhook; url != "" {
		multi = append(multi, notify.NewWebhook(url, notify.WithWebhookLogger(c.Logger)))
	}
	if smtpCfg := c.Cfg.Notify.SMTP; smtpCfg.Enabled() {
		multi = append(multi, notify.NewMailer(mailerConfig(smtpCfg)))
	}
	if len(multi) == 0 {
		return nil, errors.New("no notifications configured\nHint: Set notify.webhook or notify.smtp in blux.yaml")
	}
	return multi, nil
}

func mailerConfig(c sharedcfg.SMTPConfig) notify.SMTPConfig {
	port := c.Port
	if port == 0 {
		port = defaultSMTPPort
	}
	return notify.SMTPConfig{
		Server:     c.Server,
		Port:       port,
		Sender:     c.Sender,
		Receivers:  c.Receivers,
		Username:   c.Username,
		Password:   c.Password,
		RequireTLS: c.RequireTLS,
	}
}

func mailTable(cols core.ColumnSet, rows []core.Row) *notify.Table {
	t := &notify.Table{Header: cols.Names(), Rows: make([][]any, len(rows))}
	for i, row := range rows {
		t.Rows[i] = row
	}
	return t
}

func notifyTitle(c *CommandContext) string {
	return firstNonEmpty(c.Cfg.Notify.Title, sharedcfg.DefaultTitle)
}

func notifyContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, notifyTimeout)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
