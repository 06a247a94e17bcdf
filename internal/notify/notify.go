package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"transparencia/internal"
	"transparencia/internal/config"
	gmailconnector "transparencia/internal/connectors/gmail"
)

const senderName = "Robo Transparencia"

type Notifier struct {
	cfg    config.Config
	sender enmime.Sender
	logger *slog.Logger
}

func New(cfg config.Config, sender enmime.Sender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{cfg: cfg, sender: sender, logger: logger}
}

// NewSender picks the mail transport named by MAIL_PROVIDER.
// The From address is mandatory for both providers.
func NewSender(cfg config.Config) (enmime.Sender, error) {
	if err := cfg.Require("EMAIL_REMETENTE", cfg.MailSender); err != nil {
		return nil, err
	}
	switch cfg.MailProvider {
	case "", "smtp":
		if err := cfg.Require("SENHA_EMAIL", cfg.MailPassword); err != nil {
			return nil, err
		}
		addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
		auth := smtp.PlainAuth("", cfg.MailSender, cfg.MailPassword, cfg.SMTPHost)
		return enmime.NewSMTP(addr, auth), nil
	case "gmail":
		return gmailconnector.NewSender(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", cfg.MailProvider)
	}
}

// Notify mails the run summary. A notifier without recipients is a no-op.
func (n *Notifier) Notify(ctx context.Context, summary internal.RunSummary) error {
	if !n.cfg.MailEnabled() {
		n.logger.Debug("no recipients configured, skipping notification")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	builder := enmime.Builder().
		From(senderName, n.cfg.MailSender).
		Subject(Subject(summary)).
		Text([]byte(Body(summary, n.cfg.SpreadsheetLink)))
	for _, to := range n.cfg.MailRecipients {
		builder = builder.To("", to)
	}

	if err := builder.Send(n.sender); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	n.logger.Info("notification sent", "run_id", summary.RunID, "recipients", len(n.cfg.MailRecipients))
	return nil
}

func Subject(summary internal.RunSummary) string {
	status := "OK"
	if summary.Failed() {
		status = "FALHA"
	}
	return fmt.Sprintf("[transparencia] sync %s %s", status, stamp(summary).Format("02/01/2006"))
}

func Body(summary internal.RunSummary, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Execucao %s em %s\n\n", summary.RunID, stamp(summary).Format("02/01/2006 15:04"))

	if summary.Err != nil {
		fmt.Fprintf(&b, "FALHA geral: %v\n", summary.Err)
	}
	for _, r := range summary.Results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(&b, "FALHA %s: %v\n", r.Feed, r.Err)
		case r.Count == 0:
			fmt.Fprintf(&b, "VAZIO %s -> %s: nenhum registro\n", r.Feed, r.Tab)
		case r.Period != nil:
			fmt.Fprintf(&b, "OK %s -> %s: %d registros (%s)\n", r.Feed, r.Tab, r.Count, r.Period)
		default:
			fmt.Fprintf(&b, "OK %s -> %s: %d registros\n", r.Feed, r.Tab, r.Count)
		}
	}

	if link != "" {
		fmt.Fprintf(&b, "\nPlanilha: %s\n", link)
	}
	return b.String()
}

func stamp(summary internal.RunSummary) time.Time {
	if summary.StartedAt.IsZero() {
		return time.Now()
	}
	return summary.StartedAt
}
