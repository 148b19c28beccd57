package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"ms-membership/internal/config"
	"ms-membership/internal/logger"
)

// EmailNotifier sends the confirmation mail with the generated member
// numbers over plain SMTP.
type EmailNotifier struct {
	cfg config.EmailConfig
	log *logger.Logger
}

func NewEmailNotifier(cfg config.EmailConfig, log *logger.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, log: log}
}

func (n *EmailNotifier) SendPledgeConfirmation(ctx context.Context, email string, memberNumbers []string) error {
	if !n.cfg.Enabled {
		n.log.LogNotify("email", "email disabled, skipping confirmation to "+email)
		return nil
	}

	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your membership is ready\r\n\r\n"+
			"Thank you for your pledge!\r\n\r\nYour member number(s):\r\n%s\r\n",
		n.cfg.From, email, strings.Join(memberNumbers, "\r\n"))

	addr := n.cfg.SMTPHost + ":" + n.cfg.SMTPPort
	auth := smtp.PlainAuth("", n.cfg.SMTPUsername, n.cfg.SMTPPassword, n.cfg.SMTPHost)

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{email}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send confirmation to %s: %w", email, err)
	}

	n.log.LogNotify("email", fmt.Sprintf("confirmation sent to %s (%d member numbers)", email, len(memberNumbers)))
	return nil
}

var _ Notifier = (*EmailNotifier)(nil)
