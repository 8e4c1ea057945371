package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"sync"

	"go.uber.org/zap"
)

type NotificationKind string

const (
	NotifyPaymentReceipt        NotificationKind = "payment_receipt"
	NotifyPaymentFailed         NotificationKind = "payment_failed"
	NotifySubscriptionCancelled NotificationKind = "subscription_cancelled"
)

// Notifier delivers a message of some kind to a recipient. The core does not
// care how the message is composed or transported.
type Notifier interface {
	Notify(kind NotificationKind, recipient string, payload map[string]string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string

	AppName    string
	AppBaseURL string
}

type smtpNotifier struct {
	cfg SMTPConfig
	tpl *template.Template
}

func NewSMTPNotifier(cfg SMTPConfig) Notifier {
	return &smtpNotifier{
		cfg: cfg,
		tpl: template.Must(template.New("notify").Parse(notifyHTMLTemplate)),
	}
}

type emailContent struct {
	Subject string
	Name    string
	Lines   []string
	LinkURL string
	LinkTxt string
	AppName string
}

func (n *smtpNotifier) Notify(kind NotificationKind, recipient string, payload map[string]string) error {
	content, err := n.compose(kind, payload)
	if err != nil {
		return err
	}
	return n.send(recipient, content)
}

func (n *smtpNotifier) compose(kind NotificationKind, payload map[string]string) (emailContent, error) {
	name := payload["name"]
	if name == "" {
		name = "there"
	}
	plan := payload["plan"]

	switch kind {
	case NotifyPaymentReceipt:
		return emailContent{
			Subject: fmt.Sprintf("Payment Receipt - %s", n.cfg.AppName),
			Name:    name,
			Lines: []string{
				fmt.Sprintf("Your payment for the %s plan has been received.", plan),
				fmt.Sprintf("Amount: %s %s", payload["amount"], payload["currency"]),
			},
			LinkURL: payload["invoice_url"],
			LinkTxt: "Download your invoice",
			AppName: n.cfg.AppName,
		}, nil
	case NotifyPaymentFailed:
		return emailContent{
			Subject: fmt.Sprintf("Payment Failed - %s", n.cfg.AppName),
			Name:    name,
			Lines: []string{
				fmt.Sprintf("We could not process your payment for the %s plan.", plan),
				fmt.Sprintf("Amount due: %s %s", payload["amount"], payload["currency"]),
				"Please update your payment method to avoid service interruption.",
			},
			LinkURL: n.cfg.AppBaseURL + "/billing",
			LinkTxt: "Update Payment Method",
			AppName: n.cfg.AppName,
		}, nil
	case NotifySubscriptionCancelled:
		line := fmt.Sprintf("Your %s plan has been scheduled for cancellation. You will keep access until %s.", plan, payload["effective_date"])
		if payload["mode"] == "immediate" {
			line = fmt.Sprintf("Your %s plan has been cancelled. You are now on the FREE plan.", plan)
		}
		return emailContent{
			Subject: fmt.Sprintf("Subscription Cancelled - %s", n.cfg.AppName),
			Name:    name,
			Lines:   []string{line},
			AppName: n.cfg.AppName,
		}, nil
	}
	return emailContent{}, fmt.Errorf("unknown notification kind %q", kind)
}

func (n *smtpNotifier) send(to string, content emailContent) error {
	var body bytes.Buffer
	if err := n.tpl.Execute(&body, content); err != nil {
		return err
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", n.cfg.FromName, n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", content.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	return smtp.SendMail(addr, auth, n.cfg.From, []string{to}, msg.Bytes())
}

const notifyHTMLTemplate = `<!doctype html>
<html>
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="font-family:Arial,Helvetica,sans-serif;color:#1f2937;margin:0;padding:24px;">
  <h2 style="color:#111827;">{{.Subject}}</h2>
  <p>Hi {{.Name}},</p>
  {{range .Lines}}<p>{{.}}</p>{{end}}
  {{if .LinkURL}}<p><a href="{{.LinkURL}}" style="color:#2563eb;">{{.LinkTxt}}</a></p>{{end}}
  <p style="color:#6b7280;font-size:12px;">— {{.AppName}}</p>
</body>
</html>`

// NotificationDispatcher runs notifications after the controlling transaction
// has committed. Delivery failures are logged and never propagate, so a failed
// email is structurally incapable of rolling back or failing the operation
// that triggered it.
type NotificationDispatcher struct {
	notifier Notifier
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewNotificationDispatcher(notifier Notifier, logger *zap.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{notifier: notifier, logger: logger}
}

func (d *NotificationDispatcher) Dispatch(kind NotificationKind, recipient string, payload map[string]string) {
	if recipient == "" {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.notifier.Notify(kind, recipient, payload); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("kind", string(kind)),
				zap.String("recipient", recipient),
				zap.Error(err))
		}
	}()
}

// Wait blocks until all dispatched notifications have finished. Used on
// shutdown and in tests.
func (d *NotificationDispatcher) Wait() {
	d.wg.Wait()
}
