package digest

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/castlemilk/pfinance/insights/internal/config"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/jordan-wright/email"
)

// EmailNotifier sends alerts over SMTP.
type EmailNotifier struct {
	cfg  config.SMTPConfig
	send func(e *email.Email) error
}

// NewEmailNotifier creates a notifier for the given SMTP server. Without a
// username no SMTP auth is attempted.
func NewEmailNotifier(cfg config.SMTPConfig) *EmailNotifier {
	n := &EmailNotifier{cfg: cfg}
	n.send = func(e *email.Email) error {
		var auth smtp.Auth
		if cfg.Username != "" {
			auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		}
		return e.Send(cfg.Addr(), auth)
	}
	return n
}

// Notify e-mails the alert to its recipient.
func (n *EmailNotifier) Notify(ctx context.Context, a Alert) error {
	if a.Recipient.Email == "" {
		return fmt.Errorf("recipient %s has no e-mail address", a.Recipient.UserID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = n.cfg.Sender
	e.To = []string{a.Recipient.Email}
	e.Subject = subject(a.Analysis)
	e.Text = []byte(body(a.Analysis))

	if err := n.send(e); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", a.Recipient.Email, err)
	}
	return nil
}

func subject(pa insights.PredictiveAnalysis) string {
	if days := pa.CashFlow.AlertDays; len(days) > 0 {
		return fmt.Sprintf("Cash-flow alert: balance may go negative in %d days", days[0])
	}
	return "Cash-flow alert: projected balance dips below zero"
}

func body(pa insights.PredictiveAnalysis) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "Estimated balance today: %.2f\n", pa.Balance.InitialBalance)
	fmt.Fprintf(&b, "Recurring income per month: %.2f\n", pa.CashFlow.MonthlyIncome)
	fmt.Fprintf(&b, "Recurring expenses per month: %.2f\n", pa.CashFlow.MonthlyExpenses)
	fmt.Fprintf(&b, "Lowest projected balance (30 days): %.2f\n", insights.LowestBalance(pa.Projection))
	if len(pa.CashFlow.AlertDays) > 0 {
		days := make([]string, len(pa.CashFlow.AlertDays))
		for i, d := range pa.CashFlow.AlertDays {
			days[i] = fmt.Sprint(d)
		}
		fmt.Fprintf(&b, "Days at risk: %s\n", strings.Join(days, ", "))
	}

	patterns := pa.RecurringPatterns
	if len(patterns) > 0 {
		b.WriteString("\nLargest recurring payments:\n")
		shown := 0
		for _, p := range patterns {
			if p.Type != insights.Expense {
				continue
			}
			fmt.Fprintf(&b, "  - %s: %.2f %s\n", insights.DisplayName(p.Description), p.AverageAmount, p.Frequency)
			if shown++; shown == 5 {
				break
			}
		}
	}

	if pa.Recommendation != "" {
		fmt.Fprintf(&b, "\n%s\n", pa.Recommendation)
	}
	b.WriteString("\nThis is an automated forecast based on your recurring transactions.\n")
	return b.String()
}
