package digest

import (
	"context"
	"errors"
	"testing"

	"github.com/castlemilk/pfinance/insights/internal/config"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailNotifier(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{Host: "smtp.test", Port: 587, Sender: "insights@test"})

	var sent *email.Email
	n.send = func(e *email.Email) error {
		sent = e
		return nil
	}

	pa := alerting()
	pa.Recommendation = "Cash-flow alert: review upcoming payments."
	pa.RecurringPatterns = []insights.RecurringPattern{
		{Description: "NETFLIX.COM", AverageAmount: 15.99, Frequency: insights.Monthly, Type: insights.Expense},
		{Description: "ACME PAYROLL", AverageAmount: 4000, Frequency: insights.Monthly, Type: insights.Income},
	}

	err := n.Notify(context.Background(), Alert{
		Recipient: config.Recipient{UserID: "alice", Email: "alice@example.com"},
		Analysis:  pa,
	})
	require.NoError(t, err)
	require.NotNil(t, sent)

	assert.Equal(t, "insights@test", sent.From)
	assert.Equal(t, []string{"alice@example.com"}, sent.To)
	assert.Equal(t, "Cash-flow alert: balance may go negative in 4 days", sent.Subject)

	text := string(sent.Text)
	assert.Contains(t, text, "Days at risk: 4, 5, 6")
	assert.Contains(t, text, "15.99")
	assert.NotContains(t, text, "4000.00 monthly")
	assert.Contains(t, text, pa.Recommendation)
}

func TestEmailNotifierErrors(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{Host: "smtp.test", Port: 587})
	n.send = func(*email.Email) error { return errors.New("connection refused") }

	err := n.Notify(context.Background(), Alert{Recipient: config.Recipient{UserID: "bob"}})
	assert.ErrorContains(t, err, "no e-mail address")

	err = n.Notify(context.Background(), Alert{
		Recipient: config.Recipient{UserID: "bob", Email: "bob@example.com"},
		Analysis:  alerting(),
	})
	assert.ErrorContains(t, err, "failed to send email to bob@example.com")
}

func TestSubjectWithoutAlertDays(t *testing.T) {
	assert.Equal(t, "Cash-flow alert: projected balance dips below zero",
		subject(insights.PredictiveAnalysis{HasCashFlowAlert: true}))
}
