// Package digest sends cash-flow alerts to subscribed users on a schedule.
package digest

import (
	"context"
	"fmt"

	"github.com/castlemilk/pfinance/insights/internal/config"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/sirupsen/logrus"
)

// Analyzer builds a user's predictive analysis.
type Analyzer interface {
	Predict(ctx context.Context, userID string) (insights.PredictiveAnalysis, error)
}

// Alert is one notification about a projected deficit.
type Alert struct {
	Recipient config.Recipient
	Analysis  insights.PredictiveAnalysis
}

// Notifier delivers an alert.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Result counts the outcome of one run.
type Result struct {
	Checked int
	Alerted int
	Failed  int
}

// Runner checks every recipient once per Run.
type Runner struct {
	analyzer   Analyzer
	notifier   Notifier
	recipients []config.Recipient
	log        *logrus.Logger
}

// NewRunner creates a runner. A nil logger uses the standard logger.
func NewRunner(analyzer Analyzer, notifier Notifier, recipients []config.Recipient, log *logrus.Logger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{analyzer: analyzer, notifier: notifier, recipients: recipients, log: log}
}

// Run analyzes each recipient and notifies those whose projection shows a
// deficit. A failing recipient is logged and counted; the run continues.
// Run stops early only when ctx is done.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var res Result
	for _, rcpt := range r.recipients {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("digest interrupted after %d recipients: %w", res.Checked, err)
		}
		res.Checked++

		entry := r.log.WithField("user_id", rcpt.UserID)
		pa, err := r.analyzer.Predict(ctx, rcpt.UserID)
		if err != nil {
			res.Failed++
			entry.WithError(err).Warn("Failed to analyze recipient")
			continue
		}
		if !pa.HasCashFlowAlert {
			entry.Debug("No cash-flow alert")
			continue
		}

		if err := r.notifier.Notify(ctx, Alert{Recipient: rcpt, Analysis: pa}); err != nil {
			res.Failed++
			entry.WithError(err).Warn("Failed to send cash-flow alert")
			continue
		}
		res.Alerted++
		entry.WithField("alert_days", pa.CashFlow.AlertDays).Info("Sent cash-flow alert")
	}

	r.log.WithFields(logrus.Fields{
		"checked": res.Checked,
		"alerted": res.Alerted,
		"failed":  res.Failed,
	}).Info("Cash-flow digest complete")
	return res, nil
}
