package digest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/castlemilk/pfinance/insights/internal/config"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer map[string]insights.PredictiveAnalysis

func (f fakeAnalyzer) Predict(_ context.Context, userID string) (insights.PredictiveAnalysis, error) {
	pa, ok := f[userID]
	if !ok {
		return insights.PredictiveAnalysis{}, errors.New("user not found")
	}
	return pa, nil
}

type fakeNotifier struct {
	sent []Alert
	fail map[string]bool
}

func (f *fakeNotifier) Notify(_ context.Context, a Alert) error {
	if f.fail[a.Recipient.UserID] {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, a)
	return nil
}

func alerting() insights.PredictiveAnalysis {
	return insights.PredictiveAnalysis{
		HasCashFlowAlert: true,
		CashFlow:         insights.CashFlowSummary{AlertDays: []int{4, 5, 6}},
	}
}

func testLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log, &buf
}

func TestRunnerRun(t *testing.T) {
	analyzer := fakeAnalyzer{
		"alice": alerting(),
		"bob":   {HasCashFlowAlert: false},
		"carol": alerting(),
	}
	notifier := &fakeNotifier{fail: map[string]bool{"carol": true}}
	recipients := []config.Recipient{
		{UserID: "alice", Email: "alice@example.com"},
		{UserID: "bob", Email: "bob@example.com"},
		{UserID: "carol", Email: "carol@example.com"},
		{UserID: "dave", Email: "dave@example.com"},
	}
	log, buf := testLogger()

	res, err := NewRunner(analyzer, notifier, recipients, log).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Checked: 4, Alerted: 1, Failed: 2}, res)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "alice@example.com", notifier.sent[0].Recipient.Email)
	assert.Contains(t, buf.String(), "Cash-flow digest complete")
}

func TestRunnerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	notifier := &fakeNotifier{}
	res, err := NewRunner(fakeAnalyzer{"alice": alerting()}, notifier,
		[]config.Recipient{{UserID: "alice"}}, nil).Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Checked)
	assert.Empty(t, notifier.sent)
}
