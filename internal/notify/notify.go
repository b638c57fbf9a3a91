// Package notify delivers monitor regressions to a webhook.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/doha-kr/siteaudit/internal/history"
	"github.com/doha-kr/siteaudit/internal/report"
)

// maxListed caps the findings spelled out in the message text.
const maxListed = 10

// Payload is the JSON body posted to the webhook. Text makes it usable as a
// Slack or Mattermost incoming-webhook message as is.
type Payload struct {
	Text     string           `json:"text"`
	RunID    string           `json:"run_id"`
	Kind     report.Kind      `json:"kind"`
	Target   string           `json:"target"`
	New      []report.Finding `json:"new"`
	Resolved int              `json:"resolved"`
}

// Webhook posts a Payload whenever a run introduces findings at or above
// MinSeverity.
type Webhook struct {
	URL         string
	MinSeverity report.Severity
	client      *resty.Client
}

// NewWebhook returns a notifier for url. An empty minSeverity means warning.
func NewWebhook(url string, minSeverity report.Severity) *Webhook {
	if minSeverity == "" {
		minSeverity = report.SeverityWarning
	}
	return &Webhook{
		URL:         url,
		MinSeverity: minSeverity,
		client: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

// Notify sends the regressions in d. It returns false when nothing
// qualified and no request was made.
func (w *Webhook) Notify(ctx context.Context, r *report.Report, d history.Diff) (bool, error) {
	var qualifying []report.Finding
	for _, f := range d.New {
		if f.Severity.AtLeast(w.MinSeverity) {
			qualifying = append(qualifying, f)
		}
	}
	if len(qualifying) == 0 {
		return false, nil
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(Payload{
			Text:     Message(r, qualifying, len(d.Resolved)),
			RunID:    r.ID,
			Kind:     r.Kind,
			Target:   r.Target,
			New:      qualifying,
			Resolved: len(d.Resolved),
		}).
		Post(w.URL)
	if err != nil {
		return false, fmt.Errorf("sending webhook: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return false, fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return true, nil
}

// Message renders the human-readable text of a notification.
func Message(r *report.Report, findings []report.Finding, resolved int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "siteaudit %s of %s: %d new finding(s)", r.Kind, r.Target, len(findings))
	if resolved > 0 {
		fmt.Fprintf(&b, ", %d resolved", resolved)
	}
	for i, f := range findings {
		if i == maxListed {
			fmt.Fprintf(&b, "\n... and %d more", len(findings)-maxListed)
			break
		}
		fmt.Fprintf(&b, "\n- [%s] %s: %s", f.Severity, f.File, f.Message)
	}
	return b.String()
}
