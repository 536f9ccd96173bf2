package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/config"
	"github.com/sells-group/yrfi-cli/internal/notify"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate  AlertType = "run_failure_rate"
	AlertStaleData    AlertType = "stale_data"
	AlertStageFailure AlertType = "stage_failure"
)

// repeatedStageFailures is how many failures of one stage within the
// window raise AlertStageFailure.
const repeatedStageFailures = 3

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and delivers
// alerts to a webhook and, when set, a chat sender.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	sender notify.Sender
}

// NewAlerter creates an Alerter. sender may be nil.
func NewAlerter(cfg config.MonitoringConfig, sender notify.Sender) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		sender: sender,
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.Complete + snap.Failed
	if finished >= 5 && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.Failed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if a.cfg.MaxRunAgeHours > 0 {
		maxAge := time.Duration(a.cfg.MaxRunAgeHours) * time.Hour
		switch {
		case snap.LastDaily.IsZero():
			alerts = append(alerts, Alert{
				Type:      AlertStaleData,
				Severity:  "medium",
				Message:   "No daily run has completed yet",
				Timestamp: now,
			})
		case snap.CollectedAt.Sub(snap.LastDaily) > maxAge:
			age := snap.CollectedAt.Sub(snap.LastDaily).Round(time.Minute)
			alerts = append(alerts, Alert{
				Type:     AlertStaleData,
				Severity: "high",
				Message:  fmt.Sprintf("Last complete daily run was %s ago (limit %dh)", age, a.cfg.MaxRunAgeHours),
				Details: map[string]any{
					"last_daily": snap.LastDaily,
					"age_hours":  age.Hours(),
				},
				Timestamp: now,
			})
		}
	}

	stages := make([]string, 0, len(snap.FailedStages))
	for name, n := range snap.FailedStages {
		if n >= repeatedStageFailures {
			stages = append(stages, name)
		}
	}
	sort.Strings(stages)
	for _, name := range stages {
		alerts = append(alerts, Alert{
			Type:     AlertStageFailure,
			Severity: "medium",
			Message:  fmt.Sprintf("Stage %s failed %d times in last %dh", name, snap.FailedStages[name], snap.LookbackHours),
			Details: map[string]any{
				"stage":    name,
				"failures": snap.FailedStages[name],
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the webhook, one request each, and to the
// sender as a single message. Returns the number of alerts delivered
// through at least one channel.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if len(alerts) == 0 {
		return 0
	}

	delivered := make([]bool, len(alerts))
	if a.cfg.WebhookURL != "" {
		for i, alert := range alerts {
			if err := a.sendWebhook(ctx, alert); err != nil {
				zap.L().Error("monitoring: failed to send alert",
					zap.String("type", string(alert.Type)),
					zap.Error(err),
				)
				continue
			}
			zap.L().Info("monitoring: alert sent",
				zap.String("type", string(alert.Type)),
				zap.String("severity", alert.Severity),
			)
			delivered[i] = true
		}
	}

	if a.sender != nil {
		if err := a.sender.Send(ctx, FormatAlerts(alerts)); err != nil {
			zap.L().Error("monitoring: failed to send alert message", zap.Error(err))
		} else {
			for i := range delivered {
				delivered[i] = true
			}
		}
	}

	sent := 0
	for _, ok := range delivered {
		if ok {
			sent++
		}
	}
	return sent
}

// FormatAlerts renders alerts as one chat message.
func FormatAlerts(alerts []Alert) string {
	var b strings.Builder
	b.WriteString("*YRFI pipeline alerts*\n")
	for _, a := range alerts {
		fmt.Fprintf(&b, "\n[%s] %s", a.Severity, notify.Escape(a.Message))
	}
	return b.String()
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
