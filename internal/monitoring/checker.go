package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/config"
)

const (
	defaultCheckInterval = 15 * time.Minute
	// defaultRepeatAfter keeps a still-firing alert from being resent on
	// every tick. The daily pipeline only changes once a day.
	defaultRepeatAfter = 6 * time.Hour
)

// Checker evaluates run health on demand or on a ticker, remembering what
// it already sent.
type Checker struct {
	collector   *Collector
	alerter     *Alerter
	lookback    int
	interval    time.Duration
	repeatAfter time.Duration
	now         func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewChecker wires a collector and alerter with the monitoring settings.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Checker{
		collector:   collector,
		alerter:     alerter,
		lookback:    cfg.LookbackWindowHours,
		interval:    interval,
		repeatAfter: defaultRepeatAfter,
		now:         time.Now,
		lastSent:    make(map[string]time.Time),
	}
}

// Run checks once per interval until ctx is done. Collection errors are
// logged and the loop keeps going.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring"))
	log.Info("run-health checker started",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("run-health checker stopped")
			return
		case <-ticker.C:
			if _, err := c.Check(ctx); err != nil {
				log.Error("run-health check failed", zap.Error(err))
			}
		}
	}
}

// Check collects a snapshot and returns every alert it raises. Only alerts
// not sent within the repeat window are delivered.
func (c *Checker) Check(ctx context.Context) ([]Alert, error) {
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		return nil, err
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		zap.L().Debug("monitoring: all runs healthy", zap.Int("runs", snap.Total))
		return nil, nil
	}

	fresh := c.unsent(alerts)
	sent := 0
	if len(fresh) > 0 {
		sent = c.alerter.SendAlerts(ctx, fresh)
	}
	zap.L().Info("monitoring: alerts raised",
		zap.Int("raised", len(alerts)),
		zap.Int("suppressed", len(alerts)-len(fresh)),
		zap.Int("delivered", sent),
	)
	return alerts, nil
}

// unsent filters out alerts delivered within repeatAfter and marks the
// rest as sent now.
func (c *Checker) unsent(alerts []Alert) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var fresh []Alert
	for _, a := range alerts {
		key := alertKey(a)
		if last, ok := c.lastSent[key]; ok && now.Sub(last) < c.repeatAfter {
			continue
		}
		c.lastSent[key] = now
		fresh = append(fresh, a)
	}
	return fresh
}

// alertKey separates stage alerts per stage so a second failing stage is
// not hidden behind the first.
func alertKey(a Alert) string {
	if stage, ok := a.Details["stage"]; ok {
		return fmt.Sprintf("%s/%v", a.Type, stage)
	}
	return string(a.Type)
}
