package secaudit

import (
	"context"
	"fmt"
	"time"
)

// Monitor answers aggregate questions and evaluates alert thresholds over
// the security event log
type Monitor struct {
	recorder   *DBRecorder
	thresholds Thresholds
}

// NewMonitor creates a monitor with the given thresholds
func NewMonitor(recorder *DBRecorder, thresholds Thresholds) *Monitor {
	return &Monitor{recorder: recorder, thresholds: thresholds}
}

// CheckAlerts compares rolling one-hour counts against the thresholds and
// returns the standing alerts. Intended to be polled by an external
// scheduler; it never triggers anything itself.
func (m *Monitor) CheckAlerts(ctx context.Context) ([]Alert, error) {
	const window = time.Hour
	var alerts []Alert

	crossRead, err := m.recorder.CountByType(ctx, EventCrossTenantRead, window)
	if err != nil {
		return nil, err
	}
	crossWrite, err := m.recorder.CountByType(ctx, EventCrossTenantWrite, window)
	if err != nil {
		return nil, err
	}
	if cross := crossRead + crossWrite; cross >= m.thresholds.CrossTenantPerHour {
		alerts = append(alerts, Alert{
			Level:   AlertCritical,
			Message: fmt.Sprintf("%d cross-tenant access attempts in the last hour", cross),
			Action:  "Review cross_tenant events by principal and consider forcing a claims refresh or revoking memberships",
		})
	}

	violations, err := m.recorder.CountByType(ctx, EventInvariantViolation, window)
	if err != nil {
		return nil, err
	}
	if violations > 0 {
		alerts = append(alerts, Alert{
			Level:   AlertCritical,
			Message: fmt.Sprintf("%d tenant-invariant violations in the last hour", violations),
			Action:  "A code path attempted to create a record without a determinable tenant; find and fix the caller",
		})
	}

	denied, err := m.recorder.CountByType(ctx, EventAccessDeniedWrite, window)
	if err != nil {
		return nil, err
	}
	if denied >= m.thresholds.DeniedWritesPerHour {
		alerts = append(alerts, Alert{
			Level:   AlertWarning,
			Message: fmt.Sprintf("%d denied writes in the last hour", denied),
			Action:  "Check whether a client is retrying rejected writes or a role change left stale tokens in circulation",
		})
	}

	if len(alerts) == 0 {
		alerts = append(alerts, Alert{Level: AlertOK, Message: "no thresholds breached", Action: "none"})
	}
	return alerts, nil
}
