package secaudit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Recorder appends security events. Recording runs on a separately
// privileged path: it must succeed even when the operation it reports was
// denied, so implementations never enroll in the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

// recordTimeout bounds the audit write so a slow log cannot stall the
// decision it records
const recordTimeout = 5 * time.Second

// DBRecorder implements Recorder and the aggregation views on PostgreSQL.
// It is constructed with its own *sql.DB handle, distinct from the one used
// for business data, so audit writes are not subject to the tenant-scoped
// policy they report on.
type DBRecorder struct {
	db *sql.DB
}

// NewDBRecorder creates a recorder and ensures the security_events table exists
func NewDBRecorder(db *sql.DB) (*DBRecorder, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	r := &DBRecorder{db: db}
	if err := r.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure security_events table: %w", err)
	}
	return r, nil
}

func (r *DBRecorder) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS security_events (
		id BIGSERIAL PRIMARY KEY,
		type VARCHAR(50) NOT NULL,
		severity VARCHAR(20) NOT NULL,
		user_id BIGINT,
		claimed_org_id BIGINT,
		target_org_id BIGINT,
		resource VARCHAR(50),
		resource_id VARCHAR(255),
		blocked BOOLEAN NOT NULL DEFAULT FALSE,
		detail TEXT,
		ip_address VARCHAR(45),
		request_id VARCHAR(100),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_security_events_created_at ON security_events(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_security_events_type ON security_events(type);
	CREATE INDEX IF NOT EXISTS idx_security_events_severity ON security_events(severity);
	CREATE INDEX IF NOT EXISTS idx_security_events_user ON security_events(user_id);
	`
	_, err := r.db.Exec(query)
	return err
}

// Record appends an event. The write uses its own deadline, detached from
// any cancellation of the denied operation, so denial is always observable.
func (r *DBRecorder) Record(ctx context.Context, event *Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}

	// Detach from caller cancellation but keep a bound of our own
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	query := `
		INSERT INTO security_events (
			type, severity, user_id, claimed_org_id, target_org_id,
			resource, resource_id, blocked, detail, ip_address, request_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := r.db.QueryRowContext(writeCtx, query,
		event.Type, event.Severity, event.UserID, event.ClaimedOrgID, event.TargetOrgID,
		event.Resource, event.ResourceID, event.Blocked, event.Detail,
		event.IPAddress, event.RequestID, event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}
	return nil
}

// List returns events matching the filter, newest first
func (r *DBRecorder) List(ctx context.Context, filter Filter) ([]*Event, error) {
	query := `
		SELECT id, type, severity, user_id, claimed_org_id, target_org_id,
		       resource, resource_id, blocked, detail, ip_address, request_id, created_at
		FROM security_events
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if len(filter.Types) > 0 {
		query += fmt.Sprintf(" AND type = ANY($%d)", argCount)
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		argCount++
	}
	if filter.Severity != nil {
		query += fmt.Sprintf(" AND severity = $%d", argCount)
		args = append(args, string(*filter.Severity))
		argCount++
	}
	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, *filter.UserID)
		argCount++
	}
	if filter.OrgID != nil {
		query += fmt.Sprintf(" AND (claimed_org_id = $%d OR target_org_id = $%d)", argCount, argCount)
		args = append(args, *filter.OrgID)
		argCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filter.Since)
		argCount++
	}
	if filter.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *filter.Until)
		argCount++
	}
	if filter.Blocked != nil {
		query += fmt.Sprintf(" AND blocked = $%d", argCount)
		args = append(args, *filter.Blocked)
		argCount++
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
		argCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}
	defer rows.Close()

	events := make([]*Event, 0)
	for rows.Next() {
		event := &Event{}
		if err := rows.Scan(
			&event.ID, &event.Type, &event.Severity, &event.UserID,
			&event.ClaimedOrgID, &event.TargetOrgID, &event.Resource,
			&event.ResourceID, &event.Blocked, &event.Detail,
			&event.IPAddress, &event.RequestID, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CountBySeverity aggregates events over the trailing window
func (r *DBRecorder) CountBySeverity(ctx context.Context, window time.Duration) (*SeverityCounts, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM security_events
		WHERE created_at >= $1
		GROUP BY severity
	`
	rows, err := r.db.QueryContext(ctx, query, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to count events by severity: %w", err)
	}
	defer rows.Close()

	counts := &SeverityCounts{}
	for rows.Next() {
		var severity Severity
		var count int64
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, err
		}
		switch severity {
		case SeverityInfo:
			counts.Info = count
		case SeverityWarning:
			counts.Warning = count
		case SeverityCritical:
			counts.Critical = count
		}
	}
	return counts, rows.Err()
}

// CrossTenantAttemptsByUser groups cross-tenant attempts by principal over
// the trailing window, most attempts first
func (r *DBRecorder) CrossTenantAttemptsByUser(ctx context.Context, window time.Duration) ([]*PrincipalAttempts, error) {
	query := `
		SELECT user_id, COUNT(*), MAX(created_at)
		FROM security_events
		WHERE type IN ('cross_tenant_read', 'cross_tenant_write')
		  AND created_at >= $1
		  AND user_id IS NOT NULL
		GROUP BY user_id
		ORDER BY COUNT(*) DESC
	`
	rows, err := r.db.QueryContext(ctx, query, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cross-tenant attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*PrincipalAttempts, 0)
	for rows.Next() {
		a := &PrincipalAttempts{}
		if err := rows.Scan(&a.UserID, &a.Attempts, &a.LastSeen); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// CountByType counts events of one type over the trailing window
func (r *DBRecorder) CountByType(ctx context.Context, eventType EventType, window time.Duration) (int64, error) {
	query := `SELECT COUNT(*) FROM security_events WHERE type = $1 AND created_at >= $2`
	var count int64
	err := r.db.QueryRowContext(ctx, query, eventType, time.Now().Add(-window)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Prune deletes events past their severity-dependent retention window.
// The only deletion path in the package; individual events are never updated.
func (r *DBRecorder) Prune(ctx context.Context, policy RetentionPolicy) (int64, error) {
	query := `
		DELETE FROM security_events
		WHERE (severity = 'info' AND created_at < $1)
		   OR (severity = 'warning' AND created_at < $2)
		   OR (severity = 'critical' AND created_at < $3)
	`
	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		now.Add(-policy.Info), now.Add(-policy.Warning), now.Add(-policy.Critical))
	if err != nil {
		return 0, fmt.Errorf("failed to prune security events: %w", err)
	}
	return result.RowsAffected()
}
