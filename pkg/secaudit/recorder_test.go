package secaudit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRecorder(t *testing.T) (*DBRecorder, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS security_events`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	recorder, err := NewDBRecorder(db)
	require.NoError(t, err)
	return recorder, mock, db
}

func TestDBRecorder_Record(t *testing.T) {
	recorder, mock, db := newMockRecorder(t)
	defer db.Close()

	t.Run("event gets id and timestamp", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO security_events`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		userID := int64(10)
		claimed := int64(2)
		target := int64(1)
		event := &Event{
			Type:         EventCrossTenantWrite,
			Severity:     SeverityCritical,
			UserID:       &userID,
			ClaimedOrgID: &claimed,
			TargetOrgID:  &target,
			Resource:     "requisition",
			Blocked:      true,
		}
		err := recorder.Record(context.Background(), event)
		require.NoError(t, err)
		assert.Equal(t, int64(7), event.ID)
		assert.False(t, event.CreatedAt.IsZero())
	})

	t.Run("severity defaults to info", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO security_events`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))

		event := &Event{Type: EventLoginFailed}
		err := recorder.Record(context.Background(), event)
		require.NoError(t, err)
		assert.Equal(t, SeverityInfo, event.Severity)
	})

	t.Run("record survives a cancelled caller context", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO security_events`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := recorder.Record(ctx, &Event{Type: EventInvariantViolation, Severity: SeverityCritical, Blocked: true})
		require.NoError(t, err, "audit write must not die with the denied operation")
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRecorder_List(t *testing.T) {
	recorder, mock, db := newMockRecorder(t)
	defer db.Close()

	now := time.Now()
	userID := int64(10)
	rows := sqlmock.NewRows([]string{
		"id", "type", "severity", "user_id", "claimed_org_id", "target_org_id",
		"resource", "resource_id", "blocked", "detail", "ip_address", "request_id", "created_at",
	}).
		AddRow(2, EventCrossTenantRead, SeverityCritical, userID, 2, 1, "requisition", "55", true, "", "10.0.0.9", "req-1", now).
		AddRow(1, EventLoginFailed, SeverityInfo, userID, nil, nil, "", "", false, "bad password", "10.0.0.9", "req-0", now.Add(-time.Minute))

	mock.ExpectQuery(`SELECT .+ FROM security_events`).
		WillReturnRows(rows)

	severity := SeverityCritical
	events, err := recorder.List(context.Background(), Filter{Severity: &severity, Limit: 50})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventCrossTenantRead, events[0].Type)
	assert.True(t, events[0].Blocked)
	assert.Equal(t, int64(2), *events[0].ClaimedOrgID)
	assert.Equal(t, int64(1), *events[0].TargetOrgID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRecorder_CountBySeverity(t *testing.T) {
	recorder, mock, db := newMockRecorder(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT severity, COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"severity", "count"}).
			AddRow("info", 12).
			AddRow("warning", 3).
			AddRow("critical", 1))

	counts, err := recorder.CountBySeverity(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(12), counts.Info)
	assert.Equal(t, int64(3), counts.Warning)
	assert.Equal(t, int64(1), counts.Critical)
	assert.Equal(t, int64(16), counts.Total())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRecorder_CrossTenantAttemptsByUser(t *testing.T) {
	recorder, mock, db := newMockRecorder(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT user_id, COUNT\(\*\), MAX\(created_at\)`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "count", "max"}).
			AddRow(20, 5, now).
			AddRow(31, 1, now.Add(-30*time.Minute)))

	attempts, err := recorder.CrossTenantAttemptsByUser(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, int64(20), attempts[0].UserID)
	assert.Equal(t, int64(5), attempts[0].Attempts)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRecorder_Prune(t *testing.T) {
	recorder, mock, db := newMockRecorder(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM security_events`).
		WillReturnResult(sqlmock.NewResult(0, 42))

	pruned, err := recorder.Prune(context.Background(), DefaultRetentionPolicy())
	require.NoError(t, err)
	assert.Equal(t, int64(42), pruned)

	require.NoError(t, mock.ExpectationsWereMet())
}
