package tenancy

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the tenancy tables if they do not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS organizations (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		slug VARCHAR(255) NOT NULL UNIQUE,
		plan_tier VARCHAR(20) NOT NULL DEFAULT 'free',
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		max_users INTEGER NOT NULL DEFAULT 10,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS memberships (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		user_id BIGINT NOT NULL,
		org_role VARCHAR(20) NOT NULL,
		workflow_role VARCHAR(30) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		invited_by BIGINT,
		accepted_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		UNIQUE (organization_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS platform_admins (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE,
		ip_allow_list TEXT,
		session_timeout_minutes INTEGER NOT NULL DEFAULT 30,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		locked_until TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id) WHERE is_active;
	CREATE INDEX IF NOT EXISTS idx_memberships_org ON memberships(organization_id) WHERE is_active;
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate tenancy tables: %w", err)
	}
	return nil
}
