package tenancy

import (
	"context"
	"errors"
	"fmt"
)

// Resolver computes effective roles for a (principal, tenant) pair from the
// membership table. Absence of a membership is surfaced as ErrNoMembership,
// never a default role.
type Resolver struct {
	directory Directory
}

// NewResolver creates a Resolver backed by the given directory
func NewResolver(directory Directory) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve returns the effective role pair for the principal in the tenant.
// Returns ErrNoMembership when the principal holds no active membership;
// callers must treat that as zero privilege.
func (r *Resolver) Resolve(ctx context.Context, userID, orgID int64) (*RoleSet, error) {
	m, err := r.directory.GetMembership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, ErrNoMembership) {
			return nil, ErrNoMembership
		}
		return nil, fmt.Errorf("failed to resolve roles: %w", err)
	}
	return &RoleSet{OrgRole: m.OrgRole, WorkflowRole: m.WorkflowRole}, nil
}

// IsPlatformAdmin reports whether the principal is on the platform-admin
// allow-list. Resolved independently of any tenant.
func (r *Resolver) IsPlatformAdmin(ctx context.Context, userID int64) (bool, error) {
	admin, err := r.directory.GetPlatformAdmin(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check platform admin: %w", err)
	}
	return admin != nil, nil
}

// DefaultOrg returns the principal's earliest-joined active membership.
// Used only at first login to pick a working default tenant; it is never a
// runtime fallback inside the authorization path.
func (r *Resolver) DefaultOrg(ctx context.Context, userID int64) (*Membership, error) {
	memberships, err := r.directory.ListUserMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return nil, ErrNoMembership
	}
	return memberships[0], nil
}
