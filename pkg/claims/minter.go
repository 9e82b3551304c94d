package claims

import (
	"context"
	"errors"
	"fmt"

	"github.com/requisify/requisify/pkg/tenancy"
)

// Minter snapshots resolved roles into Claims at token mint time. Minting
// happens on login and refresh only; request-time authorization never calls
// back into the directory.
type Minter struct {
	resolver *tenancy.Resolver
}

// NewMinter creates a Minter backed by the given role resolver
func NewMinter(resolver *tenancy.Resolver) *Minter {
	return &Minter{resolver: resolver}
}

// Mint derives Claims for the principal scoped to the given tenant. A nil
// orgID produces claims with an absent tenant: downstream that means zero
// tenant-scoped access. Requesting a tenant the principal is not an active
// member of returns ErrNotAMember; the tenant is never silently swapped for
// another one.
func (m *Minter) Mint(ctx context.Context, userID int64, orgID *int64) (*Claims, error) {
	c := &Claims{UserID: userID}

	isAdmin, err := m.resolver.IsPlatformAdmin(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to mint claims: %w", err)
	}
	c.IsPlatformAdmin = isAdmin

	if orgID == nil {
		return c, nil
	}

	roles, err := m.resolver.Resolve(ctx, userID, *orgID)
	if err != nil {
		if errors.Is(err, tenancy.ErrNoMembership) {
			return nil, ErrNotAMember
		}
		return nil, fmt.Errorf("failed to mint claims: %w", err)
	}

	tenantID := *orgID
	c.TenantID = &tenantID
	c.OrgRole = &roles.OrgRole
	c.WorkflowRole = &roles.WorkflowRole
	return c, nil
}

// MintFirstLogin derives Claims for a principal with no selected tenant yet,
// defaulting to the earliest-joined active membership. This default is
// applied here, once, at login; it is never re-derived inside the
// authorization path. A principal with no memberships gets claims with an
// absent tenant.
func (m *Minter) MintFirstLogin(ctx context.Context, userID int64) (*Claims, error) {
	membership, err := m.resolver.DefaultOrg(ctx, userID)
	if err != nil {
		if errors.Is(err, tenancy.ErrNoMembership) {
			return m.Mint(ctx, userID, nil)
		}
		return nil, fmt.Errorf("failed to mint claims: %w", err)
	}
	return m.Mint(ctx, userID, &membership.OrganizationID)
}
