package guard

import (
	"errors"
	"fmt"

	"github.com/requisify/requisify/pkg/claims"
)

// TenantStampable is any tenant-owned record passing through the guard.
// Business tables expose their tenant_id column through this interface and
// route every create through Stamp.
type TenantStampable interface {
	// TenantID returns the row's declared tenant, nil when not yet set
	TenantID() *int64

	// SetTenantID stamps the row with its tenant. Called at most once,
	// before commit; tenant_id is immutable afterwards.
	SetTenantID(orgID int64)
}

var (
	// ErrNoTenant is the tenant-invariant violation: no tenant could be
	// determined for a new row. Fatal and fail-closed; the write aborts,
	// nothing is silently defaulted.
	ErrNoTenant = errors.New("guard: no tenant for new record")

	// ErrCrossTenantWrite is returned when a row's declared tenant differs
	// from the acting principal's claimed tenant
	ErrCrossTenantWrite = errors.New("guard: record tenant does not match claimed tenant")
)

// Stamp enforces the tenant invariant on a create. If the record already
// declares a tenant it must equal the claimed tenant; if it declares none it
// is stamped with the claimed tenant. Absent claimed tenant is fatal.
//
// Stamp is the single choke point for new tenant-owned data: any code path,
// including future resource types, that creates rows goes through here, so
// orphaned or cross-tenant-assigned rows cannot exist.
func Stamp(c *claims.Claims, record TenantStampable) error {
	if c == nil || !c.HasTenant() {
		return ErrNoTenant
	}

	declared := record.TenantID()
	if declared != nil {
		if *declared != *c.TenantID {
			return fmt.Errorf("%w: declared %d, claimed %d", ErrCrossTenantWrite, *declared, *c.TenantID)
		}
		return nil
	}

	record.SetTenantID(*c.TenantID)
	return nil
}
