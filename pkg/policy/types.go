package policy

// Resource represents a tenant-owned resource type in the system
type Resource string

const (
	ResourceRequisition     Resource = "requisition"
	ResourcePurchaseOrder   Resource = "purchase_order"
	ResourceReceipt         Resource = "receipt"
	ResourceProject         Resource = "project"
	ResourceExpenseCategory Resource = "expense_category"
	ResourceWorkflowRule    Resource = "workflow_rule"
	ResourceOrganization    Resource = "organization"
	ResourceMembership      Resource = "membership"
)

// Operation represents an operation on a resource
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// IsWrite reports whether the operation mutates data
func (op Operation) IsWrite() bool {
	return op != OpRead
}

// RowMeta describes the authorization-relevant fields of a candidate row.
// Evaluation is a pure function of Claims plus these fields; the evaluator
// never queries the directory.
type RowMeta struct {
	// TenantID is the row's tenant. Nil only on creates before stamping.
	TenantID *int64

	// CreatedBy is the principal that created the row
	CreatedBy int64

	// AssignedUserIDs are principals assigned to the row's parent
	// project or entity
	AssignedUserIDs []int64

	// State is the workflow lifecycle state, defined by the workflow
	// subsystem (e.g. "draft", "submitted", "approved")
	State string
}

// IsAssigned reports whether the principal is assigned to the row
func (r RowMeta) IsAssigned(userID int64) bool {
	for _, id := range r.AssignedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// DenyReason classifies why a write was rejected
type DenyReason string

const (
	// DenyNone means the operation was allowed
	DenyNone DenyReason = ""

	// DenyNoTenant means the claims carry no tenant: zero tenant-scoped access
	DenyNoTenant DenyReason = "no_tenant"

	// DenyCrossTenant means the claimed tenant and the row's tenant differ.
	// Always logged at critical severity by callers.
	DenyCrossTenant DenyReason = "cross_tenant"

	// DenyRoleInsufficient means neither ownership nor role granted the operation
	DenyRoleInsufficient DenyReason = "role_insufficient"

	// DenyLifecycleState means ownership would grant the operation but the
	// row is no longer in an editable state
	DenyLifecycleState DenyReason = "lifecycle_state"

	// DenyUnknownResource means no rule exists for the (resource, operation)
	// pair. Fail closed: an unlisted pair grants nothing.
	DenyUnknownResource DenyReason = "unknown_resource"
)

// Decision is the result of a write check. Writes fail loudly: the reason
// is surfaced to the caller, unlike reads which are silently filtered.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

// Allow returns an allowing decision
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a rejecting decision with the given reason
func Deny(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}
