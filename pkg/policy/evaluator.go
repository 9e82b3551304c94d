package policy

import (
	"github.com/requisify/requisify/pkg/claims"
	"github.com/requisify/requisify/pkg/tenancy"
)

// Evaluator answers per-row authorization questions from Claims and RowMeta
// alone. It holds no connections and no mutable state; evaluation is a pure
// function, safe to run inline inside the caller's transaction.
type Evaluator struct {
	rules map[RuleKey]Rule
}

// NewEvaluator creates an evaluator over the default rule table
func NewEvaluator() *Evaluator {
	return &Evaluator{rules: DefaultRules()}
}

// NewEvaluatorWithRules creates an evaluator over a custom rule table
func NewEvaluatorWithRules(rules map[RuleKey]Rule) *Evaluator {
	return &Evaluator{rules: rules}
}

// CanRead reports whether a single row is visible to the claims holder.
// Reads fail silently: a false here means the row is omitted from results,
// never surfaced as an error, so cross-tenant existence is not leaked.
func (e *Evaluator) CanRead(c *claims.Claims, resource Resource, row RowMeta) bool {
	// Platform admins observe across tenants
	if c != nil && c.IsPlatformAdmin {
		return true
	}

	rule, ok := e.rules[RuleKey{resource, OpRead}]
	if !ok {
		return false
	}

	if c == nil || !c.HasTenant() || row.TenantID == nil {
		return false
	}
	if *row.TenantID != *c.TenantID {
		return false
	}

	if rule.ReadAllMembers {
		return true
	}
	if c.IsOrgAdmin() || c.IsWorkflowSuperAdmin() {
		return true
	}
	return row.CreatedBy == c.UserID || row.IsAssigned(c.UserID)
}

// FilterRead returns the visible subset of candidate rows, preserving order
func (e *Evaluator) FilterRead(c *claims.Claims, resource Resource, rows []RowMeta) []RowMeta {
	visible := make([]RowMeta, 0, len(rows))
	for _, row := range rows {
		if e.CanRead(c, resource, row) {
			visible = append(visible, row)
		}
	}
	return visible
}

// CheckWrite decides a create, update or delete. Writes fail loudly: the
// decision carries a reason and is meant to abort the caller's transaction.
func (e *Evaluator) CheckWrite(c *claims.Claims, resource Resource, op Operation, row RowMeta) Decision {
	rule, ok := e.rules[RuleKey{resource, op}]
	if !ok {
		return Deny(DenyUnknownResource)
	}

	// Platform admins may perform the narrow administrative writes, never
	// ordinary business writes into a tenant they do not belong to.
	if c != nil && c.IsPlatformAdmin && rule.PlatformAdminOp {
		return Allow()
	}

	if c == nil || !c.HasTenant() {
		return Deny(DenyNoTenant)
	}

	// Tenant match. On create a nil row tenant is acceptable here: the
	// invariant guard stamps it before commit.
	if row.TenantID != nil && *row.TenantID != *c.TenantID {
		return Deny(DenyCrossTenant)
	}
	if op != OpCreate && row.TenantID == nil {
		return Deny(DenyCrossTenant)
	}

	// Org admins pass every role and lifecycle gate within their tenant
	if c.IsOrgAdmin() {
		return Allow()
	}

	if rule.RequireOrgAdmin {
		return Deny(DenyRoleInsufficient)
	}

	if len(rule.RequiredWorkflowRoles) > 0 && !hasWorkflowRole(c, rule.RequiredWorkflowRoles) {
		return Deny(DenyRoleInsufficient)
	}

	if !rule.OwnerCanWrite {
		return Deny(DenyRoleInsufficient)
	}
	if op != OpCreate && row.CreatedBy != c.UserID {
		return Deny(DenyRoleInsufficient)
	}
	if op != OpCreate && !stateEditable(rule, row.State) {
		return Deny(DenyLifecycleState)
	}
	return Allow()
}

func hasWorkflowRole(c *claims.Claims, allowed []tenancy.WorkflowRole) bool {
	if c.WorkflowRole == nil {
		return false
	}
	for _, role := range allowed {
		if *c.WorkflowRole == role {
			return true
		}
	}
	return false
}

func stateEditable(rule Rule, state string) bool {
	if len(rule.EditableStates) == 0 {
		return true
	}
	for _, s := range rule.EditableStates {
		if s == state {
			return true
		}
	}
	return false
}
