package policy

import (
	"github.com/requisify/requisify/pkg/tenancy"
)

// Rule declares who may perform one operation on one resource type. The
// whole authorization surface is this table plus one generic evaluator;
// adding a resource type is one entry per operation, and a consistency fix
// is a one-place change.
type Rule struct {
	// RequireOrgAdmin restricts the operation to org owners and admins
	RequireOrgAdmin bool

	// RequiredWorkflowRoles, when non-empty, restricts the operation to
	// these workflow roles (org admins are still exempt)
	RequiredWorkflowRoles []tenancy.WorkflowRole

	// OwnerCanWrite lets the row's creator perform the operation, subject
	// to EditableStates
	OwnerCanWrite bool

	// EditableStates, when non-empty, gates ownership-based writes to rows
	// in one of these lifecycle states. Role-based grants are not gated.
	EditableStates []string

	// ReadAllMembers marks reference data visible to every member of the
	// tenant, not only creators and assignees
	ReadAllMembers bool

	// PlatformAdminOp marks administrative operations platform admins may
	// perform across tenants (status/plan changes, membership admin).
	// Ordinary business writes never set this.
	PlatformAdminOp bool
}

// RuleKey addresses one row of the rule table
type RuleKey struct {
	Resource  Resource
	Operation Operation
}

// DefaultRules returns the rule table for the procurement resource set
func DefaultRules() map[RuleKey]Rule {
	anyMember := Rule{OwnerCanWrite: true}

	rules := map[RuleKey]Rule{
		// Requisitions: any member submits; editable by the creator while
		// draft, by org admins in any state.
		{ResourceRequisition, OpRead}:   {},
		{ResourceRequisition, OpCreate}: anyMember,
		{ResourceRequisition, OpUpdate}: {OwnerCanWrite: true, EditableStates: []string{"draft"}},
		{ResourceRequisition, OpDelete}: {OwnerCanWrite: true, EditableStates: []string{"draft"}},

		// Purchase orders: issued by approvers and store managers.
		{ResourcePurchaseOrder, OpRead}: {},
		{ResourcePurchaseOrder, OpCreate}: {
			OwnerCanWrite: true,
			RequiredWorkflowRoles: []tenancy.WorkflowRole{
				tenancy.WorkflowRoleApprover,
				tenancy.WorkflowRoleStoreManager,
				tenancy.WorkflowRoleSuperAdmin,
			},
		},
		{ResourcePurchaseOrder, OpUpdate}: {OwnerCanWrite: true, EditableStates: []string{"draft", "pending"}},
		{ResourcePurchaseOrder, OpDelete}: {OwnerCanWrite: true, EditableStates: []string{"draft"}},

		// Receipts: recorded by store managers against a purchase order.
		{ResourceReceipt, OpRead}: {},
		{ResourceReceipt, OpCreate}: {
			OwnerCanWrite: true,
			RequiredWorkflowRoles: []tenancy.WorkflowRole{
				tenancy.WorkflowRoleStoreManager,
				tenancy.WorkflowRoleSuperAdmin,
			},
		},
		{ResourceReceipt, OpUpdate}: {OwnerCanWrite: true, EditableStates: []string{"draft"}},

		// Projects: privileged reference data. Creation and deletion are
		// admin-only; creators may edit while the project is open.
		{ResourceProject, OpRead}:   {ReadAllMembers: true},
		{ResourceProject, OpCreate}: {RequireOrgAdmin: true},
		{ResourceProject, OpUpdate}: {OwnerCanWrite: true, EditableStates: []string{"draft", "active"}},
		{ResourceProject, OpDelete}: {RequireOrgAdmin: true},

		// Expense categories and workflow rules: admin-managed reference data.
		{ResourceExpenseCategory, OpRead}:   {ReadAllMembers: true},
		{ResourceExpenseCategory, OpCreate}: {RequireOrgAdmin: true},
		{ResourceExpenseCategory, OpUpdate}: {RequireOrgAdmin: true},
		{ResourceExpenseCategory, OpDelete}: {RequireOrgAdmin: true},

		{ResourceWorkflowRule, OpRead}:   {ReadAllMembers: true},
		{ResourceWorkflowRule, OpCreate}: {RequireOrgAdmin: true},
		{ResourceWorkflowRule, OpUpdate}: {RequireOrgAdmin: true},
		{ResourceWorkflowRule, OpDelete}: {RequireOrgAdmin: true},

		// Organization settings: admin-only. Status and plan changes are
		// the administrative writes platform admins may perform.
		{ResourceOrganization, OpRead}:   {ReadAllMembers: true},
		{ResourceOrganization, OpUpdate}: {RequireOrgAdmin: true, PlatformAdminOp: true},

		// Memberships: admin-managed; dominance is enforced by the
		// directory on top of this gate.
		{ResourceMembership, OpRead}:   {ReadAllMembers: true},
		{ResourceMembership, OpCreate}: {RequireOrgAdmin: true, PlatformAdminOp: true},
		{ResourceMembership, OpUpdate}: {RequireOrgAdmin: true, PlatformAdminOp: true},
		{ResourceMembership, OpDelete}: {RequireOrgAdmin: true, PlatformAdminOp: true},
	}

	return rules
}
