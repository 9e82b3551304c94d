// Package tenancy is the system of record for tenants, memberships and the
// platform-admin allow-list, and resolves effective roles from them.
//
// # Model
//
// An Organization is an isolated customer account. A Membership binds a
// principal to exactly one organization with an org role (owner/admin/member)
// and a workflow role (submitter/reviewer/approver/store_manager/super_admin).
// A principal may belong to many organizations but holds at most one
// membership row per organization. Removal deactivates the row; it is never
// deleted.
//
// # Role resolution
//
// Resolver.Resolve returns the effective role pair for a (principal, tenant)
// pair, or ErrNoMembership when none exists. Absence means zero privilege:
// no caller may substitute a default role. Platform-admin status is resolved
// independently of any tenant via the allow-list table.
//
// # Role dominance
//
// Membership mutations are the only way effective roles change, and the
// grantor's own role must dominate the role being granted: an admin can
// grant admin or member, only an owner can grant owner.
package tenancy
