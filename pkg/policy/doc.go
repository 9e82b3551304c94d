// Package policy evaluates per-row authorization from token claims alone.
//
// Authorization is modeled as a declarative rule table keyed by
// (resource, operation) plus one generic evaluator, rather than a hand
// written predicate per table. Evaluation is a pure function of
// claims.Claims and RowMeta: it never queries the directory, so it can run
// inline with every data access inside the enclosing transaction.
//
// Denial is asymmetric on purpose. Reads fail silently (the row is omitted,
// existence is not leaked); writes fail loudly with a typed DenyReason so
// the enclosing transaction aborts instead of partially committing.
//
// Platform admins bypass the tenant match for reads and for the narrow
// administrative writes marked PlatformAdminOp. They never gain ordinary
// business writes: platform admins observe and administer, they do not
// impersonate tenant members.
package policy
