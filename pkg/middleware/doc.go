// Package middleware provides the HTTP request pipeline: request ID
// tagging, bearer-token decoding, and tenant scoping.
//
// ClaimsMiddleware turns the Authorization header into a claims snapshot
// on the context; superseded tokens are refused with a refresh hint.
// TenantMiddleware resolves the organization named in the route and
// checks it against the claims: a mismatch looks like a missing tenant
// on reads and a hard rejection on writes, and both are recorded as
// security events. Handlers downstream never parse tokens or route vars
// for tenancy themselves.
package middleware
