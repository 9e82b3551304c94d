// Package guard enforces the tenant invariant at write time: every new
// tenant-owned record commits with exactly one valid tenant_id, stamped
// from the acting principal's claims, or it does not commit at all.
//
// Stamp is a plain function returning a typed error so it can be unit
// tested without a live transaction. The Interceptor composes it with the
// policy check and the security-event emission; it runs inside the caller's
// transaction and a returned error aborts that transaction atomically, so
// partial stamping never happens.
package guard
