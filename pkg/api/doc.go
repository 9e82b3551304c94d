// Package api assembles the HTTP surface.
//
// Routes are layered by trust: /auth/login is open (behind the login
// rate limiter), the rest of /auth rides on a session, everything else
// requires a verified token, /orgs/{org_id} additionally passes the
// tenant middleware, and /security is visible to platform admins only;
// to everyone else it does not exist.
//
// Credential verification is an injected interface; this service owns
// who may do what inside a tenant, not who the principal is.
package api
