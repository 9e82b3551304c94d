// Package session holds server-side login state and the login rate
// limiter.
//
// A Session records which organization the principal selected; access
// tokens are minted from that value and from nothing else. Stores come in
// two flavors: MemoryStore for tests and single-node setups, and
// RedisStore for anything shared.
//
// LoginLimiter throttles credential attempts per email and per source IP.
// Five consecutive failures inside a fifteen-minute window lock the key
// for the remainder of the window; a successful login resets the counter.
// Lockouts and failures are recorded as security events.
package session
