// Package claims snapshots resolved roles into session tokens so that
// request-time authorization needs no database join.
//
// # Minting
//
// Claims are minted at login and refresh only, from an explicit tenant
// choice. The single permitted default is MintFirstLogin, which picks the
// principal's earliest-joined membership once, at login. No other code path
// may guess a tenant: absent tenant claims grant zero tenant-scoped access.
//
// # Staleness
//
// Claims are correct as of mint time. A membership revoked afterwards stays
// effective in already-issued tokens until expiry or refresh; the window is
// bounded by the token TTL (DefaultTokenTTL, configurable). For changes that
// cannot wait, VersionStore.Bump supersedes all outstanding tokens for a
// principal immediately.
package claims
