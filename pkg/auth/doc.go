// Package auth provides pluggable credential checks and identity
// resolution for the gateway.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default voter decides
// when all authenticators abstain.
//
// TenantResolver is the last stage before business handlers. It combines
// a verified bearer token with the tenant injected by tenant.Lookup and
// fails closed when either is missing.
package auth
