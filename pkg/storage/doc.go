// Package storage holds the sentinel errors shared by the storage adapters.
//
// Adapters (memory, postgres, redis) implement the tenant.Directory and
// ratelimit.StatsSink capabilities. This package contains only the shared
// errors, not the interfaces themselves.
package storage
