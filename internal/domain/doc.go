// Package domain holds the core types, errors, and ports of the vote
// pipeline. It has no dependencies on infrastructure; the adapters in
// internal/redis and internal/database implement its interfaces.
package domain
