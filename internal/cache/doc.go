// Package cache provides the key-value store shared by token verification
// components.
//
// Two backends implement Cache: an in-memory LRU with TTL expiry, and Redis
// via go-redis. Values are opaque byte slices; callers own serialization.
// Both backends emit OpenTelemetry spans and Prometheus metrics.
package cache
