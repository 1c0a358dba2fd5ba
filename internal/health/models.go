// Package health holds the system health snapshot model.
package health

import "time"

// Report is one health snapshot. Nothing is cached; every report
// re-samples. Sections for dependencies that are not configured are
// omitted rather than failed.
type Report struct {
	Runtime    RuntimeStats   `json:"runtime"`
	Database   *DatabaseStats `json:"database,omitempty"`
	Cache      *CacheStats    `json:"cache,omitempty"`
	AuditStore AuditStats     `json:"audit_store"`
	SampledAt  time.Time      `json:"sampled_at"`
}

// RuntimeStats samples the Go runtime.
type RuntimeStats struct {
	Goroutines     int     `json:"goroutines"`
	HeapAllocBytes uint64  `json:"heap_alloc_bytes"`
	HeapInUseBytes uint64  `json:"heap_inuse_bytes"`
	GCCycles       uint32  `json:"gc_cycles"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// DatabaseStats reports pool state after a successful ping.
type DatabaseStats struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// CacheStats reports cache connectivity after a successful ping.
type CacheStats struct {
	Connected bool `json:"connected"`
}

// AuditStats reports audit log volumes, diagnostics included.
type AuditStats struct {
	TotalEntries   int `json:"total_entries"`
	EntriesLast24h int `json:"entries_last_24h"`
}
