package domain

import "time"

// QueryStats tracks per-key access counters used to drive adaptive TTL and
// access-based TTL extension. Created on first cache write, updated on every
// hit, garbage-collected after the retention window.
type QueryStats struct {
	FirstAccess time.Time `json:"firstAccess"`
	LastAccess  time.Time `json:"lastAccess"`
	AccessCount int64     `json:"accessCount"`
	ResultSize  int64     `json:"resultSize"`
}

// Health is the verdict derived from hit ratio and error rate.
type Health string

const (
	// HealthHealthy indicates hit ratio and error rate are within thresholds.
	HealthHealthy Health = "healthy"
	// HealthWarning indicates hit ratio or error rate crossed a threshold.
	HealthWarning Health = "warning"
)

// MetricsSnapshot is a point-in-time view of a cache's accounting.
type MetricsSnapshot struct {
	Total        int64         `json:"total"`
	Hits         int64         `json:"hits"`
	Fresh        int64         `json:"fresh"`
	Errors       int64         `json:"errors"`
	HitRatio     float64       `json:"hitRatio"`
	AvgHitTime   time.Duration `json:"avgHitTime"`
	AvgFreshTime time.Duration `json:"avgFreshTime"`
	Health       Health        `json:"health"`
}
