package models

import "time"

// SystemMetrics is a JSON snapshot of the service's instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	DaysGenerated            uint64    `json:"days_generated"`
	AssignmentsTotal         uint64    `json:"assignments_total"`
	SubstitutionsTotal       uint64    `json:"substitutions_total"`
	UnscheduledTotal         uint64    `json:"unscheduled_total"`
	PersistFailures          uint64    `json:"persist_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
