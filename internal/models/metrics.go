package models

import "time"

// SystemMetrics is the aggregated snapshot served by the analytics endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	PacketTransitions        uint64    `json:"packetTransitions"`
	SectionTransitions       uint64    `json:"sectionTransitions"`
	OrderTransitions         uint64    `json:"orderTransitions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
