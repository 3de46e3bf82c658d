package models

import "time"

// Totals holds row counts across the store.
type Totals struct {
	Users   int64 `json:"users"`
	Polls   int64 `json:"polls"`
	Options int64 `json:"options"`
	Votes   int64 `json:"votes"`
}

// HostSample is a point-in-time reading of the host's resource usage.
type HostSample struct {
	CPUPercent    float64   `json:"cpuPercent"`
	MemoryPercent float64   `json:"memoryPercent"`
	UptimeSeconds uint64    `json:"uptimeSeconds"`
	SampledAt     time.Time `json:"sampledAt"`
}

// Stats is the payload of the stats endpoint.
type Stats struct {
	Totals Totals      `json:"totals"`
	Host   *HostSample `json:"host,omitempty"`
}
