package model

import "time"

type Snapshot struct {
	StartedAt    time.Time  `json:"started_at"`
	Paths        []string   `json:"paths"`
	Delivered    int        `json:"delivered"`
	Failed       int        `json:"failed"`
	Skipped      int        `json:"skipped"`
	InFlight     int        `json:"in_flight"`
	LastDelivery *time.Time `json:"last_delivery"`
}
