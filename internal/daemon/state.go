package daemon

import (
	"dropwatch/internal/model"
	"slices"
	"sync"
	"time"
)

type uploadResult int

const (
	resultDelivered uploadResult = iota
	resultFailed
	resultSkipped
)

// RunState counts upload outcomes for the status endpoint.
type RunState struct {
	mu           sync.RWMutex
	StartedAt    time.Time
	Paths        []string
	Delivered    int
	Failed       int
	Skipped      int
	InFlight     int
	LastDelivery *time.Time
}

func NewRunState(paths []string) *RunState {
	return &RunState{
		StartedAt: time.Now(),
		Paths:     slices.Clone(paths),
	}
}

func (s *RunState) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InFlight++
}

func (s *RunState) Finish(result uploadResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.InFlight--
	switch result {
	case resultDelivered:
		s.Delivered++
		s.LastDelivery = new(time.Now())
	case resultSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

func (s *RunState) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.Snapshot{
		StartedAt:    s.StartedAt,
		Paths:        slices.Clone(s.Paths),
		Delivered:    s.Delivered,
		Failed:       s.Failed,
		Skipped:      s.Skipped,
		InFlight:     s.InFlight,
		LastDelivery: s.LastDelivery,
	}
}
